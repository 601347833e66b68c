package domain

// ObjectiveLanguage is the language all main learning objectives are
// generated in, regardless of the learner's response-language preference.
// Only surrounding instructions and feedback follow the profile language.
const ObjectiveLanguage = "en"

// GenerationParameters carries everything the content generator needs to
// produce a task at the right level, resolved from a profile at issue time.
// A TaskRecord snapshots Difficulty and InstructionLanguage so that later
// profile changes never affect an already-issued task.
type GenerationParameters struct {
	Difficulty          DifficultyTier `json:"difficulty"`
	VocabularyBand      string         `json:"vocabulary_band"`
	SentenceComplexity  string         `json:"sentence_complexity"`
	InstructionLanguage string         `json:"instruction_language"`
	ObjectiveLanguage   string         `json:"objective_language"`
}

// tierProfiles maps each difficulty tier onto the complexity descriptors
// the prompt templates interpolate.
var tierProfiles = map[DifficultyTier]struct {
	vocabularyBand     string
	sentenceComplexity string
}{
	DifficultyBeginner: {
		vocabularyBand:     "common everyday words (roughly A2 level)",
		sentenceComplexity: "short, simple sentences",
	},
	DifficultyIntermediate: {
		vocabularyBand:     "general-interest vocabulary (roughly B1-B2 level)",
		sentenceComplexity: "compound sentences of moderate length",
	},
	DifficultyAdvanced: {
		vocabularyBand:     "nuanced, lower-frequency vocabulary (roughly C1 level)",
		sentenceComplexity: "complex sentences with subordinate clauses",
	},
}

// ResolveGenerationParameters turns a learner profile into the parameters a
// task should be generated and evaluated with. It is a pure function of the
// profile passed in; callers snapshot the result on the TaskRecord.
func ResolveGenerationParameters(profile *LearnerProfile) GenerationParameters {
	return ParametersFor(profile.Difficulty, profile.Language)
}

// ParametersFor resolves generation parameters from an explicit tier and
// instruction language, falling back to the defaults for values outside the
// catalog. Evaluation of a pending TaskRecord uses this with the record's
// issue-time snapshot, so a profile change never reaches an open task.
func ParametersFor(tier DifficultyTier, language string) GenerationParameters {
	if !tier.Valid() {
		tier = DifficultyIntermediate
	}

	if !IsSupportedLanguage(language) {
		language = DefaultLanguage
	}

	tp := tierProfiles[tier]
	return GenerationParameters{
		Difficulty:          tier,
		VocabularyBand:      tp.vocabularyBand,
		SentenceComplexity:  tp.sentenceComplexity,
		InstructionLanguage: language,
		ObjectiveLanguage:   ObjectiveLanguage,
	}
}
