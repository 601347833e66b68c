// Package gemini provides implementations of the generation interfaces using
// Google's Gemini API.
package gemini

// taskPromptData is the payload the per-type task templates render with.
type taskPromptData struct {
	// Objective is the main learning item the task is built around.
	Objective string

	// VocabularyBand and SentenceComplexity are the difficulty descriptors
	// resolved from the learner's tier at issue time.
	VocabularyBand     string
	SentenceComplexity string

	// InstructionLanguage is the ISO 639-1 code instructions and feedback
	// are written in. ObjectiveLanguage is the code the learning material
	// itself stays in.
	InstructionLanguage string
	ObjectiveLanguage   string
}

// candidatePromptData is the payload the candidate-listing template renders
// with.
type candidatePromptData struct {
	// Count is how many objectives to request.
	Count int

	// Namespace names what kind of objective to list (word, idiom, topic).
	Namespace string

	// Avoid lists recently used objectives the model should not repeat.
	Avoid []string

	VocabularyBand    string
	ObjectiveLanguage string
}

// evaluationPromptData is the payload the evaluation template renders with.
type evaluationPromptData struct {
	// TaskBody is the full task text the learner was given.
	TaskBody string

	// Response is the learner's reply, transcribed first if it arrived as
	// a voice message.
	Response string

	InstructionLanguage string
}
