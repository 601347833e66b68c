package domain

import (
	"errors"
	"strings"
)

// TaskType identifies one of the enumerated exercise categories.
type TaskType string

// The closed task type catalog. Catalog order is canonical: it fixes menu
// layout and breaks selection ties, so new types are appended, not inserted.
const (
	TaskTypeErrorCorrection TaskType = "error_correction"
	TaskTypeVocabulary      TaskType = "vocabulary"
	TaskTypeIdiom           TaskType = "idiom"
	TaskTypePhrasalVerb     TaskType = "phrasal_verb"
	TaskTypeFluency         TaskType = "fluency"
	TaskTypeVoice           TaskType = "voice"
	TaskTypeWriting         TaskType = "writing"
	TaskTypeListening       TaskType = "listening"
	TaskTypeDescribing      TaskType = "describing"
)

// ErrInvalidTaskType is returned when a task type is not in the catalog.
var ErrInvalidTaskType = errors.New("invalid task type")

// ObjectiveKind names the namespace a task type draws its main learning
// objective from. The candidate source uses it to phrase candidate requests.
type ObjectiveKind string

// Objective namespaces.
const (
	ObjectiveWord        ObjectiveKind = "word"
	ObjectiveIdiom       ObjectiveKind = "idiom"
	ObjectivePhrasalVerb ObjectiveKind = "phrasal verb"
	ObjectiveTopic       ObjectiveKind = "topic"
	ObjectiveGrammar     ObjectiveKind = "grammar point"
)

// TaskTypeSpec is the handler-table entry for one task type: everything the
// engine needs to generate, deduplicate, and evaluate tasks of that type
// without branching on the type elsewhere.
type TaskTypeSpec struct {
	// Type is the catalog identifier.
	Type TaskType

	// Label is the human-readable name used in menus and reports.
	Label string

	// Objective is the candidate namespace the picker draws from.
	Objective ObjectiveKind

	// Scored is false for subjective types whose evaluations carry
	// feedback text but no correctness score.
	Scored bool

	// PoolSize is the assumed size of the candidate pool; once a learner
	// has seen this many objectives the exhaustion policy applies.
	PoolSize int
}

// catalog holds the specs in canonical order.
var catalog = []TaskTypeSpec{
	{TaskTypeErrorCorrection, "Error correction", ObjectiveGrammar, true, 40},
	{TaskTypeVocabulary, "Vocabulary", ObjectiveWord, true, 500},
	{TaskTypeIdiom, "Idiom", ObjectiveIdiom, true, 120},
	{TaskTypePhrasalVerb, "Phrasal verb", ObjectivePhrasalVerb, true, 150},
	{TaskTypeFluency, "Fluency", ObjectiveWord, true, 500},
	{TaskTypeVoice, "Voice practice", ObjectiveTopic, false, 60},
	{TaskTypeWriting, "Writing", ObjectiveTopic, true, 60},
	{TaskTypeListening, "Listening", ObjectiveTopic, true, 60},
	{TaskTypeDescribing, "Describing", ObjectiveTopic, true, 60},
}

// specIndex maps types to their catalog entry for O(1) lookup.
var specIndex = func() map[TaskType]TaskTypeSpec {
	m := make(map[TaskType]TaskTypeSpec, len(catalog))
	for _, spec := range catalog {
		m[spec.Type] = spec
	}
	return m
}()

// Catalog returns the task type specs in canonical order.
// The returned slice is a copy; callers may not mutate the catalog.
func Catalog() []TaskTypeSpec {
	out := make([]TaskTypeSpec, len(catalog))
	copy(out, catalog)
	return out
}

// SpecFor returns the catalog entry for the given task type.
// The boolean is false when the type is not in the catalog.
func SpecFor(t TaskType) (TaskTypeSpec, bool) {
	spec, ok := specIndex[t]
	return spec, ok
}

// Valid reports whether the task type is in the catalog.
func (t TaskType) Valid() bool {
	_, ok := specIndex[t]
	return ok
}

// Label returns the human-readable name for the task type, or the raw value
// when the type is unknown.
func (t TaskType) Label() string {
	if spec, ok := specIndex[t]; ok {
		return spec.Label
	}
	return string(t)
}

// ParseTaskType converts learner input into a TaskType. It accepts the
// catalog identifier ("phrasal_verb"), the label ("Phrasal verb"), or a
// spaced variant ("phrasal verb"), case-insensitively.
// Returns ErrInvalidTaskType for unrecognized input.
func ParseTaskType(s string) (TaskType, error) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	if normalized == "" {
		return "", ErrInvalidTaskType
	}

	if t := TaskType(normalized); t.Valid() {
		return t, nil
	}

	collapsed := TaskType(strings.ReplaceAll(normalized, " ", "_"))
	if collapsed.Valid() {
		return collapsed, nil
	}

	for _, spec := range catalog {
		if strings.ToLower(spec.Label) == normalized {
			return spec.Type, nil
		}
	}

	return "", ErrInvalidTaskType
}
