package domain

import (
	"errors"
	"time"
)

// Common validation errors for ObjectiveHistoryEntry
var (
	ErrEmptyHistoryLearnerID = errors.New("history learner ID cannot be empty")
	ErrEmptyHistoryObjective = errors.New("history objective cannot be empty")
	ErrInvalidUseCount       = errors.New("history use count must be positive")
)

// ObjectiveHistoryEntry records that a learner has seen one objective for
// one task type. Entries are keyed by (learner, task type, objective);
// repeat selections bump UseCount and LastUsedAt instead of adding rows.
//
// The set of entries for a (learner, task type) pair is the "seen pool":
// the picker never reuses an objective from it while the candidate pool has
// unseen items, and the least-recently-used entry is the exhaustion
// fallback.
type ObjectiveHistoryEntry struct {
	LearnerID   string    `json:"learner_id"`
	TaskType    TaskType  `json:"task_type"`
	Objective   string    `json:"objective"`
	FirstUsedAt time.Time `json:"first_used_at"`
	LastUsedAt  time.Time `json:"last_used_at"`
	UseCount    int       `json:"use_count"`
}

// NewObjectiveHistoryEntry creates a first-use history entry.
// Returns an error if validation fails.
func NewObjectiveHistoryEntry(learnerID string, taskType TaskType, objective string) (*ObjectiveHistoryEntry, error) {
	now := time.Now().UTC()
	entry := &ObjectiveHistoryEntry{
		LearnerID:   learnerID,
		TaskType:    taskType,
		Objective:   objective,
		FirstUsedAt: now,
		LastUsedAt:  now,
		UseCount:    1,
	}

	if err := entry.Validate(); err != nil {
		return nil, err
	}

	return entry, nil
}

// Validate checks if the ObjectiveHistoryEntry has valid data.
// Returns an error if any field fails validation.
func (e *ObjectiveHistoryEntry) Validate() error {
	if e.LearnerID == "" {
		return ErrEmptyHistoryLearnerID
	}

	if !e.TaskType.Valid() {
		return ErrInvalidTaskType
	}

	if e.Objective == "" {
		return ErrEmptyHistoryObjective
	}

	if e.UseCount < 1 {
		return ErrInvalidUseCount
	}

	return nil
}
