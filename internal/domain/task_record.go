package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TaskState represents where a task record is in its lifecycle.
type TaskState string

// Possible task states. Transitions run one way only:
// pending -> completed, or pending -> abandoned.
const (
	TaskStatePending   TaskState = "pending"
	TaskStateCompleted TaskState = "completed"
	TaskStateAbandoned TaskState = "abandoned"
)

// FeedbackKind classifies a recorded outcome.
type FeedbackKind string

// Possible feedback kinds. Unscored is used for subjective task types whose
// evaluation produces commentary but no correctness verdict.
const (
	FeedbackCorrect   FeedbackKind = "correct"
	FeedbackPartial   FeedbackKind = "partial"
	FeedbackIncorrect FeedbackKind = "incorrect"
	FeedbackUnscored  FeedbackKind = "unscored"
)

// AbandonReason records why a pending task was closed without completion.
type AbandonReason string

// Possible abandon reasons.
const (
	AbandonTimeout AbandonReason = "timeout"
	AbandonSkipped AbandonReason = "skipped"
)

// Score thresholds mapping an evaluation score onto a feedback kind.
const (
	scoreCorrectMin = 0.75
	scorePartialMin = 0.40
)

// Common validation errors for TaskRecord
var (
	ErrEmptyTaskID        = errors.New("task ID cannot be empty")
	ErrEmptyTaskLearnerID = errors.New("task learner ID cannot be empty")
	ErrEmptyObjective     = errors.New("task objective cannot be empty")
	ErrEmptyTaskContent   = errors.New("task content cannot be empty")
	ErrInvalidTaskState   = errors.New("invalid task state")
	ErrInvalidFeedback    = errors.New("invalid feedback kind")
	ErrInvalidScore       = errors.New("score must be between 0 and 1")
	ErrScoreMismatch      = errors.New("unscored outcomes cannot carry a score")
	ErrTaskNotPending     = errors.New("task is not pending")
	ErrInvalidAbandon     = errors.New("invalid abandon reason")
)

// TaskRecord is one issued task instance for one learner. It is created in
// the pending state when content is delivered, and is completed or abandoned
// exactly once; afterward it is immutable history.
//
// Difficulty and Language are snapshots of the profile at issue time.
// Evaluation always uses these, never the learner's current preferences.
//
// Version is the optimistic-concurrency token guarding the single
// pending -> completed/abandoned transition.
type TaskRecord struct {
	ID            uuid.UUID      `json:"id"`
	LearnerID     string         `json:"learner_id"`
	Type          TaskType       `json:"task_type"`
	Objective     string         `json:"objective"`
	Difficulty    DifficultyTier `json:"difficulty"`
	Language      string         `json:"language"`
	Content       string         `json:"content"`
	State         TaskState      `json:"state"`
	Score         *float64       `json:"score,omitempty"`
	Feedback      FeedbackKind   `json:"feedback,omitempty"`
	AbandonReason AbandonReason  `json:"abandon_reason,omitempty"`
	IssuedAt      time.Time      `json:"issued_at"`
	CompletedAt   *time.Time     `json:"completed_at,omitempty"`
	Version       int64          `json:"version"`
}

// NewTaskRecord creates a pending TaskRecord for the given learner, task
// type, and objective, snapshotting the generation parameters in effect.
// Returns an error if validation fails.
func NewTaskRecord(
	learnerID string,
	taskType TaskType,
	objective string,
	params GenerationParameters,
	content string,
) (*TaskRecord, error) {
	record := &TaskRecord{
		ID:         uuid.New(),
		LearnerID:  learnerID,
		Type:       taskType,
		Objective:  objective,
		Difficulty: params.Difficulty,
		Language:   params.InstructionLanguage,
		Content:    content,
		State:      TaskStatePending,
		IssuedAt:   time.Now().UTC(),
		Version:    1,
	}

	if err := record.Validate(); err != nil {
		return nil, err
	}

	return record, nil
}

// Validate checks if the TaskRecord has valid data.
// Returns an error if any field fails validation.
func (r *TaskRecord) Validate() error {
	if r.ID == uuid.Nil {
		return ErrEmptyTaskID
	}

	if r.LearnerID == "" {
		return ErrEmptyTaskLearnerID
	}

	if !r.Type.Valid() {
		return ErrInvalidTaskType
	}

	if r.Objective == "" {
		return ErrEmptyObjective
	}

	if !r.Difficulty.Valid() {
		return ErrInvalidDifficulty
	}

	if r.Content == "" {
		return ErrEmptyTaskContent
	}

	if !isValidTaskState(r.State) {
		return ErrInvalidTaskState
	}

	if r.Score != nil && (*r.Score < 0 || *r.Score > 1) {
		return ErrInvalidScore
	}

	if r.Feedback == FeedbackUnscored && r.Score != nil {
		return ErrScoreMismatch
	}

	return nil
}

// Pending reports whether the record is still awaiting an outcome.
func (r *TaskRecord) Pending() bool {
	return r.State == TaskStatePending
}

// ExpiredAt reports whether a pending record has outlived the abandonment
// window as of now. Completed and abandoned records never expire.
func (r *TaskRecord) ExpiredAt(now time.Time, window time.Duration) bool {
	return r.State == TaskStatePending && now.Sub(r.IssuedAt) > window
}

// Complete transitions the record from pending to completed with the given
// outcome. A nil score is only valid together with FeedbackUnscored.
// Returns ErrTaskNotPending if the record already left the pending state.
func (r *TaskRecord) Complete(score *float64, feedback FeedbackKind, at time.Time) error {
	if r.State != TaskStatePending {
		return ErrTaskNotPending
	}

	if !isValidFeedbackKind(feedback) {
		return ErrInvalidFeedback
	}

	if feedback == FeedbackUnscored {
		if score != nil {
			return ErrScoreMismatch
		}
	} else {
		if score == nil || *score < 0 || *score > 1 {
			return ErrInvalidScore
		}
	}

	completedAt := at.UTC()
	r.State = TaskStateCompleted
	r.Score = score
	r.Feedback = feedback
	r.CompletedAt = &completedAt
	return nil
}

// Abandon transitions the record from pending to abandoned.
// Returns ErrTaskNotPending if the record already left the pending state.
func (r *TaskRecord) Abandon(reason AbandonReason, at time.Time) error {
	if r.State != TaskStatePending {
		return ErrTaskNotPending
	}

	if reason != AbandonTimeout && reason != AbandonSkipped {
		return ErrInvalidAbandon
	}

	abandonedAt := at.UTC()
	r.State = TaskStateAbandoned
	r.AbandonReason = reason
	r.CompletedAt = &abandonedAt
	return nil
}

// FeedbackForScore maps an evaluation score onto a feedback kind using the
// fixed thresholds.
func FeedbackForScore(score float64) FeedbackKind {
	switch {
	case score >= scoreCorrectMin:
		return FeedbackCorrect
	case score >= scorePartialMin:
		return FeedbackPartial
	default:
		return FeedbackIncorrect
	}
}

// isValidTaskState checks if the given state is a valid TaskState.
func isValidTaskState(state TaskState) bool {
	switch state {
	case TaskStatePending, TaskStateCompleted, TaskStateAbandoned:
		return true
	default:
		return false
	}
}

// isValidFeedbackKind checks if the given kind is a valid FeedbackKind.
func isValidFeedbackKind(kind FeedbackKind) bool {
	switch kind {
	case FeedbackCorrect, FeedbackPartial, FeedbackIncorrect, FeedbackUnscored:
		return true
	default:
		return false
	}
}
