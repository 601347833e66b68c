package generation

import (
	"context"
	"fmt"

	"github.com/phrazzld/lingo-api/internal/domain"
)

// Evaluation is the outcome of judging a learner's response.
type Evaluation struct {
	// Score grades the response between 0 and 1. For unscored task types
	// the value is advisory and callers discard it.
	Score float64

	// Feedback is the commentary delivered back to the learner, written in
	// the instruction language the task was issued with.
	Feedback string
}

// Validate checks that the evaluation is within contract bounds.
func (e *Evaluation) Validate() error {
	if e.Score < 0 || e.Score > 1 {
		return fmt.Errorf("%w: score %v outside [0, 1]", ErrInvalidResponse, e.Score)
	}
	if e.Feedback == "" {
		return fmt.Errorf("%w: empty feedback", ErrInvalidResponse)
	}
	return nil
}

// Evaluator defines the interface for judging a learner's response to
// previously generated task content.
type Evaluator interface {
	// Evaluate scores the response against the task content using the
	// parameters snapshotted at issue time, never the learner's current
	// preferences.
	Evaluate(ctx context.Context, content *TaskContent, response string, params domain.GenerationParameters) (*Evaluation, error)
}

// Transcriber defines the interface for turning voice messages into text so
// they can be evaluated like any other response.
type Transcriber interface {
	// Transcribe converts audio data with the given MIME type into text.
	Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error)
}
