package generation

import (
	"context"

	"github.com/phrazzld/lingo-api/internal/domain"
)

// TaskContent is the generated material for one task, ready for delivery.
// It carries enough context to be re-assembled from a stored TaskRecord when
// the learner's response arrives in a later invocation.
type TaskContent struct {
	// TaskType is the exercise category the content was generated for.
	TaskType domain.TaskType

	// Objective is the main learning item the task exercises.
	Objective string

	// Body is the full text delivered to the learner, instructions included.
	Body string
}

// Generator defines the interface for producing task content from a chosen
// objective. This interface is the boundary between the application core and
// external AI/LLM services; the core never sees prompts or model responses.
type Generator interface {
	// Generate creates task content exercising the given objective at the
	// supplied difficulty and language parameters. It must be idempotent-safe
	// to retry: generating twice for the same inputs issues no state anywhere.
	//
	// Returns errors from this package's taxonomy; ErrTransientFailure marks
	// outcomes worth retrying.
	Generate(ctx context.Context, taskType domain.TaskType, objective string, params domain.GenerationParameters) (*TaskContent, error)
}

// CandidateSource defines the interface for requesting candidate objectives
// for a task type. The picker filters the returned batch against committed
// history; the source itself is stateless and may repeat suggestions.
type CandidateSource interface {
	// Candidates returns up to n candidate objectives appropriate to the
	// task type and parameters. The avoid list carries recently used
	// objectives the source should steer away from; honoring it is
	// best-effort, novelty is enforced by the caller.
	Candidates(ctx context.Context, taskType domain.TaskType, params domain.GenerationParameters, avoid []string, n int) ([]string, error)
}
