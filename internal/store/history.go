package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/lingo-api/internal/domain"
)

// ObjectiveHistoryStore defines the interface for per-learner objective
// usage history, keyed by (learner, task type, objective). It backs the
// no-repeat guarantee and the reuse fallback when a pool runs dry.
type ObjectiveHistoryStore interface {
	// HasSeen reports whether the learner has already been given the
	// objective for the task type. Matching is exact on the stored form;
	// callers normalize before asking.
	HasSeen(ctx context.Context, learnerID string, taskType domain.TaskType, objective string) (bool, error)

	// Record marks one more use of the objective for the learner. The write
	// is a single atomic upsert: a new key starts at UseCount 1, an existing
	// key has its UseCount incremented and LastUsedAt advanced. Concurrent
	// Record calls for the same key must not lose increments.
	Record(ctx context.Context, learnerID string, taskType domain.TaskType, objective string) error

	// SeenCount returns how many distinct objectives the learner has used
	// for the task type. The selector compares this against the pool size
	// to detect exhaustion.
	SeenCount(ctx context.Context, learnerID string, taskType domain.TaskType) (int, error)

	// LeastRecentlyUsed returns up to limit entries for the learner and task
	// type ordered by LastUsedAt ascending, then objective ascending for
	// stable pagination. Feeds the reuse fallback on pool exhaustion.
	LeastRecentlyUsed(ctx context.Context, learnerID string, taskType domain.TaskType, limit int) ([]*domain.ObjectiveHistoryEntry, error)

	// Reset deletes all history entries for the learner and task type,
	// returning the number of entries removed. Used by the reset exhaustion
	// policy and the admin reset endpoint. Resetting an empty history is
	// not an error.
	Reset(ctx context.Context, learnerID string, taskType domain.TaskType) (int64, error)

	// ListRecent returns up to limit entries for the learner and task type
	// ordered by LastUsedAt descending. Feeds the avoid list handed to the
	// candidate source.
	ListRecent(ctx context.Context, learnerID string, taskType domain.TaskType, limit int) ([]*domain.ObjectiveHistoryEntry, error)

	// WithTx returns an ObjectiveHistoryStore bound to the provided transaction.
	WithTx(tx *sql.Tx) ObjectiveHistoryStore
}
