package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/lingo-api/internal/domain"
)

// TaskRecordStore defines the interface for task record persistence.
type TaskRecordStore interface {
	// Create saves a new task record, normally in the pending state.
	// Returns ErrDuplicate if a record with the same ID already exists.
	// Returns validation errors from the domain record if data is invalid.
	Create(ctx context.Context, record *domain.TaskRecord) error

	// GetByID retrieves a task record by its unique ID.
	// Returns ErrTaskRecordNotFound if the record does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.TaskRecord, error)

	// GetPending returns the learner's open task, or ErrTaskRecordNotFound
	// when nothing is pending. At most one task per learner is pending at a
	// time; implementations return the newest if an older one was orphaned.
	GetPending(ctx context.Context, learnerID string) (*domain.TaskRecord, error)

	// Update writes a modified record back using compare-and-swap on the
	// Version field, incrementing it on success (both on the row and on the
	// passed record). Returns ErrConflict when the stored version no longer
	// matches, which is how a completion racing an abandonment loses.
	// Returns ErrTaskRecordNotFound if the record does not exist.
	Update(ctx context.Context, record *domain.TaskRecord) error

	// ListByLearner returns the learner's task records ordered by IssuedAt
	// descending, newest first. A limit of 0 means no limit. Feeds the
	// progress aggregator and the admin history endpoint.
	ListByLearner(ctx context.Context, learnerID string, limit int) ([]*domain.TaskRecord, error)

	// CountByState returns how many records the learner has in the given
	// state. Used by operational reporting.
	CountByState(ctx context.Context, learnerID string, state domain.TaskState) (int, error)

	// WithTx returns a TaskRecordStore bound to the provided transaction.
	WithTx(tx *sql.Tx) TaskRecordStore
}
