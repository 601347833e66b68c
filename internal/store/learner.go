package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/lingo-api/internal/domain"
)

// LearnerStore defines the interface for learner profile persistence.
type LearnerStore interface {
	// Create saves a new learner profile to the store.
	// Returns ErrLearnerExists if a profile with the same ID already exists.
	// Returns validation errors from the domain profile if data is invalid.
	Create(ctx context.Context, profile *domain.LearnerProfile) error

	// Get retrieves a learner profile by its ID.
	// Returns ErrLearnerNotFound if no profile exists for the ID.
	Get(ctx context.Context, id string) (*domain.LearnerProfile, error)

	// Update writes a modified profile back using compare-and-swap on the
	// Version field: the row is only written when the stored version still
	// matches profile.Version, and the version is incremented on success
	// (both on the row and on the passed profile).
	// Returns ErrConflict when another writer got there first; callers are
	// expected to re-read and retry.
	// Returns ErrLearnerNotFound if the profile does not exist.
	Update(ctx context.Context, profile *domain.LearnerProfile) error

	// Delete removes a learner profile by its ID.
	// Returns ErrLearnerNotFound if the profile does not exist.
	// Task records and objective history for the learner are removed by
	// the schema's cascade rules, not by application code.
	Delete(ctx context.Context, id string) error

	// WithTx returns a LearnerStore bound to the provided transaction so
	// multiple operations can commit or roll back together. The transaction
	// lifecycle belongs to the caller, typically via RunInTransaction.
	WithTx(tx *sql.Tx) LearnerStore
}
