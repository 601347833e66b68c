package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/lingo-api/internal/domain"
	"github.com/phrazzld/lingo-api/internal/platform/logger"
	"github.com/phrazzld/lingo-api/internal/store"
)

// PostgresLearnerStore implements the store.LearnerStore interface
// using a PostgreSQL database as the storage backend.
type PostgresLearnerStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresLearnerStore creates a new PostgreSQL implementation of the
// LearnerStore interface. It accepts a database connection or transaction
// managed by the caller. If logger is nil, a default logger is used.
func NewPostgresLearnerStore(db store.DBTX, log *slog.Logger) *PostgresLearnerStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if log == nil {
		log = slog.Default()
	}

	return &PostgresLearnerStore{
		db:     db,
		logger: log.With(slog.String("component", "learner_store")),
	}
}

// Ensure PostgresLearnerStore implements store.LearnerStore interface
var _ store.LearnerStore = (*PostgresLearnerStore)(nil)

// Create implements store.LearnerStore.Create.
// Returns store.ErrLearnerExists when the learner already has a profile.
func (s *PostgresLearnerStore) Create(ctx context.Context, profile *domain.LearnerProfile) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := profile.Validate(); err != nil {
		log.Warn("learner validation failed during create",
			slog.String("error", err.Error()),
			slog.String("learner_id", profile.ID))
		return err
	}

	query := `
		INSERT INTO learners (id, difficulty, language, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		profile.ID,
		profile.Difficulty,
		profile.Language,
		profile.CreatedAt,
		profile.UpdatedAt,
		profile.Version,
	)

	if err != nil {
		if IsUniqueViolation(err) {
			log.Debug("learner already exists",
				slog.String("learner_id", profile.ID))
			return fmt.Errorf("%w: %v", store.ErrLearnerExists, err)
		}

		log.Error("failed to create learner",
			slog.String("error", err.Error()),
			slog.String("learner_id", profile.ID))
		return MapError(err)
	}

	log.Info("learner created",
		slog.String("learner_id", profile.ID),
		slog.String("difficulty", string(profile.Difficulty)),
		slog.String("language", profile.Language))
	return nil
}

// Get implements store.LearnerStore.Get.
// Returns store.ErrLearnerNotFound if no profile exists for the ID.
func (s *PostgresLearnerStore) Get(ctx context.Context, id string) (*domain.LearnerProfile, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, difficulty, language, created_at, updated_at, version
		FROM learners
		WHERE id = $1
	`

	var profile domain.LearnerProfile
	var difficulty string

	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&profile.ID,
		&difficulty,
		&profile.Language,
		&profile.CreatedAt,
		&profile.UpdatedAt,
		&profile.Version,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("learner not found", slog.String("learner_id", id))
			return nil, store.ErrLearnerNotFound
		}
		log.Error("failed to get learner",
			slog.String("error", err.Error()),
			slog.String("learner_id", id))
		return nil, MapError(err)
	}

	profile.Difficulty = domain.DifficultyTier(difficulty)

	return &profile, nil
}

// Update implements store.LearnerStore.Update using compare-and-swap on the
// version column. The UPDATE only matches when the stored version equals the
// version the caller read; zero rows affected on an existing learner means
// another writer won and the caller gets store.ErrConflict.
func (s *PostgresLearnerStore) Update(ctx context.Context, profile *domain.LearnerProfile) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := profile.Validate(); err != nil {
		log.Warn("learner validation failed during update",
			slog.String("error", err.Error()),
			slog.String("learner_id", profile.ID))
		return err
	}

	profile.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE learners
		SET difficulty = $1, language = $2, updated_at = $3, version = version + 1
		WHERE id = $4 AND version = $5
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		profile.Difficulty,
		profile.Language,
		profile.UpdatedAt,
		profile.ID,
		profile.Version,
	)

	if err != nil {
		log.Error("failed to update learner",
			slog.String("error", err.Error()),
			slog.String("learner_id", profile.ID))
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("learner_id", profile.ID))
		return MapError(err)
	}

	if rowsAffected == 0 {
		// Distinguish a stale version from a missing row.
		exists, existsErr := s.exists(ctx, profile.ID)
		if existsErr != nil {
			return existsErr
		}
		if !exists {
			log.Debug("learner not found for update",
				slog.String("learner_id", profile.ID))
			return store.ErrLearnerNotFound
		}
		log.Debug("learner version conflict",
			slog.String("learner_id", profile.ID),
			slog.Int64("version", profile.Version))
		return fmt.Errorf("%w: learner %s at version %d", store.ErrConflict, profile.ID, profile.Version)
	}

	profile.Version++

	log.Info("learner updated",
		slog.String("learner_id", profile.ID),
		slog.String("difficulty", string(profile.Difficulty)),
		slog.String("language", profile.Language),
		slog.Int64("version", profile.Version))
	return nil
}

// Delete implements store.LearnerStore.Delete.
// Returns store.ErrLearnerNotFound if the profile does not exist.
func (s *PostgresLearnerStore) Delete(ctx context.Context, id string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM learners WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete learner",
			slog.String("error", err.Error()),
			slog.String("learner_id", id))
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return MapError(err)
	}
	if rowsAffected == 0 {
		return store.ErrLearnerNotFound
	}

	log.Info("learner deleted", slog.String("learner_id", id))
	return nil
}

// WithTx implements store.LearnerStore.WithTx by rebinding the store to the
// given transaction.
func (s *PostgresLearnerStore) WithTx(tx *sql.Tx) store.LearnerStore {
	return &PostgresLearnerStore{
		db:     tx,
		logger: s.logger,
	}
}

// exists reports whether a learner row is present regardless of version.
func (s *PostgresLearnerStore) exists(ctx context.Context, id string) (bool, error) {
	var found bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM learners WHERE id = $1)`, id).Scan(&found)
	if err != nil {
		return false, MapError(err)
	}
	return found, nil
}
