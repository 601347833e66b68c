package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/phrazzld/lingo-api/internal/domain"
	"github.com/phrazzld/lingo-api/internal/platform/logger"
	"github.com/phrazzld/lingo-api/internal/store"
)

// PostgresObjectiveHistoryStore implements the store.ObjectiveHistoryStore
// interface using a PostgreSQL database as the storage backend.
type PostgresObjectiveHistoryStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresObjectiveHistoryStore creates a new PostgreSQL implementation of
// the ObjectiveHistoryStore interface. It accepts a database connection or
// transaction managed by the caller. If logger is nil, a default logger is
// used.
func NewPostgresObjectiveHistoryStore(db store.DBTX, log *slog.Logger) *PostgresObjectiveHistoryStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if log == nil {
		log = slog.Default()
	}

	return &PostgresObjectiveHistoryStore{
		db:     db,
		logger: log.With(slog.String("component", "history_store")),
	}
}

// Ensure PostgresObjectiveHistoryStore implements store.ObjectiveHistoryStore interface
var _ store.ObjectiveHistoryStore = (*PostgresObjectiveHistoryStore)(nil)

// HasSeen implements store.ObjectiveHistoryStore.HasSeen.
func (s *PostgresObjectiveHistoryStore) HasSeen(ctx context.Context, learnerID string, taskType domain.TaskType, objective string) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT EXISTS (
			SELECT 1 FROM objective_history
			WHERE learner_id = $1 AND task_type = $2 AND objective = $3
		)
	`

	var seen bool
	err := s.db.QueryRowContext(ctx, query, learnerID, taskType, objective).Scan(&seen)
	if err != nil {
		log.Error("failed to check objective history",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID),
			slog.String("task_type", string(taskType)))
		return false, MapError(err)
	}

	return seen, nil
}

// Record implements store.ObjectiveHistoryStore.Record as a single upsert.
// The increment happens inside the database, so two concurrent Record calls
// for the same key both land and neither overwrites the other's count.
func (s *PostgresObjectiveHistoryStore) Record(ctx context.Context, learnerID string, taskType domain.TaskType, objective string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	entry, err := domain.NewObjectiveHistoryEntry(learnerID, taskType, objective)
	if err != nil {
		log.Warn("history entry validation failed during record",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID))
		return err
	}

	query := `
		INSERT INTO objective_history (learner_id, task_type, objective, first_used_at, last_used_at, use_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (learner_id, task_type, objective) DO UPDATE
		SET use_count = objective_history.use_count + 1,
		    last_used_at = EXCLUDED.last_used_at
	`

	_, err = s.db.ExecContext(
		ctx,
		query,
		entry.LearnerID,
		entry.TaskType,
		entry.Objective,
		entry.FirstUsedAt,
		entry.LastUsedAt,
		entry.UseCount,
	)
	if err != nil {
		log.Error("failed to record objective use",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID),
			slog.String("task_type", string(taskType)))
		return MapError(err)
	}

	log.Debug("objective use recorded",
		slog.String("learner_id", learnerID),
		slog.String("task_type", string(taskType)),
		slog.String("objective", objective))
	return nil
}

// SeenCount implements store.ObjectiveHistoryStore.SeenCount.
func (s *PostgresObjectiveHistoryStore) SeenCount(ctx context.Context, learnerID string, taskType domain.TaskType) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM objective_history WHERE learner_id = $1 AND task_type = $2`,
		learnerID, taskType,
	).Scan(&count)
	if err != nil {
		log.Error("failed to count seen objectives",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID),
			slog.String("task_type", string(taskType)))
		return 0, MapError(err)
	}

	return count, nil
}

// LeastRecentlyUsed implements store.ObjectiveHistoryStore.LeastRecentlyUsed.
// The objective tiebreak keeps the order stable when several entries share
// a LastUsedAt timestamp.
func (s *PostgresObjectiveHistoryStore) LeastRecentlyUsed(ctx context.Context, learnerID string, taskType domain.TaskType, limit int) ([]*domain.ObjectiveHistoryEntry, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT learner_id, task_type, objective, first_used_at, last_used_at, use_count
		FROM objective_history
		WHERE learner_id = $1 AND task_type = $2
		ORDER BY last_used_at ASC, objective ASC
		LIMIT $3
	`

	rows, err := s.db.QueryContext(ctx, query, learnerID, taskType, limit)
	if err != nil {
		log.Error("failed to list least recently used objectives",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID),
			slog.String("task_type", string(taskType)))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	return collectHistoryEntries(rows)
}

// Reset implements store.ObjectiveHistoryStore.Reset.
// Deleting from an empty history is not an error; the count is zero.
func (s *PostgresObjectiveHistoryStore) Reset(ctx context.Context, learnerID string, taskType domain.TaskType) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx,
		`DELETE FROM objective_history WHERE learner_id = $1 AND task_type = $2`,
		learnerID, taskType,
	)
	if err != nil {
		log.Error("failed to reset objective history",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID),
			slog.String("task_type", string(taskType)))
		return 0, MapError(err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, MapError(err)
	}

	log.Info("objective history reset",
		slog.String("learner_id", learnerID),
		slog.String("task_type", string(taskType)),
		slog.Int64("removed", removed))
	return removed, nil
}

// ListRecent implements store.ObjectiveHistoryStore.ListRecent. Filter and
// order both ride idx_objective_history_lru.
func (s *PostgresObjectiveHistoryStore) ListRecent(ctx context.Context, learnerID string, taskType domain.TaskType, limit int) ([]*domain.ObjectiveHistoryEntry, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT learner_id, task_type, objective, first_used_at, last_used_at, use_count
		FROM objective_history
		WHERE learner_id = $1 AND task_type = $2
		ORDER BY last_used_at DESC
		LIMIT $3
	`

	rows, err := s.db.QueryContext(ctx, query, learnerID, string(taskType), limit)
	if err != nil {
		log.Error("failed to list recent objectives",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID),
			slog.String("task_type", string(taskType)))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	return collectHistoryEntries(rows)
}

// WithTx implements store.ObjectiveHistoryStore.WithTx by rebinding the
// store to the given transaction.
func (s *PostgresObjectiveHistoryStore) WithTx(tx *sql.Tx) store.ObjectiveHistoryStore {
	return &PostgresObjectiveHistoryStore{
		db:     tx,
		logger: s.logger,
	}
}

// collectHistoryEntries drains a result set of objective_history rows.
func collectHistoryEntries(rows *sql.Rows) ([]*domain.ObjectiveHistoryEntry, error) {
	var entries []*domain.ObjectiveHistoryEntry
	for rows.Next() {
		var (
			entry       domain.ObjectiveHistoryEntry
			taskType    string
			firstUsedAt time.Time
			lastUsedAt  time.Time
		)
		err := rows.Scan(
			&entry.LearnerID,
			&taskType,
			&entry.Objective,
			&firstUsedAt,
			&lastUsedAt,
			&entry.UseCount,
		)
		if err != nil {
			return nil, MapError(err)
		}
		entry.TaskType = domain.TaskType(taskType)
		entry.FirstUsedAt = firstUsedAt
		entry.LastUsedAt = lastUsedAt
		entries = append(entries, &entry)
	}

	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}

	return entries, nil
}
