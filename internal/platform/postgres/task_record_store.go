package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lingo-api/internal/domain"
	"github.com/phrazzld/lingo-api/internal/platform/logger"
	"github.com/phrazzld/lingo-api/internal/store"
)

// taskRecordColumns is the column list shared by every SELECT against
// task_records, matched by scanTaskRecord.
const taskRecordColumns = `
	id, learner_id, task_type, objective, difficulty, language, content,
	state, score, feedback, abandon_reason, issued_at, completed_at, version
`

// PostgresTaskRecordStore implements the store.TaskRecordStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskRecordStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskRecordStore creates a new PostgreSQL implementation of the
// TaskRecordStore interface. It accepts a database connection or transaction
// managed by the caller. If logger is nil, a default logger is used.
func NewPostgresTaskRecordStore(db store.DBTX, log *slog.Logger) *PostgresTaskRecordStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if log == nil {
		log = slog.Default()
	}

	return &PostgresTaskRecordStore{
		db:     db,
		logger: log.With(slog.String("component", "task_record_store")),
	}
}

// Ensure PostgresTaskRecordStore implements store.TaskRecordStore interface
var _ store.TaskRecordStore = (*PostgresTaskRecordStore)(nil)

// Create implements store.TaskRecordStore.Create.
// A unique violation maps to store.ErrDuplicate. That covers both a reused
// record ID and a second pending task for the same learner, which the
// partial unique index on (learner_id) WHERE state = 'pending' rejects.
func (s *PostgresTaskRecordStore) Create(ctx context.Context, record *domain.TaskRecord) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := record.Validate(); err != nil {
		log.Warn("task record validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", record.ID.String()))
		return err
	}

	query := `
		INSERT INTO task_records (
			id, learner_id, task_type, objective, difficulty, language, content,
			state, score, feedback, abandon_reason, issued_at, completed_at, version
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		record.ID,
		record.LearnerID,
		record.Type,
		record.Objective,
		record.Difficulty,
		record.Language,
		record.Content,
		record.State,
		nullFloat64(record.Score),
		string(record.Feedback),
		string(record.AbandonReason),
		record.IssuedAt,
		nullTime(record.CompletedAt),
		record.Version,
	)

	if err != nil {
		if IsUniqueViolation(err) {
			log.Debug("task record create hit unique constraint",
				slog.String("task_id", record.ID.String()),
				slog.String("learner_id", record.LearnerID))
			return fmt.Errorf("%w: %v", store.ErrDuplicate, err)
		}

		log.Error("failed to create task record",
			slog.String("error", err.Error()),
			slog.String("task_id", record.ID.String()))
		return MapError(err)
	}

	log.Info("task record created",
		slog.String("task_id", record.ID.String()),
		slog.String("learner_id", record.LearnerID),
		slog.String("task_type", string(record.Type)),
		slog.String("objective", record.Objective))
	return nil
}

// GetByID implements store.TaskRecordStore.GetByID.
// Returns store.ErrTaskRecordNotFound if the record does not exist.
func (s *PostgresTaskRecordStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.TaskRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + taskRecordColumns + ` FROM task_records WHERE id = $1`

	record, err := scanTaskRecord(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("task record not found", slog.String("task_id", id.String()))
			return nil, store.ErrTaskRecordNotFound
		}
		log.Error("failed to get task record",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, MapError(err)
	}

	return record, nil
}

// GetPending implements store.TaskRecordStore.GetPending.
// Returns store.ErrTaskRecordNotFound when the learner has no open task.
func (s *PostgresTaskRecordStore) GetPending(ctx context.Context, learnerID string) (*domain.TaskRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + taskRecordColumns + `
		FROM task_records
		WHERE learner_id = $1 AND state = $2
		ORDER BY issued_at DESC
		LIMIT 1
	`

	record, err := scanTaskRecord(s.db.QueryRowContext(ctx, query, learnerID, domain.TaskStatePending))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskRecordNotFound
		}
		log.Error("failed to get pending task record",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID))
		return nil, MapError(err)
	}

	return record, nil
}

// Update implements store.TaskRecordStore.Update using compare-and-swap on
// the version column. Zero rows affected on an existing record means the
// state transition already happened under another writer, so the caller
// gets store.ErrConflict and must re-read before deciding anything else.
func (s *PostgresTaskRecordStore) Update(ctx context.Context, record *domain.TaskRecord) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := record.Validate(); err != nil {
		log.Warn("task record validation failed during update",
			slog.String("error", err.Error()),
			slog.String("task_id", record.ID.String()))
		return err
	}

	query := `
		UPDATE task_records
		SET state = $1, score = $2, feedback = $3, abandon_reason = $4,
		    completed_at = $5, version = version + 1
		WHERE id = $6 AND version = $7
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		record.State,
		nullFloat64(record.Score),
		string(record.Feedback),
		string(record.AbandonReason),
		nullTime(record.CompletedAt),
		record.ID,
		record.Version,
	)

	if err != nil {
		log.Error("failed to update task record",
			slog.String("error", err.Error()),
			slog.String("task_id", record.ID.String()))
		return MapError(err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("task_id", record.ID.String()))
		return MapError(err)
	}

	if rowsAffected == 0 {
		exists, existsErr := s.exists(ctx, record.ID)
		if existsErr != nil {
			return existsErr
		}
		if !exists {
			log.Debug("task record not found for update",
				slog.String("task_id", record.ID.String()))
			return store.ErrTaskRecordNotFound
		}
		log.Debug("task record version conflict",
			slog.String("task_id", record.ID.String()),
			slog.Int64("version", record.Version))
		return fmt.Errorf("%w: task record %s at version %d", store.ErrConflict, record.ID, record.Version)
	}

	record.Version++

	log.Info("task record updated",
		slog.String("task_id", record.ID.String()),
		slog.String("learner_id", record.LearnerID),
		slog.String("state", string(record.State)),
		slog.Int64("version", record.Version))
	return nil
}

// ListByLearner implements store.TaskRecordStore.ListByLearner.
// Records come back ordered by IssuedAt descending. A limit of 0 means
// no limit.
func (s *PostgresTaskRecordStore) ListByLearner(ctx context.Context, learnerID string, limit int) ([]*domain.TaskRecord, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT ` + taskRecordColumns + `
		FROM task_records
		WHERE learner_id = $1
		ORDER BY issued_at DESC
	`

	args := []interface{}{learnerID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list task records",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var records []*domain.TaskRecord
	for rows.Next() {
		record, err := scanTaskRecord(rows)
		if err != nil {
			log.Error("failed to scan task record row",
				slog.String("error", err.Error()),
				slog.String("learner_id", learnerID))
			return nil, MapError(err)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		log.Error("error iterating task record rows",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID))
		return nil, MapError(err)
	}

	return records, nil
}

// CountByState implements store.TaskRecordStore.CountByState.
func (s *PostgresTaskRecordStore) CountByState(ctx context.Context, learnerID string, state domain.TaskState) (int, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM task_records WHERE learner_id = $1 AND state = $2`,
		learnerID, state,
	).Scan(&count)
	if err != nil {
		log.Error("failed to count task records",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID),
			slog.String("state", string(state)))
		return 0, MapError(err)
	}

	return count, nil
}

// WithTx implements store.TaskRecordStore.WithTx by rebinding the store to
// the given transaction.
func (s *PostgresTaskRecordStore) WithTx(tx *sql.Tx) store.TaskRecordStore {
	return &PostgresTaskRecordStore{
		db:     tx,
		logger: s.logger,
	}
}

// exists reports whether a task record row is present regardless of version.
func (s *PostgresTaskRecordStore) exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var found bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM task_records WHERE id = $1)`, id).Scan(&found)
	if err != nil {
		return false, MapError(err)
	}
	return found, nil
}

// rowScanner is the part of sql.Row and sql.Rows that scanTaskRecord needs.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// scanTaskRecord reads one task_records row in taskRecordColumns order and
// converts nullable columns back to their domain representations.
func scanTaskRecord(row rowScanner) (*domain.TaskRecord, error) {
	var (
		record        domain.TaskRecord
		taskType      string
		difficulty    string
		state         string
		score         sql.NullFloat64
		feedback      string
		abandonReason string
		completedAt   sql.NullTime
	)

	err := row.Scan(
		&record.ID,
		&record.LearnerID,
		&taskType,
		&record.Objective,
		&difficulty,
		&record.Language,
		&record.Content,
		&state,
		&score,
		&feedback,
		&abandonReason,
		&record.IssuedAt,
		&completedAt,
		&record.Version,
	)
	if err != nil {
		return nil, err
	}

	record.Type = domain.TaskType(taskType)
	record.Difficulty = domain.DifficultyTier(difficulty)
	record.State = domain.TaskState(state)
	record.Feedback = domain.FeedbackKind(feedback)
	record.AbandonReason = domain.AbandonReason(abandonReason)
	if score.Valid {
		v := score.Float64
		record.Score = &v
	}
	if completedAt.Valid {
		t := completedAt.Time
		record.CompletedAt = &t
	}

	return &record, nil
}

// nullFloat64 converts an optional score for a nullable column.
func nullFloat64(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

// nullTime converts an optional timestamp for a nullable column.
func nullTime(v *time.Time) sql.NullTime {
	if v == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *v, Valid: true}
}
