package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/lingo-api/internal/domain"
	"github.com/phrazzld/lingo-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockTaskRecordStore(t *testing.T) (*PostgresTaskRecordStore, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err, "failed to create sqlmock")
	t.Cleanup(func() { _ = db.Close() })

	return NewPostgresTaskRecordStore(db, nil), mock
}

func testTaskRecord(t *testing.T) *domain.TaskRecord {
	t.Helper()

	params := domain.GenerationParameters{
		Difficulty:          domain.DifficultyIntermediate,
		InstructionLanguage: domain.DefaultLanguage,
	}
	record, err := domain.NewTaskRecord("12345", domain.TaskTypeVocabulary,
		"meticulous", params, "Use the word in a sentence of your own.")
	require.NoError(t, err)
	return record
}

var taskRecordTestColumns = []string{
	"id", "learner_id", "task_type", "objective", "difficulty", "language",
	"content", "state", "score", "feedback", "abandon_reason", "issued_at",
	"completed_at", "version",
}

func TestTaskRecordStoreCreate(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		s, mock := newMockTaskRecordStore(t)
		record := testTaskRecord(t)

		mock.ExpectExec("INSERT INTO task_records").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := s.Create(context.Background(), record)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("second_pending_task_rejected", func(t *testing.T) {
		s, mock := newMockTaskRecordStore(t)
		record := testTaskRecord(t)

		mock.ExpectExec("INSERT INTO task_records").
			WillReturnError(&pgconn.PgError{
				Code:           uniqueViolationCode,
				ConstraintName: "uniq_task_records_pending",
			})

		err := s.Create(context.Background(), record)
		assert.ErrorIs(t, err, store.ErrDuplicate)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("validation_failure_skips_database", func(t *testing.T) {
		s, mock := newMockTaskRecordStore(t)
		record := testTaskRecord(t)
		record.Objective = ""

		err := s.Create(context.Background(), record)
		assert.ErrorIs(t, err, domain.ErrEmptyObjective)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTaskRecordStoreGetByID(t *testing.T) {
	t.Run("pending_record_with_null_outcome", func(t *testing.T) {
		s, mock := newMockTaskRecordStore(t)
		record := testTaskRecord(t)

		mock.ExpectQuery("FROM task_records").
			WithArgs(record.ID).
			WillReturnRows(sqlmock.NewRows(taskRecordTestColumns).
				AddRow(record.ID.String(), record.LearnerID, string(record.Type),
					record.Objective, string(record.Difficulty), record.Language,
					record.Content, string(record.State), nil, "", "",
					record.IssuedAt, nil, record.Version))

		got, err := s.GetByID(context.Background(), record.ID)
		require.NoError(t, err)
		assert.Equal(t, record.ID, got.ID)
		assert.Equal(t, domain.TaskStatePending, got.State)
		assert.Nil(t, got.Score)
		assert.Nil(t, got.CompletedAt)
		assert.Empty(t, got.Feedback)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("completed_record_with_score", func(t *testing.T) {
		s, mock := newMockTaskRecordStore(t)
		record := testTaskRecord(t)
		completedAt := time.Now().UTC()

		mock.ExpectQuery("FROM task_records").
			WithArgs(record.ID).
			WillReturnRows(sqlmock.NewRows(taskRecordTestColumns).
				AddRow(record.ID.String(), record.LearnerID, string(record.Type),
					record.Objective, string(record.Difficulty), record.Language,
					record.Content, "completed", 0.85, "correct", "",
					record.IssuedAt, completedAt, int64(2)))

		got, err := s.GetByID(context.Background(), record.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.TaskStateCompleted, got.State)
		require.NotNil(t, got.Score)
		assert.InDelta(t, 0.85, *got.Score, 1e-9)
		assert.Equal(t, domain.FeedbackCorrect, got.Feedback)
		require.NotNil(t, got.CompletedAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not_found", func(t *testing.T) {
		s, mock := newMockTaskRecordStore(t)
		record := testTaskRecord(t)

		mock.ExpectQuery("FROM task_records").
			WithArgs(record.ID).
			WillReturnRows(sqlmock.NewRows(taskRecordTestColumns))

		got, err := s.GetByID(context.Background(), record.ID)
		assert.Nil(t, got)
		assert.ErrorIs(t, err, store.ErrTaskRecordNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTaskRecordStoreGetPending(t *testing.T) {
	t.Run("no_pending_task", func(t *testing.T) {
		s, mock := newMockTaskRecordStore(t)

		mock.ExpectQuery("FROM task_records").
			WithArgs("12345", domain.TaskStatePending).
			WillReturnRows(sqlmock.NewRows(taskRecordTestColumns))

		got, err := s.GetPending(context.Background(), "12345")
		assert.Nil(t, got)
		assert.ErrorIs(t, err, store.ErrTaskRecordNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns_pending_task", func(t *testing.T) {
		s, mock := newMockTaskRecordStore(t)
		record := testTaskRecord(t)

		mock.ExpectQuery("FROM task_records").
			WithArgs(record.LearnerID, domain.TaskStatePending).
			WillReturnRows(sqlmock.NewRows(taskRecordTestColumns).
				AddRow(record.ID.String(), record.LearnerID, string(record.Type),
					record.Objective, string(record.Difficulty), record.Language,
					record.Content, string(record.State), nil, "", "",
					record.IssuedAt, nil, record.Version))

		got, err := s.GetPending(context.Background(), record.LearnerID)
		require.NoError(t, err)
		assert.Equal(t, record.ID, got.ID)
		assert.True(t, got.Pending())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTaskRecordStoreUpdate(t *testing.T) {
	completedRecord := func(t *testing.T) *domain.TaskRecord {
		record := testTaskRecord(t)
		score := 0.9
		require.NoError(t, record.Complete(&score, domain.FeedbackCorrect, time.Now()))
		return record
	}

	t.Run("success_increments_version", func(t *testing.T) {
		s, mock := newMockTaskRecordStore(t)
		record := completedRecord(t)

		mock.ExpectExec("UPDATE task_records").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := s.Update(context.Background(), record)
		require.NoError(t, err)
		assert.Equal(t, int64(2), record.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("version_conflict", func(t *testing.T) {
		s, mock := newMockTaskRecordStore(t)
		record := completedRecord(t)

		mock.ExpectExec("UPDATE task_records").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(record.ID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		err := s.Update(context.Background(), record)
		assert.ErrorIs(t, err, store.ErrConflict)
		assert.Equal(t, int64(1), record.Version, "version must not advance on conflict")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("record_missing", func(t *testing.T) {
		s, mock := newMockTaskRecordStore(t)
		record := completedRecord(t)

		mock.ExpectExec("UPDATE task_records").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT EXISTS").
			WithArgs(record.ID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		err := s.Update(context.Background(), record)
		assert.ErrorIs(t, err, store.ErrTaskRecordNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("serialization_failure_maps_to_conflict", func(t *testing.T) {
		s, mock := newMockTaskRecordStore(t)
		record := completedRecord(t)

		mock.ExpectExec("UPDATE task_records").
			WillReturnError(&pgconn.PgError{Code: serializationFailureCode})

		err := s.Update(context.Background(), record)
		assert.ErrorIs(t, err, store.ErrConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTaskRecordStoreListByLearner(t *testing.T) {
	t.Run("applies_limit_when_positive", func(t *testing.T) {
		s, mock := newMockTaskRecordStore(t)
		record := testTaskRecord(t)

		mock.ExpectQuery("FROM task_records").
			WithArgs(record.LearnerID, 5).
			WillReturnRows(sqlmock.NewRows(taskRecordTestColumns).
				AddRow(record.ID.String(), record.LearnerID, string(record.Type),
					record.Objective, string(record.Difficulty), record.Language,
					record.Content, string(record.State), nil, "", "",
					record.IssuedAt, nil, record.Version))

		records, err := s.ListByLearner(context.Background(), record.LearnerID, 5)
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, record.ID, records[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero_limit_means_unbounded", func(t *testing.T) {
		s, mock := newMockTaskRecordStore(t)

		mock.ExpectQuery("FROM task_records").
			WithArgs("12345").
			WillReturnRows(sqlmock.NewRows(taskRecordTestColumns))

		records, err := s.ListByLearner(context.Background(), "12345", 0)
		require.NoError(t, err)
		assert.Empty(t, records)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTaskRecordStoreCountByState(t *testing.T) {
	s, mock := newMockTaskRecordStore(t)

	mock.ExpectQuery("SELECT COUNT").
		WithArgs("12345", domain.TaskStateCompleted).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

	count, err := s.CountByState(context.Background(), "12345", domain.TaskStateCompleted)
	require.NoError(t, err)
	assert.Equal(t, 7, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}
