package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/lingo-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockResult implements sql.Result for testing
type mockResult struct {
	rowsAffected int64
	err          error
}

func (m mockResult) LastInsertId() (int64, error) {
	return 0, nil
}

func (m mockResult) RowsAffected() (int64, error) {
	if m.err != nil {
		return 0, m.err
	}
	return m.rowsAffected, nil
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{
			name:     "nil_error",
			err:      nil,
			sentinel: nil,
		},
		{
			name:     "sql_no_rows",
			err:      sql.ErrNoRows,
			sentinel: store.ErrNotFound,
		},
		{
			name: "unique_violation",
			err: &pgconn.PgError{
				Code:           uniqueViolationCode,
				ConstraintName: "learners_pkey",
			},
			sentinel: store.ErrDuplicate,
		},
		{
			name: "pending_index_violation",
			err: &pgconn.PgError{
				Code:           uniqueViolationCode,
				ConstraintName: "uniq_task_records_pending",
			},
			sentinel: store.ErrDuplicate,
		},
		{
			name: "foreign_key_violation",
			err: &pgconn.PgError{
				Code:           foreignKeyViolationCode,
				ConstraintName: "task_records_learner_id_fkey",
			},
			sentinel: store.ErrInvalidEntity,
		},
		{
			name: "check_constraint_violation",
			err: &pgconn.PgError{
				Code:           checkViolationCode,
				ConstraintName: "task_records_score_check",
			},
			sentinel: store.ErrInvalidEntity,
		},
		{
			name: "not_null_violation",
			err: &pgconn.PgError{
				Code:       notNullViolationCode,
				ColumnName: "language",
			},
			sentinel: store.ErrInvalidEntity,
		},
		{
			name: "serialization_failure",
			err: &pgconn.PgError{
				Code: serializationFailureCode,
			},
			sentinel: store.ErrConflict,
		},
		{
			name: "deadlock_detected",
			err: &pgconn.PgError{
				Code: deadlockDetectedCode,
			},
			sentinel: store.ErrConflict,
		},
		{
			name: "wrapped_serialization_failure",
			err: fmt.Errorf("exec: %w", &pgconn.PgError{
				Code: serializationFailureCode,
			}),
			sentinel: store.ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MapError(tt.err)

			if tt.sentinel == nil {
				assert.Nil(t, result)
				return
			}

			require.NotNil(t, result)
			assert.ErrorIs(t, result, tt.sentinel)
		})
	}
}

func TestMapErrorPassesThroughUnknownErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{
			name: "generic_error",
			err:  errors.New("connection refused"),
		},
		{
			name: "unknown_pg_code",
			err: &pgconn.PgError{
				Code:    "57014",
				Message: "canceling statement due to statement timeout",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := MapError(tt.err)
			assert.Equal(t, tt.err, result)
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil_error",
			err:      nil,
			expected: false,
		},
		{
			name: "unique_violation",
			err: &pgconn.PgError{
				Code: uniqueViolationCode,
			},
			expected: true,
		},
		{
			name: "other_violation",
			err: &pgconn.PgError{
				Code: foreignKeyViolationCode,
			},
			expected: false,
		},
		{
			name:     "non_pg_error",
			err:      errors.New("some error"),
			expected: false,
		},
		{
			name: "wrapped_unique_violation",
			err: fmt.Errorf("context: %w", &pgconn.PgError{
				Code: uniqueViolationCode,
			}),
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsUniqueViolation(tt.err))
		})
	}
}

func TestIsForeignKeyViolation(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil_error",
			err:      nil,
			expected: false,
		},
		{
			name: "foreign_key_violation",
			err: &pgconn.PgError{
				Code: foreignKeyViolationCode,
			},
			expected: true,
		},
		{
			name: "unique_violation",
			err: &pgconn.PgError{
				Code: uniqueViolationCode,
			},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsForeignKeyViolation(tt.err))
		})
	}
}

func TestIsNotFoundError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "sql_no_rows",
			err:      sql.ErrNoRows,
			expected: true,
		},
		{
			name:     "store_not_found",
			err:      store.ErrNotFound,
			expected: true,
		},
		{
			name:     "entity_not_found",
			err:      store.ErrLearnerNotFound,
			expected: true,
		},
		{
			name:     "mapped_no_rows",
			err:      MapError(sql.ErrNoRows),
			expected: true,
		},
		{
			name:     "other_error",
			err:      errors.New("boom"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsNotFoundError(tt.err))
		})
	}
}

func TestCheckRowsAffected(t *testing.T) {
	t.Run("rows_affected", func(t *testing.T) {
		err := CheckRowsAffected(mockResult{rowsAffected: 1}, "learner")
		assert.NoError(t, err)
	})

	t.Run("no_rows_affected", func(t *testing.T) {
		err := CheckRowsAffected(mockResult{rowsAffected: 0}, "learner")
		require.Error(t, err)
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.Contains(t, err.Error(), "learner not found")
	})

	t.Run("no_rows_affected_without_entity", func(t *testing.T) {
		err := CheckRowsAffected(mockResult{rowsAffected: 0}, "")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("rows_affected_error", func(t *testing.T) {
		err := CheckRowsAffected(mockResult{err: errors.New("driver does not support RowsAffected")}, "learner")
		require.Error(t, err)
		assert.NotErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("nil_result", func(t *testing.T) {
		err := CheckRowsAffected(nil, "learner")
		assert.Error(t, err)
	})
}
