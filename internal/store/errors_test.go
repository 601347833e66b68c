package store

import (
	"errors"
	"fmt"
	"testing"
)

func TestIsNotFoundError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "generic error",
			err:      errors.New("some error"),
			expected: false,
		},
		{
			name:     "wrapped generic error",
			err:      fmt.Errorf("failed to do something: %w", errors.New("some error")),
			expected: false,
		},
		{
			name:     "ErrNotFound",
			err:      ErrNotFound,
			expected: true,
		},
		{
			name:     "wrapped ErrNotFound",
			err:      fmt.Errorf("failed to do something: %w", ErrNotFound),
			expected: true,
		},
		{
			name:     "ErrLearnerNotFound",
			err:      ErrLearnerNotFound,
			expected: true,
		},
		{
			name:     "wrapped ErrLearnerNotFound",
			err:      fmt.Errorf("failed to find learner: %w", ErrLearnerNotFound),
			expected: true,
		},
		{
			name:     "ErrTaskRecordNotFound",
			err:      ErrTaskRecordNotFound,
			expected: true,
		},
		{
			name:     "ErrHistoryEntryNotFound",
			err:      ErrHistoryEntryNotFound,
			expected: true,
		},
		{
			name:     "ErrAuthorizationNotFound",
			err:      ErrAuthorizationNotFound,
			expected: true,
		},
		{
			name:     "ErrConflict is not a not-found",
			err:      ErrConflict,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsNotFoundError(tt.err); got != tt.expected {
				t.Errorf("IsNotFoundError() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsDuplicateError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "generic error",
			err:      errors.New("some error"),
			expected: false,
		},
		{
			name:     "ErrDuplicate",
			err:      ErrDuplicate,
			expected: true,
		},
		{
			name:     "wrapped ErrDuplicate",
			err:      fmt.Errorf("failed to create: %w", ErrDuplicate),
			expected: true,
		},
		{
			name:     "ErrLearnerExists",
			err:      ErrLearnerExists,
			expected: true,
		},
		{
			name:     "wrapped ErrLearnerExists",
			err:      fmt.Errorf("failed to create learner: %w", ErrLearnerExists),
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsDuplicateError(tt.err); got != tt.expected {
				t.Errorf("IsDuplicateError() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsConflictError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "generic error",
			err:      errors.New("some error"),
			expected: false,
		},
		{
			name:     "ErrConflict",
			err:      ErrConflict,
			expected: true,
		},
		{
			name:     "wrapped ErrConflict",
			err:      fmt.Errorf("failed to update task record: %w", ErrConflict),
			expected: true,
		},
		{
			name:     "store error wrapping ErrConflict",
			err:      NewStoreError("learner", "update", "stale version", ErrConflict),
			expected: true,
		},
		{
			name:     "ErrNotFound is not a conflict",
			err:      ErrNotFound,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsConflictError(tt.err); got != tt.expected {
				t.Errorf("IsConflictError() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestStoreError(t *testing.T) {
	originalErr := errors.New("database connection failed")
	storeErr := NewStoreError("learner", "create", "database error", originalErr)

	expectedErrorString := "create operation on learner failed: database error: database connection failed"
	if got := storeErr.Error(); got != expectedErrorString {
		t.Errorf("StoreError.Error() = %v, want %v", got, expectedErrorString)
	}

	if got := storeErr.Unwrap(); !errors.Is(got, originalErr) {
		t.Errorf("StoreError.Unwrap() not returning original error")
	}

	if !errors.Is(storeErr, originalErr) {
		t.Errorf("errors.Is() not recognizing the wrapped error")
	}
}

func TestStoreErrorWithoutMessage(t *testing.T) {
	storeErr := NewStoreError("task_record", "update", "", ErrConflict)

	expectedErrorString := "update operation on task_record failed: version conflict"
	if got := storeErr.Error(); got != expectedErrorString {
		t.Errorf("StoreError.Error() = %v, want %v", got, expectedErrorString)
	}

	if !errors.Is(storeErr, ErrConflict) {
		t.Errorf("errors.Is() not recognizing ErrConflict through StoreError")
	}
}
