package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	// This is a generic version of the entity-specific not found errors
	// (e.g., ErrLearnerNotFound, ErrTaskRecordNotFound).
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an operation would create a duplicate
	// of a unique entity (e.g., a second profile for the same learner).
	ErrDuplicate = errors.New("entity already exists")

	// ErrConflict is returned when an optimistic-concurrency update loses
	// the race: the stored version no longer matches the version the
	// writer read. Callers retry the full read-modify-write cycle.
	ErrConflict = errors.New("version conflict")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrUpdateFailed is returned when an update operation fails for a
	// reason other than a missing entity or a version conflict.
	ErrUpdateFailed = errors.New("update failed")

	// ErrDeleteFailed is returned when a delete operation fails, for example
	// because the entity is referenced by other entities.
	ErrDeleteFailed = errors.New("delete failed")

	// ErrTransactionFailed is returned when a database transaction fails
	// to commit or when an operation within a transaction fails.
	ErrTransactionFailed = errors.New("transaction failed")

	// Entity-specific "not found" errors

	// ErrLearnerNotFound indicates that the requested learner profile does not exist.
	ErrLearnerNotFound = fmt.Errorf("%w: learner", ErrNotFound)

	// ErrTaskRecordNotFound indicates that the requested task record does not exist.
	ErrTaskRecordNotFound = fmt.Errorf("%w: task record", ErrNotFound)

	// ErrHistoryEntryNotFound indicates that no objective history entry matched.
	ErrHistoryEntryNotFound = fmt.Errorf("%w: objective history entry", ErrNotFound)

	// ErrAuthorizationNotFound indicates that the learner has no authorization row.
	ErrAuthorizationNotFound = fmt.Errorf("%w: authorization", ErrNotFound)

	// Entity-specific "duplicate" errors

	// ErrLearnerExists indicates that a profile for the learner already exists.
	ErrLearnerExists = fmt.Errorf("%w: learner", ErrDuplicate)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
// This includes the generic ErrNotFound and all entity-specific not found errors.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError checks if the error is any kind of "duplicate" error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// IsConflictError checks if the error is an optimistic-concurrency conflict.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrConflict)
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Entity    string // The entity type (e.g., "learner", "task record")
	Operation string // The operation that failed (e.g., "create", "update")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	switch {
	case e.Err != nil && e.Message != "":
		return fmt.Sprintf(
			"%s operation on %s failed: %s: %v",
			e.Operation,
			e.Entity,
			e.Message,
			e.Err,
		)
	case e.Err != nil:
		return fmt.Sprintf("%s operation on %s failed: %v", e.Operation, e.Entity, e.Err)
	default:
		return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
	}
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given entity, operation, message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
