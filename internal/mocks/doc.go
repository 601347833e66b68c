// Package mocks provides centralized mock implementations for testing.
//
// This package contains mock implementations of interfaces used throughout the application,
// facilitating consistent and DRY testing across the codebase. Instead of defining
// inline mocks in individual test files, these standardized mock implementations
// can be reused.
//
// The store mocks here are real in-memory implementations: mutex-guarded
// maps with the same compare-and-swap version semantics as the Postgres
// stores, so concurrency behavior (lost updates, conflict retries, atomic
// upserts) can be exercised without a database. Function fields override
// individual methods where a test needs an error or custom behavior.
//
// Usage:
//
// Import the mocks package in your test file and create the required mock:
//
//	import "github.com/phrazzld/lingo-api/internal/mocks"
//
//	func TestSomething(t *testing.T) {
//	    tasks := mocks.NewMockTaskRecordStore()
//	    tasks.UpdateFn = func(ctx context.Context, record *domain.TaskRecord) error {
//	        return store.ErrConflict
//	    }
//
//	    // Use the mock in your test...
//	}
//
// When adding a new mock to this package:
//  1. Create a new file named after the interface being mocked
//  2. Implement the mock struct with function fields for each interface method
//  3. Document any helper methods or special functionality
//  4. Update existing tests to use the centralized mock implementation
package mocks
