// Package store defines interfaces for data persistence operations:
// learner profiles, authorizations, objective history, and task records.
// These interfaces abstract the underlying data storage mechanism from
// the application's core logic, allowing business rules to remain
// independent of specific database technologies or persistence details.
//
// Profile and task record mutations follow optimistic concurrency: every
// update presents the version it read, and implementations return
// ErrConflict when the stored version moved underneath the writer.
package store
