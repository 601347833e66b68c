// Package postgres provides PostgreSQL-specific implementations for the data
// storage interfaces defined in the internal/store package, plus the invite
// delivery log from internal/task. It handles query execution, mapping
// between domain entities and database records, translation of driver errors
// into store sentinels, and schema migrations.
package postgres
