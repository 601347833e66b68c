//go:build integration

package testdb

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/phrazzld/lingo-api/internal/platform/postgres"
)

// Environment variables consulted for the test database connection string,
// in order.
var urlEnvVars = []string{"LINGO_TEST_DB_URL", "DATABASE_URL"}

var (
	migrateOnce sync.Once
	migrateErr  error
)

// GetTestDatabaseURL returns the connection string for the test database,
// or the empty string when none is configured.
func GetTestDatabaseURL() string {
	for _, name := range urlEnvVars {
		if url := os.Getenv(name); url != "" {
			return url
		}
	}
	return ""
}

// ShouldSkipDatabaseTest reports whether database integration tests should
// be skipped because no connection string is configured.
func ShouldSkipDatabaseTest() bool {
	return GetTestDatabaseURL() == ""
}

// GetTestDB opens a connection to the test database, applies migrations on
// first use, and registers cleanup on t. The test is skipped when no
// database is configured.
func GetTestDB(t *testing.T) *sql.DB {
	t.Helper()

	url := GetTestDatabaseURL()
	if url == "" {
		t.Skip("LINGO_TEST_DB_URL / DATABASE_URL not set - skipping integration test")
	}

	db, err := sql.Open("pgx", url)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("warning: failed to close test database: %v", err)
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("test database ping failed: %v", err)
	}

	migrateOnce.Do(func() {
		migrateCtx, migrateCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer migrateCancel()
		migrateErr = postgres.RunMigrations(migrateCtx, db, slog.Default())
	})
	if migrateErr != nil {
		t.Fatalf("failed to apply test database migrations: %v", migrateErr)
	}

	return db
}

// WithTx runs fn inside a transaction that is rolled back when the test
// completes, keeping parallel tests from seeing each other's rows.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}

	defer func() {
		if r := recover(); r != nil {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				t.Logf("warning: failed to rollback transaction after panic: %v", err)
			}
			panic(r)
		}
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("warning: failed to rollback transaction: %v", err)
		}
	}()

	fn(t, tx)
}
