//go:build integration

// Package testdb provides utilities for database integration testing.
//
// Tests run inside a transaction that is rolled back when the test
// completes, so they can run in parallel without interfering with each
// other and without manual cleanup:
//
//	func TestMyStore(t *testing.T) {
//	    t.Parallel()
//
//	    db := testdb.GetTestDB(t)
//
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        learnerStore := postgres.NewPostgresLearnerStore(tx, nil)
//	        // ... changes roll back automatically
//	    })
//	}
//
// The connection string comes from LINGO_TEST_DB_URL or DATABASE_URL;
// tests skip themselves when neither is set. Migrations are applied once
// per test process.
package testdb
