//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/phrazzld/lingo-api/internal/domain"
	"github.com/phrazzld/lingo-api/internal/platform/postgres"
	"github.com/phrazzld/lingo-api/internal/store"
	"github.com/phrazzld/lingo-api/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresLearnerStore_CreateAndGet(t *testing.T) {
	t.Parallel()

	db := testdb.GetTestDB(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		learnerStore := postgres.NewPostgresLearnerStore(tx, nil)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		profile, err := domain.NewLearnerProfile("create-get-learner")
		require.NoError(t, err)

		require.NoError(t, learnerStore.Create(ctx, profile))

		got, err := learnerStore.Get(ctx, profile.ID)
		require.NoError(t, err)
		assert.Equal(t, profile.ID, got.ID)
		assert.Equal(t, domain.DifficultyIntermediate, got.Difficulty)
		assert.Equal(t, domain.DefaultLanguage, got.Language)
		assert.Equal(t, int64(1), got.Version)
		assert.WithinDuration(t, profile.CreatedAt, got.CreatedAt, time.Second)

		t.Run("duplicate create fails", func(t *testing.T) {
			err := learnerStore.Create(ctx, profile)
			assert.ErrorIs(t, err, store.ErrLearnerExists)
		})

		t.Run("unknown learner", func(t *testing.T) {
			_, err := learnerStore.Get(ctx, "no-such-learner")
			assert.ErrorIs(t, err, store.ErrLearnerNotFound)
		})
	})
}

func TestPostgresLearnerStore_UpdateVersioning(t *testing.T) {
	t.Parallel()

	db := testdb.GetTestDB(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		learnerStore := postgres.NewPostgresLearnerStore(tx, nil)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		profile, err := domain.NewLearnerProfile("update-learner")
		require.NoError(t, err)
		require.NoError(t, learnerStore.Create(ctx, profile))

		// Simulate two readers holding the same snapshot.
		stale := *profile

		require.NoError(t, profile.SetDifficulty(domain.DifficultyAdvanced))
		require.NoError(t, learnerStore.Update(ctx, profile))
		assert.Equal(t, int64(2), profile.Version)

		// The second writer still presents version 1 and must lose.
		require.NoError(t, stale.SetLanguage("fr"))
		err = learnerStore.Update(ctx, &stale)
		assert.ErrorIs(t, err, store.ErrConflict)

		// The winning write is intact.
		got, err := learnerStore.Get(ctx, profile.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.DifficultyAdvanced, got.Difficulty)
		assert.Equal(t, domain.DefaultLanguage, got.Language)
		assert.Equal(t, int64(2), got.Version)

		// Re-reading gives the loser a current version to retry with.
		refreshed := *got
		require.NoError(t, refreshed.SetLanguage("fr"))
		require.NoError(t, learnerStore.Update(ctx, &refreshed))
		assert.Equal(t, int64(3), refreshed.Version)

		t.Run("update of missing learner", func(t *testing.T) {
			ghost, err := domain.NewLearnerProfile("ghost-learner")
			require.NoError(t, err)
			err = learnerStore.Update(ctx, ghost)
			assert.ErrorIs(t, err, store.ErrLearnerNotFound)
		})
	})
}

func TestPostgresLearnerStore_DeleteCascades(t *testing.T) {
	t.Parallel()

	db := testdb.GetTestDB(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		learnerStore := postgres.NewPostgresLearnerStore(tx, nil)
		recordStore := postgres.NewPostgresTaskRecordStore(tx, nil)
		historyStore := postgres.NewPostgresObjectiveHistoryStore(tx, nil)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		profile := testdb.MustInsertLearner(ctx, t, tx, "delete-learner")

		record := testdb.MustCreateTaskRecord(t, profile.ID, "meticulous")
		require.NoError(t, recordStore.Create(ctx, record))
		require.NoError(t, historyStore.Record(ctx, profile.ID, record.Type, record.Objective))

		require.NoError(t, learnerStore.Delete(ctx, profile.ID))

		_, err := learnerStore.Get(ctx, profile.ID)
		assert.ErrorIs(t, err, store.ErrLearnerNotFound)

		_, err = recordStore.GetByID(ctx, record.ID)
		assert.ErrorIs(t, err, store.ErrTaskRecordNotFound, "task records should cascade")

		count, err := historyStore.SeenCount(ctx, profile.ID, record.Type)
		require.NoError(t, err)
		assert.Zero(t, count, "objective history should cascade")

		t.Run("delete of missing learner", func(t *testing.T) {
			err := learnerStore.Delete(ctx, "no-such-learner")
			assert.ErrorIs(t, err, store.ErrLearnerNotFound)
		})
	})
}
