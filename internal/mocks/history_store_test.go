package mocks

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/lingo-api/internal/domain"
)

func TestRecordConcurrentDistinctObjectives(t *testing.T) {
	t.Parallel()

	store := NewMockObjectiveHistoryStore()
	ctx := context.Background()

	const n = 32
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func(i int) {
			defer wg.Done()
			objective := fmt.Sprintf("objective %02d", i)
			assert.NoError(t, store.Record(ctx, "1000001", domain.TaskTypeVocabulary, objective))
		}(i)
	}
	wg.Wait()

	count, err := store.SeenCount(ctx, "1000001", domain.TaskTypeVocabulary)
	require.NoError(t, err)
	assert.Equal(t, n, count, "every parallel record must land")
}

func TestRecordConcurrentSameObjective(t *testing.T) {
	t.Parallel()

	store := NewMockObjectiveHistoryStore()
	ctx := context.Background()

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Record(ctx, "1000001", domain.TaskTypeIdiom, "break the ice"))
		}()
	}
	wg.Wait()

	count, err := store.SeenCount(ctx, "1000001", domain.TaskTypeIdiom)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "repeat use of one objective stays a single entry")

	entries, err := store.LeastRecentlyUsed(ctx, "1000001", domain.TaskTypeIdiom, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, n, entries[0].UseCount, "no increment may be lost")
}

func TestListRecentScopedToTaskType(t *testing.T) {
	t.Parallel()

	store := NewMockObjectiveHistoryStore()
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, "1000001", domain.TaskTypeVocabulary, "meticulous"))
	require.NoError(t, store.Record(ctx, "1000001", domain.TaskTypeVocabulary, "ubiquitous"))
	require.NoError(t, store.Record(ctx, "1000001", domain.TaskTypeIdiom, "break the ice"))

	entries, err := store.ListRecent(ctx, "1000001", domain.TaskTypeVocabulary, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2, "other task types stay out of the result")
	for _, entry := range entries {
		assert.Equal(t, domain.TaskTypeVocabulary, entry.TaskType)
	}

	entries, err = store.ListRecent(ctx, "1000001", domain.TaskTypeVocabulary, 1)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "limit caps the result")
}
