package practice

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/lingo-api/internal/domain"
	"github.com/phrazzld/lingo-api/internal/generation"
)

func intermediateParams() domain.GenerationParameters {
	return domain.ParametersFor(domain.DifficultyIntermediate, "en")
}

func TestPickObjectiveFirstUnseenWins(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.candidates.Batches = [][]string{{"meticulous", "arduous", "candid"}}

	objective, err := f.svc.pickObjective(context.Background(), testLearnerID, domain.TaskTypeVocabulary, intermediateParams())
	require.NoError(t, err)
	assert.Equal(t, "meticulous", objective)
}

func TestPickObjectiveSkipsSeenCandidates(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.candidates.Batches = [][]string{{"meticulous", "arduous", "candid"}}
	require.NoError(t, f.history.Record(context.Background(), testLearnerID, domain.TaskTypeVocabulary, "meticulous"))
	require.NoError(t, f.history.Record(context.Background(), testLearnerID, domain.TaskTypeVocabulary, "arduous"))

	objective, err := f.svc.pickObjective(context.Background(), testLearnerID, domain.TaskTypeVocabulary, intermediateParams())
	require.NoError(t, err)
	assert.Equal(t, "candid", objective)
}

func TestPickObjectiveSecondBatchAfterCollision(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.candidates.Batches = [][]string{
		{"meticulous", "arduous"},
		{"candid", "tedious"},
	}
	require.NoError(t, f.history.Record(context.Background(), testLearnerID, domain.TaskTypeVocabulary, "meticulous"))
	require.NoError(t, f.history.Record(context.Background(), testLearnerID, domain.TaskTypeVocabulary, "arduous"))

	objective, err := f.svc.pickObjective(context.Background(), testLearnerID, domain.TaskTypeVocabulary, intermediateParams())
	require.NoError(t, err)
	assert.Equal(t, "candid", objective)
}

func TestPickObjectiveExhaustedReusePolicy(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.candidates.Batches = [][]string{{"meticulous", "arduous"}}

	f.history.Seed(&domain.ObjectiveHistoryEntry{
		LearnerID:   testLearnerID,
		TaskType:    domain.TaskTypeVocabulary,
		Objective:   "meticulous",
		FirstUsedAt: f.now.Add(-48 * time.Hour),
		LastUsedAt:  f.now.Add(-48 * time.Hour),
		UseCount:    1,
	})
	f.history.Seed(&domain.ObjectiveHistoryEntry{
		LearnerID:   testLearnerID,
		TaskType:    domain.TaskTypeVocabulary,
		Objective:   "arduous",
		FirstUsedAt: f.now.Add(-24 * time.Hour),
		LastUsedAt:  f.now.Add(-24 * time.Hour),
		UseCount:    1,
	})

	objective, err := f.svc.pickObjective(context.Background(), testLearnerID, domain.TaskTypeVocabulary, intermediateParams())
	require.NoError(t, err)
	assert.Equal(t, "meticulous", objective, "reuse policy serves the least recently used objective")
}

func TestPickObjectiveExhaustedResetPolicy(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.svc.cfg.ExhaustionPolicy = ExhaustionReset

	// Error correction has the smallest pool; fill it completely.
	spec, ok := domain.SpecFor(domain.TaskTypeErrorCorrection)
	require.True(t, ok)

	batch := make([]string, 0, spec.PoolSize)
	for i := 0; i < spec.PoolSize; i++ {
		objective := fmt.Sprintf("grammar point %02d", i)
		batch = append(batch, objective)
		require.NoError(t, f.history.Record(context.Background(), testLearnerID, domain.TaskTypeErrorCorrection, objective))
	}
	f.candidates.Batches = [][]string{batch}

	objective, err := f.svc.pickObjective(context.Background(), testLearnerID, domain.TaskTypeErrorCorrection, intermediateParams())
	require.NoError(t, err)
	assert.Equal(t, batch[0], objective, "reset reissues the first candidate of the fresh cycle")

	count, err := f.history.SeenCount(context.Background(), testLearnerID, domain.TaskTypeErrorCorrection)
	require.NoError(t, err)
	assert.Equal(t, 0, count, "reset clears the per-type history")
}

func TestPickObjectiveResetPolicyBelowPoolSizeReuses(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.svc.cfg.ExhaustionPolicy = ExhaustionReset
	f.candidates.Batches = [][]string{{"meticulous"}}

	// One seen objective is far below the pool size: the policy must not
	// reset a pool the learner has barely started.
	f.history.Seed(&domain.ObjectiveHistoryEntry{
		LearnerID:   testLearnerID,
		TaskType:    domain.TaskTypeVocabulary,
		Objective:   "meticulous",
		FirstUsedAt: f.now.Add(-time.Hour),
		LastUsedAt:  f.now.Add(-time.Hour),
		UseCount:    1,
	})

	objective, err := f.svc.pickObjective(context.Background(), testLearnerID, domain.TaskTypeVocabulary, intermediateParams())
	require.NoError(t, err)
	assert.Equal(t, "meticulous", objective)

	count, err := f.history.SeenCount(context.Background(), testLearnerID, domain.TaskTypeVocabulary)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "history must survive")
}

func TestPickObjectiveSourceFailureFallsBackToHistory(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.candidates.CandidatesFn = func(ctx context.Context, taskType domain.TaskType, params domain.GenerationParameters, avoid []string, n int) ([]string, error) {
		return nil, generation.ErrTransientFailure
	}
	f.history.Seed(&domain.ObjectiveHistoryEntry{
		LearnerID:   testLearnerID,
		TaskType:    domain.TaskTypeVocabulary,
		Objective:   "meticulous",
		FirstUsedAt: f.now.Add(-time.Hour),
		LastUsedAt:  f.now.Add(-time.Hour),
		UseCount:    1,
	})

	objective, err := f.svc.pickObjective(context.Background(), testLearnerID, domain.TaskTypeVocabulary, intermediateParams())
	require.NoError(t, err, "a flaky source degrades to reuse, not to a failed task")
	assert.Equal(t, "meticulous", objective)
}

func TestPickObjectiveNothingAvailable(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	// No candidates and no history: there is genuinely nothing to serve.

	_, err := f.svc.pickObjective(context.Background(), testLearnerID, domain.TaskTypeVocabulary, intermediateParams())
	require.Error(t, err)
	assert.ErrorIs(t, err, generation.ErrNoCandidates)
}

func TestRecentObjectivesFiltersByType(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.history.Record(context.Background(), testLearnerID, domain.TaskTypeVocabulary, "meticulous"))
	require.NoError(t, f.history.Record(context.Background(), testLearnerID, domain.TaskTypeIdiom, "break the ice"))

	objectives, err := f.svc.recentObjectives(context.Background(), testLearnerID, domain.TaskTypeVocabulary)
	require.NoError(t, err)
	assert.Equal(t, []string{"meticulous"}, objectives)
}

func TestAppendBounded(t *testing.T) {
	t.Parallel()

	list := []string{"a", "b", "c"}
	list = appendBounded(list, []string{"d", "e"}, 4)
	assert.Equal(t, []string{"b", "c", "d", "e"}, list)

	list = appendBounded(nil, []string{"x"}, 4)
	assert.Equal(t, []string{"x"}, list)
}
