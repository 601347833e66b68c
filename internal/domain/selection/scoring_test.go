package selection

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/lingo-api/internal/domain"
)

func completedRecord(taskType domain.TaskType, score float64, completedAt time.Time) domain.TaskRecord {
	s := score
	return domain.TaskRecord{
		ID:          uuid.New(),
		LearnerID:   "learner-1",
		Type:        taskType,
		Objective:   "objective",
		Difficulty:  domain.DifficultyIntermediate,
		Language:    "en",
		Content:     "content",
		State:       domain.TaskStateCompleted,
		Score:       &s,
		Feedback:    domain.FeedbackForScore(score),
		IssuedAt:    completedAt.Add(-time.Hour),
		CompletedAt: &completedAt,
		Version:     2,
	}
}

func scoreFor(t *testing.T, scores []TypeScore, taskType domain.TaskType) TypeScore {
	t.Helper()
	for _, score := range scores {
		if score.Type == taskType {
			return score
		}
	}
	t.Fatalf("no score for %s", taskType)
	return TypeScore{}
}

func TestScoresCatalogOrderAndFloor(t *testing.T) {
	t.Parallel() // Enable parallel execution

	now := time.Now().UTC()
	scores := Scores(domain.Catalog(), nil, now, NewDefaultParams())

	if len(scores) != len(domain.Catalog()) {
		t.Fatalf("Expected one score per catalog entry, got %d", len(scores))
	}

	for i, spec := range domain.Catalog() {
		if scores[i].Type != spec.Type {
			t.Errorf("Expected %s at position %d, got %s", spec.Type, i, scores[i].Type)
		}
		if scores[i].Weight <= 0 {
			t.Errorf("Expected positive weight for %s, got %f", spec.Type, scores[i].Weight)
		}
		// Never practiced: full coverage pressure, no weakness evidence.
		if scores[i].Coverage != NewDefaultParams().MaxCoverage {
			t.Errorf("Expected max coverage for unpracticed %s, got %f", spec.Type, scores[i].Coverage)
		}
		if scores[i].Weakness != 0 {
			t.Errorf("Expected zero weakness for unpracticed %s, got %f", spec.Type, scores[i].Weakness)
		}
	}
}

func TestScoresWeakness(t *testing.T) {
	t.Parallel() // Enable parallel execution

	now := time.Now().UTC()
	params := NewDefaultParams()

	records := []domain.TaskRecord{
		// Weak type: two low scores
		completedRecord(domain.TaskTypeIdiom, 0.2, now.Add(-time.Hour)),
		completedRecord(domain.TaskTypeIdiom, 0.4, now.Add(-2*time.Hour)),
		// Strong type: two high scores
		completedRecord(domain.TaskTypeVocabulary, 0.9, now.Add(-time.Hour)),
		completedRecord(domain.TaskTypeVocabulary, 1.0, now.Add(-2*time.Hour)),
		// Single low score: below the evidence threshold
		completedRecord(domain.TaskTypeWriting, 0.1, now.Add(-time.Hour)),
	}

	scores := Scores(domain.Catalog(), records, now, params)

	idiom := scoreFor(t, scores, domain.TaskTypeIdiom)
	if idiom.Attempts != 2 {
		t.Errorf("Expected 2 attempts, got %d", idiom.Attempts)
	}
	wantWeakness := (params.TargetMastery - 0.3) * 2
	if diff := idiom.Weakness - wantWeakness; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Expected weakness %f, got %f", wantWeakness, idiom.Weakness)
	}

	vocabulary := scoreFor(t, scores, domain.TaskTypeVocabulary)
	if vocabulary.Weakness != 0 {
		t.Errorf("Expected zero weakness above target, got %f", vocabulary.Weakness)
	}

	writing := scoreFor(t, scores, domain.TaskTypeWriting)
	if writing.Weakness != 0 {
		t.Errorf("Expected zero weakness below evidence threshold, got %f", writing.Weakness)
	}

	if idiom.Weight <= vocabulary.Weight {
		t.Errorf("Expected weak type to outweigh strong type: %f vs %f", idiom.Weight, vocabulary.Weight)
	}
}

func TestScoresExcludesAbandonedAndPending(t *testing.T) {
	t.Parallel() // Enable parallel execution

	now := time.Now().UTC()

	abandoned := completedRecord(domain.TaskTypeIdiom, 0.1, now.Add(-time.Hour))
	abandoned.State = domain.TaskStateAbandoned
	abandoned.Score = nil
	abandoned.AbandonReason = domain.AbandonTimeout

	pending := completedRecord(domain.TaskTypeIdiom, 0.1, now.Add(-time.Hour))
	pending.State = domain.TaskStatePending
	pending.Score = nil
	pending.CompletedAt = nil

	scores := Scores(domain.Catalog(), []domain.TaskRecord{abandoned, pending}, now, NewDefaultParams())

	idiom := scoreFor(t, scores, domain.TaskTypeIdiom)
	if idiom.Attempts != 0 {
		t.Errorf("Expected abandoned and pending records to be excluded, got %d attempts", idiom.Attempts)
	}
	if idiom.Coverage != NewDefaultParams().MaxCoverage {
		t.Errorf("Expected coverage untouched by excluded records, got %f", idiom.Coverage)
	}
}

func TestScoresUnscoredCompletionsCountForCoverageOnly(t *testing.T) {
	t.Parallel() // Enable parallel execution

	now := time.Now().UTC()

	voice := completedRecord(domain.TaskTypeVoice, 0, now.Add(-time.Hour))
	voice.Score = nil
	voice.Feedback = domain.FeedbackUnscored

	scores := Scores(domain.Catalog(), []domain.TaskRecord{voice}, now, NewDefaultParams())

	got := scoreFor(t, scores, domain.TaskTypeVoice)
	if got.Attempts != 0 {
		t.Errorf("Expected unscored completion to carry no scored attempts, got %d", got.Attempts)
	}
	if got.Coverage >= NewDefaultParams().MaxCoverage {
		t.Errorf("Expected recent unscored completion to reduce coverage, got %f", got.Coverage)
	}
}

func TestScoresCoverageGrowsWithStaleness(t *testing.T) {
	t.Parallel() // Enable parallel execution

	now := time.Now().UTC()
	params := NewDefaultParams()

	records := []domain.TaskRecord{
		completedRecord(domain.TaskTypeIdiom, 0.9, now.Add(-time.Hour)),
		completedRecord(domain.TaskTypeWriting, 0.9, now.Add(-14*24*time.Hour)),
	}

	scores := Scores(domain.Catalog(), records, now, params)

	fresh := scoreFor(t, scores, domain.TaskTypeIdiom)
	stale := scoreFor(t, scores, domain.TaskTypeWriting)

	if stale.Coverage <= fresh.Coverage {
		t.Errorf("Expected stale type to carry more coverage: %f vs %f", stale.Coverage, fresh.Coverage)
	}
	if stale.Coverage > params.MaxCoverage {
		t.Errorf("Expected coverage capped at %f, got %f", params.MaxCoverage, stale.Coverage)
	}
}

func TestWeaknessAttemptsCap(t *testing.T) {
	t.Parallel() // Enable parallel execution

	params := NewDefaultParams()

	atCap := weakness(params.AttemptsCap, 0.2, params)
	beyondCap := weakness(params.AttemptsCap*5, 0.2, params)

	if atCap != beyondCap {
		t.Errorf("Expected weakness capped at %d attempts: %f vs %f", params.AttemptsCap, atCap, beyondCap)
	}
}
