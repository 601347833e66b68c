//go:build integration

package testdb

import (
	"context"
	"testing"
	"time"

	"github.com/phrazzld/lingo-api/internal/domain"
	"github.com/phrazzld/lingo-api/internal/store"
)

// MustInsertLearner inserts a learner profile row with default preferences
// and returns it, failing the test on error. The row satisfies the foreign
// keys on task_records and objective_history.
func MustInsertLearner(ctx context.Context, t *testing.T, db store.DBTX, id string) *domain.LearnerProfile {
	t.Helper()

	profile, err := domain.NewLearnerProfile(id)
	if err != nil {
		t.Fatalf("failed to build learner profile: %v", err)
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO learners (id, difficulty, language, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, profile.ID, profile.Difficulty, profile.Language, profile.CreatedAt, profile.UpdatedAt, profile.Version)
	if err != nil {
		t.Fatalf("failed to insert learner %s: %v", id, err)
	}

	return profile
}

// MustAuthorize inserts an allow-list row for the learner, failing the test
// on error.
func MustAuthorize(ctx context.Context, t *testing.T, db store.DBTX, learnerID, grantedBy string) {
	t.Helper()

	_, err := db.ExecContext(ctx, `
		INSERT INTO authorizations (learner_id, granted_by, granted_at)
		VALUES ($1, $2, $3)
	`, learnerID, grantedBy, time.Now().UTC())
	if err != nil {
		t.Fatalf("failed to authorize learner %s: %v", learnerID, err)
	}
}

// MustCreateTaskRecord builds a valid pending task record for the learner,
// failing the test on error. The record is not persisted; pass it to a
// TaskRecordStore under test.
func MustCreateTaskRecord(t *testing.T, learnerID, objective string) *domain.TaskRecord {
	t.Helper()

	params := domain.GenerationParameters{
		Difficulty:          domain.DifficultyIntermediate,
		InstructionLanguage: domain.DefaultLanguage,
	}
	record, err := domain.NewTaskRecord(learnerID, domain.TaskTypeVocabulary, objective, params, "Use the word in a sentence of your own.")
	if err != nil {
		t.Fatalf("failed to build task record: %v", err)
	}

	return record
}
