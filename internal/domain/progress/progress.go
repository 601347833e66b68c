// Package progress computes a learner's progress snapshot from committed
// task records. Everything here is a pure fold over the records passed in:
// no storage access, no side effects, safe to run concurrently with writers.
package progress

import (
	"sort"
	"time"

	"github.com/phrazzld/lingo-api/internal/domain"
)

// Thresholds for weak-area reporting.
const (
	// weakTypeMax is the average below which a practiced type is reported
	// as weak.
	weakTypeMax = 0.7

	// weakObjectiveMax is the average below which a repeated objective is
	// reported as a weak item.
	weakObjectiveMax = 0.6

	// minAttempts is how many scored attempts a type or objective needs
	// before it can be called weak.
	minAttempts = 2

	// maxWeakTypes and maxWeakObjectives cap the ranked lists.
	maxWeakTypes      = 3
	maxWeakObjectives = 5
)

// TypeStats summarizes a learner's completed work for one task type.
type TypeStats struct {
	Type           domain.TaskType `json:"task_type"`
	Attempts       int             `json:"attempts"`
	ScoredAttempts int             `json:"scored_attempts"`
	AverageScore   float64         `json:"average_score"`
	LastPracticed  time.Time       `json:"last_practiced"`
}

// WeakObjective is a specific objective the learner keeps getting wrong.
type WeakObjective struct {
	Type         domain.TaskType `json:"task_type"`
	Objective    string          `json:"objective"`
	Attempts     int             `json:"attempts"`
	AverageScore float64         `json:"average_score"`
}

// Snapshot is the derived, never-stored progress view for one learner.
//
// Attempts count Completed records only: pending tasks have no outcome yet
// and abandoned tasks are audit history, not practice. Averages run over
// scored completions; unscored (voice) completions count as attempts but
// carry no score.
type Snapshot struct {
	LearnerID      string          `json:"learner_id"`
	GeneratedAt    time.Time       `json:"generated_at"`
	TotalAttempts  int             `json:"total_attempts"`
	ScoredAttempts int             `json:"scored_attempts"`
	OverallAverage float64         `json:"overall_average"`
	PerType        []TypeStats     `json:"per_type"`
	WeakTypes      []TypeStats     `json:"weak_types"`
	WeakObjectives []WeakObjective `json:"weak_objectives"`
}

// objectiveKey groups records per (type, objective).
type objectiveKey struct {
	taskType  domain.TaskType
	objective string
}

type objectiveStats struct {
	attempts int
	scoreSum float64
}

// Summarize folds the learner's task records into a Snapshot.
//
// Parameters:
//   - learnerID: The learner the records belong to
//   - records: Task records in any order; only Completed ones contribute
//   - now: Timestamp stamped onto the snapshot
//
// Returns:
//   - A Snapshot with per-type stats in catalog order (practiced types
//     only), weak types ranked lowest average first, and weak objectives
//     ranked lowest average first with ties broken by attempt count
func Summarize(learnerID string, records []domain.TaskRecord, now time.Time) Snapshot {
	snapshot := Snapshot{
		LearnerID:   learnerID,
		GeneratedAt: now.UTC(),
	}

	perType := make(map[domain.TaskType]*TypeStats)
	perObjective := make(map[objectiveKey]*objectiveStats)
	var overallSum float64

	for _, record := range records {
		if record.State != domain.TaskStateCompleted {
			continue
		}

		stats := perType[record.Type]
		if stats == nil {
			stats = &TypeStats{Type: record.Type}
			perType[record.Type] = stats
		}

		stats.Attempts++
		snapshot.TotalAttempts++

		practicedAt := record.IssuedAt
		if record.CompletedAt != nil {
			practicedAt = *record.CompletedAt
		}
		if practicedAt.After(stats.LastPracticed) {
			stats.LastPracticed = practicedAt
		}

		if record.Score == nil {
			continue
		}

		stats.ScoredAttempts++
		stats.AverageScore += *record.Score
		snapshot.ScoredAttempts++
		overallSum += *record.Score

		key := objectiveKey{taskType: record.Type, objective: record.Objective}
		obj := perObjective[key]
		if obj == nil {
			obj = &objectiveStats{}
			perObjective[key] = obj
		}
		obj.attempts++
		obj.scoreSum += *record.Score
	}

	// Finish the running sums into averages.
	for _, stats := range perType {
		if stats.ScoredAttempts > 0 {
			stats.AverageScore /= float64(stats.ScoredAttempts)
		}
	}
	if snapshot.ScoredAttempts > 0 {
		snapshot.OverallAverage = overallSum / float64(snapshot.ScoredAttempts)
	}

	// Per-type stats in catalog order, practiced types only.
	for _, spec := range domain.Catalog() {
		if stats, ok := perType[spec.Type]; ok {
			snapshot.PerType = append(snapshot.PerType, *stats)
		}
	}

	snapshot.WeakTypes = rankWeakTypes(snapshot.PerType)
	snapshot.WeakObjectives = rankWeakObjectives(perObjective)

	return snapshot
}

// rankWeakTypes returns practiced types with enough scored evidence and a
// below-target average, weakest first.
func rankWeakTypes(perType []TypeStats) []TypeStats {
	var weak []TypeStats
	for _, stats := range perType {
		if stats.ScoredAttempts >= minAttempts && stats.AverageScore < weakTypeMax {
			weak = append(weak, stats)
		}
	}

	sort.SliceStable(weak, func(i, j int) bool {
		return weak[i].AverageScore < weak[j].AverageScore
	})

	if len(weak) > maxWeakTypes {
		weak = weak[:maxWeakTypes]
	}
	return weak
}

// rankWeakObjectives returns repeated objectives with a low average,
// weakest first, ties broken by attempt count (more evidence first) and
// then objective value for stable output.
func rankWeakObjectives(perObjective map[objectiveKey]*objectiveStats) []WeakObjective {
	var weak []WeakObjective
	for key, stats := range perObjective {
		if stats.attempts < minAttempts {
			continue
		}
		average := stats.scoreSum / float64(stats.attempts)
		if average >= weakObjectiveMax {
			continue
		}
		weak = append(weak, WeakObjective{
			Type:         key.taskType,
			Objective:    key.objective,
			Attempts:     stats.attempts,
			AverageScore: average,
		})
	}

	sort.Slice(weak, func(i, j int) bool {
		if weak[i].AverageScore != weak[j].AverageScore {
			return weak[i].AverageScore < weak[j].AverageScore
		}
		if weak[i].Attempts != weak[j].Attempts {
			return weak[i].Attempts > weak[j].Attempts
		}
		return weak[i].Objective < weak[j].Objective
	})

	if len(weak) > maxWeakObjectives {
		weak = weak[:maxWeakObjectives]
	}
	return weak
}
