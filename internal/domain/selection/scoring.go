package selection

import (
	"time"

	"github.com/phrazzld/lingo-api/internal/domain"
)

// TypeScore is the scored weight of one catalog task type for one learner.
type TypeScore struct {
	// Type is the catalog task type this score belongs to.
	Type domain.TaskType

	// Attempts is the number of completed records of this type that
	// carried a score.
	Attempts int

	// AverageScore is the mean score across those attempts.
	// It is only meaningful when Attempts > 0.
	AverageScore float64

	// Weakness is the weak-area term: how far below target the learner
	// performs on this type, amplified by how much evidence exists.
	Weakness float64

	// Coverage is the staleness term: how long it has been since this
	// type was last practiced.
	Coverage float64

	// Weight is the final selection weight, always > 0.
	Weight float64
}

// typeHistory is the per-type fold of a learner's completed records.
type typeHistory struct {
	scoredAttempts int
	scoreSum       float64
	lastPracticed  time.Time
}

// Scores computes a selection weight for every type in the catalog from the
// learner's recent task records.
//
// Parameters:
//   - catalog: The task type catalog in canonical order
//   - records: Recent task records for the learner; only completed records
//     are considered, and only scored completions feed the averages
//   - now: The reference time for coverage (staleness) computation
//   - params: Scoring configuration
//
// Returns:
//   - One TypeScore per catalog entry, in catalog order
//
// Algorithm behavior:
//   - Weakness is (TargetMastery - average) scaled by the number of scored
//     attempts (capped), and only applies once a type has at least
//     MinAttemptsForWeakness scored attempts below target
//   - Coverage grows linearly with time since the type was last practiced,
//     capped at MaxCoverage; never-practiced types get the cap outright
//   - Weight = BaseWeight + WeaknessGain*Weakness + CoverageGain*Coverage,
//     so every type keeps a positive floor and none can be starved
func Scores(
	catalog []domain.TaskTypeSpec,
	records []domain.TaskRecord,
	now time.Time,
	params *Params,
) []TypeScore {
	if params == nil {
		params = NewDefaultParams()
	}

	histories := make(map[domain.TaskType]*typeHistory, len(catalog))
	for _, spec := range catalog {
		histories[spec.Type] = &typeHistory{}
	}

	for _, record := range records {
		if record.State != domain.TaskStateCompleted {
			continue
		}
		history, ok := histories[record.Type]
		if !ok {
			continue
		}

		practicedAt := record.IssuedAt
		if record.CompletedAt != nil {
			practicedAt = *record.CompletedAt
		}
		if practicedAt.After(history.lastPracticed) {
			history.lastPracticed = practicedAt
		}

		if record.Score != nil {
			history.scoredAttempts++
			history.scoreSum += *record.Score
		}
	}

	scores := make([]TypeScore, 0, len(catalog))
	for _, spec := range catalog {
		history := histories[spec.Type]

		score := TypeScore{
			Type:     spec.Type,
			Attempts: history.scoredAttempts,
		}
		if history.scoredAttempts > 0 {
			score.AverageScore = history.scoreSum / float64(history.scoredAttempts)
		}

		score.Weakness = weakness(history.scoredAttempts, score.AverageScore, params)
		score.Coverage = coverage(history.lastPracticed, now, params)
		score.Weight = params.BaseWeight +
			params.WeaknessGain*score.Weakness +
			params.CoverageGain*score.Coverage

		scores = append(scores, score)
	}

	return scores
}

// weakness computes the weak-area term for one type.
//
// Parameters:
//   - attempts: Number of scored attempts for the type
//   - average: Mean score across those attempts
//   - params: Scoring configuration
//
// Returns:
//   - (TargetMastery - average) * min(attempts, AttemptsCap) when the type
//     has enough evidence and sits below target, otherwise 0
func weakness(attempts int, average float64, params *Params) float64 {
	if attempts < params.MinAttemptsForWeakness {
		return 0
	}
	if average >= params.TargetMastery {
		return 0
	}

	evidence := attempts
	if evidence > params.AttemptsCap {
		evidence = params.AttemptsCap
	}

	return (params.TargetMastery - average) * float64(evidence)
}

// coverage computes the staleness term for one type. A zero lastPracticed
// means the type has never been practiced and yields the cap.
func coverage(lastPracticed time.Time, now time.Time, params *Params) float64 {
	if lastPracticed.IsZero() {
		return params.MaxCoverage
	}

	elapsed := now.Sub(lastPracticed)
	if elapsed < 0 {
		return 0
	}

	units := float64(elapsed) / float64(params.CoveragePeriod)
	if units > params.MaxCoverage {
		return params.MaxCoverage
	}
	return units
}
