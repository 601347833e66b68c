// Package selection implements the task type selection policy: a pure
// scoring pass over a learner's recent task records, and a weighted random
// draw over the resulting weights. Scoring and randomness are kept separate
// so the scoring rules are testable without seeding anything.
package selection

import "time"

// Params defines all configurable parameters for task type scoring.
type Params struct {
	// TargetMastery is the average score below which a type counts as weak.
	TargetMastery float64

	// MinAttemptsForWeakness is how many scored attempts a type needs
	// before its average is trusted enough to mark it weak.
	MinAttemptsForWeakness int

	// AttemptsCap bounds how much repeated evidence can amplify weakness.
	AttemptsCap int

	// BaseWeight is the floor weight every catalog type keeps, which
	// guarantees no type is ever starved out of selection.
	BaseWeight float64

	// WeaknessGain scales the weakness term's contribution to the weight.
	WeaknessGain float64

	// CoverageGain scales the coverage (staleness) term's contribution.
	CoverageGain float64

	// CoveragePeriod is how much elapsed time amounts to one unit of
	// coverage pressure.
	CoveragePeriod time.Duration

	// MaxCoverage caps the coverage term; never-practiced types get
	// exactly this value so they surface quickly but don't dominate.
	MaxCoverage float64
}

// ParamsConfig allows overriding the default parameters when creating a new
// Params instance. Zero values fall back to defaults.
type ParamsConfig struct {
	TargetMastery          float64
	MinAttemptsForWeakness int
	AttemptsCap            int
	BaseWeight             float64
	WeaknessGain           float64
	CoverageGain           float64
	CoveragePeriod         time.Duration
	MaxCoverage            float64
}

// NewDefaultParams creates a new Params instance with default values.
func NewDefaultParams() *Params {
	return &Params{
		TargetMastery:          0.7,
		MinAttemptsForWeakness: 2,
		AttemptsCap:            10,
		BaseWeight:             1.0,
		WeaknessGain:           2.0,
		CoverageGain:           0.5,
		CoveragePeriod:         7 * 24 * time.Hour,
		MaxCoverage:            3.0,
	}
}

// NewParams creates a Params instance from the given config,
// using defaults for any zero-valued field.
func NewParams(cfg ParamsConfig) *Params {
	params := NewDefaultParams()

	if cfg.TargetMastery > 0 {
		params.TargetMastery = cfg.TargetMastery
	}
	if cfg.MinAttemptsForWeakness > 0 {
		params.MinAttemptsForWeakness = cfg.MinAttemptsForWeakness
	}
	if cfg.AttemptsCap > 0 {
		params.AttemptsCap = cfg.AttemptsCap
	}
	if cfg.BaseWeight > 0 {
		params.BaseWeight = cfg.BaseWeight
	}
	if cfg.WeaknessGain > 0 {
		params.WeaknessGain = cfg.WeaknessGain
	}
	if cfg.CoverageGain > 0 {
		params.CoverageGain = cfg.CoverageGain
	}
	if cfg.CoveragePeriod > 0 {
		params.CoveragePeriod = cfg.CoveragePeriod
	}
	if cfg.MaxCoverage > 0 {
		params.MaxCoverage = cfg.MaxCoverage
	}

	return params
}
