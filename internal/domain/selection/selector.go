package selection

import (
	"errors"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/phrazzld/lingo-api/internal/domain"
)

// Common errors
var (
	ErrEmptyScores   = errors.New("scores cannot be empty")
	ErrInvalidWeight = errors.New("scores must carry positive weights")
)

// Selector chooses the next task type for a learner.
type Selector interface {
	// SelectNext scores the catalog against the learner's recent records
	// and draws the next task type.
	SelectNext(records []domain.TaskRecord, now time.Time) (domain.TaskType, error)
}

// defaultSelector is the standard implementation of the Selector interface.
type defaultSelector struct {
	params *Params

	mu  sync.Mutex
	rng *rand.Rand
}

// NewSelector creates a Selector with the given scoring parameters, seeded
// from the current time. A nil params uses defaults.
func NewSelector(params *Params) Selector {
	return NewSelectorWithSource(params, rand.NewSource(time.Now().UnixNano()))
}

// NewSelectorWithSource creates a Selector with an explicit random source,
// so draws are reproducible under test.
func NewSelectorWithSource(params *Params, src rand.Source) Selector {
	if params == nil {
		params = NewDefaultParams()
	}
	return &defaultSelector{
		params: params,
		rng:    rand.New(src),
	}
}

// SelectNext implements Selector.
func (s *defaultSelector) SelectNext(records []domain.TaskRecord, now time.Time) (domain.TaskType, error) {
	scores := Scores(domain.Catalog(), records, now, s.params)

	s.mu.Lock()
	roll := s.rng.Float64()
	s.mu.Unlock()

	return Pick(scores, roll)
}

// Pick draws one task type from the scored catalog.
//
// The draw walks the scores in order, so for a given roll the outcome is
// deterministic and equal weights resolve by catalog position. roll must be
// in [0, 1); the caller supplies it so randomness stays outside the
// selection rules.
func Pick(scores []TypeScore, roll float64) (domain.TaskType, error) {
	if len(scores) == 0 {
		return "", ErrEmptyScores
	}

	var total float64
	for _, score := range scores {
		if score.Weight <= 0 {
			return "", ErrInvalidWeight
		}
		total += score.Weight
	}

	if roll < 0 {
		roll = 0
	}
	if roll >= 1 {
		// Clamp into the top of the range so an overlarge roll lands in
		// the last bucket, staying consistent with the [0, 1) walk.
		roll = math.Nextafter(1, 0)
	}

	target := roll * total
	var cumulative float64
	for _, score := range scores {
		cumulative += score.Weight
		if target < cumulative {
			return score.Type, nil
		}
	}

	// Floating-point accumulation can leave target a hair beyond the last
	// bucket; the final entry takes it.
	return scores[len(scores)-1].Type, nil
}
