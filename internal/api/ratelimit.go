package api

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// limiterIdleTTL is how long an untouched per-learner limiter survives
// before pruning reclaims it.
const limiterIdleTTL = 30 * time.Minute

// LearnerLimiter enforces a per-learner token bucket on the webhook path.
// Each learner gets an independent limiter; idle entries are pruned so the
// map does not grow with every learner ever seen.
type LearnerLimiter struct {
	mu       sync.Mutex
	limiters map[string]*learnerEntry
	limit    rate.Limit
	burst    int
	timeFunc func() time.Time

	lastPrune time.Time
}

type learnerEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewLearnerLimiter creates a limiter allowing perWindow interactions per
// window for each learner, with a burst of the same size so a learner can
// use their whole allowance back-to-back.
func NewLearnerLimiter(perWindow int, window time.Duration) *LearnerLimiter {
	if perWindow < 1 {
		perWindow = 1
	}
	if window <= 0 {
		window = 5 * time.Minute
	}

	return &LearnerLimiter{
		limiters: make(map[string]*learnerEntry),
		limit:    rate.Limit(float64(perWindow) / window.Seconds()),
		burst:    perWindow,
		timeFunc: time.Now,
	}
}

// Allow reports whether the learner may proceed with one more interaction.
func (l *LearnerLimiter) Allow(learnerID string) bool {
	now := l.timeFunc()

	l.mu.Lock()
	defer l.mu.Unlock()

	l.pruneLocked(now)

	entry, ok := l.limiters[learnerID]
	if !ok {
		entry = &learnerEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[learnerID] = entry
	}
	entry.lastSeen = now

	return entry.limiter.AllowN(now, 1)
}

// pruneLocked drops limiters idle beyond the TTL. Runs at most once per TTL
// so the common path stays a map lookup.
func (l *LearnerLimiter) pruneLocked(now time.Time) {
	if now.Sub(l.lastPrune) < limiterIdleTTL {
		return
	}
	l.lastPrune = now

	for id, entry := range l.limiters {
		if now.Sub(entry.lastSeen) > limiterIdleTTL {
			delete(l.limiters, id)
		}
	}
}
