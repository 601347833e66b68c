package practice

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/lingo-api/internal/domain"
	"github.com/phrazzld/lingo-api/internal/generation"
	"github.com/phrazzld/lingo-api/internal/platform/logger"
	"github.com/phrazzld/lingo-api/internal/store"
)

// Exhaustion policies for a drained candidate pool.
const (
	ExhaustionReuse = "reuse"
	ExhaustionReset = "reset"
)

// avoidListLimit bounds how much recent history is offered to the candidate
// source as steering context. Novelty does not depend on it; every candidate
// is checked against committed history regardless.
const avoidListLimit = 50

// pickObjective chooses the next learning objective for the learner and
// task type: request candidate batches, return the first one the committed
// history has not seen, and fall back through the exhaustion policy when the
// pool is drained. Pool trouble degrades to a reused objective rather than
// failing the task; only storage errors and a fully empty pool surface.
func (s *practiceServiceImpl) pickObjective(
	ctx context.Context,
	learnerID string,
	taskType domain.TaskType,
	params domain.GenerationParameters,
) (string, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	avoid, err := s.recentObjectives(ctx, learnerID, taskType)
	if err != nil {
		return "", fmt.Errorf("failed to load recent objectives: %w", err)
	}

	// firstCandidate backs the terminal fallback when every other option
	// is gone; a repeat beats a failed task.
	firstCandidate := ""

	for attempt := 1; attempt <= s.cfg.MaxPickAttempts; attempt++ {
		batch, err := s.candidates.Candidates(ctx, taskType, params, avoid, s.cfg.CandidateBatchSize)
		if err != nil {
			log.Warn("candidate batch failed",
				slog.String("error", err.Error()),
				slog.String("learner_id", learnerID),
				slog.String("task_type", string(taskType)),
				slog.Int("attempt", attempt))
			break
		}
		if len(batch) == 0 {
			log.Warn("candidate batch came back empty",
				slog.String("learner_id", learnerID),
				slog.String("task_type", string(taskType)),
				slog.Int("attempt", attempt))
			break
		}

		if firstCandidate == "" {
			firstCandidate = batch[0]
		}

		// Novelty is decided against committed history on every pick, never
		// against an in-memory copy carried across invocations.
		for _, candidate := range batch {
			seen, err := s.history.HasSeen(ctx, learnerID, taskType, candidate)
			if err != nil {
				return "", fmt.Errorf("failed to check objective history: %w", err)
			}
			if !seen {
				return candidate, nil
			}
		}

		log.Debug("candidate batch fully seen",
			slog.String("learner_id", learnerID),
			slog.String("task_type", string(taskType)),
			slog.Int("attempt", attempt),
			slog.Int("batch_size", len(batch)))

		// Steer the next batch away from what just collided.
		avoid = appendBounded(avoid, batch, avoidListLimit*2)
	}

	return s.exhaustedObjective(ctx, learnerID, taskType, firstCandidate)
}

// exhaustedObjective applies the exhaustion policy once pick attempts are
// spent: reset clears history and reissues the first candidate, reuse (the
// default) serves the least recently used objective again. Every failure
// inside here degrades further instead of propagating; the terminal
// fallback is the first candidate seen.
func (s *practiceServiceImpl) exhaustedObjective(
	ctx context.Context,
	learnerID string,
	taskType domain.TaskType,
	firstCandidate string,
) (string, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	spec, ok := domain.SpecFor(taskType)
	if !ok {
		return "", domain.ErrInvalidTaskType
	}

	seen, err := s.history.SeenCount(ctx, learnerID, taskType)
	if err != nil {
		log.Warn("seen count lookup failed during exhaustion handling",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID),
			slog.String("task_type", string(taskType)))
		seen = 0
	}

	if seen >= spec.PoolSize && s.cfg.ExhaustionPolicy == ExhaustionReset {
		removed, err := s.history.Reset(ctx, learnerID, taskType)
		if err != nil {
			log.Warn("history reset failed, degrading to reuse",
				slog.String("error", err.Error()),
				slog.String("learner_id", learnerID),
				slog.String("task_type", string(taskType)))
		} else {
			log.Info("objective history reset",
				slog.String("learner_id", learnerID),
				slog.String("task_type", string(taskType)),
				slog.Int64("removed", removed))
			if firstCandidate != "" {
				return firstCandidate, nil
			}
		}
	}

	entries, err := s.history.LeastRecentlyUsed(ctx, learnerID, taskType, 1)
	if err != nil {
		log.Warn("least recently used lookup failed",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID),
			slog.String("task_type", string(taskType)))
	} else if len(entries) > 0 {
		log.Info("reusing least recently used objective",
			slog.String("learner_id", learnerID),
			slog.String("task_type", string(taskType)),
			slog.String("objective", entries[0].Objective),
			slog.Int("seen_count", seen),
			slog.Int("pool_size", spec.PoolSize))
		return entries[0].Objective, nil
	}

	if firstCandidate != "" {
		log.Warn("objective fallbacks exhausted, reusing first candidate",
			slog.String("learner_id", learnerID),
			slog.String("task_type", string(taskType)),
			slog.String("objective", firstCandidate))
		return firstCandidate, nil
	}

	return "", fmt.Errorf("%w: no objective available for %s", generation.ErrNoCandidates, taskType)
}

// recentObjectives collects the learner's recently used objectives for the
// task type as steering context for the candidate source.
func (s *practiceServiceImpl) recentObjectives(
	ctx context.Context,
	learnerID string,
	taskType domain.TaskType,
) ([]string, error) {
	entries, err := s.history.ListRecent(ctx, learnerID, taskType, avoidListLimit)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}

	objectives := make([]string, 0, len(entries))
	for _, entry := range entries {
		objectives = append(objectives, entry.Objective)
	}
	return objectives, nil
}

// appendBounded appends items to list, dropping oldest entries beyond max.
func appendBounded(list, items []string, max int) []string {
	list = append(list, items...)
	if len(list) > max {
		list = list[len(list)-max:]
	}
	return list
}
