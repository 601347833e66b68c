package gemini

import (
	"context"
	"fmt"
	"strings"

	"log/slog"

	"github.com/phrazzld/lingo-api/internal/domain"
	"github.com/phrazzld/lingo-api/internal/generation"
	"github.com/phrazzld/lingo-api/internal/platform/logger"
)

// itemPrefix tags each objective line in a candidate reply.
const itemPrefix = "ITEM:"

// Candidates returns up to n candidate objectives for the task type. The
// avoid list steers the model away from recently used objectives, but the
// reply is not guaranteed novel; the picker re-checks against committed
// history.
//
// Implements generation.CandidateSource.
func (c *Client) Candidates(
	ctx context.Context,
	taskType domain.TaskType,
	params domain.GenerationParameters,
	avoid []string,
	n int,
) ([]string, error) {
	log := logger.FromContextOrDefault(ctx, c.logger)

	if n <= 0 {
		return nil, fmt.Errorf("candidate batch size must be positive, got %d", n)
	}
	spec, ok := domain.SpecFor(taskType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidTaskType, taskType)
	}

	prompt, err := renderCandidatesPrompt(candidatePromptData{
		Count:             n,
		Namespace:         string(spec.Objective),
		Avoid:             avoid,
		VocabularyBand:    params.VocabularyBand,
		ObjectiveLanguage: params.ObjectiveLanguage,
	})
	if err != nil {
		return nil, err
	}

	log.DebugContext(ctx, "requesting candidate objectives",
		slog.String("task_type", string(taskType)),
		slog.Int("requested", n),
		slog.Int("avoid_count", len(avoid)))

	raw, err := c.generate(ctx, userContent(prompt), c.contentConfig(generationTemperature))
	if err != nil {
		log.ErrorContext(ctx, "candidate request failed",
			slog.String("task_type", string(taskType)),
			slog.String("error", err.Error()))
		return nil, err
	}

	items := parseItems(raw)
	if len(items) == 0 {
		log.WarnContext(ctx, "candidate reply contained no items",
			slog.String("task_type", string(taskType)),
			slog.Int("reply_length", len(raw)))
		return nil, fmt.Errorf("%w: no ITEM lines in reply", generation.ErrNoCandidates)
	}
	if len(items) > n {
		items = items[:n]
	}

	log.DebugContext(ctx, "candidate objectives received",
		slog.String("task_type", string(taskType)),
		slog.Int("count", len(items)))

	return items, nil
}

// parseItems extracts the objectives from ITEM-tagged lines, tolerating
// bullet markers, numbering, and prose the model adds around them. Items are
// deduplicated case-insensitively, keeping the first spelling seen.
func parseItems(raw string) []string {
	var items []string
	seen := make(map[string]struct{})

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*#`0123456789.) \t")
		if !strings.HasPrefix(strings.ToUpper(line), itemPrefix) {
			continue
		}

		item := strings.TrimSpace(line[len(itemPrefix):])
		item = strings.Trim(item, "*\"'` ")
		if item == "" {
			continue
		}

		key := strings.ToLower(item)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		items = append(items, item)
	}

	return items
}
