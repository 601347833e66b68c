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

// Generate produces task content exercising the given objective. The model
// reply is delivered to the learner verbatim, so the prompt asks for a
// complete, self-contained exercise.
//
// Implements generation.Generator.
func (c *Client) Generate(
	ctx context.Context,
	taskType domain.TaskType,
	objective string,
	params domain.GenerationParameters,
) (*generation.TaskContent, error) {
	log := logger.FromContextOrDefault(ctx, c.logger)

	objective = strings.TrimSpace(objective)
	if objective == "" {
		return nil, ErrEmptyObjective
	}
	if !taskType.Valid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidTaskType, taskType)
	}

	prompt, err := renderTaskPrompt(taskType, taskPromptData{
		Objective:           objective,
		VocabularyBand:      params.VocabularyBand,
		SentenceComplexity:  params.SentenceComplexity,
		InstructionLanguage: params.InstructionLanguage,
		ObjectiveLanguage:   params.ObjectiveLanguage,
	})
	if err != nil {
		return nil, err
	}

	log.DebugContext(ctx, "generating task content",
		slog.String("task_type", string(taskType)),
		slog.String("objective", objective))

	body, err := c.generate(ctx, userContent(prompt), c.contentConfig(generationTemperature))
	if err != nil {
		log.ErrorContext(ctx, "task content generation failed",
			slog.String("task_type", string(taskType)),
			slog.String("error", err.Error()))
		return nil, err
	}

	log.DebugContext(ctx, "task content generated",
		slog.String("task_type", string(taskType)),
		slog.Int("body_length", len(body)))

	return &generation.TaskContent{
		TaskType:  taskType,
		Objective: objective,
		Body:      body,
	}, nil
}
