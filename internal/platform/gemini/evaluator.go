package gemini

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"log/slog"

	"github.com/phrazzld/lingo-api/internal/domain"
	"github.com/phrazzld/lingo-api/internal/generation"
	"github.com/phrazzld/lingo-api/internal/platform/logger"
)

// Line tags the evaluation prompt asks the model to reply with.
const (
	scorePrefix    = "SCORE:"
	feedbackPrefix = "FEEDBACK:"
)

// Evaluate judges a learner's response against previously issued task
// content. The params must be the ones snapshotted when the task was issued,
// so feedback arrives in the language the task was given in.
//
// Implements generation.Evaluator.
func (c *Client) Evaluate(
	ctx context.Context,
	content *generation.TaskContent,
	response string,
	params domain.GenerationParameters,
) (*generation.Evaluation, error) {
	log := logger.FromContextOrDefault(ctx, c.logger)

	if content == nil || strings.TrimSpace(content.Body) == "" {
		return nil, ErrEmptyTaskContent
	}
	response = strings.TrimSpace(response)
	if response == "" {
		return nil, ErrEmptyResponse
	}

	prompt, err := renderEvaluationPrompt(evaluationPromptData{
		TaskBody:            content.Body,
		Response:            response,
		InstructionLanguage: params.InstructionLanguage,
	})
	if err != nil {
		return nil, err
	}

	log.DebugContext(ctx, "evaluating learner response",
		slog.String("task_type", string(content.TaskType)),
		slog.Int("response_length", len(response)))

	raw, err := c.generate(ctx, userContent(prompt), c.contentConfig(evaluationTemperature))
	if err != nil {
		log.ErrorContext(ctx, "evaluation failed",
			slog.String("task_type", string(content.TaskType)),
			slog.String("error", err.Error()))
		return nil, err
	}

	eval, err := parseEvaluation(raw)
	if err != nil {
		log.WarnContext(ctx, "unparseable evaluation reply",
			slog.String("task_type", string(content.TaskType)),
			slog.String("error", err.Error()))
		return nil, err
	}

	log.DebugContext(ctx, "response evaluated",
		slog.String("task_type", string(content.TaskType)),
		slog.Float64("score", eval.Score))

	return eval, nil
}

// parseEvaluation extracts the score and feedback from a SCORE/FEEDBACK
// reply. Feedback may continue across multiple lines; everything after the
// FEEDBACK tag belongs to it.
func parseEvaluation(raw string) (*generation.Evaluation, error) {
	var (
		scoreText  string
		haveScore  bool
		inFeedback bool
		feedback   []string
	)

	for _, line := range strings.Split(raw, "\n") {
		if inFeedback {
			feedback = append(feedback, line)
			continue
		}

		trimmed := strings.TrimSpace(line)
		trimmed = strings.TrimLeft(trimmed, "-*#`")
		trimmed = strings.TrimSpace(trimmed)
		upper := strings.ToUpper(trimmed)

		switch {
		case !haveScore && strings.HasPrefix(upper, scorePrefix):
			scoreText = stripDecor(trimmed[len(scorePrefix):])
			haveScore = true
		case strings.HasPrefix(upper, feedbackPrefix):
			feedback = append(feedback, stripDecor(trimmed[len(feedbackPrefix):]))
			inFeedback = true
		}
	}

	if !haveScore {
		return nil, fmt.Errorf("%w: missing SCORE line", generation.ErrInvalidResponse)
	}
	if !inFeedback {
		return nil, fmt.Errorf("%w: missing FEEDBACK line", generation.ErrInvalidResponse)
	}

	score, err := strconv.ParseFloat(scoreText, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: unparseable score %q", generation.ErrInvalidResponse, scoreText)
	}

	eval := &generation.Evaluation{
		Score:    score,
		Feedback: strings.TrimSpace(strings.Join(feedback, "\n")),
	}
	if err := eval.Validate(); err != nil {
		return nil, err
	}
	return eval, nil
}

// stripDecor removes the markdown bold and quoting models wrap tag values
// in.
func stripDecor(s string) string {
	return strings.TrimSpace(strings.Trim(s, "*\"'` "))
}
