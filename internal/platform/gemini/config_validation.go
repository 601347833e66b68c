package gemini

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/phrazzld/lingo-api/internal/config"
	"github.com/phrazzld/lingo-api/internal/generation"
)

// validateConfig checks that the LLM configuration carries everything the
// client needs before any network setup happens.
func validateConfig(ctx context.Context, log *slog.Logger, cfg config.LLMConfig) error {
	if cfg.GeminiAPIKey == "" {
		log.ErrorContext(ctx, "missing gemini api key")
		return fmt.Errorf("%w: GeminiAPIKey cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.ModelName == "" {
		log.ErrorContext(ctx, "missing model name")
		return fmt.Errorf("%w: ModelName cannot be empty", generation.ErrInvalidConfig)
	}

	if cfg.PromptTimeoutSeconds <= 0 {
		log.ErrorContext(ctx, "invalid prompt timeout",
			slog.Int("prompt_timeout_seconds", cfg.PromptTimeoutSeconds))
		return fmt.Errorf(
			"%w: PromptTimeoutSeconds must be positive, got %d",
			generation.ErrInvalidConfig, cfg.PromptTimeoutSeconds)
	}

	return nil
}
