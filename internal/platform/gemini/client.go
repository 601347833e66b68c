package gemini

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"google.golang.org/genai"

	"github.com/phrazzld/lingo-api/internal/config"
	"github.com/phrazzld/lingo-api/internal/generation"
	"github.com/phrazzld/lingo-api/internal/platform/logger"
)

const (
	// defaultMaxRetries bounds retry attempts when the configured value is
	// unusable.
	defaultMaxRetries = 3

	// retryBaseDelay seeds the exponential backoff between attempts.
	retryBaseDelay = 500 * time.Millisecond

	// retryJitterPercent spreads retries from concurrent invocations so
	// they do not hammer the API in lockstep.
	retryJitterPercent = 50

	// maxOutputTokens caps reply length. Tasks and feedback are chat-sized.
	maxOutputTokens = 1024
)

// Sampling temperatures per call kind. Judging wants near-deterministic
// output, content wants variety.
const (
	generationTemperature    float32 = 0.7
	evaluationTemperature    float32 = 0.2
	transcriptionTemperature float32 = 0.0
)

// generateFunc performs one GenerateContent call. It exists so tests can
// substitute the network round trip.
type generateFunc func(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	config *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error)

// Client talks to the Gemini API and implements every generation port:
// Generator, CandidateSource, Evaluator, and Transcriber. A single Client is
// safe for concurrent use.
type Client struct {
	call       generateFunc
	model      string
	maxRetries uint64
	retryBase  time.Duration
	timeout    time.Duration
	logger     *slog.Logger
}

var (
	_ generation.Generator       = (*Client)(nil)
	_ generation.CandidateSource = (*Client)(nil)
	_ generation.Evaluator       = (*Client)(nil)
	_ generation.Transcriber     = (*Client)(nil)
)

// NewClient creates a Client from the LLM configuration.
//
// Returns an error wrapping generation.ErrInvalidConfig when required
// settings are missing, or the underlying error when the API client cannot
// be constructed.
func NewClient(ctx context.Context, log *slog.Logger, cfg config.LLMConfig) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "gemini_client"))

	if err := validateConfig(ctx, log, cfg); err != nil {
		return nil, err
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		log.WarnContext(ctx, "invalid max_retries, using default",
			slog.Int("configured", cfg.MaxRetries),
			slog.Int("default", defaultMaxRetries))
		maxRetries = defaultMaxRetries
	}

	apiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	log.InfoContext(ctx, "gemini client initialized",
		slog.String("model", cfg.ModelName),
		slog.Int("max_retries", maxRetries))

	return &Client{
		call:       apiClient.Models.GenerateContent,
		model:      cfg.ModelName,
		maxRetries: uint64(maxRetries),
		retryBase:  retryBaseDelay,
		timeout:    time.Duration(cfg.PromptTimeoutSeconds) * time.Second,
		logger:     log,
	}, nil
}

// generate sends contents to the model and returns the text of the reply,
// retrying transient failures with jittered exponential backoff. Permanent
// failures and parent-context cancellation return immediately.
func (c *Client) generate(
	ctx context.Context,
	contents []*genai.Content,
	cfg *genai.GenerateContentConfig,
) (string, error) {
	log := logger.FromContextOrDefault(ctx, c.logger)

	backoff := retry.WithMaxRetries(c.maxRetries,
		retry.WithJitterPercent(retryJitterPercent,
			retry.NewExponential(c.retryBase)))

	var text string
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		out, err := c.callModel(ctx, contents, cfg)
		if err != nil {
			if errors.Is(err, generation.ErrTransientFailure) {
				log.WarnContext(ctx, "transient gemini failure, retrying",
					slog.String("model", c.model),
					slog.String("error", err.Error()))
				return retry.RetryableError(err)
			}
			return err
		}
		text = out
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

// callModel performs a single GenerateContent call bounded by the configured
// timeout and maps the outcome onto the generation error taxonomy.
func (c *Client) callModel(
	ctx context.Context,
	contents []*genai.Content,
	cfg *genai.GenerateContentConfig,
) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	result, err := c.call(callCtx, c.model, contents, cfg)
	if err != nil {
		// A dead parent context is not the API's fault and not worth
		// retrying.
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", classifyAPIError(err)
	}

	if len(result.Candidates) == 0 {
		return "", fmt.Errorf("%w: model returned no candidates", generation.ErrInvalidResponse)
	}
	if reason := result.Candidates[0].FinishReason; reason == genai.FinishReasonSafety {
		return "", fmt.Errorf("%w: finish reason %s", generation.ErrContentBlocked, reason)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return "", fmt.Errorf("%w: model returned no text", generation.ErrInvalidResponse)
	}
	return text, nil
}

// classifyAPIError maps a Gemini transport error onto the generation error
// taxonomy. Rate limits, server-side failures, and timeouts are transient;
// other request errors are permanent.
func classifyAPIError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: gemini call timed out: %v", generation.ErrTransientFailure, err)
	}

	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == http.StatusTooManyRequests,
			apiErr.Code == http.StatusRequestTimeout,
			apiErr.Code >= 500:
			return fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
		case apiErr.Code >= 400:
			return fmt.Errorf("%w: %v", generation.ErrGenerationFailed, err)
		}
	}

	// Network-level failures carry no HTTP status and are worth retrying.
	return fmt.Errorf("%w: %v", generation.ErrTransientFailure, err)
}

// contentConfig builds the per-call generation settings with the tutor
// persona as system instruction.
func (c *Client) contentConfig(temperature float32) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: maxOutputTokens,
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: tutorPersona}},
		},
	}
}

// userContent wraps a prompt, plus any extra parts such as audio, into the
// single-turn content slice GenerateContent expects.
func userContent(prompt string, extra ...*genai.Part) []*genai.Content {
	parts := append([]*genai.Part{{Text: prompt}}, extra...)
	return []*genai.Content{{Role: "user", Parts: parts}}
}
