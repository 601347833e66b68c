package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/phrazzld/lingo-api/internal/config"
	"github.com/phrazzld/lingo-api/internal/domain"
	"github.com/phrazzld/lingo-api/internal/generation"
)

// newTestClient builds a Client whose network call is replaced by the given
// fake. Backoff is shortened so retry tests stay fast.
func newTestClient(call generateFunc) *Client {
	return &Client{
		call:       call,
		model:      "gemini-test",
		maxRetries: 2,
		retryBase:  time.Millisecond,
		timeout:    time.Second,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// textResponse fabricates a successful single-candidate reply.
func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{
				Role:  "model",
				Parts: []*genai.Part{{Text: text}},
			},
			FinishReason: genai.FinishReasonStop,
		}},
	}
}

func testParams() domain.GenerationParameters {
	return domain.GenerationParameters{
		Difficulty:          domain.DifficultyIntermediate,
		VocabularyBand:      "general-interest vocabulary (roughly B1-B2 level)",
		SentenceComplexity:  "compound sentences of moderate length",
		InstructionLanguage: "de",
		ObjectiveLanguage:   "en",
	}
}

func TestNewClientConfigValidation(t *testing.T) {
	t.Parallel()

	valid := config.LLMConfig{
		GeminiAPIKey:         "test-api-key",
		ModelName:            "gemini-2.0-flash",
		MaxRetries:           3,
		PromptTimeoutSeconds: 30,
	}

	tests := []struct {
		name     string
		mutate   func(cfg *config.LLMConfig)
		errorMsg string
	}{
		{
			name:     "missing_api_key",
			mutate:   func(cfg *config.LLMConfig) { cfg.GeminiAPIKey = "" },
			errorMsg: "GeminiAPIKey",
		},
		{
			name:     "missing_model_name",
			mutate:   func(cfg *config.LLMConfig) { cfg.ModelName = "" },
			errorMsg: "ModelName",
		},
		{
			name:     "zero_timeout",
			mutate:   func(cfg *config.LLMConfig) { cfg.PromptTimeoutSeconds = 0 },
			errorMsg: "PromptTimeoutSeconds",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid
			tt.mutate(&cfg)

			client, err := NewClient(context.Background(), nil, cfg)
			require.Error(t, err)
			assert.ErrorIs(t, err, generation.ErrInvalidConfig)
			assert.Contains(t, err.Error(), tt.errorMsg)
			assert.Nil(t, client)
		})
	}
}

func TestNewClientDefaultsNegativeRetries(t *testing.T) {
	t.Parallel()

	client, err := NewClient(context.Background(), nil, config.LLMConfig{
		GeminiAPIKey:         "test-api-key",
		ModelName:            "gemini-2.0-flash",
		MaxRetries:           -1,
		PromptTimeoutSeconds: 30,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(defaultMaxRetries), client.maxRetries)
	assert.Equal(t, 30*time.Second, client.timeout)
	assert.NotNil(t, client.call)
}

func TestClassifyAPIError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{
			name:     "rate_limited",
			err:      &genai.APIError{Code: http.StatusTooManyRequests, Message: "quota"},
			sentinel: generation.ErrTransientFailure,
		},
		{
			name:     "request_timeout",
			err:      &genai.APIError{Code: http.StatusRequestTimeout},
			sentinel: generation.ErrTransientFailure,
		},
		{
			name:     "server_error",
			err:      &genai.APIError{Code: http.StatusInternalServerError},
			sentinel: generation.ErrTransientFailure,
		},
		{
			name:     "service_unavailable",
			err:      &genai.APIError{Code: http.StatusServiceUnavailable},
			sentinel: generation.ErrTransientFailure,
		},
		{
			name:     "bad_request",
			err:      &genai.APIError{Code: http.StatusBadRequest, Message: "invalid argument"},
			sentinel: generation.ErrGenerationFailed,
		},
		{
			name:     "not_found",
			err:      &genai.APIError{Code: http.StatusNotFound},
			sentinel: generation.ErrGenerationFailed,
		},
		{
			name:     "wrapped_api_error",
			err:      fmt.Errorf("generate: %w", &genai.APIError{Code: http.StatusTooManyRequests}),
			sentinel: generation.ErrTransientFailure,
		},
		{
			name:     "deadline_exceeded",
			err:      fmt.Errorf("call: %w", context.DeadlineExceeded),
			sentinel: generation.ErrTransientFailure,
		},
		{
			name:     "plain_network_error",
			err:      errors.New("connection reset by peer"),
			sentinel: generation.ErrTransientFailure,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, classifyAPIError(tt.err), tt.sentinel)
		})
	}
}

func TestGenerateRetriesTransientFailures(t *testing.T) {
	t.Parallel()

	attempts := 0
	client := newTestClient(func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		attempts++
		if attempts < 3 {
			return nil, &genai.APIError{Code: http.StatusServiceUnavailable, Message: "overloaded"}
		}
		return textResponse("Use the word in a sentence of your own."), nil
	})

	content, err := client.Generate(
		context.Background(), domain.TaskTypeVocabulary, "meticulous", testParams())
	require.NoError(t, err)

	assert.Equal(t, 3, attempts)
	assert.Equal(t, domain.TaskTypeVocabulary, content.TaskType)
	assert.Equal(t, "meticulous", content.Objective)
	assert.Equal(t, "Use the word in a sentence of your own.", content.Body)
}

func TestGeneratePermanentFailureIsNotRetried(t *testing.T) {
	t.Parallel()

	attempts := 0
	client := newTestClient(func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		attempts++
		return nil, &genai.APIError{Code: http.StatusBadRequest, Message: "invalid argument"}
	})

	_, err := client.Generate(
		context.Background(), domain.TaskTypeVocabulary, "meticulous", testParams())
	require.Error(t, err)

	assert.ErrorIs(t, err, generation.ErrGenerationFailed)
	assert.Equal(t, 1, attempts)
}

func TestGenerateExhaustsRetries(t *testing.T) {
	t.Parallel()

	attempts := 0
	client := newTestClient(func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		attempts++
		return nil, &genai.APIError{Code: http.StatusInternalServerError}
	})

	_, err := client.Generate(
		context.Background(), domain.TaskTypeVocabulary, "meticulous", testParams())
	require.Error(t, err)

	assert.ErrorIs(t, err, generation.ErrTransientFailure)
	// Initial attempt plus maxRetries.
	assert.Equal(t, 3, attempts)
}

func TestGenerateBlockedContent(t *testing.T) {
	t.Parallel()

	attempts := 0
	client := newTestClient(func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		attempts++
		return &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}},
		}, nil
	})

	_, err := client.Generate(
		context.Background(), domain.TaskTypeVocabulary, "meticulous", testParams())
	require.Error(t, err)

	assert.ErrorIs(t, err, generation.ErrContentBlocked)
	assert.Equal(t, 1, attempts)
}

func TestGenerateEmptyReply(t *testing.T) {
	t.Parallel()

	client := newTestClient(func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return textResponse("   "), nil
	})

	_, err := client.Generate(
		context.Background(), domain.TaskTypeVocabulary, "meticulous", testParams())
	assert.ErrorIs(t, err, generation.ErrInvalidResponse)
}

func TestGenerateInputValidation(t *testing.T) {
	t.Parallel()

	client := newTestClient(func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		t.Fatal("no call expected for invalid input")
		return nil, nil
	})

	_, err := client.Generate(
		context.Background(), domain.TaskTypeVocabulary, "  ", testParams())
	assert.ErrorIs(t, err, ErrEmptyObjective)

	_, err = client.Generate(
		context.Background(), domain.TaskType("crossword"), "meticulous", testParams())
	assert.ErrorIs(t, err, domain.ErrInvalidTaskType)
}

func TestCallTimeoutIsTransient(t *testing.T) {
	t.Parallel()

	attempts := 0
	client := newTestClient(func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		attempts++
		<-ctx.Done()
		return nil, ctx.Err()
	})
	client.timeout = 5 * time.Millisecond
	client.maxRetries = 1

	_, err := client.Generate(
		context.Background(), domain.TaskTypeVocabulary, "meticulous", testParams())
	require.Error(t, err)

	assert.ErrorIs(t, err, generation.ErrTransientFailure)
	assert.Equal(t, 2, attempts)
}

func TestParentCancellationStopsRetries(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	attempts := 0
	client := newTestClient(func(callCtx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		attempts++
		cancel()
		<-callCtx.Done()
		return nil, callCtx.Err()
	})

	_, err := client.Generate(ctx, domain.TaskTypeVocabulary, "meticulous", testParams())
	require.Error(t, err)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}
