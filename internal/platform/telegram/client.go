package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/phrazzld/lingo-api/internal/config"
	"github.com/phrazzld/lingo-api/internal/platform/logger"
)

// maxMessageLength is Telegram's hard cap on message text. Longer payloads
// are truncated rather than rejected by the API.
const maxMessageLength = 4096

// maxVoiceDownloadBytes matches the bot API's 20 MB file download limit.
const maxVoiceDownloadBytes = 20 << 20

// downloadTimeout bounds one voice file download.
const downloadTimeout = 30 * time.Second

// Error definitions for the telegram package.
var (
	// ErrEmptyFileID is returned when a voice download is requested without
	// a file id.
	ErrEmptyFileID = errors.New("voice file id cannot be empty")

	// ErrInvalidLearnerID is returned when a learner id does not parse as a
	// chat id.
	ErrInvalidLearnerID = errors.New("learner id is not a valid chat id")
)

// botAPI is the slice of *tgbotapi.BotAPI the client uses, split out so
// tests can substitute the wire calls.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Client delivers outbound messages and downloads voice notes. A single
// Client is safe for concurrent use.
type Client struct {
	api        botAPI
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Client from the Telegram configuration. Construction
// verifies the token against the API, so it needs network access.
func New(cfg config.TelegramConfig, log *slog.Logger) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "telegram_client"))

	if cfg.BotToken == "" {
		return nil, errors.New("telegram bot token cannot be empty")
	}

	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(cfg.BotToken, endpoint)
	if err != nil {
		return nil, fmt.Errorf("creating telegram bot client: %w", err)
	}

	log.Info("telegram client initialized",
		slog.String("bot_username", bot.Self.UserName))

	return &Client{
		api:        bot,
		httpClient: &http.Client{Timeout: downloadTimeout},
		logger:     log,
	}, nil
}

// Send delivers a text message to the learner's chat. Messages over the
// Telegram length cap are truncated.
func (c *Client) Send(ctx context.Context, learnerID, text string) error {
	log := logger.FromContextOrDefault(ctx, c.logger)

	chatID, err := strconv.ParseInt(learnerID, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLearnerID, learnerID)
	}

	// The underlying client predates context support; honor cancellation
	// before the wire call at least.
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(chatID, truncateMessage(text))
	if _, err := c.api.Send(msg); err != nil {
		log.ErrorContext(ctx, "message delivery failed",
			slog.String("learner_id", learnerID),
			slog.String("error", err.Error()))
		return fmt.Errorf("sending message to learner %s: %w", learnerID, err)
	}

	log.DebugContext(ctx, "message delivered",
		slog.String("learner_id", learnerID),
		slog.Int("length", len(text)))
	return nil
}

// DownloadVoice fetches the audio bytes of a voice note.
func (c *Client) DownloadVoice(ctx context.Context, fileID string) ([]byte, error) {
	log := logger.FromContextOrDefault(ctx, c.logger)

	if fileID == "" {
		return nil, ErrEmptyFileID
	}

	url, err := c.api.GetFileDirectURL(fileID)
	if err != nil {
		return nil, fmt.Errorf("resolving voice file %s: %w", fileID, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building voice download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("downloading voice file %s: %w", fileID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("downloading voice file %s: status %d", fileID, resp.StatusCode)
	}

	audio, err := io.ReadAll(io.LimitReader(resp.Body, maxVoiceDownloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading voice file %s: %w", fileID, err)
	}
	if len(audio) > maxVoiceDownloadBytes {
		return nil, fmt.Errorf("voice file %s exceeds %d bytes", fileID, maxVoiceDownloadBytes)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("voice file %s is empty", fileID)
	}

	log.DebugContext(ctx, "voice file downloaded",
		slog.String("file_id", fileID),
		slog.Int("bytes", len(audio)))

	return audio, nil
}

// truncateMessage keeps text under Telegram's message cap, cutting on a
// rune boundary.
func truncateMessage(text string) string {
	runes := []rune(text)
	if len(runes) <= maxMessageLength {
		return text
	}
	return string(runes[:maxMessageLength-1]) + "…"
}
