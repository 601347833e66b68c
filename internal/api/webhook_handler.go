package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/phrazzld/lingo-api/internal/platform/logger"
	"github.com/phrazzld/lingo-api/internal/platform/telegram"
	"github.com/phrazzld/lingo-api/internal/service/practice"
)

// Sender delivers a text payload to a learner's chat.
type Sender interface {
	Send(ctx context.Context, learnerID, text string) error
}

// VoiceDownloader fetches a voice note's audio for transcription.
type VoiceDownloader interface {
	DownloadVoice(ctx context.Context, fileID string) ([]byte, error)
}

// WebhookHandler receives Telegram webhook updates and drives them through
// the practice coordinator. It always answers 200: Telegram retries
// non-2xx deliveries, and a retried update would just replay the same
// interaction against the same committed state.
type WebhookHandler struct {
	service    practice.PracticeService
	sender     Sender
	downloader VoiceDownloader
	limiter    *LearnerLimiter
	logger     *slog.Logger
}

// NewWebhookHandler creates a new WebhookHandler with the given dependencies.
func NewWebhookHandler(
	service practice.PracticeService,
	sender Sender,
	downloader VoiceDownloader,
	limiter *LearnerLimiter,
	log *slog.Logger,
) *WebhookHandler {
	if service == nil {
		panic("service cannot be nil")
	}
	if sender == nil {
		panic("sender cannot be nil")
	}
	if limiter == nil {
		panic("limiter cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &WebhookHandler{
		service:    service,
		sender:     sender,
		downloader: downloader,
		limiter:    limiter,
		logger:     log.With(slog.String("component", "webhook_handler")),
	}
}

// HandleUpdate handles POST /webhook/telegram.
func (h *WebhookHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var update tgbotapi.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		// Malformed payloads are not retryable; acknowledge and drop.
		log.Warn("undecodable webhook payload", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusOK)
		return
	}

	inbound, ok := telegram.ParseUpdate(update)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}

	if !h.limiter.Allow(inbound.LearnerID) {
		log.Warn("learner rate limited", slog.String("learner_id", inbound.LearnerID))
		h.deliver(r.Context(), inbound.LearnerID,
			"You're sending messages a bit fast for me. Give it a few minutes and try again.")
		w.WriteHeader(http.StatusOK)
		return
	}

	reply, err := h.dispatch(r.Context(), inbound)
	if err != nil {
		// The coordinator pairs every error with a deliverable reply; the
		// error itself is for the logs.
		log.Error("interaction failed",
			slog.String("error", err.Error()),
			slog.String("learner_id", inbound.LearnerID))
	}

	if reply != nil {
		h.deliver(r.Context(), inbound.LearnerID, reply.Text)
	}

	w.WriteHeader(http.StatusOK)
}

// dispatch routes one inbound interaction to the coordinator entry point it
// belongs to.
func (h *WebhookHandler) dispatch(
	ctx context.Context,
	inbound telegram.Inbound,
) (*practice.Reply, error) {
	if inbound.Command != "" {
		return h.service.HandleCommand(ctx, inbound.LearnerID, inbound.Command, inbound.Args)
	}

	if inbound.VoiceFileID != "" {
		if h.downloader == nil {
			return h.service.HandleMessage(ctx, inbound.LearnerID, practice.Response{})
		}
		audio, err := h.downloader.DownloadVoice(ctx, inbound.VoiceFileID)
		if err != nil {
			return &practice.Reply{
				Text: "I couldn't fetch that voice note. Please try sending it again.",
			}, err
		}
		return h.service.HandleMessage(ctx, inbound.LearnerID, practice.Response{
			VoiceAudio:    audio,
			VoiceMIMEType: inbound.VoiceMIMEType,
		})
	}

	return h.service.HandleMessage(ctx, inbound.LearnerID, practice.Response{
		Text: inbound.Text,
	})
}

// deliver sends the reply, logging delivery failures. Telegram retries the
// whole update on a non-2xx status, which would double-process the
// interaction, so send failures end here.
func (h *WebhookHandler) deliver(ctx context.Context, learnerID, text string) {
	if err := h.sender.Send(ctx, learnerID, text); err != nil {
		logger.FromContextOrDefault(ctx, h.logger).Error("reply delivery failed",
			slog.String("error", err.Error()),
			slog.String("learner_id", learnerID))
	}
}
