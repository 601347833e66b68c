package gemini

import (
	"context"

	"log/slog"

	"google.golang.org/genai"

	"github.com/phrazzld/lingo-api/internal/platform/logger"
)

// defaultAudioMIMEType covers Telegram voice notes, which arrive as OGG
// Opus.
const defaultAudioMIMEType = "audio/ogg"

// Transcribe converts voice audio into plain text using the model's
// multimodal input. The transcript is evaluated like any typed response.
//
// Implements generation.Transcriber.
func (c *Client) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	log := logger.FromContextOrDefault(ctx, c.logger)

	if len(audio) == 0 {
		return "", ErrEmptyAudio
	}
	if mimeType == "" {
		mimeType = defaultAudioMIMEType
	}

	log.DebugContext(ctx, "transcribing voice message",
		slog.Int("audio_bytes", len(audio)),
		slog.String("mime_type", mimeType))

	contents := userContent(transcriptionPrompt, &genai.Part{
		InlineData: &genai.Blob{Data: audio, MIMEType: mimeType},
	})

	transcript, err := c.generate(ctx, contents, c.contentConfig(transcriptionTemperature))
	if err != nil {
		log.ErrorContext(ctx, "transcription failed",
			slog.Int("audio_bytes", len(audio)),
			slog.String("error", err.Error()))
		return "", err
	}

	log.DebugContext(ctx, "voice message transcribed",
		slog.Int("transcript_length", len(transcript)))

	return transcript, nil
}
