package telegram

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commandUpdate(chatID int64, text string, commandLength int) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: chatID},
		Text: text,
		Entities: []tgbotapi.MessageEntity{
			{Type: "bot_command", Offset: 0, Length: commandLength},
		},
	}}
}

func TestParseUpdate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		update tgbotapi.Update
		want   Inbound
		wantOK bool
	}{
		{
			name:   "command_with_arguments",
			update: commandUpdate(12345, "/task vocabulary", len("/task")),
			want:   Inbound{LearnerID: "12345", Command: "task", Args: "vocabulary"},
			wantOK: true,
		},
		{
			name:   "command_without_arguments",
			update: commandUpdate(12345, "/progress", len("/progress")),
			want:   Inbound{LearnerID: "12345", Command: "progress"},
			wantOK: true,
		},
		{
			name:   "command_with_bot_mention",
			update: commandUpdate(12345, "/task@lingo_bot idiom", len("/task@lingo_bot")),
			want:   Inbound{LearnerID: "12345", Command: "task", Args: "idiom"},
			wantOK: true,
		},
		{
			name: "plain_text_response",
			update: tgbotapi.Update{Message: &tgbotapi.Message{
				Chat: &tgbotapi.Chat{ID: 67890},
				Text: "He went to the park.",
			}},
			want:   Inbound{LearnerID: "67890", Text: "He went to the park."},
			wantOK: true,
		},
		{
			name: "voice_message",
			update: tgbotapi.Update{Message: &tgbotapi.Message{
				Chat: &tgbotapi.Chat{ID: 12345},
				Voice: &tgbotapi.Voice{
					FileID:   "voice-file-1",
					MimeType: "audio/ogg",
					Duration: 12,
				},
			}},
			want: Inbound{
				LearnerID:     "12345",
				VoiceFileID:   "voice-file-1",
				VoiceMIMEType: "audio/ogg",
			},
			wantOK: true,
		},
		{
			name: "sticker_reduces_to_empty_text",
			update: tgbotapi.Update{Message: &tgbotapi.Message{
				Chat:    &tgbotapi.Chat{ID: 12345},
				Sticker: &tgbotapi.Sticker{FileID: "sticker-1"},
			}},
			want:   Inbound{LearnerID: "12345"},
			wantOK: true,
		},
		{
			name:   "update_without_message",
			update: tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{ID: "cb-1"}},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			in, ok := ParseUpdate(tt.update)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want, in)
			}
		})
	}
}
