package telegram

import (
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Inbound is one learner interaction extracted from a webhook update,
// reduced to what the engine needs. Exactly one of Command, Text, or
// VoiceFileID is meaningful; the rest are empty.
type Inbound struct {
	// LearnerID is the sender's chat id rendered as a string, the key every
	// store uses.
	LearnerID string

	// Command is the bot command without the leading slash, empty for plain
	// messages. Args carries the raw text after the command, if any.
	Command string
	Args    string

	// Text is the message text of a non-command message.
	Text string

	// VoiceFileID identifies a voice note for download. VoiceMIMEType is
	// the container format Telegram reports, when it reports one.
	VoiceFileID   string
	VoiceMIMEType string
}

// ParseUpdate extracts an Inbound interaction from a webhook update. The
// second return is false for updates that carry no learner message, such as
// edited messages, callback queries, and channel posts.
func ParseUpdate(update tgbotapi.Update) (Inbound, bool) {
	msg := update.Message
	if msg == nil || msg.Chat == nil {
		return Inbound{}, false
	}

	in := Inbound{
		LearnerID: strconv.FormatInt(msg.Chat.ID, 10),
	}

	switch {
	case msg.IsCommand():
		in.Command = msg.Command()
		in.Args = msg.CommandArguments()
	case msg.Voice != nil:
		in.VoiceFileID = msg.Voice.FileID
		in.VoiceMIMEType = msg.Voice.MimeType
	default:
		// Stickers, photos, and other media leave Text empty; the engine
		// answers those with a usage hint.
		in.Text = msg.Text
	}

	return in, true
}
