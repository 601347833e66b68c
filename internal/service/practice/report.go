package practice

import (
	"fmt"
	"strings"

	"github.com/phrazzld/lingo-api/internal/domain"
	"github.com/phrazzld/lingo-api/internal/domain/progress"
	"github.com/phrazzld/lingo-api/internal/generation"
)

// Reply builders. Every interaction path ends in exactly one of these, so
// the texts live together; the transport sends them verbatim as plain text.

func replyTryAgain() *Reply {
	return &Reply{Text: "Something went wrong on my side. Please try again in a moment."}
}

func replyNotAuthorized() *Reply {
	return &Reply{Text: "This tutor is invite-only. Ask the person who runs it to let you in."}
}

func replyUnknownCommand() *Reply {
	return &Reply{Text: "I don't know that command. Send /help to see what I can do."}
}

func replyWelcome(profile *domain.LearnerProfile) *Reply {
	var b strings.Builder
	b.WriteString("👋 Welcome! I'm your English practice partner.\n\n")
	b.WriteString("Send /task and I'll pick an exercise for you, or choose one yourself:\n\n")
	writeCatalog(&b)
	fmt.Fprintf(&b, "\nYou're set to %s difficulty with instructions in %s.\n",
		profile.Difficulty, languageName(profile.Language))
	b.WriteString("Change anytime with /difficulty and /language, and check /progress to see how you're doing.")
	return &Reply{Text: b.String()}
}

func replyHelp() *Reply {
	var b strings.Builder
	b.WriteString("Here's what I can do:\n\n")
	b.WriteString("/task - get an exercise (I'll pick what you need most)\n")
	b.WriteString("/task <type> - get a specific exercise type\n")
	b.WriteString("/skip - swap the current exercise for a new one\n")
	b.WriteString("/progress - see your practice stats\n")
	b.WriteString("/difficulty <beginner|intermediate|advanced> - set the level\n")
	b.WriteString("/language <code> - set the language for instructions\n\n")
	b.WriteString("Exercise types:\n")
	writeCatalog(&b)
	b.WriteString("\nAnswer an exercise by replying with text, or with a voice note for voice practice.")
	return &Reply{Text: b.String()}
}

func replyUnknownTaskType(arg string) *Reply {
	var b strings.Builder
	fmt.Fprintf(&b, "I don't have a %q exercise. Pick one of these:\n\n", arg)
	writeCatalog(&b)
	b.WriteString("\nOr just send /task and I'll choose.")
	return &Reply{Text: b.String()}
}

func replyTask(record *domain.TaskRecord) *Reply {
	var b strings.Builder
	if spec, ok := domain.SpecFor(record.Type); ok {
		fmt.Fprintf(&b, "📝 %s\n\n", spec.Label)
	}
	b.WriteString(record.Content)
	if record.Type == domain.TaskTypeVoice {
		b.WriteString("\n\nReply with a voice note, or /skip for a different exercise.")
	} else {
		b.WriteString("\n\nReply with your answer, or /skip for a different exercise.")
	}
	return &Reply{Text: b.String()}
}

func replyPendingReminder(record *domain.TaskRecord) *Reply {
	var b strings.Builder
	b.WriteString("You already have an exercise waiting:\n\n")
	b.WriteString(record.Content)
	b.WriteString("\n\nAnswer it first, or /skip to get a new one.")
	return &Reply{Text: b.String()}
}

func replySkipped() *Reply {
	return &Reply{Text: "Skipped. Send /task whenever you want the next exercise."}
}

func replyNothingToSkip() *Reply {
	return &Reply{Text: "There's nothing to skip. Send /task to get an exercise."}
}

func replyNoActiveTask() *Reply {
	return &Reply{Text: "There's no open exercise right now. Send /task to get one."}
}

func replyTaskResolved() *Reply {
	return &Reply{Text: "That exercise is already wrapped up. Send /task for the next one."}
}

func replyTaskExpired() *Reply {
	return &Reply{Text: "That exercise sat too long, so I closed it. Send /task for a fresh one."}
}

func replyEmptyResponse() *Reply {
	return &Reply{Text: "I couldn't read an answer in that. Reply with text, or /skip to move on."}
}

func replyVoiceUnsupported() *Reply {
	return &Reply{Text: "I can't process voice notes right now. Please reply with text."}
}

func replyFeedback(record *domain.TaskRecord, evaluation *generation.Evaluation) *Reply {
	var b strings.Builder
	switch record.Feedback {
	case domain.FeedbackCorrect:
		b.WriteString("✅ Correct!\n\n")
	case domain.FeedbackPartial:
		b.WriteString("🔶 Almost there.\n\n")
	case domain.FeedbackIncorrect:
		b.WriteString("❌ Not quite.\n\n")
	}
	b.WriteString(evaluation.Feedback)
	b.WriteString("\n\nSend /task for the next one.")
	return &Reply{Text: b.String()}
}

func replyProgress(snapshot progress.Snapshot) *Reply {
	if snapshot.TotalAttempts == 0 {
		return &Reply{Text: "No completed exercises yet. Send /task to get started!"}
	}

	var b strings.Builder
	b.WriteString("📊 Your progress\n\n")
	fmt.Fprintf(&b, "Completed exercises: %d\n", snapshot.TotalAttempts)
	if snapshot.ScoredAttempts > 0 {
		fmt.Fprintf(&b, "🎯 Overall accuracy: %.0f%% (over %d scored)\n",
			snapshot.OverallAverage*100, snapshot.ScoredAttempts)
	}

	if len(snapshot.PerType) > 0 {
		b.WriteString("\n📈 By exercise type:\n")
		for _, stats := range snapshot.PerType {
			label := string(stats.Type)
			if spec, ok := domain.SpecFor(stats.Type); ok {
				label = spec.Label
			}
			if stats.ScoredAttempts > 0 {
				fmt.Fprintf(&b, "• %s: %d done, %.0f%% average\n",
					label, stats.Attempts, stats.AverageScore*100)
			} else {
				fmt.Fprintf(&b, "• %s: %d done\n", label, stats.Attempts)
			}
		}
	}

	if len(snapshot.WeakTypes) > 0 {
		b.WriteString("\n⚠️ Worth extra practice:\n")
		for _, stats := range snapshot.WeakTypes {
			label := string(stats.Type)
			if spec, ok := domain.SpecFor(stats.Type); ok {
				label = spec.Label
			}
			fmt.Fprintf(&b, "• %s (%.0f%%)\n", label, stats.AverageScore*100)
		}
	}

	if len(snapshot.WeakObjectives) > 0 {
		b.WriteString("\n🔁 Tricky items to revisit:\n")
		for _, weak := range snapshot.WeakObjectives {
			fmt.Fprintf(&b, "• %s (%d tries, %.0f%%)\n",
				weak.Objective, weak.Attempts, weak.AverageScore*100)
		}
	}

	b.WriteString("\nKeep it up! Send /task to continue.")
	return &Reply{Text: b.String()}
}

func replyDifficultyUsage() *Reply {
	return &Reply{
		Text: "Pick a difficulty: /difficulty beginner, /difficulty intermediate, or /difficulty advanced.",
	}
}

func replyDifficultyChanged(profile *domain.LearnerProfile) *Reply {
	return &Reply{Text: fmt.Sprintf(
		"Difficulty set to %s. New exercises will use it; anything already open keeps its original level.",
		profile.Difficulty,
	)}
}

func replyLanguageUsage() *Reply {
	codes := domain.SupportedLanguages()
	return &Reply{Text: fmt.Sprintf(
		"Pick a language for instructions with /language <code>. I speak: %s.",
		strings.Join(codes, ", "),
	)}
}

func replyLanguageChanged(profile *domain.LearnerProfile) *Reply {
	return &Reply{Text: fmt.Sprintf(
		"Instructions will be in %s from now on. Exercises themselves stay in English.",
		languageName(profile.Language),
	)}
}

func replyGrantUsage() *Reply {
	return &Reply{Text: "Usage: /grant <chat id>"}
}

func replyRevokeUsage() *Reply {
	return &Reply{Text: "Usage: /revoke <chat id>"}
}

func replyGranted(learnerID string) *Reply {
	return &Reply{Text: fmt.Sprintf("Access granted for %s.", learnerID)}
}

func replyRevoked(learnerID string) *Reply {
	return &Reply{Text: fmt.Sprintf("Access revoked for %s.", learnerID)}
}

func replyNotGranted(learnerID string) *Reply {
	return &Reply{Text: fmt.Sprintf("%s wasn't on the list.", learnerID)}
}

// writeCatalog appends the task type menu, one line per catalog entry.
func writeCatalog(b *strings.Builder) {
	for _, spec := range domain.Catalog() {
		fmt.Fprintf(b, "/task %s - %s\n", spec.Type, spec.Label)
	}
}

// languageName renders a language code for display. The codes are
// self-explanatory enough for a chat reply; no localized name table needed.
func languageName(code string) string {
	names := map[string]string{
		"en": "English",
		"es": "Spanish",
		"fr": "French",
		"de": "German",
		"it": "Italian",
		"pt": "Portuguese",
		"ru": "Russian",
		"uk": "Ukrainian",
		"pl": "Polish",
		"tr": "Turkish",
		"ar": "Arabic",
		"zh": "Chinese",
		"ja": "Japanese",
		"ko": "Korean",
	}
	if name, ok := names[code]; ok {
		return name
	}
	return code
}
