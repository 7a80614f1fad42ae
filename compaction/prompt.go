package compaction

import (
	"fmt"
	"strings"
	"time"

	"github.com/foldpg/foldpg/timeline"
)

// CondenseSystemPrompt instructs the model to fold a transcript slice into
// one condensed narrative that can stand in for the originals.
const CondenseSystemPrompt = `You are a conversation condenser. You will receive a contiguous slice of an older conversation transcript. Some entries are raw user/assistant exchanges; others are condensed summaries of even older exchanges.

Write a single condensed narrative that can replace the entire slice while preserving everything needed to continue the conversation:

- Decisions made, facts established, and preferences expressed
- Questions that were asked and how they were answered
- Anything referenced later in the conversation (names, numbers, identifiers)
- The chronological order of events

Be concise. Do not add information that was not in the transcript. Do not address the user; produce only the condensed narrative.`

// timestampLayout annotates transcript entries. Summaries are annotated
// with the span they cover instead.
const timestampLayout = time.RFC3339

// BuildCondenseUserPrompt wraps a formatted transcript slice into the user
// message for the condensing request.
func BuildCondenseUserPrompt(transcript string) string {
	return `Condense the following transcript slice into one narrative.

<transcript>
` + transcript + `
</transcript>`
}

// FormatTranscript serializes the selected records into labeled transcript
// entries, in slice order. Messages become a timestamped user/assistant
// pair; summaries contribute their already condensed text with the span it
// covers. Both record kinds must be handled here; an unknown kind is an
// invariant violation.
func FormatTranscript(records []timeline.Record) (string, error) {
	var b strings.Builder

	for _, rec := range records {
		switch rec.Kind() {
		case timeline.KindMessage:
			msg := rec.(*timeline.Message)
			fmt.Fprintf(&b, "[%s] User:\n%s\n\n", msg.CreatedAt.Format(timestampLayout), msg.UserContent)
			fmt.Fprintf(&b, "[%s] Assistant:\n%s\n\n", msg.CreatedAt.Format(timestampLayout), msg.AssistantContent)
		case timeline.KindSummary:
			sum := rec.(*timeline.Summary)
			fmt.Fprintf(&b, "[%s .. %s] Summary of earlier conversation:\n%s\n\n",
				sum.DateFrom.Format(timestampLayout), sum.DateTo.Format(timestampLayout), sum.Content)
		default:
			return "", fmt.Errorf("%w: unknown record kind %v", ErrInvariantViolation, rec.Kind())
		}
	}

	return strings.TrimRight(b.String(), "\n"), nil
}
