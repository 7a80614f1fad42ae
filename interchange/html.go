package interchange

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"

	"github.com/foldpg/foldpg/timeline"
)

// timestampLayout annotates rendered transcript entries.
const timestampLayout = time.RFC3339

// RenderHTML renders the document's active working context as a sanitized
// HTML transcript. Record content is treated as markdown; the rendered
// output is passed through a UGC sanitizer since the assistant text is
// model-generated.
func RenderHTML(doc *Document) ([]byte, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	var messages []*timeline.Message
	for i := range doc.Messages {
		rec := &doc.Messages[i]
		if rec.ParentSummaryID != nil {
			continue
		}
		messages = append(messages, &timeline.Message{
			ID:               rec.ID,
			CreatedAt:        rec.CreatedAt,
			UserContent:      rec.UserContent,
			AssistantContent: rec.AssistantContent,
			TokenCost:        rec.TokenCost,
		})
	}
	var summaries []*timeline.Summary
	for i := range doc.Summaries {
		rec := &doc.Summaries[i]
		if rec.ParentSummaryID != nil {
			continue
		}
		summaries = append(summaries, &timeline.Summary{
			ID:        rec.ID,
			DateFrom:  rec.DateFrom,
			DateTo:    rec.DateTo,
			Content:   rec.Content,
			Level:     rec.Level,
			TokenCost: rec.TokenCost,
		})
	}

	md := goldmark.New()
	policy := bluemonday.UGCPolicy()

	var b strings.Builder
	b.WriteString("<article class=\"transcript\">\n")

	for _, rec := range timeline.MergeActive(messages, summaries) {
		switch rec.Kind() {
		case timeline.KindMessage:
			msg := rec.(*timeline.Message)
			b.WriteString("<section class=\"exchange\">\n")
			fmt.Fprintf(&b, "<time>%s</time>\n", html.EscapeString(msg.CreatedAt.Format(timestampLayout)))
			user, err := renderMarkdown(md, policy, msg.UserContent)
			if err != nil {
				return nil, err
			}
			assistant, err := renderMarkdown(md, policy, msg.AssistantContent)
			if err != nil {
				return nil, err
			}
			fmt.Fprintf(&b, "<div class=\"user\">%s</div>\n", user)
			fmt.Fprintf(&b, "<div class=\"assistant\">%s</div>\n", assistant)
			b.WriteString("</section>\n")
		case timeline.KindSummary:
			sum := rec.(*timeline.Summary)
			b.WriteString("<section class=\"summary\">\n")
			fmt.Fprintf(&b, "<time>%s &ndash; %s</time>\n",
				html.EscapeString(sum.DateFrom.Format(timestampLayout)),
				html.EscapeString(sum.DateTo.Format(timestampLayout)))
			content, err := renderMarkdown(md, policy, sum.Content)
			if err != nil {
				return nil, err
			}
			fmt.Fprintf(&b, "<div class=\"condensed\" data-level=\"%d\">%s</div>\n", sum.Level, content)
			b.WriteString("</section>\n")
		}
	}

	b.WriteString("</article>\n")
	return []byte(b.String()), nil
}

func renderMarkdown(md goldmark.Markdown, policy *bluemonday.Policy, source string) (string, error) {
	var out bytes.Buffer
	if err := md.Convert([]byte(source), &out); err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}
	return policy.Sanitize(out.String()), nil
}
