package foldpg

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/foldpg/foldpg/compaction"
	"github.com/foldpg/foldpg/provider"
	"github.com/foldpg/foldpg/timeline"
)

// Logger is the logging interface used by Chat. compaction.Logger has the
// same shape, so one implementation serves both.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a no-op implementation of Logger.
type noopLogger struct{}

func (noopLogger) Debug(msg string, args ...any) {}
func (noopLogger) Info(msg string, args ...any)  {}
func (noopLogger) Warn(msg string, args ...any)  {}
func (noopLogger) Error(msg string, args ...any) {}

// Exchange is the outcome of one successful Send.
type Exchange struct {
	// Message is the persisted record of the exchange.
	Message *timeline.Message

	// Compaction is non-nil when the post-send compaction attempt folded
	// a run.
	Compaction *compaction.Result
}

// Reply returns the assistant's text.
func (e *Exchange) Reply() string {
	return e.Message.AssistantContent
}

// Chat orchestrates sends against a bounded conversational log.
type Chat struct {
	config    *internalConfig
	compactor *compaction.Compactor
}

// New creates a Chat from the given configuration and options.
func New(cfg Config, opts ...Option) (*Chat, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	internal := newInternalConfig(cfg)
	for _, opt := range opts {
		if err := opt(internal); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	compactor, err := compaction.New(internal.store, internal.completion, internal.cost, &compaction.Config{
		Budget:          internal.budget,
		SummarizerModel: internal.summarizerModel,
	}, internal.logger)
	if err != nil {
		return nil, err
	}

	return &Chat{config: internal, compactor: compactor}, nil
}

// WorkingContext returns the current chronologically ordered active set.
func (c *Chat) WorkingContext(ctx context.Context) ([]timeline.Record, error) {
	messages, err := c.config.store.ListActiveMessages(ctx)
	if err != nil {
		return nil, NewChatError("WorkingContext", err)
	}
	summaries, err := c.config.store.ListActiveSummaries(ctx)
	if err != nil {
		return nil, NewChatError("WorkingContext", err)
	}
	return timeline.MergeActive(messages, summaries), nil
}

// Send submits a user utterance. It builds a transcript from the working
// context, requests a completion, prices the exchange, and persists it as
// a new active message. A provider failure aborts the send with nothing
// persisted. After a successful append, one compaction attempt runs;
// its failure is logged and does not undo the message.
func (c *Chat) Send(ctx context.Context, text string) (*Exchange, error) {
	if strings.TrimSpace(text) == "" {
		return nil, NewChatError("Send", ErrEmptyInput)
	}

	if err := c.config.hooks.TriggerBeforeSend(ctx, text); err != nil {
		return nil, NewChatError("Send", err)
	}

	now := c.config.now()

	records, err := c.WorkingContext(ctx)
	if err != nil {
		return nil, err
	}

	transcript, err := c.buildTranscript(records, text, now)
	if err != nil {
		return nil, NewChatError("Send", err)
	}

	resp, err := c.config.completion.Complete(ctx, provider.Request{
		Model:       c.config.model,
		Temperature: c.config.temperature,
		MaxTokens:   c.config.maxTokens,
		Messages:    transcript,
	})
	if err != nil {
		return nil, NewChatError("Send", fmt.Errorf("%w: %v", provider.ErrGenerationFailed, err))
	}

	reply, err := resp.First()
	if err != nil {
		return nil, NewChatError("Send", fmt.Errorf("%w: %v", provider.ErrGenerationFailed, err))
	}

	tokenCost, err := c.config.cost.CountTokens(ctx, text+"\n"+reply)
	if err != nil {
		return nil, NewChatError("Send", err)
	}

	msg := &timeline.Message{
		ID:               uuid.New(),
		CreatedAt:        now,
		UserContent:      text,
		AssistantContent: reply,
		TokenCost:        tokenCost,
	}
	if err := c.config.store.AppendMessage(ctx, msg); err != nil {
		return nil, NewChatError("Send", err)
	}

	exchange := &Exchange{Message: msg}

	if err := c.config.hooks.TriggerAfterSend(ctx, msg); err != nil {
		// The message is already durable; a hook failure is observability
		// only.
		c.config.logger.Warn("after-send hook failed", "message_id", msg.ID, "error", err)
	}

	if c.config.autoCompaction {
		// Best effort: the message above is already durable and a failed
		// attempt is retried naturally on the next send.
		result, err := c.compactOnce(ctx)
		if err != nil {
			c.config.logger.Warn("compaction attempt failed",
				"message_id", msg.ID,
				"error", err,
			)
		} else {
			exchange.Compaction = result
		}
	}

	return exchange, nil
}

// CompactOnce runs a single compaction attempt outside the send path. It
// returns (nil, nil) when no run is over budget.
func (c *Chat) CompactOnce(ctx context.Context) (*compaction.Result, error) {
	return c.compactOnce(ctx)
}

func (c *Chat) compactOnce(ctx context.Context) (*compaction.Result, error) {
	if err := c.config.hooks.TriggerBeforeCompaction(ctx); err != nil {
		return nil, NewChatError("CompactOnce", err)
	}

	result, err := c.compactor.Run(ctx)
	if err != nil {
		return nil, err
	}

	if result != nil {
		if err := c.config.hooks.TriggerAfterCompaction(ctx, result); err != nil {
			c.config.logger.Warn("after-compaction hook failed",
				"summary_id", result.Summary.ID, "error", err)
		}
	}

	return result, nil
}

// buildTranscript serializes the working context plus the new utterance
// into role-tagged entries: a fixed system preamble, a timestamped
// user/assistant pair per active message, a span-annotated entry per
// active summary, and finally the new user text.
func (c *Chat) buildTranscript(records []timeline.Record, text string, now time.Time) ([]provider.ChatMessage, error) {
	transcript := make([]provider.ChatMessage, 0, 2*len(records)+2)
	transcript = append(transcript, provider.ChatMessage{
		Role:    provider.RoleSystem,
		Content: c.config.systemPrompt,
	})

	for _, rec := range records {
		switch rec.Kind() {
		case timeline.KindMessage:
			msg := rec.(*timeline.Message)
			transcript = append(transcript,
				provider.ChatMessage{
					Role:    provider.RoleUser,
					Content: annotate(msg.CreatedAt, msg.UserContent),
				},
				provider.ChatMessage{
					Role:    provider.RoleAssistant,
					Content: annotate(msg.CreatedAt, msg.AssistantContent),
				},
			)
		case timeline.KindSummary:
			sum := rec.(*timeline.Summary)
			transcript = append(transcript, provider.ChatMessage{
				Role: provider.RoleSystem,
				Content: fmt.Sprintf("Summary of the conversation from %s to %s:\n%s",
					sum.DateFrom.Format(timestampLayout), sum.DateTo.Format(timestampLayout), sum.Content),
			})
		default:
			return nil, fmt.Errorf("unknown record kind %v", rec.Kind())
		}
	}

	transcript = append(transcript, provider.ChatMessage{
		Role:    provider.RoleUser,
		Content: annotate(now, text),
	})

	return transcript, nil
}

// timestampLayout annotates transcript entries.
const timestampLayout = time.RFC3339

func annotate(at time.Time, content string) string {
	return fmt.Sprintf("[%s] %s", at.Format(timestampLayout), content)
}
