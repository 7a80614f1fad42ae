package compaction

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/foldpg/foldpg/provider"
	"github.com/foldpg/foldpg/timeline"
)

// Logger is the logging interface used by the compactor.
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

// Result describes one applied compaction.
type Result struct {
	// Summary is the record the sources were folded into.
	Summary *timeline.Summary

	// SourceMessageIDs and SourceSummaryIDs are the reparented sources.
	SourceMessageIDs []uuid.UUID
	SourceSummaryIDs []uuid.UUID

	// CostBefore is the total cost of the sources; CostAfter is the cost
	// of the summary that replaced them.
	CostBefore int
	CostAfter  int

	// Duration is how long the compaction took, provider call included.
	Duration time.Duration
}

// Compactor selects and folds over-budget runs of the working context.
type Compactor struct {
	store      timeline.Store
	completion provider.CompletionProvider
	cost       provider.CostProvider
	config     *Config
	logger     Logger
}

// New creates a Compactor. If config is nil, defaults are used; the
// summarizer model must be set either way. If logger is nil, logging is
// disabled.
func New(store timeline.Store, completion provider.CompletionProvider, cost provider.CostProvider, config *Config, logger Logger) (*Compactor, error) {
	if config == nil {
		config = DefaultConfig()
	} else {
		config.ApplyDefaults()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = noopLogger{}
	}

	return &Compactor{
		store:      store,
		completion: completion,
		cost:       cost,
		config:     config,
		logger:     logger,
	}, nil
}

// Config returns the compactor's configuration.
func (c *Compactor) Config() *Config {
	return c.config
}

// Run performs one compaction attempt: it rebuilds the working context,
// selects the earliest over-budget run, and folds its older half. It
// returns (nil, nil) when no run qualifies; the store is not touched in
// that case.
func (c *Compactor) Run(ctx context.Context) (*Result, error) {
	messages, err := c.store.ListActiveMessages(ctx)
	if err != nil {
		return nil, NewError("ListActiveMessages", err)
	}
	summaries, err := c.store.ListActiveSummaries(ctx)
	if err != nil {
		return nil, NewError("ListActiveSummaries", err)
	}

	records := timeline.MergeActive(messages, summaries)

	run, ok := SelectRun(records, c.config.Budget)
	if !ok {
		c.logger.Debug("no run over budget", "records", len(records), "budget", c.config.Budget)
		return nil, nil
	}

	c.logger.Info("compacting run",
		"start", run.Start,
		"end", run.End,
		"level", records[run.Start].CompactionLevel(),
	)

	return c.Apply(ctx, records[run.Start:run.End])
}

// Apply condenses the selected slice into a new summary and atomically
// reparents the sources to it. The slice must be non-empty and share one
// level; anything else is an invariant violation, not a retryable
// condition. The provider round trips complete before the store
// transaction begins.
func (c *Compactor) Apply(ctx context.Context, selected []timeline.Record) (*Result, error) {
	start := time.Now()

	level, err := uniformLevel(selected)
	if err != nil {
		return nil, err
	}

	transcript, err := FormatTranscript(selected)
	if err != nil {
		return nil, NewError("FormatTranscript", err)
	}

	resp, err := c.completion.Complete(ctx, provider.Request{
		Model:       c.config.SummarizerModel,
		Temperature: c.config.Temperature,
		MaxTokens:   c.config.SummarizerMaxTokens,
		Messages: []provider.ChatMessage{
			{Role: provider.RoleSystem, Content: CondenseSystemPrompt},
			{Role: provider.RoleUser, Content: BuildCondenseUserPrompt(transcript)},
		},
	})
	if err != nil {
		return nil, NewError("Condense", fmt.Errorf("%w: %v", ErrCondenseFailed, err))
	}

	content, err := resp.First()
	if err != nil {
		return nil, NewError("Condense", fmt.Errorf("%w: %v", ErrCondenseFailed, err))
	}

	// The condensed text alone determines the new record's cost.
	tokenCost, err := c.cost.CountTokens(ctx, content)
	if err != nil {
		return nil, NewError("CountTokens", err)
	}

	sum := &timeline.Summary{
		ID:        uuid.New(),
		DateFrom:  selected[0].OrderedAt(),
		DateTo:    selected[len(selected)-1].OrderedAt(),
		Content:   content,
		Level:     level + 1,
		TokenCost: tokenCost,
	}

	var messageIDs, summaryIDs []uuid.UUID
	costBefore := 0
	for _, rec := range selected {
		costBefore += rec.Cost()
		switch rec.Kind() {
		case timeline.KindMessage:
			messageIDs = append(messageIDs, rec.RecordID())
		case timeline.KindSummary:
			summaryIDs = append(summaryIDs, rec.RecordID())
		default:
			return nil, NewError("Apply",
				fmt.Errorf("%w: unknown record kind %v", ErrInvariantViolation, rec.Kind()))
		}
	}

	if err := c.store.AtomicCompact(ctx, sum, messageIDs, summaryIDs); err != nil {
		return nil, NewError("AtomicCompact", err).WithContext("summary_id", sum.ID)
	}

	result := &Result{
		Summary:          sum,
		SourceMessageIDs: messageIDs,
		SourceSummaryIDs: summaryIDs,
		CostBefore:       costBefore,
		CostAfter:        tokenCost,
		Duration:         time.Since(start),
	}

	c.logger.Info("compaction complete",
		"summary_id", sum.ID,
		"level", sum.Level,
		"sources", len(selected),
		"cost_before", result.CostBefore,
		"cost_after", result.CostAfter,
		"duration_ms", result.Duration.Milliseconds(),
	)

	return result, nil
}

// uniformLevel returns the shared level of the slice. The selector only
// ever produces uniform-level slices; this re-checks it defensively so a
// broken caller fails loudly instead of writing a malformed summary.
func uniformLevel(selected []timeline.Record) (int, error) {
	if len(selected) == 0 {
		return 0, NewError("Apply", ErrNothingToCompact)
	}

	level := selected[0].CompactionLevel()
	for _, rec := range selected[1:] {
		if rec.CompactionLevel() != level {
			return 0, NewError("Apply",
				fmt.Errorf("%w: mixed levels %d and %d in selection",
					ErrInvariantViolation, level, rec.CompactionLevel()))
		}
	}

	return level, nil
}
