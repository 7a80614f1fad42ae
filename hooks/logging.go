package hooks

import (
	"context"
	"log"

	"github.com/foldpg/foldpg/compaction"
	"github.com/foldpg/foldpg/timeline"
)

// LoggingHooks provides built-in logging hooks for observability
type LoggingHooks struct {
	logger *log.Logger
}

// NewLoggingHooks creates logging hooks with the provided logger
func NewLoggingHooks(logger *log.Logger) *LoggingHooks {
	return &LoggingHooks{logger: logger}
}

// DefaultLoggingHooks creates logging hooks with default logger
func DefaultLoggingHooks() *LoggingHooks {
	return &LoggingHooks{logger: log.Default()}
}

// Register attaches every logging hook to the registry
func (h *LoggingHooks) Register(r *Registry) {
	r.OnBeforeSend(h.BeforeSend)
	r.OnAfterSend(h.AfterSend)
	r.OnBeforeCompaction(h.BeforeCompaction)
	r.OnAfterCompaction(h.AfterCompaction)
}

// BeforeSend logs before the completion request goes out
func (h *LoggingHooks) BeforeSend(ctx context.Context, text string) error {
	preview := text
	if len(preview) > 80 {
		preview = preview[:80] + "..."
	}
	h.logger.Printf("[foldpg] Sending utterance: %s", preview)
	return nil
}

// AfterSend logs the persisted exchange
func (h *LoggingHooks) AfterSend(ctx context.Context, msg *timeline.Message) error {
	h.logger.Printf("[foldpg] Exchange %s persisted (%d tokens)", msg.ID, msg.TokenCost)
	return nil
}

// BeforeCompaction logs before a compaction attempt
func (h *LoggingHooks) BeforeCompaction(ctx context.Context) error {
	h.logger.Printf("[foldpg] Starting compaction attempt")
	return nil
}

// AfterCompaction logs the compaction outcome
func (h *LoggingHooks) AfterCompaction(ctx context.Context, result *compaction.Result) error {
	reduction := float64(0)
	if result.CostBefore > 0 {
		reduction = float64(result.CostBefore-result.CostAfter) / float64(result.CostBefore) * 100
	}

	h.logger.Printf("[foldpg] Compaction complete: %d → %d tokens (%.1f%% reduction, level %d, %d sources)",
		result.CostBefore, result.CostAfter, reduction,
		result.Summary.Level, len(result.SourceMessageIDs)+len(result.SourceSummaryIDs))
	return nil
}

// MetricsHooks collects metrics for monitoring
type MetricsHooks struct {
	OnMetric func(name string, value float64, tags map[string]string)
}

// NewMetricsHooks creates metrics collection hooks
func NewMetricsHooks(onMetric func(string, float64, map[string]string)) *MetricsHooks {
	return &MetricsHooks{OnMetric: onMetric}
}

// Register attaches every metrics hook to the registry
func (h *MetricsHooks) Register(r *Registry) {
	r.OnAfterSend(h.AfterSend)
	r.OnAfterCompaction(h.AfterCompaction)
}

// AfterSend records the persisted exchange cost
func (h *MetricsHooks) AfterSend(ctx context.Context, msg *timeline.Message) error {
	h.OnMetric("chat.exchange.tokens", float64(msg.TokenCost), nil)
	return nil
}

// AfterCompaction records compaction metrics
func (h *MetricsHooks) AfterCompaction(ctx context.Context, result *compaction.Result) error {
	tags := map[string]string{"level": levelTag(result.Summary.Level)}

	h.OnMetric("compaction.cost_before", float64(result.CostBefore), tags)
	h.OnMetric("compaction.cost_after", float64(result.CostAfter), tags)

	if result.CostBefore > 0 {
		h.OnMetric("compaction.reduction_pct",
			float64(result.CostBefore-result.CostAfter)/float64(result.CostBefore)*100, tags)
	}

	return nil
}

func levelTag(level int) string {
	switch level {
	case 1:
		return "1"
	case 2:
		return "2"
	default:
		if level > 2 {
			return "3+"
		}
		return "0"
	}
}
