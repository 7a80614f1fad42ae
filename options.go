package foldpg

import (
	"fmt"
	"time"

	"github.com/foldpg/foldpg/hooks"
)

// Option is a functional option for configuring a Chat.
type Option func(*internalConfig) error

// WithBudget sets the token budget B; compaction fires once a contiguous
// same-level run of the working context accumulates cost of at least 2*B.
func WithBudget(b int) Option {
	return func(c *internalConfig) error {
		if b <= 0 {
			return fmt.Errorf("%w: budget must be positive, got %d", ErrInvalidConfig, b)
		}
		c.budget = b
		return nil
	}
}

// WithTemperature sets the sampling temperature for chat replies.
// Compaction requests always run at temperature zero regardless.
func WithTemperature(t float32) Option {
	return func(c *internalConfig) error {
		c.temperature = t
		return nil
	}
}

// WithMaxTokens bounds the generated chat reply.
func WithMaxTokens(n int) Option {
	return func(c *internalConfig) error {
		c.maxTokens = n
		return nil
	}
}

// WithSummarizerModel sets the model used for condensing runs. By default
// the chat model is reused.
func WithSummarizerModel(model string) Option {
	return func(c *internalConfig) error {
		if model == "" {
			return fmt.Errorf("%w: summarizer model must not be empty", ErrInvalidConfig)
		}
		c.summarizerModel = model
		return nil
	}
}

// WithAutoCompaction enables or disables the compaction attempt after each
// send. Disabled, compaction only runs through CompactOnce.
func WithAutoCompaction(enabled bool) Option {
	return func(c *internalConfig) error {
		c.autoCompaction = enabled
		return nil
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger Logger) Option {
	return func(c *internalConfig) error {
		if logger == nil {
			return fmt.Errorf("%w: logger must not be nil", ErrInvalidConfig)
		}
		c.logger = logger
		return nil
	}
}

// WithHooks attaches a hook registry whose callbacks fire around the send
// and compaction paths. A before-send hook error aborts the send.
func WithHooks(registry *hooks.Registry) Option {
	return func(c *internalConfig) error {
		if registry == nil {
			return fmt.Errorf("%w: hook registry must not be nil", ErrInvalidConfig)
		}
		c.hooks = registry
		return nil
	}
}

// WithClock overrides the wall-clock source used to timestamp new
// messages. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(c *internalConfig) error {
		if now == nil {
			return fmt.Errorf("%w: clock must not be nil", ErrInvalidConfig)
		}
		c.now = now
		return nil
	}
}
