package compaction

import "fmt"

// Default configuration values.
const (
	// DefaultBudget is the token budget B. A run qualifies for compaction
	// once its cumulative cost reaches 2*B.
	DefaultBudget = 4000

	// DefaultSummarizerMaxTokens bounds the condensed narrative.
	DefaultSummarizerMaxTokens = 1024
)

// Config holds compaction configuration.
type Config struct {
	// Budget is the token budget B. The trigger threshold is 2*Budget.
	// Default: 4000
	Budget int

	// SummarizerModel is the model used for condensing runs.
	SummarizerModel string

	// SummarizerMaxTokens is the maximum tokens for the condensed response.
	// Default: 1024
	SummarizerMaxTokens int

	// Temperature for the condensing request. Left at zero the summarizer
	// runs in its lowest-variance mode, which is what compaction wants.
	Temperature float32
}

// DefaultConfig returns a Config with default values. The summarizer model
// must still be set by the caller.
func DefaultConfig() *Config {
	return &Config{
		Budget:              DefaultBudget,
		SummarizerMaxTokens: DefaultSummarizerMaxTokens,
	}
}

// ApplyDefaults fills in zero values with defaults.
func (c *Config) ApplyDefaults() {
	if c.Budget == 0 {
		c.Budget = DefaultBudget
	}
	if c.SummarizerMaxTokens == 0 {
		c.SummarizerMaxTokens = DefaultSummarizerMaxTokens
	}
}

// Validate returns an error if the configuration is unusable.
func (c *Config) Validate() error {
	if c.Budget <= 0 {
		return fmt.Errorf("%w: budget must be positive, got %d", ErrInvalidConfig, c.Budget)
	}
	if c.SummarizerModel == "" {
		return fmt.Errorf("%w: summarizer model is required", ErrInvalidConfig)
	}
	if c.SummarizerMaxTokens <= 0 {
		return fmt.Errorf("%w: summarizer max tokens must be positive, got %d",
			ErrInvalidConfig, c.SummarizerMaxTokens)
	}
	return nil
}
