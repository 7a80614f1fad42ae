package foldpg

import (
	"time"

	"github.com/foldpg/foldpg/compaction"
	"github.com/foldpg/foldpg/hooks"
	"github.com/foldpg/foldpg/provider"
	"github.com/foldpg/foldpg/timeline"
)

// DefaultSystemPrompt is the fixed preamble sent ahead of every transcript
// when no custom prompt is configured.
const DefaultSystemPrompt = `You are a helpful assistant. Parts of the older conversation may appear as condensed summaries covering a span of time; treat their content as established context.`

// Config holds the required configuration for a Chat.
//
// Example:
//
//	client, _ := openai.New(apiKey)
//	chat, _ := foldpg.New(foldpg.Config{
//	    Store:      timeline.NewPostgresStore(pool),
//	    Completion: client,
//	    Cost:       client,
//	    Model:      "gpt-4o",
//	}, foldpg.WithBudget(4000))
type Config struct {
	// Store persists the timeline (required).
	Store timeline.Store

	// Completion generates chat replies and condensed summaries (required).
	Completion provider.CompletionProvider

	// Cost prices persisted records (required).
	Cost provider.CostProvider

	// Model is the model id used for chat replies (required).
	Model string

	// SystemPrompt overrides DefaultSystemPrompt when non-empty.
	SystemPrompt string
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Store == nil {
		return NewChatError("Validate", ErrInvalidConfig).WithContext("missing", "Store")
	}
	if c.Completion == nil {
		return NewChatError("Validate", ErrInvalidConfig).WithContext("missing", "Completion")
	}
	if c.Cost == nil {
		return NewChatError("Validate", ErrInvalidConfig).WithContext("missing", "Cost")
	}
	if c.Model == "" {
		return NewChatError("Validate", ErrInvalidConfig).WithContext("missing", "Model")
	}
	return nil
}

// internalConfig holds the full chat configuration including optional
// parameters.
type internalConfig struct {
	// Required from Config
	store      timeline.Store
	completion provider.CompletionProvider
	cost       provider.CostProvider
	model      string

	// Optional parameters
	systemPrompt    string
	temperature     float32
	maxTokens       int
	budget          int
	summarizerModel string
	autoCompaction  bool
	logger          Logger
	hooks           *hooks.Registry
	now             func() time.Time
}

// newInternalConfig creates an internal config with defaults applied.
func newInternalConfig(cfg Config) *internalConfig {
	systemPrompt := cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}

	return &internalConfig{
		store:      cfg.Store,
		completion: cfg.Completion,
		cost:       cfg.Cost,
		model:      cfg.Model,

		systemPrompt: systemPrompt,

		// Defaults
		budget:          compaction.DefaultBudget,
		summarizerModel: cfg.Model, // reuse the chat model unless overridden
		autoCompaction:  true,
		logger:          noopLogger{},
		hooks:           hooks.NewRegistry(),
		now:             time.Now,
	}
}
