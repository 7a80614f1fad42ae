// Package anthropic implements the provider contracts with the Anthropic
// API. Completions go through the Messages endpoint; token costs come from
// the token counting endpoint.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/foldpg/foldpg/provider"
)

// DefaultMaxTokens bounds the generated response when the request does not
// set one; the Messages endpoint requires an explicit limit.
const DefaultMaxTokens = 4096

// Client implements provider.CompletionProvider and provider.CostProvider.
// The API credential is injected at construction; there is no package-level
// mutable state.
type Client struct {
	api anthropic.Client
}

// New creates a client with the given API key.
func New(apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("anthropic: API key is required")
	}
	return &Client{api: anthropic.NewClient(option.WithAPIKey(apiKey))}, nil
}

// NewWithClient wraps an already configured SDK client.
func NewWithClient(api anthropic.Client) *Client {
	return &Client{api: api}
}

// Complete sends a Messages request and returns the generated text as a
// single choice. System-role transcript entries are folded into the system
// prompt, which is how the Messages API expects them.
func (c *Client) Complete(ctx context.Context, req provider.Request) (*provider.Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	var system []anthropic.TextBlockParam
	messages := make([]anthropic.MessageParam, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch msg.Role {
		case provider.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: msg.Content})
		case provider.RoleAssistant:
			messages = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	resp, err := c.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   int64(maxTokens),
		Temperature: anthropic.Float(float64(req.Temperature)),
		System:      system,
		Messages:    messages,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrGenerationFailed, err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			text.WriteString(tb.Text)
		}
	}
	if text.Len() == 0 {
		return &provider.Response{}, nil
	}

	return &provider.Response{Choices: []provider.Choice{{Content: text.String()}}}, nil
}

// CountTokens reports the input-token count of the text via the token
// counting endpoint.
func (c *Client) CountTokens(ctx context.Context, text string) (int, error) {
	resp, err := c.api.Messages.CountTokens(ctx, anthropic.MessageCountTokensParams{
		Model: anthropic.Model(anthropic.ModelClaude3_5HaikuLatest),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", provider.ErrTokenCountFailed, err)
	}

	return int(resp.InputTokens), nil
}
