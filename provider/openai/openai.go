// Package openai implements the provider contracts with the OpenAI API.
// Completions go through the chat completion endpoint; token costs are
// read from the embeddings endpoint's total-token usage.
package openai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/foldpg/foldpg/provider"
)

// DefaultEmbeddingModel is the model used for token counting when none is
// configured.
const DefaultEmbeddingModel = openai.AdaEmbeddingV2

// Client implements provider.CompletionProvider and provider.CostProvider.
// The API credential is injected at construction; there is no package-level
// mutable state.
type Client struct {
	api            *openai.Client
	embeddingModel openai.EmbeddingModel
}

// New creates a client with the given API key.
func New(apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("openai: API key is required")
	}
	return &Client{
		api:            openai.NewClient(apiKey),
		embeddingModel: DefaultEmbeddingModel,
	}, nil
}

// NewWithClient wraps an already configured go-openai client.
func NewWithClient(api *openai.Client) *Client {
	return &Client{api: api, embeddingModel: DefaultEmbeddingModel}
}

// SetEmbeddingModel overrides the model used for token counting.
func (c *Client) SetEmbeddingModel(model openai.EmbeddingModel) {
	c.embeddingModel = model
}

// Complete sends a chat completion request and returns its choices.
func (c *Client) Complete(ctx context.Context, req provider.Request) (*provider.Response, error) {
	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, msg := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
		N:           1,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrGenerationFailed, err)
	}

	choices := make([]provider.Choice, len(resp.Choices))
	for i, choice := range resp.Choices {
		choices[i] = provider.Choice{Content: choice.Message.Content}
	}

	return &provider.Response{Choices: choices}, nil
}

// CountTokens embeds the text and returns the reported total token usage.
func (c *Client) CountTokens(ctx context.Context, text string) (int, error) {
	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: c.embeddingModel,
		Input: []string{text},
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", provider.ErrTokenCountFailed, err)
	}

	return resp.Usage.TotalTokens, nil
}
