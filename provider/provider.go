// Package provider defines the two network contracts the compaction core
// consumes: a chat completion provider and a token-cost provider. Both are
// blocking, latency-unbounded calls; timeouts and retries belong to the
// concrete clients, never to the core. Failures surface as distinguishable
// sentinel errors and never corrupt stored state.
package provider

import "context"

// Role tags one transcript entry.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatMessage is one role-tagged transcript entry.
type ChatMessage struct {
	Role    Role
	Content string
}

// Request is a chat completion request. The core always asks for a single
// choice.
type Request struct {
	Model       string
	Temperature float32
	MaxTokens   int
	Messages    []ChatMessage
}

// Response carries the generated choices. The core uses only the first.
type Response struct {
	Choices []Choice
}

// Choice is one generated completion.
type Choice struct {
	Content string
}

// First returns the first choice's content, or ErrEmptyCompletion when the
// provider returned no usable choice.
func (r *Response) First() (string, error) {
	if r == nil || len(r.Choices) == 0 {
		return "", ErrEmptyCompletion
	}
	return r.Choices[0].Content, nil
}

// CompletionProvider generates a chat completion.
type CompletionProvider interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// CostProvider reports the total token usage of a text. The count is used
// verbatim as the token cost of the record being persisted.
type CostProvider interface {
	CountTokens(ctx context.Context, text string) (int, error)
}
