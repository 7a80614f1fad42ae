package foldpg

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	// ErrInvalidConfig is returned when the chat configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrEmptyInput is returned when Send is called with empty user text.
	ErrEmptyInput = errors.New("empty user input")
)

// ChatError represents an error with operation context.
type ChatError struct {
	Op      string         // Operation that failed
	Err     error          // Underlying error
	Context map[string]any // Additional context
}

// Error implements the error interface.
func (e *ChatError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ChatError) Unwrap() error {
	return e.Err
}

// NewChatError creates a ChatError for the given operation.
func NewChatError(op string, err error) *ChatError {
	return &ChatError{Op: op, Err: err, Context: make(map[string]any)}
}

// WithContext adds additional context to the error.
func (e *ChatError) WithContext(key string, value any) *ChatError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}
