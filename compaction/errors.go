package compaction

import (
	"errors"
	"fmt"
)

// Sentinel errors for compaction operations.
var (
	// ErrInvalidConfig indicates invalid compaction configuration.
	ErrInvalidConfig = errors.New("invalid compaction configuration")

	// ErrNothingToCompact indicates an empty selection reached the
	// compactor. Callers that selected nothing should skip the compactor
	// entirely.
	ErrNothingToCompact = errors.New("nothing to compact")

	// ErrInvariantViolation indicates a programming invariant was broken,
	// such as a mixed-level slice reaching the compactor. Not retryable;
	// the attempt is aborted and the condition reported loudly.
	ErrInvariantViolation = errors.New("compaction invariant violated")

	// ErrCondenseFailed indicates the condensing provider call failed.
	ErrCondenseFailed = errors.New("condensing failed")
)

// Error provides structured context for a failed compaction operation.
type Error struct {
	// Op is the operation that failed (e.g. "Select", "Condense", "Apply").
	Op string

	// Err is the underlying error.
	Err error

	// Context holds additional key-value pairs for debugging.
	Context map[string]any
}

// Error returns a formatted error message.
func (e *Error) Error() string {
	msg := fmt.Sprintf("compaction %s failed", e.Op)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is/errors.As support.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError creates an Error for the given operation.
func NewError(op string, err error) *Error {
	return &Error{Op: op, Err: err, Context: make(map[string]any)}
}

// WithContext adds a key-value pair and returns the error for chaining.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}
