package provider

import "errors"

// Sentinel errors for provider calls. All of them are recoverable: a send
// or compaction attempt that hits one aborts cleanly and is retried by a
// later pass.
var (
	// ErrGenerationFailed indicates the completion call failed.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrEmptyCompletion indicates the provider answered without a usable
	// choice.
	ErrEmptyCompletion = errors.New("completion response contained no choices")

	// ErrTokenCountFailed indicates the cost provider call failed.
	ErrTokenCountFailed = errors.New("token counting failed")
)
