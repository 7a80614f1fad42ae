// Package hooks provides lifecycle callbacks around the send and
// compaction paths for observability.
package hooks

import (
	"context"
	"sync"

	"github.com/foldpg/foldpg/compaction"
	"github.com/foldpg/foldpg/timeline"
)

// BeforeSendHook is called before the completion request for a new
// utterance goes out. An error aborts the send with nothing persisted.
type BeforeSendHook func(ctx context.Context, text string) error

// AfterSendHook is called after the exchange has been persisted.
type AfterSendHook func(ctx context.Context, msg *timeline.Message) error

// BeforeCompactionHook is called before a compaction attempt.
type BeforeCompactionHook func(ctx context.Context) error

// AfterCompactionHook is called after a compaction attempt folded a run.
type AfterCompactionHook func(ctx context.Context, result *compaction.Result) error

// Registry holds all registered hooks
type Registry struct {
	mu               sync.RWMutex
	beforeSend       []BeforeSendHook
	afterSend        []AfterSendHook
	beforeCompaction []BeforeCompactionHook
	afterCompaction  []AfterCompactionHook
}

// NewRegistry creates a new hook registry
func NewRegistry() *Registry {
	return &Registry{
		beforeSend:       []BeforeSendHook{},
		afterSend:        []AfterSendHook{},
		beforeCompaction: []BeforeCompactionHook{},
		afterCompaction:  []AfterCompactionHook{},
	}
}

// OnBeforeSend registers a hook to be called before a completion request
func (r *Registry) OnBeforeSend(hook BeforeSendHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beforeSend = append(r.beforeSend, hook)
}

// OnAfterSend registers a hook to be called after an exchange is persisted
func (r *Registry) OnAfterSend(hook AfterSendHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.afterSend = append(r.afterSend, hook)
}

// OnBeforeCompaction registers a hook to be called before compaction
func (r *Registry) OnBeforeCompaction(hook BeforeCompactionHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.beforeCompaction = append(r.beforeCompaction, hook)
}

// OnAfterCompaction registers a hook to be called after compaction
func (r *Registry) OnAfterCompaction(hook AfterCompactionHook) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.afterCompaction = append(r.afterCompaction, hook)
}

// TriggerBeforeSend calls all registered before-send hooks
func (r *Registry) TriggerBeforeSend(ctx context.Context, text string) error {
	r.mu.RLock()
	hooks := make([]BeforeSendHook, len(r.beforeSend))
	copy(hooks, r.beforeSend)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, text); err != nil {
			return err
		}
	}
	return nil
}

// TriggerAfterSend calls all registered after-send hooks
func (r *Registry) TriggerAfterSend(ctx context.Context, msg *timeline.Message) error {
	r.mu.RLock()
	hooks := make([]AfterSendHook, len(r.afterSend))
	copy(hooks, r.afterSend)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, msg); err != nil {
			return err
		}
	}
	return nil
}

// TriggerBeforeCompaction calls all registered before-compaction hooks
func (r *Registry) TriggerBeforeCompaction(ctx context.Context) error {
	r.mu.RLock()
	hooks := make([]BeforeCompactionHook, len(r.beforeCompaction))
	copy(hooks, r.beforeCompaction)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx); err != nil {
			return err
		}
	}
	return nil
}

// TriggerAfterCompaction calls all registered after-compaction hooks
func (r *Registry) TriggerAfterCompaction(ctx context.Context, result *compaction.Result) error {
	r.mu.RLock()
	hooks := make([]AfterCompactionHook, len(r.afterCompaction))
	copy(hooks, r.afterCompaction)
	r.mu.RUnlock()

	for _, hook := range hooks {
		if err := hook(ctx, result); err != nil {
			return err
		}
	}
	return nil
}
