package timeline

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store. A single mutex serializes writers,
// which satisfies the isolation the compaction engine requires of the
// store. Useful for tests and single-process deployments.
type MemoryStore struct {
	mu        sync.RWMutex
	messages  map[uuid.UUID]*Message
	summaries map[uuid.UUID]*Summary
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		messages:  make(map[uuid.UUID]*Message),
		summaries: make(map[uuid.UUID]*Summary),
	}
}

// AppendMessage inserts a new message.
func (s *MemoryStore) AppendMessage(_ context.Context, msg *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.messages[msg.ID]; ok {
		return fmt.Errorf("%w: message %s", ErrDuplicateID, msg.ID)
	}

	c := *msg
	s.messages[msg.ID] = &c
	return nil
}

// AppendSummary inserts a new summary.
func (s *MemoryStore) AppendSummary(_ context.Context, sum *Summary) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.summaries[sum.ID]; ok {
		return fmt.Errorf("%w: summary %s", ErrDuplicateID, sum.ID)
	}

	c := *sum
	s.summaries[sum.ID] = &c
	return nil
}

// ListActiveMessages returns all unparented messages ordered by creation time.
func (s *MemoryStore) ListActiveMessages(_ context.Context) ([]*Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectMessages(true), nil
}

// ListAllMessages returns every message ordered by creation time.
func (s *MemoryStore) ListAllMessages(_ context.Context) ([]*Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectMessages(false), nil
}

// ListActiveSummaries returns all unparented summaries ordered by end timestamp.
func (s *MemoryStore) ListActiveSummaries(_ context.Context) ([]*Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectSummaries(true), nil
}

// ListAllSummaries returns every summary ordered by end timestamp.
func (s *MemoryStore) ListAllSummaries(_ context.Context) ([]*Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collectSummaries(false), nil
}

// AtomicCompact validates every source under the lock before mutating
// anything, so a failure leaves the store untouched.
func (s *MemoryStore) AtomicCompact(_ context.Context, sum *Summary, messageIDs, summaryIDs []uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.summaries[sum.ID]; ok {
		return fmt.Errorf("%w: summary %s", ErrDuplicateID, sum.ID)
	}
	for _, id := range messageIDs {
		msg, ok := s.messages[id]
		if !ok || msg.ParentSummaryID != nil {
			return fmt.Errorf("%w: message %s", ErrSourceNotActive, id)
		}
	}
	for _, id := range summaryIDs {
		src, ok := s.summaries[id]
		if !ok || src.ParentSummaryID != nil {
			return fmt.Errorf("%w: summary %s", ErrSourceNotActive, id)
		}
	}

	c := *sum
	s.summaries[sum.ID] = &c
	for _, id := range messageIDs {
		parent := sum.ID
		s.messages[id].ParentSummaryID = &parent
	}
	for _, id := range summaryIDs {
		parent := sum.ID
		s.summaries[id].ParentSummaryID = &parent
	}

	return nil
}

func (s *MemoryStore) collectMessages(activeOnly bool) []*Message {
	var out []*Message
	for _, msg := range s.messages {
		if activeOnly && msg.ParentSummaryID != nil {
			continue
		}
		c := *msg
		out = append(out, &c)
	}
	sortMessages(out)
	return out
}

func (s *MemoryStore) collectSummaries(activeOnly bool) []*Summary {
	var out []*Summary
	for _, sum := range s.summaries {
		if activeOnly && sum.ParentSummaryID != nil {
			continue
		}
		c := *sum
		out = append(out, &c)
	}
	sortSummaries(out)
	return out
}
