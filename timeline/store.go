// Package timeline holds the append-only record model of the conversation
// log and the Store contract it is persisted through.
//
// Two collections are kept, messages and summaries. Records are never
// deleted or rewritten; the only mutation the store permits is the single
// parent transition performed by AtomicCompact, which folds a set of
// active records under a freshly inserted summary in one transaction.
package timeline

import (
	"context"

	"github.com/google/uuid"
)

// Store is the persistence contract consumed by the chat orchestrator and
// the compaction engine. Implementations must serialize writers so that
// overlapping append/compact sequences against the same records cannot
// interleave; PostgresStore and SQLStore rely on the database's
// transaction isolation, MemoryStore on a single mutex.
type Store interface {
	// AppendMessage inserts a new message. ErrDuplicateID on id collision.
	AppendMessage(ctx context.Context, msg *Message) error

	// AppendSummary inserts a new summary. ErrDuplicateID on id collision.
	AppendSummary(ctx context.Context, sum *Summary) error

	// ListActiveMessages returns all messages with a nil parent reference,
	// ordered by CreatedAt ascending.
	ListActiveMessages(ctx context.Context) ([]*Message, error)

	// ListActiveSummaries returns all summaries with a nil parent
	// reference, ordered by DateTo ascending.
	ListActiveSummaries(ctx context.Context) ([]*Summary, error)

	// ListAllMessages returns every message, active or compacted, ordered
	// by CreatedAt ascending. Used at the export boundary.
	ListAllMessages(ctx context.Context) ([]*Message, error)

	// ListAllSummaries returns every summary ordered by DateTo ascending.
	ListAllSummaries(ctx context.Context) ([]*Summary, error)

	// AtomicCompact inserts sum and sets the parent reference of every
	// named source to sum's id, all within one transaction that is either
	// fully applied or fully absent from any subsequent read. Every named
	// source must exist and be active; otherwise nothing is applied and
	// ErrSourceNotActive is returned.
	AtomicCompact(ctx context.Context, sum *Summary, messageIDs, summaryIDs []uuid.UUID) error
}
