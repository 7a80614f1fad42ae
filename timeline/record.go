package timeline

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Kind discriminates the two record kinds held by the timeline.
type Kind int

const (
	// KindMessage is a raw conversational exchange (level 0).
	KindMessage Kind = iota

	// KindSummary is a synthesized condensation of older records (level >= 1).
	KindSummary
)

// String returns the kind name for logging.
func (k Kind) String() string {
	switch k {
	case KindMessage:
		return "message"
	case KindSummary:
		return "summary"
	default:
		return "unknown"
	}
}

// Message is one complete user/assistant exchange. Messages are append-only:
// every field is immutable after creation except ParentSummaryID, which
// transitions exactly once from nil to the id of the summary that absorbed it.
type Message struct {
	ID               uuid.UUID  `json:"id"`
	CreatedAt        time.Time  `json:"created_at"`
	UserContent      string     `json:"user_content"`
	AssistantContent string     `json:"assistant_content"`
	TokenCost        int        `json:"token_cost"`
	ParentSummaryID  *uuid.UUID `json:"parent_summary_id"`
}

// Summary is a synthesized condensation of a contiguous run of same-level
// records. Like Message it is append-only with a single parent transition.
type Summary struct {
	ID              uuid.UUID  `json:"id"`
	DateFrom        time.Time  `json:"date_from"`
	DateTo          time.Time  `json:"date_to"`
	Content         string     `json:"content"`
	Level           int        `json:"level"`
	TokenCost       int        `json:"token_cost"`
	ParentSummaryID *uuid.UUID `json:"parent_summary_id"`
}

// Record is the tagged variant over the two record kinds. Consumers that
// need kind-specific fields switch on Kind() and assert to *Message or
// *Summary; both branches must be handled.
type Record interface {
	// RecordID returns the record's unique id within its collection.
	RecordID() uuid.UUID

	// Kind reports which variant this record is.
	Kind() Kind

	// CompactionLevel is 0 for messages and the summary's level otherwise.
	CompactionLevel() int

	// Cost is the record's token cost.
	Cost() int

	// OrderedAt is the timestamp the working context is ordered by:
	// CreatedAt for messages, DateTo for summaries.
	OrderedAt() time.Time

	// Active reports whether the record has not yet been folded into a
	// summary.
	Active() bool
}

func (m *Message) RecordID() uuid.UUID  { return m.ID }
func (m *Message) Kind() Kind           { return KindMessage }
func (m *Message) CompactionLevel() int { return 0 }
func (m *Message) Cost() int            { return m.TokenCost }
func (m *Message) OrderedAt() time.Time { return m.CreatedAt }
func (m *Message) Active() bool         { return m.ParentSummaryID == nil }

func (s *Summary) RecordID() uuid.UUID  { return s.ID }
func (s *Summary) Kind() Kind           { return KindSummary }
func (s *Summary) CompactionLevel() int { return s.Level }
func (s *Summary) Cost() int            { return s.TokenCost }
func (s *Summary) OrderedAt() time.Time { return s.DateTo }
func (s *Summary) Active() bool         { return s.ParentSummaryID == nil }

// MergeActive merges active messages and summaries into one chronologically
// ordered working context. The sort is ascending by OrderedAt. Two records
// with equal timestamps are ordered messages-first, then by id string, so
// the result never depends on input order.
func MergeActive(messages []*Message, summaries []*Summary) []Record {
	records := make([]Record, 0, len(messages)+len(summaries))
	for _, m := range messages {
		records = append(records, m)
	}
	for _, s := range summaries {
		records = append(records, s)
	}

	sort.SliceStable(records, func(i, j int) bool {
		ti, tj := records[i].OrderedAt(), records[j].OrderedAt()
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		if records[i].Kind() != records[j].Kind() {
			return records[i].Kind() == KindMessage
		}
		return records[i].RecordID().String() < records[j].RecordID().String()
	})

	return records
}

func sortMessages(messages []*Message) {
	sort.Slice(messages, func(i, j int) bool {
		if !messages[i].CreatedAt.Equal(messages[j].CreatedAt) {
			return messages[i].CreatedAt.Before(messages[j].CreatedAt)
		}
		return messages[i].ID.String() < messages[j].ID.String()
	})
}

func sortSummaries(summaries []*Summary) {
	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].DateTo.Equal(summaries[j].DateTo) {
			return summaries[i].DateTo.Before(summaries[j].DateTo)
		}
		return summaries[i].ID.String() < summaries[j].ID.String()
	})
}

// TotalCost sums the token cost of the given records.
func TotalCost(records []Record) int {
	total := 0
	for _, r := range records {
		total += r.Cost()
	}
	return total
}
