// Package interchange is the import/export boundary of the timeline. It
// round-trips the record model through a versioned JSON document with two
// flat arrays, one per collection. Parent references serialize as explicit
// JSON null, never a sentinel value.
package interchange

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/foldpg/foldpg/timeline"
)

// DocumentVersion is the current interchange format version.
const DocumentVersion = 1

// Document is the interchange envelope.
type Document struct {
	Version   int             `json:"version"`
	Messages  []MessageRecord `json:"messages"`
	Summaries []SummaryRecord `json:"summaries"`
}

// MessageRecord mirrors timeline.Message. ParentSummaryID is a pointer so
// an unparented record marshals to an explicit null.
type MessageRecord struct {
	ID               uuid.UUID  `json:"id"`
	CreatedAt        time.Time  `json:"createdAt"`
	UserContent      string     `json:"userContent"`
	AssistantContent string     `json:"assistantContent"`
	TokenCost        int        `json:"tokenCost"`
	ParentSummaryID  *uuid.UUID `json:"parentSummaryId"`
}

// SummaryRecord mirrors timeline.Summary.
type SummaryRecord struct {
	ID              uuid.UUID  `json:"id"`
	DateFrom        time.Time  `json:"dateFrom"`
	DateTo          time.Time  `json:"dateTo"`
	Content         string     `json:"content"`
	Level           int        `json:"level"`
	TokenCost       int        `json:"tokenCost"`
	ParentSummaryID *uuid.UUID `json:"parentSummaryId"`
}

// Export reads every record from the store into a Document.
func Export(ctx context.Context, store timeline.Store) (*Document, error) {
	messages, err := store.ListAllMessages(ctx)
	if err != nil {
		return nil, fmt.Errorf("export messages: %w", err)
	}
	summaries, err := store.ListAllSummaries(ctx)
	if err != nil {
		return nil, fmt.Errorf("export summaries: %w", err)
	}

	doc := &Document{
		Version:   DocumentVersion,
		Messages:  make([]MessageRecord, len(messages)),
		Summaries: make([]SummaryRecord, len(summaries)),
	}
	for i, msg := range messages {
		doc.Messages[i] = MessageRecord{
			ID:               msg.ID,
			CreatedAt:        msg.CreatedAt,
			UserContent:      msg.UserContent,
			AssistantContent: msg.AssistantContent,
			TokenCost:        msg.TokenCost,
			ParentSummaryID:  copyID(msg.ParentSummaryID),
		}
	}
	for i, sum := range summaries {
		doc.Summaries[i] = SummaryRecord{
			ID:              sum.ID,
			DateFrom:        sum.DateFrom,
			DateTo:          sum.DateTo,
			Content:         sum.Content,
			Level:           sum.Level,
			TokenCost:       sum.TokenCost,
			ParentSummaryID: copyID(sum.ParentSummaryID),
		}
	}

	return doc, nil
}

// Import appends every record of the document into the store. Summaries
// are appended before messages so parent references resolve under foreign
// key constraints; duplicate ids surface as timeline.ErrDuplicateID.
func Import(ctx context.Context, store timeline.Store, doc *Document) error {
	if err := doc.Validate(); err != nil {
		return err
	}

	for i := range doc.Summaries {
		rec := &doc.Summaries[i]
		if err := store.AppendSummary(ctx, &timeline.Summary{
			ID:              rec.ID,
			DateFrom:        rec.DateFrom,
			DateTo:          rec.DateTo,
			Content:         rec.Content,
			Level:           rec.Level,
			TokenCost:       rec.TokenCost,
			ParentSummaryID: copyID(rec.ParentSummaryID),
		}); err != nil {
			return fmt.Errorf("import summary %s: %w", rec.ID, err)
		}
	}

	for i := range doc.Messages {
		rec := &doc.Messages[i]
		if err := store.AppendMessage(ctx, &timeline.Message{
			ID:               rec.ID,
			CreatedAt:        rec.CreatedAt,
			UserContent:      rec.UserContent,
			AssistantContent: rec.AssistantContent,
			TokenCost:        rec.TokenCost,
			ParentSummaryID:  copyID(rec.ParentSummaryID),
		}); err != nil {
			return fmt.Errorf("import message %s: %w", rec.ID, err)
		}
	}

	return nil
}

// Encode marshals the document as indented JSON.
func (d *Document) Encode() ([]byte, error) {
	return json.MarshalIndent(d, "", "  ")
}

// Decode parses and validates an interchange document.
func Decode(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Validate checks the version, id uniqueness per collection, and basic
// field sanity.
func (d *Document) Validate() error {
	if d.Version != DocumentVersion {
		return fmt.Errorf("unsupported document version %d, want %d", d.Version, DocumentVersion)
	}

	seenMessages := make(map[uuid.UUID]struct{}, len(d.Messages))
	for i := range d.Messages {
		rec := &d.Messages[i]
		if _, ok := seenMessages[rec.ID]; ok {
			return fmt.Errorf("duplicate message id %s", rec.ID)
		}
		seenMessages[rec.ID] = struct{}{}
		if rec.TokenCost < 0 {
			return fmt.Errorf("message %s: negative token cost", rec.ID)
		}
	}

	seenSummaries := make(map[uuid.UUID]struct{}, len(d.Summaries))
	for i := range d.Summaries {
		rec := &d.Summaries[i]
		if _, ok := seenSummaries[rec.ID]; ok {
			return fmt.Errorf("duplicate summary id %s", rec.ID)
		}
		seenSummaries[rec.ID] = struct{}{}
		if rec.Level < 1 {
			return fmt.Errorf("summary %s: level must be >= 1", rec.ID)
		}
		if rec.TokenCost < 0 {
			return fmt.Errorf("summary %s: negative token cost", rec.ID)
		}
	}

	return nil
}

func copyID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	c := *id
	return &c
}
