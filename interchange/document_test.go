package interchange

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/foldpg/foldpg/timeline"
)

func seedStore(t *testing.T) (*timeline.MemoryStore, *timeline.Message, *timeline.Message, *timeline.Summary) {
	t.Helper()
	ctx := context.Background()
	store := timeline.NewMemoryStore()
	base := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	sum := &timeline.Summary{
		ID:        uuid.New(),
		DateFrom:  base.Add(-2 * time.Hour),
		DateTo:    base.Add(-time.Hour),
		Content:   "what came before",
		Level:     1,
		TokenCost: 40,
	}
	if err := store.AppendSummary(ctx, sum); err != nil {
		t.Fatalf("AppendSummary() error = %v", err)
	}

	folded := &timeline.Message{
		ID:               uuid.New(),
		CreatedAt:        base.Add(-90 * time.Minute),
		UserContent:      "old question",
		AssistantContent: "old answer",
		TokenCost:        25,
		ParentSummaryID:  &sum.ID,
	}
	active := &timeline.Message{
		ID:               uuid.New(),
		CreatedAt:        base,
		UserContent:      "new question",
		AssistantContent: "new answer",
		TokenCost:        30,
	}
	for _, m := range []*timeline.Message{folded, active} {
		if err := store.AppendMessage(ctx, m); err != nil {
			t.Fatalf("AppendMessage() error = %v", err)
		}
	}

	return store, folded, active, sum
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, folded, active, sum := seedStore(t)

	doc, err := Export(ctx, store)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if doc.Version != DocumentVersion {
		t.Errorf("exported version = %d, want %d", doc.Version, DocumentVersion)
	}
	if len(doc.Messages) != 2 || len(doc.Summaries) != 1 {
		t.Fatalf("exported %d messages / %d summaries, want 2 / 1", len(doc.Messages), len(doc.Summaries))
	}

	data, err := doc.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	restored := timeline.NewMemoryStore()
	if err := Import(ctx, restored, decoded); err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	messages, _ := restored.ListAllMessages(ctx)
	if len(messages) != 2 {
		t.Fatalf("restored %d messages, want 2", len(messages))
	}
	for _, m := range messages {
		switch m.ID {
		case folded.ID:
			if m.ParentSummaryID == nil || *m.ParentSummaryID != sum.ID {
				t.Errorf("folded message parent = %v, want %s", m.ParentSummaryID, sum.ID)
			}
			if m.UserContent != "old question" || m.TokenCost != 25 {
				t.Errorf("folded message round-trip = %+v", m)
			}
		case active.ID:
			if m.ParentSummaryID != nil {
				t.Errorf("active message parent = %v, want nil", m.ParentSummaryID)
			}
		default:
			t.Errorf("unexpected message id %s", m.ID)
		}
	}

	summaries, _ := restored.ListAllSummaries(ctx)
	if len(summaries) != 1 || summaries[0].Content != "what came before" || summaries[0].Level != 1 {
		t.Errorf("restored summaries = %v", summaries)
	}

	// Active set identical after the round trip.
	activeMsgs, _ := restored.ListActiveMessages(ctx)
	if len(activeMsgs) != 1 || activeMsgs[0].ID != active.ID {
		t.Errorf("restored active messages = %v, want only the unparented one", activeMsgs)
	}
}

// Absent parents serialize as an explicit null, never a sentinel value.
func TestEncodeUsesExplicitNullParents(t *testing.T) {
	ctx := context.Background()
	store, _, active, _ := seedStore(t)

	doc, err := Export(ctx, store)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	data, err := doc.Encode()
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	var raw struct {
		Messages []map[string]json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	for _, m := range raw.Messages {
		parent, ok := m["parentSummaryId"]
		if !ok {
			t.Fatal("parentSummaryId key missing from encoded message")
		}
		var id string
		if string(parent) == "null" {
			continue
		}
		if err := json.Unmarshal(parent, &id); err != nil {
			t.Fatalf("parentSummaryId = %s, want a uuid string or null", parent)
		}
	}

	if !strings.Contains(string(data), `"parentSummaryId": null`) {
		t.Errorf("active message %s should encode a literal null parent:\n%s", active.ID, data)
	}
}

func TestDecodeRejectsBadDocuments(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name string
		doc  Document
	}{
		{
			name: "wrong version",
			doc:  Document{Version: 99},
		},
		{
			name: "duplicate message ids",
			doc: Document{
				Version: DocumentVersion,
				Messages: []MessageRecord{
					{ID: id}, {ID: id},
				},
			},
		},
		{
			name: "duplicate summary ids",
			doc: Document{
				Version: DocumentVersion,
				Summaries: []SummaryRecord{
					{ID: id, Level: 1}, {ID: id, Level: 1},
				},
			},
		},
		{
			name: "negative token cost",
			doc: Document{
				Version:  DocumentVersion,
				Messages: []MessageRecord{{ID: id, TokenCost: -1}},
			},
		},
		{
			name: "summary level zero",
			doc: Document{
				Version:   DocumentVersion,
				Summaries: []SummaryRecord{{ID: id, Level: 0}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.doc)
			if err != nil {
				t.Fatalf("Marshal() error = %v", err)
			}
			if _, err := Decode(data); err == nil {
				t.Error("Decode() accepted an invalid document")
			}
		})
	}
}

func TestImportRejectsDuplicates(t *testing.T) {
	ctx := context.Background()
	store, _, _, _ := seedStore(t)

	doc, err := Export(ctx, store)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	// Importing into the same store collides on every id.
	err = Import(ctx, store, doc)
	if !errors.Is(err, timeline.ErrDuplicateID) {
		t.Errorf("Import() error = %v, want ErrDuplicateID", err)
	}
}
