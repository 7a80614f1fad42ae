package timeline

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestMergeActiveChronologicalOrder(t *testing.T) {
	t1 := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)
	t3 := t2.Add(time.Hour)

	msg := &Message{ID: uuid.New(), CreatedAt: t2, TokenCost: 10}
	sum := &Summary{ID: uuid.New(), DateFrom: t1, DateTo: t3, Level: 1, TokenCost: 5}

	records := MergeActive([]*Message{msg}, []*Summary{sum})
	if len(records) != 2 {
		t.Fatalf("MergeActive() returned %d records, want 2", len(records))
	}
	// The summary orders by DateTo, which is after the message.
	if records[0].Kind() != KindMessage || records[1].Kind() != KindSummary {
		t.Errorf("order = [%v, %v], want [message, summary]", records[0].Kind(), records[1].Kind())
	}
}

// An imported message and summary with ordering timestamps T1 < T2 come out
// as [message, summary] regardless of which collection they arrived in.
func TestMergeActiveImportedPair(t *testing.T) {
	t1 := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	msg := &Message{ID: uuid.New(), CreatedAt: t1, TokenCost: 10}
	sum := &Summary{ID: uuid.New(), DateFrom: t1.Add(-time.Hour), DateTo: t2, Level: 1, TokenCost: 5}

	records := MergeActive([]*Message{msg}, []*Summary{sum})
	if len(records) != 2 {
		t.Fatalf("MergeActive() returned %d records, want 2", len(records))
	}
	if records[0].RecordID() != msg.ID {
		t.Errorf("first record = %s, want the message %s", records[0].RecordID(), msg.ID)
	}
	if records[1].RecordID() != sum.ID {
		t.Errorf("second record = %s, want the summary %s", records[1].RecordID(), sum.ID)
	}
}

func TestMergeActiveTieBreakIsDeterministic(t *testing.T) {
	at := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	m1 := &Message{ID: uuid.MustParse("00000000-0000-0000-0000-000000000001"), CreatedAt: at}
	m2 := &Message{ID: uuid.MustParse("00000000-0000-0000-0000-000000000002"), CreatedAt: at}
	sum := &Summary{ID: uuid.MustParse("00000000-0000-0000-0000-000000000000"), DateFrom: at, DateTo: at, Level: 1}

	a := MergeActive([]*Message{m1, m2}, []*Summary{sum})
	b := MergeActive([]*Message{m2, m1}, []*Summary{sum})

	for i := range a {
		if a[i].RecordID() != b[i].RecordID() {
			t.Fatalf("ordering depends on input order at index %d: %s vs %s",
				i, a[i].RecordID(), b[i].RecordID())
		}
	}

	// Equal timestamps: messages first, then id order, even though the
	// summary's id sorts lowest.
	if a[0].RecordID() != m1.ID || a[1].RecordID() != m2.ID || a[2].RecordID() != sum.ID {
		t.Errorf("tie-break order = [%s, %s, %s], want messages by id then summary",
			a[0].RecordID(), a[1].RecordID(), a[2].RecordID())
	}
}

func TestRecordAccessors(t *testing.T) {
	at := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	parent := uuid.New()

	msg := &Message{ID: uuid.New(), CreatedAt: at, TokenCost: 42}
	if msg.Kind() != KindMessage || msg.CompactionLevel() != 0 || msg.Cost() != 42 {
		t.Errorf("message accessors: kind=%v level=%d cost=%d", msg.Kind(), msg.CompactionLevel(), msg.Cost())
	}
	if !msg.Active() {
		t.Error("unparented message should be active")
	}
	msg.ParentSummaryID = &parent
	if msg.Active() {
		t.Error("parented message should not be active")
	}

	sum := &Summary{ID: uuid.New(), DateFrom: at, DateTo: at.Add(time.Hour), Level: 3, TokenCost: 7}
	if sum.Kind() != KindSummary || sum.CompactionLevel() != 3 || sum.Cost() != 7 {
		t.Errorf("summary accessors: kind=%v level=%d cost=%d", sum.Kind(), sum.CompactionLevel(), sum.Cost())
	}
	if !sum.OrderedAt().Equal(at.Add(time.Hour)) {
		t.Errorf("summary OrderedAt() = %v, want DateTo", sum.OrderedAt())
	}
}

func TestTotalCost(t *testing.T) {
	at := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	records := []Record{
		&Message{ID: uuid.New(), CreatedAt: at, TokenCost: 100},
		&Summary{ID: uuid.New(), DateTo: at, Level: 1, TokenCost: 50},
	}
	if got := TotalCost(records); got != 150 {
		t.Errorf("TotalCost() = %d, want 150", got)
	}
}
