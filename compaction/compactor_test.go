package compaction

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/foldpg/foldpg/provider"
	"github.com/foldpg/foldpg/timeline"
)

// fakeCompletion returns a canned condensed narrative and records the last
// request it saw.
type fakeCompletion struct {
	content string
	err     error
	lastReq provider.Request
	calls   int
}

func (f *fakeCompletion) Complete(_ context.Context, req provider.Request) (*provider.Response, error) {
	f.calls++
	f.lastReq = req
	if f.err != nil {
		return nil, f.err
	}
	return &provider.Response{Choices: []provider.Choice{{Content: f.content}}}, nil
}

// fakeCost prices any text at a fixed token count.
type fakeCost struct {
	tokens int
	err    error
}

func (f *fakeCost) CountTokens(_ context.Context, _ string) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.tokens, nil
}

func testConfig(budget int) *Config {
	return &Config{
		Budget:          budget,
		SummarizerModel: "test-model",
	}
}

func appendMessages(t *testing.T, store *timeline.MemoryStore, base time.Time, costs ...int) []*timeline.Message {
	t.Helper()
	ctx := context.Background()

	var msgs []*timeline.Message
	for i, cost := range costs {
		msg := &timeline.Message{
			ID:               uuid.New(),
			CreatedAt:        base.Add(time.Duration(i) * time.Minute),
			UserContent:      "question",
			AssistantContent: "answer",
			TokenCost:        cost,
		}
		if err := store.AppendMessage(ctx, msg); err != nil {
			t.Fatalf("AppendMessage() error = %v", err)
		}
		msgs = append(msgs, msg)
	}
	return msgs
}

func TestNewValidatesConfig(t *testing.T) {
	store := timeline.NewMemoryStore()

	_, err := New(store, &fakeCompletion{}, &fakeCost{}, &Config{Budget: -1, SummarizerModel: "m"}, nil)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("New() error = %v, want ErrInvalidConfig", err)
	}

	_, err = New(store, &fakeCompletion{}, &fakeCost{}, &Config{Budget: 100}, nil)
	if !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("New() without summarizer model error = %v, want ErrInvalidConfig", err)
	}
}

func TestRunNoOpLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	store := timeline.NewMemoryStore()
	base := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	appendMessages(t, store, base, 500, 500)

	completion := &fakeCompletion{content: "condensed"}
	c, err := New(store, completion, &fakeCost{tokens: 50}, testConfig(1000), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	result, err := c.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result != nil {
		t.Fatalf("Run() = %+v, want nil result under budget", result)
	}
	if completion.calls != 0 {
		t.Errorf("provider called %d times on a no-op pass", completion.calls)
	}

	summaries, _ := store.ListAllSummaries(ctx)
	if len(summaries) != 0 {
		t.Errorf("store has %d summaries after no-op, want 0", len(summaries))
	}
}

func TestRunFoldsOlderHalf(t *testing.T) {
	ctx := context.Background()
	store := timeline.NewMemoryStore()
	base := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	msgs := appendMessages(t, store, base, 1000, 1000)

	completion := &fakeCompletion{content: "what happened earlier"}
	c, err := New(store, completion, &fakeCost{tokens: 120}, testConfig(1000), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	result, err := c.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result == nil {
		t.Fatal("Run() = nil, want a compaction result")
	}

	if result.Summary.Level != 1 {
		t.Errorf("summary level = %d, want 1", result.Summary.Level)
	}
	if result.Summary.Content != "what happened earlier" {
		t.Errorf("summary content = %q", result.Summary.Content)
	}
	if result.Summary.TokenCost != 120 {
		t.Errorf("summary cost = %d, want 120 (condensed text priced alone)", result.Summary.TokenCost)
	}
	if !result.Summary.DateFrom.Equal(msgs[0].CreatedAt) || !result.Summary.DateTo.Equal(msgs[0].CreatedAt) {
		t.Errorf("summary span = [%v, %v], want the single source's timestamp",
			result.Summary.DateFrom, result.Summary.DateTo)
	}
	if len(result.SourceMessageIDs) != 1 || result.SourceMessageIDs[0] != msgs[0].ID {
		t.Errorf("source message ids = %v, want [%s]", result.SourceMessageIDs, msgs[0].ID)
	}
	if result.CostBefore != 1000 || result.CostAfter != 120 {
		t.Errorf("cost before/after = %d/%d, want 1000/120", result.CostBefore, result.CostAfter)
	}

	// m1 folded, m2 still active, S1 active.
	active, _ := store.ListActiveMessages(ctx)
	if len(active) != 1 || active[0].ID != msgs[1].ID {
		t.Fatalf("active messages = %v, want only m2", active)
	}
	activeSums, _ := store.ListActiveSummaries(ctx)
	if len(activeSums) != 1 || activeSums[0].ID != result.Summary.ID {
		t.Fatalf("active summaries = %v, want only the new summary", activeSums)
	}

	all, _ := store.ListAllMessages(ctx)
	for _, msg := range all {
		if msg.ID == msgs[0].ID {
			if msg.ParentSummaryID == nil || *msg.ParentSummaryID != result.Summary.ID {
				t.Errorf("m1 parent = %v, want %s", msg.ParentSummaryID, result.Summary.ID)
			}
		}
	}

	// The condensing request runs against the summarizer settings.
	if completion.lastReq.Model != "test-model" {
		t.Errorf("summarizer model = %q, want test-model", completion.lastReq.Model)
	}
	if completion.lastReq.Temperature != 0 {
		t.Errorf("summarizer temperature = %v, want 0", completion.lastReq.Temperature)
	}
	if !strings.Contains(completion.lastReq.Messages[1].Content, "question") {
		t.Errorf("condense prompt does not carry the transcript: %q", completion.lastReq.Messages[1].Content)
	}
}

func TestRunFoldsSummariesIntoHigherLevel(t *testing.T) {
	ctx := context.Background()
	store := timeline.NewMemoryStore()
	base := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	s1 := &timeline.Summary{
		ID: uuid.New(), DateFrom: base, DateTo: base.Add(time.Hour),
		Content: "first span", Level: 1, TokenCost: 1500,
	}
	s2 := &timeline.Summary{
		ID: uuid.New(), DateFrom: base.Add(time.Hour), DateTo: base.Add(2 * time.Hour),
		Content: "second span", Level: 1, TokenCost: 1500,
	}
	for _, s := range []*timeline.Summary{s1, s2} {
		if err := store.AppendSummary(ctx, s); err != nil {
			t.Fatalf("AppendSummary() error = %v", err)
		}
	}

	c, err := New(store, &fakeCompletion{content: "both spans"}, &fakeCost{tokens: 200}, testConfig(1000), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	result, err := c.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result == nil {
		t.Fatal("Run() = nil, want a compaction result")
	}
	if result.Summary.Level != 2 {
		t.Errorf("summary level = %d, want 2", result.Summary.Level)
	}
	if len(result.SourceSummaryIDs) != 1 || result.SourceSummaryIDs[0] != s1.ID {
		t.Errorf("source summary ids = %v, want [%s]", result.SourceSummaryIDs, s1.ID)
	}
	if !result.Summary.DateFrom.Equal(s1.DateTo) || !result.Summary.DateTo.Equal(s1.DateTo) {
		t.Errorf("summary span = [%v, %v], want the source's ordering timestamp",
			result.Summary.DateFrom, result.Summary.DateTo)
	}
}

func TestApplyRejectsMixedLevels(t *testing.T) {
	ctx := context.Background()
	store := timeline.NewMemoryStore()
	base := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	completion := &fakeCompletion{content: "condensed"}
	c, err := New(store, completion, &fakeCost{tokens: 10}, testConfig(1000), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	selected := []timeline.Record{
		msgAt(base, 100),
		sumAt(base.Add(time.Minute), 1, 100),
	}
	_, err = c.Apply(ctx, selected)
	if !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("Apply() error = %v, want ErrInvariantViolation", err)
	}
	if completion.calls != 0 {
		t.Errorf("provider called %d times on a rejected selection", completion.calls)
	}
}

func TestApplyRejectsEmptySelection(t *testing.T) {
	c, err := New(timeline.NewMemoryStore(), &fakeCompletion{content: "x"}, &fakeCost{tokens: 1}, testConfig(1000), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = c.Apply(context.Background(), nil)
	if !errors.Is(err, ErrNothingToCompact) {
		t.Errorf("Apply(nil) error = %v, want ErrNothingToCompact", err)
	}
}

func TestRunCondenseFailureLeavesStoreUntouched(t *testing.T) {
	ctx := context.Background()
	store := timeline.NewMemoryStore()
	base := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)
	msgs := appendMessages(t, store, base, 1000, 1000)

	c, err := New(store, &fakeCompletion{err: errors.New("boom")}, &fakeCost{tokens: 10}, testConfig(1000), nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = c.Run(ctx)
	if !errors.Is(err, ErrCondenseFailed) {
		t.Fatalf("Run() error = %v, want ErrCondenseFailed", err)
	}

	active, _ := store.ListActiveMessages(ctx)
	if len(active) != len(msgs) {
		t.Errorf("active messages = %d after failed condense, want %d", len(active), len(msgs))
	}
	summaries, _ := store.ListAllSummaries(ctx)
	if len(summaries) != 0 {
		t.Errorf("store has %d summaries after failed condense, want 0", len(summaries))
	}
}

func TestFormatTranscript(t *testing.T) {
	base := time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)

	msg := &timeline.Message{
		ID: uuid.New(), CreatedAt: base,
		UserContent: "where were we?", AssistantContent: "reviewing the plan",
		TokenCost: 10,
	}
	sum := &timeline.Summary{
		ID: uuid.New(), DateFrom: base.Add(-2 * time.Hour), DateTo: base.Add(-time.Hour),
		Content: "agreed on the schema", Level: 1, TokenCost: 5,
	}

	got, err := FormatTranscript([]timeline.Record{sum, msg})
	if err != nil {
		t.Fatalf("FormatTranscript() error = %v", err)
	}

	for _, want := range []string{
		"Summary of earlier conversation:\nagreed on the schema",
		"User:\nwhere were we?",
		"Assistant:\nreviewing the plan",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("transcript missing %q:\n%s", want, got)
		}
	}

	// Slice order is preserved.
	if strings.Index(got, "agreed on the schema") > strings.Index(got, "where were we?") {
		t.Errorf("summary should precede the message:\n%s", got)
	}
}
