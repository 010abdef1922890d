package fetchmanager

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/paperfuse/core/internal/types"
)

func newTestHistoryStore(t *testing.T) *HistoryStore {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s, err := OpenHistoryStore(db)
	if err != nil {
		t.Fatalf("open history store: %v", err)
	}
	return s
}

func TestStartThenCompleteHistoryRoundTrips(t *testing.T) {
	s := newTestHistoryStore(t)

	id, err := s.Start(types.TriggerManual)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	counters := types.FetchCounters{Found: 10, Saved: 6, Filtered: 3, Duplicates: 1, CacheHits: 2}
	saved := []types.PaperSummary{{ID: "p1", Title: "Paper One", ArxivID: "2501.00001"}}
	if err := s.Complete(id, types.RunCompleted, counters, saved, ""); err != nil {
		t.Fatalf("complete: %v", err)
	}

	recent, err := s.Recent(5)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 1 {
		t.Fatalf("expected 1 history row, got %d", len(recent))
	}
	got := recent[0]
	if got.Status != types.RunCompleted || got.Trigger != types.TriggerManual {
		t.Fatalf("unexpected row: %+v", got)
	}
	if got.PapersSaved != 6 || got.PapersFound != 10 {
		t.Fatalf("unexpected counters: %+v", got)
	}
	if len(got.Papers) != 1 || got.Papers[0].ArxivID != "2501.00001" {
		t.Fatalf("unexpected saved papers: %+v", got.Papers)
	}
}

func TestCompleteWithErrorMessagePersists(t *testing.T) {
	s := newTestHistoryStore(t)
	id, _ := s.Start(types.TriggerScheduled)

	if err := s.Complete(id, types.RunFailed, types.FetchCounters{}, nil, "arxiv request failed"); err != nil {
		t.Fatalf("complete: %v", err)
	}

	recent, err := s.Recent(1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if recent[0].ErrorMessage != "arxiv request failed" {
		t.Fatalf("expected error message to persist, got %q", recent[0].ErrorMessage)
	}
}

func TestDeleteRemovesHistoryEntry(t *testing.T) {
	s := newTestHistoryStore(t)
	id, _ := s.Start(types.TriggerManual)

	if err := s.Delete(id); err != nil {
		t.Fatalf("delete: %v", err)
	}

	recent, err := s.Recent(10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 0 {
		t.Fatalf("expected no history rows after delete, got %d", len(recent))
	}
}

func TestRecentOrdersMostRecentFirst(t *testing.T) {
	s := newTestHistoryStore(t)
	id1, _ := s.Start(types.TriggerManual)
	_ = s.Complete(id1, types.RunCompleted, types.FetchCounters{}, nil, "")
	id2, _ := s.Start(types.TriggerManual)
	_ = s.Complete(id2, types.RunCompleted, types.FetchCounters{}, nil, "")

	recent, err := s.Recent(10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(recent))
	}
	if recent[0].ID != id2 || recent[1].ID != id1 {
		t.Fatalf("expected most recent run first, got %s then %s", recent[0].ID, recent[1].ID)
	}
}
