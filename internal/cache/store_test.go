package cache

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/paperfuse/core/internal/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s, err := Open(db)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	return s
}

func TestGetMissReturnsNil(t *testing.T) {
	s := newTestStore(t)
	got, err := s.Get("paper-1", "hash-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected miss, got %+v", got)
	}
}

func TestSaveThenGetRoundTrips(t *testing.T) {
	s := newTestStore(t)
	want := types.RelevanceResult{Score: 77, Reason: "fits", SuggestedTags: []string{"a", "b"}}
	if err := s.Save("paper-1", "hash-a", want); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := s.Get("paper-1", "hash-a")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Score != want.Score || got.Reason != want.Reason {
		t.Fatalf("got %+v, want %+v", got, want)
	}
}

func TestSaveIsUpsert(t *testing.T) {
	s := newTestStore(t)
	_ = s.Save("paper-1", "hash-a", types.RelevanceResult{Score: 10})
	_ = s.Save("paper-1", "hash-a", types.RelevanceResult{Score: 90})

	got, _ := s.Get("paper-1", "hash-a")
	if got == nil || got.Score != 90 {
		t.Fatalf("expected upsert to replace, got %+v", got)
	}

	stats, err := s.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 1 {
		t.Fatalf("expected exactly one row after upsert, got %d", stats.Total)
	}
}

func TestClearForTopicsOnlyAffectsMatchingHash(t *testing.T) {
	s := newTestStore(t)
	_ = s.Save("paper-1", "hash-a", types.RelevanceResult{Score: 10})
	_ = s.Save("paper-2", "hash-b", types.RelevanceResult{Score: 20})

	n, err := s.ClearForTopics("hash-a")
	if err != nil {
		t.Fatalf("clear: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 deleted, got %d", n)
	}

	if got, _ := s.Get("paper-1", "hash-a"); got != nil {
		t.Fatalf("expected paper-1/hash-a gone, got %+v", got)
	}
	if got, _ := s.Get("paper-2", "hash-b"); got == nil {
		t.Fatal("expected paper-2/hash-b to survive")
	}
}

func TestClearAllRemovesEverything(t *testing.T) {
	s := newTestStore(t)
	_ = s.Save("paper-1", "hash-a", types.RelevanceResult{Score: 10})
	_ = s.Save("paper-2", "hash-b", types.RelevanceResult{Score: 20})

	n, err := s.ClearAll()
	if err != nil {
		t.Fatalf("clear all: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 deleted, got %d", n)
	}

	stats, _ := s.Stats()
	if stats.Total != 0 {
		t.Fatalf("expected empty cache, got %d", stats.Total)
	}
}

func TestTopicsHashDeterministicOrderIndependent(t *testing.T) {
	a := []types.TopicConfig{
		{Key: "b", Label: "B", Keywords: []string{"x"}},
		{Key: "a", Label: "A", ArxivCategories: []string{"cs.AI"}},
	}
	b := []types.TopicConfig{
		{Key: "a", Label: "A", ArxivCategories: []string{"cs.AI"}},
		{Key: "b", Label: "B", Keywords: []string{"x"}},
	}
	if TopicsHash(a) != TopicsHash(b) {
		t.Fatal("expected hash to be independent of input order")
	}
}

func TestTopicsHashChangesWithContent(t *testing.T) {
	a := []types.TopicConfig{{Key: "a", Label: "A"}}
	b := []types.TopicConfig{{Key: "a", Label: "A changed"}}
	if TopicsHash(a) == TopicsHash(b) {
		t.Fatal("expected hash to change when topic content changes")
	}
}

func TestInvalidateIfChangedSkipsWhenSameHash(t *testing.T) {
	s := newTestStore(t)
	_ = s.Save("paper-1", "hash-a", types.RelevanceResult{Score: 10})

	n, err := InvalidateIfChanged(s, "hash-a", "hash-a")
	if err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no-op, got %d deleted", n)
	}
	if got, _ := s.Get("paper-1", "hash-a"); got == nil {
		t.Fatal("expected entry to survive unchanged hash")
	}
}

func TestInvalidateIfChangedClearsOnDifferentHash(t *testing.T) {
	s := newTestStore(t)
	_ = s.Save("paper-1", "hash-a", types.RelevanceResult{Score: 10})

	n, err := InvalidateIfChanged(s, "hash-a", "hash-b")
	if err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 deleted, got %d", n)
	}
}
