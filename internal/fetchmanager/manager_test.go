package fetchmanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/paperfuse/core/internal/aiclient"
	"github.com/paperfuse/core/internal/arxiv"
	"github.com/paperfuse/core/internal/cache"
	"github.com/paperfuse/core/internal/latex"
	"github.com/paperfuse/core/internal/paperstore"
	"github.com/paperfuse/core/internal/provider"
	"github.com/paperfuse/core/internal/retry"
	"github.com/paperfuse/core/internal/types"
	"github.com/paperfuse/core/internal/workerpool"
)

type fakeTransport struct {
	text string
	err  error
}

func (f *fakeTransport) Chat(_ context.Context, _ provider.ChatRequest) (provider.ChatResponse, error) {
	if f.err != nil {
		return provider.ChatResponse{}, f.err
	}
	return provider.ChatResponse{Text: f.text}, nil
}

func newTestManager(t *testing.T, relevanceJSON string) (*Manager, *paperstore.Store, *cache.Store) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	papers, err := paperstore.Open(db)
	if err != nil {
		t.Fatalf("open paperstore: %v", err)
	}
	cacheStore, err := cache.Open(db)
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	history, err := OpenHistoryStore(db)
	if err != nil {
		t.Fatalf("open history: %v", err)
	}

	var ai *aiclient.Client
	if relevanceJSON != "" {
		ai = aiclient.NewWithTransport(&fakeTransport{text: relevanceJSON}, "glm", "glm-4-flash", "glm-4-plus")
	}

	m := New(papers, cacheStore, arxiv.NewClient(0), latex.NewDownloader(0), ai, history, nil)
	return m, papers, cacheStore
}

func testEntry(id string) arxiv.Entry {
	return arxiv.Entry{
		ArxivID:    id,
		Title:      "A Paper About Widgets",
		Summary:    "This paper studies widgets.",
		Categories: []string{"cs.LG"},
	}
}

func TestProcessEntryDuplicateIsSkipped(t *testing.T) {
	m, papers, _ := newTestManager(t, "")
	entry := testEntry("2501.00001")

	if _, err := papers.InsertIfAbsent(arxiv.ToPaper(entry)); err != nil {
		t.Fatalf("seed paper: %v", err)
	}

	r := m.processEntry(context.Background(), entry, nil, types.FetchOptions{}, "")
	if r.Outcome != workerpool.OutcomeDuplicate {
		t.Fatalf("expected duplicate outcome, got %+v", r)
	}
}

func TestProcessEntryWithNoAIClientSavesDirectly(t *testing.T) {
	m, papers, _ := newTestManager(t, "")
	entry := testEntry("2501.00002")

	r := m.processEntry(context.Background(), entry, nil, types.FetchOptions{}, "")
	if r.Outcome != workerpool.OutcomeSaved {
		t.Fatalf("expected saved outcome, got %+v", r)
	}

	got, err := papers.Get("2501.00002")
	if err != nil {
		t.Fatalf("get persisted paper: %v", err)
	}
	if got.Title != entry.Title {
		t.Fatalf("unexpected persisted paper: %+v", got)
	}
}

func TestProcessEntryFilteredBelowMinRelevance(t *testing.T) {
	m, _, _ := newTestManager(t, `{"score": 20, "reason": "not relevant"}`)
	entry := testEntry("2501.00003")

	opts := types.FetchOptions{MinRelevance: 50}
	r := m.processEntry(context.Background(), entry, nil, opts, "")
	if r.Outcome != workerpool.OutcomeFiltered {
		t.Fatalf("expected filtered outcome, got %+v", r)
	}
}

func TestProcessEntryFetchByIDGateSkipsRelevanceFilter(t *testing.T) {
	m, papers, _ := newTestManager(t, `{"score": 10, "reason": "low score but gate is off"}`)
	entry := testEntry("2501.00004")

	opts := types.FetchOptions{MinRelevance: 50, FetchByIDGate: true}
	r := m.processEntry(context.Background(), entry, nil, opts, "")
	if r.Outcome != workerpool.OutcomeSaved {
		t.Fatalf("expected saved outcome with gate disabled, got %+v", r)
	}
	if _, err := papers.Get("2501.00004"); err != nil {
		t.Fatalf("expected paper persisted: %v", err)
	}
}

func TestProcessEntryRelevanceCacheHitSkipsSecondLLMCall(t *testing.T) {
	m, _, cacheStore := newTestManager(t, `{"score": 80, "reason": "relevant", "suggested_tags": ["x"]}`)
	entry := testEntry("2501.00005")
	opts := types.FetchOptions{MinRelevance: 50}

	hash := cache.TopicsHash(nil)
	if err := cacheStore.Save(entry.ArxivID, hash, types.RelevanceResult{Score: 90, Reason: "cached"}); err != nil {
		t.Fatalf("seed cache: %v", err)
	}

	r := m.processEntry(context.Background(), entry, nil, opts, "")
	if !r.CacheHit {
		t.Fatalf("expected cache hit, got %+v", r)
	}
	if r.Outcome != workerpool.OutcomeSaved {
		t.Fatalf("expected saved outcome, got %+v", r)
	}
}

func TestProcessEntryDeepAnalysisWithoutLatexDirIncompleteInFullMode(t *testing.T) {
	m, papers, _ := newTestManager(t, `{"score": 90, "reason": "great fit"}`)
	entry := testEntry("2501.00006")

	opts := types.FetchOptions{
		MinRelevance:          50,
		DeepAnalysis:          true,
		DeepAnalysisThreshold: 70,
		AnalysisMode:          types.AnalysisModeFull,
	}
	r := m.processEntry(context.Background(), entry, nil, opts, "")
	if r.Outcome != workerpool.OutcomeSaved {
		t.Fatalf("expected saved outcome, got %+v", r)
	}
	got, err := papers.Get("2501.00006")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.AnalysisIncomplete {
		t.Fatalf("expected analysis_incomplete when no latex dir is configured")
	}
}

func TestProcessEntryDeepAnalysisStandardFallsBackToAbstract(t *testing.T) {
	m, papers, _ := newTestManager(t, `{"score": 90, "reason": "great fit"}`)
	entry := testEntry("2501.00007")

	opts := types.FetchOptions{
		MinRelevance:          50,
		DeepAnalysis:          true,
		DeepAnalysisThreshold: 70,
		AnalysisMode:          types.AnalysisModeStandard,
	}
	r := m.processEntry(context.Background(), entry, nil, opts, "")
	if r.Outcome != workerpool.OutcomeSaved {
		t.Fatalf("expected saved outcome, got %+v", r)
	}
	got, err := papers.Get("2501.00007")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !got.IsDeepAnalyzed || !got.AnalysisIncomplete {
		t.Fatalf("expected deep-analyzed-with-fallback paper, got %+v", got.Enrichment)
	}
}

func TestProcessEntryDatabaseErrorIsClassified(t *testing.T) {
	m, _, _ := newTestManager(t, "")
	m.papers.DB().Close() // force every subsequent query to fail

	entry := testEntry("2501.00008")
	r := m.processEntry(context.Background(), entry, nil, types.FetchOptions{}, "")
	if r.Outcome != workerpool.OutcomeError {
		t.Fatalf("expected error outcome, got %+v", r)
	}
	var fe *Error
	if !errors.As(r.Err, &fe) || fe.Kind == "" {
		t.Fatalf("expected classified Error, got %v", r.Err)
	}
}

func TestGuardPreventsConcurrentFetchPapersCalls(t *testing.T) {
	m, _, _ := newTestManager(t, "")

	_, release, err := m.guard.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer release()

	_, err = m.FetchPapers(context.Background(), types.FetchOptions{FetchByID: true, IDs: []string{"x"}}, nil, types.TriggerManual, retry.Config{}, "", nil)
	if !errors.Is(err, ErrAlreadyFetching) {
		t.Fatalf("expected ErrAlreadyFetching, got %v", err)
	}
}

func TestFetchPapersCancelledBeforeFetchRecordsCancelledHistory(t *testing.T) {
	m, _, _ := newTestManager(t, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.FetchPapers(ctx, types.FetchOptions{FetchByID: true, IDs: []string{"x"}}, nil, types.TriggerManual, retry.Config{}, "", nil)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("expected ErrCancelled, got %v", err)
	}

	recent, herr := m.history.Recent(1)
	if herr != nil {
		t.Fatalf("recent history: %v", herr)
	}
	if len(recent) != 1 || recent[0].Status != types.RunCancelled {
		t.Fatalf("expected one cancelled history row, got %+v", recent)
	}
}
