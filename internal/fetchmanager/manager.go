// Package fetchmanager implements the Fetch Manager (spec §4.G): the
// lifecycle owner that acquires the exclusive fetch guard, resolves and
// downloads ArXiv metadata, dispatches per-entry processing to either the
// Worker Pool (async mode) or a sequential loop, emits FetchStatus
// snapshots through a caller-supplied callback, and records FetchHistory.
// Grounded on original_source/src-tauri/src/fetch/mod.rs — the guard
// (§4.G.1), process_paper (§4.G.2), and fetch_papers/process_papers_async
// orchestration (§4.G.3) this package directly ports into idiomatic Go.
package fetchmanager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/paperfuse/core/internal/aiclient"
	"github.com/paperfuse/core/internal/arxiv"
	"github.com/paperfuse/core/internal/cache"
	"github.com/paperfuse/core/internal/latex"
	"github.com/paperfuse/core/internal/paperstore"
	"github.com/paperfuse/core/internal/queue"
	"github.com/paperfuse/core/internal/retry"
	"github.com/paperfuse/core/internal/types"
	"github.com/paperfuse/core/internal/workerpool"
)

// EmitFunc receives a cloned FetchStatus snapshot at each transition (spec
// §4.G.3: "starting -> fetching -> fetched -> processing (N times) ->
// completed"). May be nil.
type EmitFunc func(types.FetchStatus)

// Manager owns one Guard and the collaborators a fetch needs: the paper
// store, classification cache, ArXiv client, LaTeX downloader, an optional
// AI Client, and the FetchHistory audit log.
type Manager struct {
	guard   *Guard
	papers  *paperstore.Store
	cache   *cache.Store
	arxiv   *arxiv.Client
	latex   *latex.Downloader
	history *HistoryStore
	ai      *aiclient.Client // nil: no API key configured (spec §4.G.2 step 4)
	log     *slog.Logger
}

// New constructs a Manager. ai may be nil when no provider credential is
// configured; retryCfg, if non-nil, is attached to ai via
// Client.WithRetryConfig (spec §4.G.3 "read retry config from settings;
// attach it to the AI client if present").
func New(papers *paperstore.Store, cacheStore *cache.Store, arxivClient *arxiv.Client, latexDownloader *latex.Downloader, ai *aiclient.Client, history *HistoryStore, retryCfg *retry.Config) *Manager {
	if ai != nil && retryCfg != nil {
		ai = ai.WithRetryConfig(*retryCfg)
	}
	return &Manager{
		guard:   NewGuard(),
		papers:  papers,
		cache:   cacheStore,
		arxiv:   arxivClient,
		latex:   latexDownloader,
		history: history,
		ai:      ai,
		log:     slog.Default().With("component", "fetchmanager"),
	}
}

// IsFetching reports whether a fetch is currently in progress.
func (m *Manager) IsFetching() bool { return m.guard.IsFetching() }

// Cancel requests cancellation of the active fetch, if any.
func (m *Manager) Cancel() error { return m.guard.Cancel() }

// latexDir resolves the configured LaTeX download directory, defaulting to
// <home>/Documents/PaperFuse/latex and creating it if absent (spec §4.G.3).
func latexDir(configured string) (string, error) {
	if configured != "" {
		if err := os.MkdirAll(configured, 0o755); err != nil {
			return "", fmt.Errorf("create latex download dir: %w", err)
		}
		return configured, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	dir := filepath.Join(home, "Documents", "PaperFuse", "latex")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create latex download dir: %w", err)
	}
	return dir, nil
}

// FetchPapers is the single entrypoint: acquires the guard, resolves
// metadata, dispatches processing, emits status, and records FetchHistory.
// Concurrent calls beyond the first return ErrAlreadyFetching.
func (m *Manager) FetchPapers(ctx context.Context, opts types.FetchOptions, topics []types.TopicConfig, trigger types.FetchHistoryTrigger, retryCfg retry.Config, latexDownloadDir string, emit EmitFunc) (workerpool.Aggregate, error) {
	runCtx, release, err := m.guard.Acquire(ctx)
	if err != nil {
		return workerpool.Aggregate{}, err
	}
	defer release()

	if m.ai != nil {
		m.ai = m.ai.WithRetryConfig(retryCfg)
	}

	historyID, histErr := m.history.Start(trigger)
	if histErr != nil {
		m.log.Warn("failed to start fetch history entry", "error", histErr)
	}

	emitStatus(emit, types.FetchStatus{Phase: types.PhaseStarting, CurrentStep: "Initializing fetch..."})

	if err := checkCancelled(runCtx); err != nil {
		m.completeHistory(historyID, types.RunCancelled, workerpool.Aggregate{}, err)
		return workerpool.Aggregate{}, err
	}

	dir, err := latexDir(latexDownloadDir)
	if err != nil {
		m.log.Warn("latex download directory unavailable, deep analysis will fall back", "error", err)
		dir = ""
	}

	entries, err := m.resolveEntries(runCtx, opts, emit)
	if err != nil {
		m.completeHistory(historyID, types.RunFailed, workerpool.Aggregate{}, err)
		return workerpool.Aggregate{}, err
	}

	emitStatus(emit, types.FetchStatus{
		Phase:       types.PhaseFetched,
		Progress:    0.1,
		CurrentStep: "Metadata fetched",
		Counters:    types.FetchCounters{Found: len(entries)},
	})

	if opts.FetchByID {
		if existing, err := m.papers.ExistByIDs(idsOf(entries)); err == nil && len(existing) > 0 {
			m.log.Info("prefilter found existing papers", "count", len(existing))
		}
	}

	async := opts.AsyncMode == "async" && m.ai != nil
	var agg workerpool.Aggregate
	if async {
		agg, err = m.processAsync(runCtx, entries, topics, opts, dir, emit)
	} else {
		agg, err = m.processSequential(runCtx, entries, topics, opts, dir, emit)
	}

	agg.Counters.Found = len(entries)

	finalStatus := statusFor(agg, len(entries), err)
	emitStatus(emit, finalStatus)

	status := types.RunCompleted
	if err != nil {
		if errors.Is(err, context.Canceled) || isCancelledErr(err) {
			status = types.RunCancelled
		} else {
			status = types.RunFailed
		}
	}
	m.completeHistory(historyID, status, agg, err)

	return agg, err
}

func (m *Manager) completeHistory(id string, status types.ScheduleRunStatus, agg workerpool.Aggregate, err error) {
	if id == "" {
		return
	}
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}
	if herr := m.history.Complete(id, status, agg.Counters, agg.Saved, errMsg); herr != nil {
		m.log.Warn("failed to complete fetch history entry", "error", herr)
	}
}

func idsOf(entries []arxiv.Entry) []string {
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ArxivID
	}
	return ids
}

func emitStatus(emit EmitFunc, s types.FetchStatus) {
	if emit != nil {
		emit(s)
	}
}

func checkCancelled(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ErrCancelled
	default:
		return nil
	}
}

func isCancelledErr(err error) bool {
	var fe *Error
	return errors.As(err, &fe) && fe.Kind == ErrCancelled.Kind
}

func statusFor(agg workerpool.Aggregate, total int, err error) types.FetchStatus {
	phase := types.PhaseCompleted
	if err != nil {
		if isCancelledErr(err) {
			phase = types.PhaseCancelled
		} else {
			phase = types.PhaseError
		}
	}
	completed := agg.Counters.Saved + agg.Counters.Filtered + agg.Counters.Duplicates
	progress := 1.0
	if phase != types.PhaseCompleted {
		if total > 0 {
			progress = 0.1 + clamp(float64(completed)/float64(total), 0, 0.9)*0.8
		} else {
			progress = 0.1
		}
	}
	s := types.FetchStatus{
		Phase:          phase,
		Progress:       progress,
		Counters:       agg.Counters,
		CompletedTasks: completed,
		Errors:         agg.Errors,
		AsyncMode:      false,
	}
	if err != nil {
		s.ErrorMessage = err.Error()
		var fe *Error
		if errors.As(err, &fe) {
			s.ErrorLabel = string(fe.Kind)
		}
	}
	return s
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// resolveEntries computes the effective fetch URL and downloads metadata
// (spec §6 ArXiv wire, §4.G.3 first bullet).
func (m *Manager) resolveEntries(ctx context.Context, opts types.FetchOptions, emit EmitFunc) ([]arxiv.Entry, error) {
	emitStatus(emit, types.FetchStatus{Phase: types.PhaseFetching, Progress: 0.05, CurrentStep: "Fetching ArXiv metadata..."})

	if opts.FetchByID {
		entries, err := m.arxiv.FetchByIDs(ctx, opts.IDs)
		if err != nil {
			return nil, fromArxivError(err)
		}
		return entries, nil
	}

	entries, err := m.arxiv.FetchBySearch(ctx, arxiv.SearchParams{
		Categories: opts.Categories,
		MaxResults: opts.MaxPapers,
		DaysBack:   opts.DaysBack,
		DateFrom:   opts.DateFrom,
		DateTo:     opts.DateTo,
	})
	if err != nil {
		return nil, fromArxivError(err)
	}
	return entries, nil
}

// processSequential runs the per-entry algorithm in fetch order, with
// identical semantics to the async path, emitting progress inline (spec
// §4.G.3 "process sequentially with identical per-entry semantics").
func (m *Manager) processSequential(ctx context.Context, entries []arxiv.Entry, topics []types.TopicConfig, opts types.FetchOptions, latexDownloadDir string, emit EmitFunc) (workerpool.Aggregate, error) {
	var agg workerpool.Aggregate
	total := len(entries)

	for _, entry := range entries {
		if err := checkCancelled(ctx); err != nil {
			return agg, err
		}

		r := m.processEntry(ctx, entry, topics, opts, latexDownloadDir)
		mergeSequential(&agg, r)

		completed := agg.Counters.Saved + agg.Counters.Filtered + agg.Counters.Duplicates
		ratio := 0.0
		if total > 0 {
			ratio = clamp(float64(completed)/float64(total), 0, 0.9)
		}
		emitStatus(emit, types.FetchStatus{
			Phase:          types.PhaseProcessing,
			Progress:       0.1 + ratio*0.8,
			Counters:       agg.Counters,
			CompletedTasks: completed,
			Errors:         agg.Errors,
			AsyncMode:      false,
		})
	}

	return agg, nil
}

func mergeSequential(agg *workerpool.Aggregate, r workerpool.Result) {
	if r.CacheHit {
		agg.Counters.CacheHits++
	}
	switch r.Outcome {
	case workerpool.OutcomeSaved:
		agg.Counters.Saved++
		agg.Counters.Analyzed++
		if r.Paper != nil {
			agg.Saved = append(agg.Saved, *r.Paper)
		}
	case workerpool.OutcomeFiltered:
		agg.Counters.Filtered++
		agg.Counters.Analyzed++
	case workerpool.OutcomeDuplicate:
		agg.Counters.Duplicates++
	case workerpool.OutcomeError:
		if r.Err != nil {
			agg.Errors = append(agg.Errors, r.Err.Error())
		}
	}
}

// processAsync dispatches per-entry processing to the Worker Pool (spec
// §4.F/§4.G.3 "async_mode == async AND an AI client is available").
func (m *Manager) processAsync(ctx context.Context, entries []arxiv.Entry, topics []types.TopicConfig, opts types.FetchOptions, latexDownloadDir string, emit EmitFunc) (workerpool.Aggregate, error) {
	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}

	q := queue.New[arxiv.Entry](len(entries), maxConcurrent)
	q.Enqueue(entries)
	pool := workerpool.New(q, maxConcurrent, len(entries))

	process := func(ctx context.Context, entry arxiv.Entry) workerpool.Result {
		return m.processEntry(ctx, entry, topics, opts, latexDownloadDir)
	}

	agg := pool.Run(ctx, process, workerpool.EmitFunc(emit))

	if err := checkCancelled(ctx); err != nil {
		return agg, err
	}
	return agg, nil
}

// processEntry implements the per-entry algorithm (spec §4.G.2, steps 1-10).
func (m *Manager) processEntry(ctx context.Context, entry arxiv.Entry, topics []types.TopicConfig, opts types.FetchOptions, latexDownloadDir string) workerpool.Result {
	// Step 1: duplicate check by id.
	if _, err := m.papers.Get(entry.ArxivID); err == nil {
		return workerpool.Result{Outcome: workerpool.OutcomeDuplicate}
	} else if !errors.Is(err, paperstore.ErrNotFound()) {
		return workerpool.Result{Outcome: workerpool.OutcomeError, Err: fromDatabaseError(err)}
	}

	// Step 2: construct a Paper.
	paper := arxiv.ToPaper(entry)

	// Step 3: topic prematching.
	var matched []string
	for _, t := range topics {
		if t.Matches(entry.Categories) {
			matched = append(matched, t.Key)
		}
	}
	paper.SetTopics(matched)

	// Step 4: no AI client available.
	if m.ai == nil {
		return m.persist(paper, false)
	}

	language := opts.Language
	if language == "" {
		language = "en"
	}

	// Step 5: Phase 1 relevance, consulting the Classification Cache.
	topicsHash := cache.TopicsHash(topics)
	cacheHit := false
	relevance, err := m.relevance(ctx, paper, topics, language, topicsHash, &cacheHit)
	if err != nil {
		return workerpool.Result{Outcome: workerpool.OutcomeError, CacheHit: cacheHit, Err: fromLlmError(m.ai.Provider(), err)}
	}

	// Step 6: relevance gate (skipped in fetch-by-id mode).
	if !opts.FetchByIDGate && relevance.Score < opts.MinRelevance {
		return workerpool.Result{Outcome: workerpool.OutcomeFiltered, CacheHit: cacheHit}
	}

	// Step 7: apply relevance signal.
	paper.SetTags(relevance.SuggestedTags)
	score := float64(relevance.Score)
	paper.FilterScore = &score
	paper.FilterReason = relevance.Reason
	if len(relevance.SuggestedTopics) > 0 {
		paper.SetTopics(relevance.SuggestedTopics)
	}

	// Step 8: Phase 2 deep analysis (conditional).
	if opts.DeepAnalysis && relevance.Score >= opts.DeepAnalysisThreshold {
		if derr := m.deepAnalyze(ctx, &paper, topics, opts, latexDownloadDir, language); derr != nil {
			return workerpool.Result{Outcome: workerpool.OutcomeError, CacheHit: cacheHit, Err: derr}
		}
	}

	// Step 9/10: persist.
	return m.persist(paper, cacheHit)
}

func (m *Manager) relevance(ctx context.Context, paper types.Paper, topics []types.TopicConfig, language, topicsHash string, cacheHit *bool) (types.RelevanceResult, error) {
	if cached, err := m.cache.Get(paper.ArxivID, topicsHash); err == nil && cached != nil {
		*cacheHit = true
		return *cached, nil
	}

	result, err := m.ai.AnalyzeRelevance(ctx, paper.Title, paper.Summary, topics, language)
	if err != nil {
		return types.RelevanceResult{}, err
	}
	if err := m.cache.Save(paper.ArxivID, topicsHash, result); err != nil {
		m.log.Warn("failed to save relevance result to cache", "arxiv_id", paper.ArxivID, "error", err)
	}
	return result, nil
}

func (m *Manager) persist(paper types.Paper, cacheHit bool) workerpool.Result {
	inserted, err := m.papers.InsertIfAbsent(paper)
	if err != nil {
		return workerpool.Result{Outcome: workerpool.OutcomeError, CacheHit: cacheHit, Err: fromDatabaseError(err)}
	}
	if !inserted {
		// Lost the race with a concurrent worker (spec §4.G.2 step 9).
		return workerpool.Result{Outcome: workerpool.OutcomeDuplicate, CacheHit: cacheHit}
	}
	summary := types.PaperSummary{ID: paper.ID, Title: paper.Title, ArxivID: paper.ArxivID}
	return workerpool.Result{Outcome: workerpool.OutcomeSaved, CacheHit: cacheHit, Paper: &summary}
}

const fullModeMaxChars = 50_000

// deepAnalyze implements spec §4.G.2 step 8: standard or full analysis mode,
// with LaTeX download/cache reuse and the abstract fallback for standard
// mode.
func (m *Manager) deepAnalyze(ctx context.Context, paper *types.Paper, topics []types.TopicConfig, opts types.FetchOptions, latexDownloadDir, language string) *Error {
	mode := opts.AnalysisMode
	if mode == "" {
		mode = types.AnalysisModeStandard
	}

	switch mode {
	case types.AnalysisModeFull:
		return m.analyzeFull(ctx, paper, topics, latexDownloadDir, language)
	default:
		return m.analyzeStandard(ctx, paper, topics, latexDownloadDir, language)
	}
}

// AnalyzeSingle runs Phase 2 deep analysis directly against an
// already-stored paper (command surface "analyze-single"), independent of
// the fetch pipeline's relevance gate and threshold. The updated paper is
// persisted and returned.
func (m *Manager) AnalyzeSingle(ctx context.Context, paperID, mode string, topics []types.TopicConfig, latexDownloadDir, language string) (types.Paper, error) {
	if m.ai == nil {
		return types.Paper{}, ErrNoAIClient
	}
	paper, err := m.papers.Get(paperID)
	if err != nil {
		return types.Paper{}, fromDatabaseError(err)
	}
	if language == "" {
		language = "en"
	}
	opts := types.FetchOptions{DeepAnalysis: true, AnalysisMode: mode}
	if derr := m.deepAnalyze(ctx, &paper, topics, opts, latexDownloadDir, language); derr != nil {
		return types.Paper{}, derr
	}
	if err := m.papers.Upsert(paper); err != nil {
		return types.Paper{}, fromDatabaseError(err)
	}
	return paper, nil
}

// BatchAnalyze runs AnalyzeSingle over multiple papers, collecting
// per-paper errors rather than stopping at the first failure (command
// surface "batch-analyze").
func (m *Manager) BatchAnalyze(ctx context.Context, paperIDs []string, mode string, topics []types.TopicConfig, latexDownloadDir, language string) map[string]error {
	results := make(map[string]error, len(paperIDs))
	for _, id := range paperIDs {
		_, err := m.AnalyzeSingle(ctx, id, mode, topics, latexDownloadDir, language)
		results[id] = err
	}
	return results
}

func (m *Manager) analyzeStandard(ctx context.Context, paper *types.Paper, topics []types.TopicConfig, latexDownloadDir, language string) *Error {
	content, fallbackUsed := m.extractForStandard(paper.ArxivID, paper.Summary, latexDownloadDir)

	result, err := m.ai.AnalyzeStandard(ctx, paper.Title, paper.Summary, topics, content, language)
	if err != nil {
		return fromLlmError(m.ai.Provider(), err)
	}

	applyStandardResult(paper, result)
	paper.AnalysisMode = types.AnalysisModeStandard
	paper.IsDeepAnalyzed = true
	paper.AnalysisIncomplete = fallbackUsed
	paper.ApplyCodeLinksCorrection()
	return nil
}

func (m *Manager) extractForStandard(arxivID, abstract, latexDownloadDir string) (content string, fallbackUsed bool) {
	if latexDownloadDir == "" {
		return abstract, true
	}
	texPath, err := m.latex.DownloadSource(context.Background(), arxivID, latexDownloadDir)
	if err != nil {
		m.log.Info("latex download failed, falling back to abstract", "arxiv_id", arxivID, "error", err)
		return abstract, true
	}
	raw, err := os.ReadFile(texPath)
	if err != nil {
		m.log.Info("latex file unreadable, falling back to abstract", "arxiv_id", arxivID, "error", err)
		return abstract, true
	}
	return latex.ExtractIntroConclusion(latex.CleanLatex(string(raw))), false
}

func (m *Manager) analyzeFull(ctx context.Context, paper *types.Paper, topics []types.TopicConfig, latexDownloadDir, language string) *Error {
	if latexDownloadDir == "" {
		paper.AnalysisIncomplete = true
		return nil
	}

	texPath, err := m.latex.DownloadSource(ctx, paper.ArxivID, latexDownloadDir)
	if err != nil {
		// Spec §4.G.2 step 8: unavailable source means no analysis and no
		// error in full mode.
		paper.AnalysisIncomplete = true
		return nil
	}
	raw, err := os.ReadFile(texPath)
	if err != nil {
		paper.AnalysisIncomplete = true
		return nil
	}

	cleaned := latex.CleanLatex(string(raw))
	truncated := truncateRunes(cleaned, fullModeMaxChars)

	result, err := m.ai.AnalyzeFull(ctx, paper.Title, paper.Summary, topics, truncated, language)
	if err != nil {
		return fromLlmError(m.ai.Provider(), err)
	}

	applyFullResult(paper, result)
	paper.AnalysisMode = types.AnalysisModeFull
	paper.IsDeepAnalyzed = true
	paper.ApplyCodeLinksCorrection()
	return nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func applyStandardResult(paper *types.Paper, r types.StandardAnalysisResult) {
	paper.AISummary = r.AISummary
	paper.KeyInsights = r.KeyInsights
	paper.EngineeringNotes = r.EngineeringNotes
	paper.CodeAvailable = r.CodeAvailable
	paper.CodeLinks = r.CodeLinks
	if r.NoveltyScore != 0 {
		v := r.NoveltyScore
		paper.NoveltyScore = &v
	}
	paper.NoveltyReason = r.NoveltyReason
	if r.EffectivenessScore != 0 {
		v := r.EffectivenessScore
		paper.EffectivenessScore = &v
	}
	paper.EffectivenessReason = r.EffectivenessReason
	if len(r.SuggestedTags) > 0 {
		paper.SetTags(append(append([]string{}, paper.Tags...), r.SuggestedTags...))
	}
	if len(r.SuggestedTopics) > 0 {
		paper.SetTopics(r.SuggestedTopics)
	}
}

func applyFullResult(paper *types.Paper, r types.FullAnalysisResult) {
	applyStandardResult(paper, r.StandardAnalysisResult)
	if r.ExperimentCompletenessScore != 0 {
		v := r.ExperimentCompletenessScore
		paper.ExperimentCompletenessScore = &v
	}
	paper.ExperimentCompletenessReason = r.ExperimentCompletenessReason
	paper.AlgorithmFlowchart = r.AlgorithmFlowchart
	paper.TimeComplexity = r.TimeComplexity
	paper.SpaceComplexity = r.SpaceComplexity
}

// Status returns an idle snapshot, used by callers that poll get_status
// between fetches rather than subscribing to the emit callback.
func Status() types.FetchStatus {
	return types.FetchStatus{Phase: types.PhaseStarting, CurrentStep: "idle"}
}
