package workerpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/paperfuse/core/internal/queue"
	"github.com/paperfuse/core/internal/types"
)

func TestRunAggregatesAllOutcomes(t *testing.T) {
	q := queue.New[int](6, 2)
	q.Enqueue([]int{1, 2, 3, 4, 5, 6})
	pool := New(q, 2, 6)

	process := func(ctx context.Context, entry int) Result {
		switch {
		case entry <= 2:
			title := "paper"
			return Result{Outcome: OutcomeSaved, Paper: &types.PaperSummary{ID: "id", Title: title}}
		case entry <= 4:
			return Result{Outcome: OutcomeFiltered}
		case entry == 5:
			return Result{Outcome: OutcomeDuplicate}
		default:
			return Result{Outcome: OutcomeDuplicate, CacheHit: true}
		}
	}

	agg := pool.Run(context.Background(), process, nil)

	if agg.Counters.Saved != 2 {
		t.Fatalf("expected 2 saved, got %d", agg.Counters.Saved)
	}
	if agg.Counters.Filtered != 2 {
		t.Fatalf("expected 2 filtered, got %d", agg.Counters.Filtered)
	}
	if agg.Counters.Duplicates != 2 {
		t.Fatalf("expected 2 duplicates, got %d", agg.Counters.Duplicates)
	}
	if agg.Counters.CacheHits != 1 {
		t.Fatalf("expected 1 cache hit, got %d", agg.Counters.CacheHits)
	}
	if len(agg.Saved) != 2 {
		t.Fatalf("expected 2 saved summaries, got %d", len(agg.Saved))
	}
}

func TestWorkerPanicIsRecoveredAsError(t *testing.T) {
	q := queue.New[int](1, 1)
	q.Enqueue([]int{1})
	pool := New(q, 1, 1)

	process := func(ctx context.Context, entry int) Result {
		panic("boom")
	}

	agg := pool.Run(context.Background(), process, nil)

	if len(agg.Errors) != 1 {
		t.Fatalf("expected panic to be recorded as one error, got %v", agg.Errors)
	}
}

func TestProcessErrorIsRecorded(t *testing.T) {
	q := queue.New[int](1, 1)
	q.Enqueue([]int{1})
	pool := New(q, 1, 1)

	process := func(ctx context.Context, entry int) Result {
		return Result{Outcome: OutcomeError, Err: errors.New("llm failure")}
	}

	agg := pool.Run(context.Background(), process, nil)
	if len(agg.Errors) != 1 || agg.Errors[0] != "llm failure" {
		t.Fatalf("expected recorded error, got %v", agg.Errors)
	}
}

func TestEmitCalledOncePerProcessedEntry(t *testing.T) {
	q := queue.New[int](4, 2)
	q.Enqueue([]int{1, 2, 3, 4})
	pool := New(q, 2, 4)

	var emitCount atomic.Int32
	process := func(ctx context.Context, entry int) Result {
		return Result{Outcome: OutcomeDuplicate}
	}
	emit := func(s types.FetchStatus) {
		emitCount.Add(1)
	}

	pool.Run(context.Background(), process, emit)

	if emitCount.Load() != 4 {
		t.Fatalf("expected 4 emits, got %d", emitCount.Load())
	}
}

func TestProgressReachesCeilingNotBeyondUntilComplete(t *testing.T) {
	q := queue.New[int](10, 1)
	entries := make([]int, 10)
	for i := range entries {
		entries[i] = i
	}
	q.Enqueue(entries)
	pool := New(q, 1, 10)

	var lastProgress float64
	process := func(ctx context.Context, entry int) Result {
		return Result{Outcome: OutcomeDuplicate}
	}
	emit := func(s types.FetchStatus) {
		if s.Progress < lastProgress {
			t.Errorf("progress decreased: %v -> %v", lastProgress, s.Progress)
		}
		lastProgress = s.Progress
		if s.Progress > 0.1+0.9*0.8+1e-9 {
			t.Errorf("progress exceeded 0.82 ceiling mid-run: %v", s.Progress)
		}
	}

	pool.Run(context.Background(), process, emit)

	if lastProgress < 0.1+0.9*0.8-1e-9 {
		t.Errorf("expected progress to reach the 0.82 ceiling, last was %v", lastProgress)
	}
}

func TestRunRespectsCancellation(t *testing.T) {
	q := queue.New[int](5, 1)
	q.Enqueue([]int{1, 2, 3, 4, 5})
	pool := New(q, 1, 5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	process := func(ctx context.Context, entry int) Result {
		return Result{Outcome: OutcomeDuplicate}
	}

	agg := pool.Run(ctx, process, nil)
	total := agg.Counters.Saved + agg.Counters.Filtered + agg.Counters.Duplicates + agg.Counters.CacheHits
	if total == 5 {
		t.Fatal("expected cancellation to stop processing before draining the whole queue")
	}
}
