// Package workerpool implements the Worker Pool (spec §4.F): N concurrent
// workers draining internal/queue, each invoking a caller-supplied
// process function, merging outcomes into a shared mutex-protected
// aggregate, and emitting recomputed FetchStatus snapshots. Grounded on
// the worker-pool section of original_source/src-tauri/src/fetch/mod.rs;
// the goroutines + sync.WaitGroup + mutex-guarded shared state shape and
// per-worker panic recovery follow
// other_examples/ed8f91a9_..._redpanda-consumer.go.go and
// e49fee04_..._outbox-processor.go.go.
package workerpool

import (
	"context"
	"fmt"
	"sync"

	"github.com/paperfuse/core/internal/queue"
	"github.com/paperfuse/core/internal/types"
)

// Outcome is what processing a single entry contributes to the aggregate.
type Outcome int

const (
	OutcomeSaved Outcome = iota
	OutcomeFiltered
	OutcomeDuplicate
	OutcomeCacheHit
	OutcomeError
)

// Result is returned by a ProcessFunc for one entry. CacheHit is
// independent of Outcome: a paper can hit the classification cache during
// Phase 1 and still end up Saved, Filtered, or errored (spec §4.G.2 step 5).
type Result struct {
	Outcome  Outcome
	CacheHit bool
	Paper    *types.PaperSummary // set when Outcome == OutcomeSaved
	Err      error                // set when Outcome == OutcomeError
}

// ProcessFunc runs the per-entry algorithm (spec §4.G.2) for one queued
// entry and reports its outcome.
type ProcessFunc[T any] func(ctx context.Context, entry T) Result

// EmitFunc receives a cloned FetchStatus snapshot after each processed
// entry (spec §4.F step 4). May be nil.
type EmitFunc func(types.FetchStatus)

// Aggregate accumulates outcomes across all workers under Pool's mutex.
type Aggregate struct {
	Counters types.FetchCounters
	Saved    []types.PaperSummary
	Errors   []string
}

// Pool runs a fixed number of workers against a queue.Queue, merging
// results into a shared Aggregate (spec §4.F).
type Pool[T any] struct {
	q             *queue.Queue[T]
	maxConcurrent int
	total         int

	mu        sync.Mutex
	aggregate Aggregate
}

// New constructs a pool over q with the given worker count and the total
// entry count (used for the progress formula).
func New[T any](q *queue.Queue[T], maxConcurrent, total int) *Pool[T] {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Pool[T]{q: q, maxConcurrent: maxConcurrent, total: total}
}

// Run spawns maxConcurrent workers, each looping: check cancellation, pop a
// task, process it, merge the outcome, recompute and emit a FetchStatus
// snapshot. Run blocks until every worker has exited (queue drained or
// context cancelled) and returns the final aggregate. A worker panic is
// caught and recorded as an error rather than taking down the process
// (spec §4.F "join-handle error path").
func (p *Pool[T]) Run(ctx context.Context, process ProcessFunc[T], emit EmitFunc) Aggregate {
	var wg sync.WaitGroup
	wg.Add(p.maxConcurrent)

	for i := 0; i < p.maxConcurrent; i++ {
		go func() {
			defer wg.Done()
			p.worker(ctx, process, emit)
		}()
	}

	wg.Wait()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.aggregate
}

func (p *Pool[T]) worker(ctx context.Context, process ProcessFunc[T], emit EmitFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		task, permit, ok := p.q.NextTask(ctx)
		if !ok {
			if p.q.Drained() {
				return
			}
			continue
		}

		func() {
			defer permit.Release()
			result := p.runProcess(ctx, process, task.Entry)
			p.merge(result)
			if emit != nil {
				emit(p.snapshot())
			}
		}()
	}
}

// runProcess invokes process, recovering from any panic and converting it
// into an OutcomeError result so a single bad entry never takes the
// process down.
func (p *Pool[T]) runProcess(ctx context.Context, process ProcessFunc[T], entry T) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{Outcome: OutcomeError, Err: fmt.Errorf("worker panic: %v", r)}
		}
	}()
	return process(ctx, entry)
}

func (p *Pool[T]) merge(r Result) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if r.CacheHit {
		p.aggregate.Counters.CacheHits++
	}

	switch r.Outcome {
	case OutcomeSaved:
		p.aggregate.Counters.Saved++
		p.aggregate.Counters.Analyzed++
		if r.Paper != nil {
			p.aggregate.Saved = append(p.aggregate.Saved, *r.Paper)
		}
	case OutcomeFiltered:
		p.aggregate.Counters.Filtered++
		p.aggregate.Counters.Analyzed++
	case OutcomeDuplicate:
		p.aggregate.Counters.Duplicates++
	case OutcomeCacheHit:
		// Retained for processes that have no other terminal outcome to
		// report but still observed a cache hit (spec §4.G.2 step 5).
	case OutcomeError:
		if r.Err != nil {
			p.aggregate.Errors = append(p.aggregate.Errors, r.Err.Error())
		}
	}
}

// snapshot recomputes the FetchStatus progress/counters under the mutex
// (spec §4.F step 4's formula).
func (p *Pool[T]) snapshot() types.FetchStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	c := p.aggregate.Counters
	completed := c.Saved + c.Filtered + c.Duplicates
	active := p.q.InUse() // permits currently in use, bounded by maxConcurrent

	var ratio float64
	if p.total > 0 {
		ratio = float64(completed) / float64(p.total)
	}
	if ratio > 0.9 {
		ratio = 0.9
	}
	if ratio < 0 {
		ratio = 0
	}
	progress := 0.1 + ratio*0.8

	errs := make([]string, len(p.aggregate.Errors))
	copy(errs, p.aggregate.Errors)

	return types.FetchStatus{
		Phase:          types.PhaseProcessing,
		Progress:       progress,
		Counters:       c,
		QueueSize:      p.total - completed - active,
		ActiveTasks:    active,
		CompletedTasks: completed,
		Errors:         errs,
		AsyncMode:      true,
	}
}
