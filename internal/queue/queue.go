// Package queue implements the Task Queue (spec §4.E): a bounded
// producer/consumer channel gated by a concurrency permit. Grounded on the
// poll-with-timeout drain signal from
// original_source/src-tauri/src/fetch/queue.rs, rendered as an idiomatic Go
// buffered-channel-plus-semaphore, the shape used throughout the corpus's
// worker-pool examples (buffered channel sized to the producer's known
// entry count, a counting semaphore implemented as a buffered chan struct{}).
package queue

import (
	"context"
	"sync/atomic"
	"time"
)

// drainPollInterval is the receive-timeout used to detect "queue empty,
// nothing left to do" promptly without tight polling (spec §4.E).
const drainPollInterval = 100 * time.Millisecond

// QueuedTask pairs an entry with its original position, so result
// aggregation can be order-independent while history still records the
// original fetch order.
type QueuedTask[T any] struct {
	Index int
	Entry T
}

// Permit is held by a worker for the duration of processing one task and
// must be released exactly once, returning the slot to the semaphore.
type Permit struct {
	release func()
	done    bool
}

// Release returns the permit's slot. Safe to call at most once; subsequent
// calls are no-ops.
func (p *Permit) Release() {
	if p == nil || p.done {
		return
	}
	p.done = true
	p.release()
}

// Queue is a bounded producer/consumer channel of QueuedTask gated by a
// semaphore of size maxConcurrent (spec §4.E).
type Queue[T any] struct {
	items  chan QueuedTask[T]
	sem    chan struct{}
	closed atomic.Bool
}

// New creates a queue with capacity equal to the number of entries that
// will be enqueued (never backpressured in normal use) and a semaphore of
// size maxConcurrent.
func New[T any](capacity, maxConcurrent int) *Queue[T] {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Queue[T]{
		items: make(chan QueuedTask[T], capacity),
		sem:   make(chan struct{}, maxConcurrent),
	}
}

// Enqueue adds every entry to the queue in order, then closes it so
// NextTask eventually reports drained. Must be called once, before any
// worker starts consuming.
func (q *Queue[T]) Enqueue(entries []T) {
	for i, e := range entries {
		q.items <- QueuedTask[T]{Index: i, Entry: e}
	}
	close(q.items)
}

// NextTask waits for an item with a 100ms receive timeout (spec §4.E); on
// timeout or context cancellation it returns ok=false so the caller can
// re-check cancellation without blocking indefinitely — a transient
// timeout, not drainage. Once the channel is closed and empty, NextTask
// returns ok=false permanently and marks the queue Drained.
func (q *Queue[T]) NextTask(ctx context.Context) (task QueuedTask[T], permit *Permit, ok bool) {
	select {
	case t, open := <-q.items:
		if !open {
			q.closed.Store(true)
			return QueuedTask[T]{}, nil, false
		}
		q.sem <- struct{}{}
		p := &Permit{release: func() { <-q.sem }}
		return t, p, true
	case <-time.After(drainPollInterval):
		return QueuedTask[T]{}, nil, false
	case <-ctx.Done():
		return QueuedTask[T]{}, nil, false
	}
}

// Drained reports whether the queue's channel has been observed closed and
// empty by a prior NextTask call, i.e. no further task will ever arrive.
func (q *Queue[T]) Drained() bool {
	return q.closed.Load()
}

// InUse returns the number of permits currently held by workers.
func (q *Queue[T]) InUse() int {
	return len(q.sem)
}

// Capacity returns the semaphore size (max_concurrent).
func (q *Queue[T]) Capacity() int {
	return cap(q.sem)
}
