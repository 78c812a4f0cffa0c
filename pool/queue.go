package pool

import (
	"context"
	"io"
	"sync/atomic"
)

// Queue is a bounded FIFO work-item channel with a non-blocking Put and a
// blocking Get, used as the input feed for streaming maps.
//
// End of input is signalled by Close, a distinguished stop condition that is
// not an error: items queued before Close still drain in order, after which
// Get returns io.EOF forever. The stop condition is carried out-of-band
// rather than as a reserved value, so any T remains a legitimate work item.
type Queue[T any] struct {
	ch     chan T
	stopc  chan struct{}
	closed atomic.Bool
}

// NewQueue creates a queue holding at most capacity items.
// Panics if capacity <= 0.
func NewQueue[T any](capacity int) *Queue[T] {
	if capacity <= 0 {
		panic("pool: NewQueue requires capacity > 0")
	}
	return &Queue[T]{
		ch:    make(chan T, capacity),
		stopc: make(chan struct{}),
	}
}

// Put appends an item without blocking.
// Returns ErrQueueFull when at capacity and ErrQueueClosed after Close.
func (q *Queue[T]) Put(v T) error {
	if q.closed.Load() {
		return ErrQueueClosed
	}
	select {
	case q.ch <- v:
		return nil
	default:
		return ErrQueueFull
	}
}

// PutWait appends an item, blocking while the queue is full.
// Returns ErrQueueClosed if the queue closes while waiting, or ctx.Err() on
// cancellation.
func (q *Queue[T]) PutWait(ctx context.Context, v T) error {
	if q.closed.Load() {
		return ErrQueueClosed
	}
	select {
	case q.ch <- v:
		return nil
	case <-q.stopc:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Get pops the oldest item, blocking while the queue is empty.
// After Close, remaining items drain first; then Get returns io.EOF.
func (q *Queue[T]) Get(ctx context.Context) (T, error) {
	var zero T
	select {
	case v := <-q.ch:
		return v, nil
	default:
	}
	select {
	case v := <-q.ch:
		return v, nil
	case <-q.stopc:
		// Closed while we waited; an item put just before Close may
		// still be pending.
		select {
		case v := <-q.ch:
			return v, nil
		default:
			return zero, io.EOF
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Close marks end of input. Items already queued remain consumable.
// Safe to call multiple times.
func (q *Queue[T]) Close() {
	if q.closed.CompareAndSwap(false, true) {
		close(q.stopc)
	}
}

// Iter exposes the queue as a streamer input source.
func (q *Queue[T]) Iter() IterFunc[T] { return q.Get }

// Len returns the number of queued items.
func (q *Queue[T]) Len() int { return len(q.ch) }

// Cap returns the queue capacity.
func (q *Queue[T]) Cap() int { return cap(q.ch) }
