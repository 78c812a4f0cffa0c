package pool

import (
	"context"
	"io"
	"sync"
)

// completion is one settled task's outcome, tagged with the index its input
// item had in the source sequence.
type completion[R any] struct {
	idx int
	val R
	err error
}

// Iterator is the consumer side of a streaming map. It is single-consumer:
// Next must not be called concurrently.
//
// A task failure is returned from Next exactly once, at that item's turn
// (its input index for ordered streams, its completion for unordered ones),
// and the iterator remains usable afterwards: one failed item does not abort
// the stream, because the remaining tasks keep running regardless.
type Iterator[R any] struct {
	ordered bool

	mu       sync.Mutex
	buf      map[int]completion[R] // ordered: completed but not yet emittable
	fifo     []completion[R]       // unordered: completion order
	nextIdx  int
	inFlight int
	srcDone  bool
	srcErr   error
	firstErr error
	wake     chan struct{}
}

// IMap lazily applies fn to each item produced by src, spawning tasks on p
// and yielding results strictly in input order. Tasks finishing out of order
// are buffered by index until every earlier index has been emitted. The pool's
// capacity bounds how far spawning runs ahead of the source.
func IMap[T, R any](ctx context.Context, p *Pool, fn ProcessFunc[T, R], src IterFunc[T]) *Iterator[R] {
	it := newIterator[R](true)
	go feed(ctx, p, fn, src, it)
	return it
}

// IMapUnordered is IMap without the ordering guarantee: results are yielded
// in completion order, the first task to finish first.
func IMapUnordered[T, R any](ctx context.Context, p *Pool, fn ProcessFunc[T, R], src IterFunc[T]) *Iterator[R] {
	it := newIterator[R](false)
	go feed(ctx, p, fn, src, it)
	return it
}

func newIterator[R any](ordered bool) *Iterator[R] {
	it := &Iterator[R]{
		ordered: ordered,
		wake:    make(chan struct{}, 1),
	}
	if ordered {
		it.buf = make(map[int]completion[R])
	}
	return it
}

// feed consumes the source, spawning one task per item. Spawn blocks on the
// pool's semaphore, so a full pool suspends the feeder and read-ahead never
// exceeds the capacity.
func feed[T, R any](ctx context.Context, p *Pool, fn ProcessFunc[T, R], src IterFunc[T], it *Iterator[R]) {
	for idx := 0; ; idx++ {
		arg, err := src(ctx)
		if err != nil {
			it.endSource(err)
			return
		}

		it.noteSpawn()
		t, err := Spawn(ctx, p, fn, arg)
		if err != nil {
			it.noteAbort()
			it.endSource(err)
			return
		}

		i := idx
		t.Link(func(t *Task[R]) {
			it.deliver(completion[R]{idx: i, val: t.Value(), err: t.Err()})
		})
	}
}

// Next returns the next result, suspending the caller until it is available.
// It returns io.EOF once the source is exhausted and every spawned task has
// been emitted. A non-EOF source error is surfaced exactly once, after the
// already-spawned tasks have drained.
func (it *Iterator[R]) Next(ctx context.Context) (R, error) {
	var zero R
	for {
		it.mu.Lock()
		if c, ok := it.pop(); ok {
			if c.err != nil && it.firstErr == nil {
				it.firstErr = c.err
			}
			it.mu.Unlock()
			return c.val, c.err
		}
		if it.srcDone && it.inFlight == 0 {
			if err := it.srcErr; err != nil {
				it.srcErr = nil
				if it.firstErr == nil {
					it.firstErr = err
				}
				it.mu.Unlock()
				return zero, err
			}
			it.mu.Unlock()
			return zero, io.EOF
		}
		it.mu.Unlock()

		select {
		case <-it.wake:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// pop removes the next emittable completion, honoring the ordering policy.
// Caller holds it.mu.
func (it *Iterator[R]) pop() (completion[R], bool) {
	if it.ordered {
		c, ok := it.buf[it.nextIdx]
		if ok {
			delete(it.buf, it.nextIdx)
			it.nextIdx++
		}
		return c, ok
	}
	if len(it.fifo) == 0 {
		return completion[R]{}, false
	}
	c := it.fifo[0]
	it.fifo = it.fifo[1:]
	return c, true
}

// Err returns the first failure observed by this iterator, if any.
func (it *Iterator[R]) Err() error {
	it.mu.Lock()
	defer it.mu.Unlock()
	return it.firstErr
}

// Collect drains the iterator into a slice, stopping at the first failure.
// The results gathered so far are returned alongside the error.
func (it *Iterator[R]) Collect(ctx context.Context) ([]R, error) {
	results := make([]R, 0)
	for {
		v, err := it.Next(ctx)
		if err == io.EOF {
			return results, nil
		}
		if err != nil {
			return results, err
		}
		results = append(results, v)
	}
}

func (it *Iterator[R]) noteSpawn() {
	it.mu.Lock()
	it.inFlight++
	it.mu.Unlock()
}

func (it *Iterator[R]) noteAbort() {
	it.mu.Lock()
	it.inFlight--
	it.mu.Unlock()
}

func (it *Iterator[R]) deliver(c completion[R]) {
	it.mu.Lock()
	it.inFlight--
	if it.ordered {
		it.buf[c.idx] = c
	} else {
		it.fifo = append(it.fifo, c)
	}
	it.mu.Unlock()
	it.signal()
}

func (it *Iterator[R]) endSource(err error) {
	it.mu.Lock()
	it.srcDone = true
	if err != io.EOF {
		it.srcErr = err
	}
	it.mu.Unlock()
	it.signal()
}

func (it *Iterator[R]) signal() {
	select {
	case it.wake <- struct{}{}:
	default:
	}
}
