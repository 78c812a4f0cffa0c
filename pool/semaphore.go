package pool

import (
	"container/list"
	"context"
	"sync"
)

// Semaphore is a counting semaphore with strict FIFO wakeup. It is the
// admission-control primitive behind Pool: each unit of pool capacity is one
// semaphore slot.
//
// Unlike a plain buffered-channel semaphore, waiters are woken in the exact
// order they blocked, and Release hands the slot directly to the oldest
// waiter instead of returning it to the counter, so a late TryAcquire can
// never jump the queue.
type Semaphore struct {
	mu      sync.Mutex
	counter int
	waiters list.List // of chan struct{}
}

// NewSemaphore creates a semaphore with n slots. Panics if n <= 0.
func NewSemaphore(n int) *Semaphore {
	if n <= 0 {
		panic("pool: NewSemaphore requires n > 0")
	}
	return &Semaphore{counter: n}
}

// Acquire takes one slot, blocking while none is free.
// Returns nil once a slot is held, or ctx.Err() if the context is cancelled
// first. A cancelled waiter is removed from the wait queue without consuming
// a slot; if cancellation races with a wakeup, the slot is passed on to the
// next waiter.
func (s *Semaphore) Acquire(ctx context.Context) error {
	s.mu.Lock()
	if s.counter > 0 && s.waiters.Len() == 0 {
		s.counter--
		s.mu.Unlock()
		return nil
	}

	ready := make(chan struct{})
	elem := s.waiters.PushBack(ready)
	s.mu.Unlock()

	select {
	case <-ready:
		return nil
	case <-ctx.Done():
	}

	s.mu.Lock()
	select {
	case <-ready:
		// Woken and cancelled at the same time. We hold a slot we no
		// longer want; hand it to the next waiter.
		s.releaseLocked()
	default:
		s.waiters.Remove(elem)
	}
	s.mu.Unlock()
	return ctx.Err()
}

// TryAcquire takes a slot without blocking.
// Returns false when no slot is free or when waiters are queued ahead.
func (s *Semaphore) TryAcquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counter > 0 && s.waiters.Len() == 0 {
		s.counter--
		return true
	}
	return false
}

// Release returns one slot. If waiters are queued, the oldest is woken and
// the slot transfers directly; otherwise the counter is incremented.
func (s *Semaphore) Release() {
	s.mu.Lock()
	s.releaseLocked()
	s.mu.Unlock()
}

func (s *Semaphore) releaseLocked() {
	if front := s.waiters.Front(); front != nil {
		s.waiters.Remove(front)
		close(front.Value.(chan struct{}))
		return
	}
	s.counter++
}

// Free returns the number of currently free slots.
func (s *Semaphore) Free() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter
}

// Waiting returns the number of callers blocked in Acquire.
func (s *Semaphore) Waiting() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waiters.Len()
}
