package pool

import (
	"context"
	"sync"
	"testing"
	"time"
)

func waitForWaiters(t *testing.T, s *Semaphore, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.Waiting() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d semaphore waiters, have %d", n, s.Waiting())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSemaphore_AcquireRelease(t *testing.T) {
	ctx := context.Background()
	s := NewSemaphore(2)

	if err := s.Acquire(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.Acquire(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if free := s.Free(); free != 0 {
		t.Errorf("expected 0 free slots, got %d", free)
	}
	if s.TryAcquire() {
		t.Error("TryAcquire should fail with no free slots")
	}

	s.Release()
	if free := s.Free(); free != 1 {
		t.Errorf("expected 1 free slot, got %d", free)
	}
	if !s.TryAcquire() {
		t.Error("TryAcquire should succeed with a free slot")
	}
}

func TestSemaphore_InvalidCapacity(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for capacity 0")
		}
	}()
	NewSemaphore(0)
}

func TestSemaphore_FIFOWakeup(t *testing.T) {
	ctx := context.Background()
	s := NewSemaphore(1)
	if err := s.Acquire(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	const n = 5
	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup

	// Queue the waiters one at a time so their arrival order is known.
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if err := s.Acquire(ctx); err != nil {
				t.Errorf("waiter %d: %v", i, err)
				return
			}
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			s.Release()
		}(i)
		waitForWaiters(t, s, i+1)
	}

	// One release cascades through all waiters: each records itself and
	// hands the slot to the next.
	s.Release()
	wg.Wait()

	for i, got := range order {
		if got != i {
			t.Fatalf("waiters woke out of order: %v", order)
		}
	}
}

func TestSemaphore_CancelledWaiterDoesNotLeak(t *testing.T) {
	ctx := context.Background()
	s := NewSemaphore(1)
	if err := s.Acquire(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cctx, cancel := context.WithCancel(ctx)
	errc := make(chan error, 1)
	go func() { errc <- s.Acquire(cctx) }()
	waitForWaiters(t, s, 1)

	cancel()
	if err := <-errc; err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if w := s.Waiting(); w != 0 {
		t.Fatalf("cancelled waiter still queued: %d", w)
	}

	s.Release()
	if !s.TryAcquire() {
		t.Fatal("slot leaked after cancelled waiter")
	}
}

func TestSemaphore_TryAcquireRespectsQueue(t *testing.T) {
	ctx := context.Background()
	s := NewSemaphore(1)
	if err := s.Acquire(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		if err := s.Acquire(ctx); err == nil {
			close(acquired)
		}
	}()
	waitForWaiters(t, s, 1)

	// The queued waiter owns the next slot; TryAcquire must not steal it.
	if s.TryAcquire() {
		t.Fatal("TryAcquire jumped the wait queue")
	}
	s.Release()
	select {
	case <-acquired:
	case <-time.After(2 * time.Second):
		t.Fatal("queued waiter was never woken")
	}
}
