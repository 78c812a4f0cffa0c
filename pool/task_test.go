package pool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func square(ctx context.Context, n int) (int, error) { return n * n, nil }

func blockOnCtx(ctx context.Context, _ int) (int, error) {
	<-ctx.Done()
	return 0, ctx.Err()
}

func TestTask_GetSuccess(t *testing.T) {
	ctx := context.Background()
	tk := SpawnTask(ctx, square, 7)

	v, err := tk.Get(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 49 {
		t.Errorf("expected 49, got %d", v)
	}
	if !tk.Successful() {
		t.Error("task should report successful")
	}
	if st := tk.State(); st != StateSucceeded {
		t.Errorf("expected state %v, got %v", StateSucceeded, st)
	}
}

func TestTask_GetFailure(t *testing.T) {
	ctx := context.Background()
	tk := SpawnTask(ctx, func(ctx context.Context, _ int) (int, error) {
		return 0, errBoom
	}, 0)

	_, err := tk.Get(ctx)
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected errBoom, got %v", err)
	}
	if tk.Successful() {
		t.Error("failed task should not report successful")
	}
	if st := tk.State(); st != StateFailed {
		t.Errorf("expected state %v, got %v", StateFailed, st)
	}
}

func TestTask_PanicBecomesError(t *testing.T) {
	ctx := context.Background()
	tk := SpawnTask(ctx, func(ctx context.Context, _ int) (int, error) {
		panic("kaboom")
	}, 0)

	_, err := tk.Get(ctx)
	var pe *PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *PanicError, got %v", err)
	}
	if pe.Value != "kaboom" {
		t.Errorf("expected panic value %q, got %v", "kaboom", pe.Value)
	}
	if len(pe.Stack) == 0 {
		t.Error("expected a captured stack trace")
	}
}

func TestTask_GetTimeout(t *testing.T) {
	ctx := context.Background()
	blocker := make(chan struct{})
	tk := SpawnTask(ctx, func(ctx context.Context, _ int) (int, error) {
		<-blocker
		return 11, nil
	}, 0)

	if _, err := tk.GetTimeout(ctx, 20*time.Millisecond); err != ErrTimeout {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	// The timeout hit the waiter only; the task is still going.
	if tk.Dead() {
		t.Fatal("timeout must not settle the task")
	}

	close(blocker)
	v, err := tk.Get(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 11 {
		t.Errorf("expected 11, got %d", v)
	}
}

func TestTask_KillBeforeStartSkipsExecution(t *testing.T) {
	ctx := context.Background()
	var ran atomic.Bool

	tk := newTask[int]()
	tk.Kill(nil)
	tk.start(ctx, func(ctx context.Context) (int, error) {
		ran.Store(true)
		return 0, nil
	})

	time.Sleep(20 * time.Millisecond)
	if ran.Load() {
		t.Error("killed-before-start task must not execute its function")
	}
	if _, err := tk.Get(ctx); !errors.Is(err, ErrKilled) {
		t.Fatalf("expected ErrKilled, got %v", err)
	}
	if st := tk.State(); st != StateKilled {
		t.Errorf("expected state %v, got %v", StateKilled, st)
	}
}

func TestTask_KillRunning(t *testing.T) {
	ctx := context.Background()
	tk := SpawnTask(ctx, blockOnCtx, 0)

	tk.Kill(nil)
	if _, err := tk.Get(ctx); !errors.Is(err, ErrKilled) {
		t.Fatalf("expected ErrKilled, got %v", err)
	}

	// The function unblocks via its cancelled context and returns, but the
	// late natural return must not overwrite the kill.
	time.Sleep(20 * time.Millisecond)
	if st := tk.State(); st != StateKilled {
		t.Errorf("late return resurrected the task: state %v", st)
	}
	if err := tk.Err(); !errors.Is(err, ErrKilled) {
		t.Errorf("late return replaced the kill cause: %v", err)
	}
}

func TestTask_KillDeadIsNoop(t *testing.T) {
	ctx := context.Background()
	tk := SpawnTask(ctx, square, 3)
	if _, err := tk.Get(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tk.Kill(nil)
	v, err := tk.Get(ctx)
	if err != nil || v != 9 {
		t.Fatalf("kill on dead task must be a no-op, got (%d, %v)", v, err)
	}
}

func TestTask_LinksFireExactlyOnce(t *testing.T) {
	ctx := context.Background()
	blocker := make(chan struct{})
	tk := SpawnTask(ctx, func(ctx context.Context, _ int) (int, error) {
		<-blocker
		return 1, nil
	}, 0)

	var a, b atomic.Int32
	tk.OnDone(func() { a.Add(1) })
	tk.Link(func(tk *Task[int]) { b.Add(1) })

	close(blocker)
	if err := tk.Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	if n := a.Load(); n != 1 {
		t.Errorf("OnDone fired %d times", n)
	}
	if n := b.Load(); n != 1 {
		t.Errorf("Link fired %d times", n)
	}

	// Registering on a dead task fires immediately.
	fired := make(chan struct{}, 1)
	tk.OnDone(func() { fired <- struct{}{} })
	select {
	case <-fired:
	default:
		t.Error("link registered on a dead task did not fire")
	}
}

func TestTask_LinkPanicIsolated(t *testing.T) {
	ctx := context.Background()
	faults := make(chan any, 1)
	prev := SetLinkFaultHandler(func(recovered any, stack []byte) {
		faults <- recovered
	})
	defer SetLinkFaultHandler(prev)

	blocker := make(chan struct{})
	tk := SpawnTask(ctx, func(ctx context.Context, _ int) (int, error) {
		<-blocker
		return 1, nil
	}, 0)

	sibling := make(chan struct{}, 1)
	tk.OnDone(func() { panic("bad link") })
	tk.OnDone(func() { sibling <- struct{}{} })

	close(blocker)
	if err := tk.Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	select {
	case <-sibling:
	case <-time.After(2 * time.Second):
		t.Fatal("panicking link prevented its sibling from running")
	}
	select {
	case r := <-faults:
		if r != "bad link" {
			t.Errorf("expected fault %q, got %v", "bad link", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("link fault was never reported")
	}
}
