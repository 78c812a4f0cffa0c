package pool

import (
	"context"
	"sync"
	"time"
)

// State describes where a task is in its lifecycle. Transitions are
// monotonic: Pending -> Running -> one of the terminal states. A task never
// leaves a terminal state.
type State int32

const (
	StatePending State = iota
	StateRunning
	StateSucceeded
	StateFailed
	StateKilled
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	case StateKilled:
		return "killed"
	default:
		return "unknown"
	}
}

func (s State) terminal() bool { return s >= StateSucceeded }

// Task is an awaitable handle for one unit of work. It is created by
// SpawnTask or Pool spawning and settles exactly once with either a value
// (Succeeded), a failure (Failed) or a kill cause (Killed).
//
// Completion links registered via Link/OnDone fire exactly once, after the
// task is terminal. Each link is isolated: a panicking link is reported to
// the process-level link-fault handler and never prevents sibling links from
// running.
type Task[R any] struct {
	mu     sync.Mutex
	state  State
	value  R
	err    error
	links  []func()
	done   chan struct{}
	cancel context.CancelFunc
}

// SpawnTask starts fn(ctx, arg) in its own goroutine and returns its handle
// immediately. The task is not attached to any pool; use Pool.Add to put it
// under a pool's capacity bound, or wait on it directly.
//
// The function receives a context derived from ctx that is cancelled when the
// task settles, including by Kill, so cooperative functions can observe
// termination.
func SpawnTask[T, R any](ctx context.Context, fn ProcessFunc[T, R], arg T) *Task[R] {
	t := newTask[R]()
	t.start(ctx, func(c context.Context) (R, error) { return fn(c, arg) })
	return t
}

func newTask[R any]() *Task[R] {
	return &Task[R]{done: make(chan struct{})}
}

func (t *Task[R]) start(ctx context.Context, fn func(context.Context) (R, error)) {
	ctx, cancel := context.WithCancel(ctx)
	t.mu.Lock()
	t.cancel = cancel
	t.mu.Unlock()
	go t.run(ctx, cancel, fn)
}

func (t *Task[R]) run(ctx context.Context, cancel context.CancelFunc, fn func(context.Context) (R, error)) {
	defer cancel()
	if !t.begin() {
		// Killed before it ever ran; skip execution entirely.
		return
	}

	v, err := func() (v R, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = newPanicError(r)
			}
		}()
		return fn(ctx)
	}()

	if err != nil {
		var zero R
		t.settle(StateFailed, zero, err)
		return
	}
	t.settle(StateSucceeded, v, nil)
}

// begin moves Pending -> Running. Returns false if the task is already
// terminal (killed before start).
func (t *Task[R]) begin() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != StatePending {
		return false
	}
	t.state = StateRunning
	return true
}

// settle records the terminal state, closes the done channel and fires the
// links. Only the first call wins; a late natural return after a Kill is
// discarded here.
func (t *Task[R]) settle(state State, v R, err error) bool {
	t.mu.Lock()
	if t.state.terminal() {
		t.mu.Unlock()
		return false
	}
	t.state = state
	t.value = v
	t.err = err
	links := t.links
	t.links = nil
	cancel := t.cancel
	close(t.done)
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	for _, ln := range links {
		invokeLink(ln)
	}
	return true
}

func invokeLink(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			reportLinkFault(r, callStack())
		}
	}()
	fn()
}

// Kill forces the task into the Killed state with the given cause
// (ErrKilled when nil). Safe to call on a pending, running or already
// terminal task; the last case is a no-op. The task's context is cancelled
// and links fire in the caller's goroutine, so slot reclamation is prompt
// even when the work function is still draining in the background.
func (t *Task[R]) Kill(cause error) {
	if cause == nil {
		cause = ErrKilled
	}
	var zero R
	t.settle(StateKilled, zero, cause)
}

// Get blocks until the task is terminal or ctx is done.
// It returns the result on success and re-raises the stored failure for a
// failed or killed task.
func (t *Task[R]) Get(ctx context.Context) (R, error) {
	select {
	case <-t.done:
		return t.result()
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// GetTimeout is Get with a deadline. Expiry returns ErrTimeout to this waiter
// only; the task's own state and progress are unaffected.
func (t *Task[R]) GetTimeout(ctx context.Context, d time.Duration) (R, error) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-t.done:
		return t.result()
	case <-timer.C:
		var zero R
		return zero, ErrTimeout
	case <-ctx.Done():
		var zero R
		return zero, ctx.Err()
	}
}

// Wait blocks until the task is terminal and returns its failure, if any.
func (t *Task[R]) Wait(ctx context.Context) error {
	_, err := t.Get(ctx)
	return err
}

func (t *Task[R]) result() (R, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value, t.err
}

// Done returns a channel that is closed when the task reaches a terminal
// state.
func (t *Task[R]) Done() <-chan struct{} { return t.done }

// Dead reports whether the task is terminal.
func (t *Task[R]) Dead() bool {
	select {
	case <-t.done:
		return true
	default:
		return false
	}
}

// State returns the task's current state.
func (t *Task[R]) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Successful reports whether the task completed normally.
func (t *Task[R]) Successful() bool { return t.State() == StateSucceeded }

// Value returns the result value. It is the zero value unless the task
// succeeded.
func (t *Task[R]) Value() R {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value
}

// Err returns the stored failure, or nil.
func (t *Task[R]) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.err
}

// Link registers a typed completion callback. It fires exactly once, after
// the task is terminal, receiving the task itself. Registering on a dead
// task fires immediately in the caller's goroutine.
func (t *Task[R]) Link(fn func(*Task[R])) {
	t.OnDone(func() { fn(t) })
}

// OnDone registers an untyped completion callback. See Link.
func (t *Task[R]) OnDone(fn func()) {
	t.mu.Lock()
	if !t.state.terminal() {
		t.links = append(t.links, fn)
		t.mu.Unlock()
		return
	}
	t.mu.Unlock()
	invokeLink(fn)
}
