package pool

import (
	"context"
	"fmt"
	"math"
	"sync"

	"golang.org/x/time/rate"
)

// NoLimit creates a pool with no capacity bound: spawns never block on
// admission and FreeCount reports math.MaxInt.
const NoLimit = 0

// Pool bounds the number of concurrently running tasks. Admission goes
// through a FIFO semaphore sized to the capacity: spawning into a full pool
// suspends the caller until a slot frees, which is the pool's backpressure
// mechanism.
//
// The pool tracks every task it admitted in an active set. A bookkeeping
// link registered at spawn time removes the task and releases its slot when
// it reaches a terminal state; the release is guaranteed even when
// user-supplied completion callbacks panic.
type Pool struct {
	capacity int
	sem      *Semaphore
	limiter  *rate.Limiter

	mu       sync.Mutex
	active   map[Member]struct{}
	empty    chan struct{} // closed while the active set is empty
	firstErr error         // first user failure since the last JoinRaise
}

// New creates a pool that runs at most capacity tasks concurrently.
// capacity == NoLimit disables the bound. A negative capacity is rejected
// with ErrInvalidCapacity; no partial pool is created.
func New(capacity int, opts ...Option) (*Pool, error) {
	if capacity < 0 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidCapacity, capacity)
	}

	cfg := newConfig(opts...)
	p := &Pool{
		capacity: capacity,
		limiter:  cfg.limiter,
		active:   make(map[Member]struct{}),
		empty:    closedChan(),
	}
	if capacity != NoLimit {
		p.sem = NewSemaphore(capacity)
	}
	return p, nil
}

// Spawn acquires a pool slot (suspending the caller while the pool is full),
// starts fn(ctx, arg) as a task owned by p and returns its handle
// immediately. The spawn itself does not wait for the task.
//
// The returned task's context is cancelled when it settles, including by
// Kill, so cooperative functions can observe termination.
func Spawn[T, R any](ctx context.Context, p *Pool, fn ProcessFunc[T, R], arg T) (*Task[R], error) {
	if err := p.admit(ctx); err != nil {
		return nil, err
	}
	t := newTask[R]()
	p.attach(t)
	t.start(ctx, func(c context.Context) (R, error) { return fn(c, arg) })
	return t, nil
}

// admit blocks until the caller may start one more task: first the optional
// rate limiter, then the capacity semaphore.
func (p *Pool) admit(ctx context.Context) error {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if p.sem == nil {
		return nil
	}
	return p.sem.Acquire(ctx)
}

// attach adds m to the active set and registers the bookkeeping link that
// undoes it at completion. The slot is released exactly once per member,
// whether it completes, is killed, or was discarded first.
func (p *Pool) attach(m Member) {
	p.track(m)
	m.OnDone(func() {
		if m.State() == StateFailed {
			p.noteFailure(m.Err())
		}
		if p.untrack(m) {
			p.release()
		}
	})
}

// Add attaches an externally spawned task to the pool, blocking for a slot
// like Spawn does. Adding a task that is already a member is a no-op.
func (p *Pool) Add(ctx context.Context, m Member) error {
	p.mu.Lock()
	_, member := p.active[m]
	p.mu.Unlock()
	if member {
		return nil
	}
	if err := p.admit(ctx); err != nil {
		return err
	}
	p.attach(m)
	return nil
}

// Discard removes m from the active set and releases its slot immediately,
// without waiting for completion or killing it. Used when the caller takes
// independent ownership of the task's lifecycle. The task's own state
// machine is untouched. Discarding a non-member is a no-op.
func (p *Pool) Discard(m Member) {
	if p.untrack(m) {
		p.release()
	}
}

// Kill forcibly terminates every active task with ErrKilled and reclaims all
// slots. It does not wait for the underlying functions to unwind; each
// task settles immediately and its goroutine drains in the background.
func (p *Pool) Kill() { p.KillErr(nil) }

// KillErr is Kill with an explicit cause.
func (p *Pool) KillErr(cause error) {
	p.mu.Lock()
	members := make([]Member, 0, len(p.active))
	for m := range p.active {
		members = append(members, m)
	}
	p.mu.Unlock()

	for _, m := range members {
		m.Kill(cause)
	}
}

// Join suspends the caller until the active set is empty or ctx is done.
// Use a context deadline for a bounded wait.
func (p *Pool) Join(ctx context.Context) error {
	p.mu.Lock()
	empty := p.empty
	p.mu.Unlock()
	select {
	case <-empty:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// JoinRaise is Join followed by re-raising the first user failure observed
// since the previous JoinRaise, once all tasks are accounted for. Tasks that
// were merely killed are not failures from the pool's point of view and are
// not surfaced here.
func (p *Pool) JoinRaise(ctx context.Context) error {
	if err := p.Join(ctx); err != nil {
		return err
	}
	p.mu.Lock()
	err := p.firstErr
	p.firstErr = nil
	p.mu.Unlock()
	return err
}

// FreeCount returns the number of tasks that could be spawned without
// blocking. Unbounded pools report math.MaxInt.
func (p *Pool) FreeCount() int {
	if p.sem == nil {
		return math.MaxInt
	}
	return p.sem.Free()
}

// Len returns the number of active tasks.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.active)
}

// Capacity returns the capacity the pool was created with; NoLimit for an
// unbounded pool.
func (p *Pool) Capacity() int { return p.capacity }

func (p *Pool) track(m Member) {
	p.mu.Lock()
	if len(p.active) == 0 {
		p.empty = make(chan struct{})
	}
	p.active[m] = struct{}{}
	p.mu.Unlock()
}

func (p *Pool) untrack(m Member) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.active[m]; !ok {
		return false
	}
	delete(p.active, m)
	if len(p.active) == 0 {
		close(p.empty)
	}
	return true
}

func (p *Pool) release() {
	if p.sem != nil {
		p.sem.Release()
	}
}

func (p *Pool) noteFailure(err error) {
	p.mu.Lock()
	if p.firstErr == nil {
		p.firstErr = err
	}
	p.mu.Unlock()
}
