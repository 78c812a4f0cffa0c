package pool

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Apply runs fn(ctx, arg) as a pool task and blocks until it completes,
// returning its result or re-raising its failure. This is the only call that
// occupies the caller for the duration of the work.
func Apply[T, R any](ctx context.Context, p *Pool, fn ProcessFunc[T, R], arg T) (R, error) {
	t, err := Spawn(ctx, p, fn, arg)
	if err != nil {
		var zero R
		return zero, err
	}
	return t.Get(ctx)
}

// ApplyAsync is Spawn with an optional success callback: callback receives
// the result when the task completes normally. It does not run for failed or
// killed tasks. The returned handle is usable as a future.
//
// Callbacks of concurrent ApplyAsync calls run in completion order, with no
// ordering guarantee beyond that. A panicking callback is diverted to the
// link-fault handler and never disturbs pool accounting.
func ApplyAsync[T, R any](ctx context.Context, p *Pool, fn ProcessFunc[T, R], arg T, callback func(R)) (*Task[R], error) {
	t, err := Spawn(ctx, p, fn, arg)
	if err != nil {
		return nil, err
	}
	if callback != nil {
		t.Link(func(t *Task[R]) {
			if t.Successful() {
				callback(t.Value())
			}
		})
	}
	return t, nil
}

// Map applies fn to every item concurrently, bounded by the pool's capacity,
// and returns the results in input order. The first failure in index order
// is returned together with the results collected before it; tasks already
// spawned keep running in the background and their own failures are
// swallowed once the first one has surfaced.
func Map[T, R any](ctx context.Context, p *Pool, fn ProcessFunc[T, R], items []T) ([]R, error) {
	return IMap(ctx, p, fn, FromSlice(items)).Collect(ctx)
}

// MapAsync is Map running as a task of its own: it returns immediately with
// a handle whose result is the collected slice.
func MapAsync[T, R any](ctx context.Context, p *Pool, fn ProcessFunc[T, R], items []T) *Task[[]R] {
	return SpawnTask(ctx, func(ctx context.Context, items []T) ([]R, error) {
		return Map(ctx, p, fn, items)
	}, items)
}

// JoinAll waits for every task and returns the first failure encountered,
// if any. Unlike Pool.Join it operates on explicit handles, so it works for
// detached tasks too.
func JoinAll[R any](ctx context.Context, tasks []*Task[R]) error {
	var g errgroup.Group
	for _, t := range tasks {
		t := t
		g.Go(func() error { return t.Wait(ctx) })
	}
	return g.Wait()
}

// KillAll forcibly terminates every task with the given cause (ErrKilled
// when nil).
func KillAll[R any](tasks []*Task[R], cause error) {
	for _, t := range tasks {
		t.Kill(cause)
	}
}
