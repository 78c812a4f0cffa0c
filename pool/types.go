package pool

import "context"

// ProcessFunc is a function type that defines how a single work item is
// processed. It takes a context for cancellation/timeout control and an
// argument of type T, returning a result of type R.
// A non-nil error marks the task as failed; the error is surfaced to whoever
// waits on the task or consumes the stream it belongs to.
//
// Type parameters:
//   - T: The type of the work item
//   - R: The type of result produced by processing it
type ProcessFunc[T any, R any] func(ctx context.Context, arg T) (R, error)

// Member is the view of a task held by a Pool for accounting purposes.
// Every *Task[R] implements Member regardless of its result type, which lets
// a single pool bound tasks of mixed types.
type Member interface {
	// Done returns a channel that is closed when the task reaches a
	// terminal state.
	Done() <-chan struct{}

	// Dead reports whether the task has reached a terminal state.
	Dead() bool

	// State returns the task's current state.
	State() State

	// Err returns the task's failure, or nil.
	Err() error

	// Kill forces the task into the Killed terminal state.
	Kill(cause error)

	// OnDone registers a completion callback that fires exactly once,
	// after the task is terminal. Registering on a dead task fires the
	// callback immediately.
	OnDone(fn func())
}
