// Package pool provides a bounded-concurrency task pool with a
// synchronous-looking call surface: blocking calls (Apply, Map), futures
// (Spawn, ApplyAsync) and lazy result streamers (IMap, IMapUnordered), all
// multiplexed over at most a fixed number of concurrently running tasks.
//
// Admission goes through a strict-FIFO counting semaphore: spawning into a
// full pool suspends the caller until a slot frees, which bounds read-ahead
// and memory for arbitrarily large or infinite inputs.
//
// # Basic Usage
//
//	ctx := context.Background()
//	p, err := pool.New(4)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	double := func(ctx context.Context, n int) (int, error) { return n * 2, nil }
//
//	results, err := pool.Map(ctx, p, double, []int{1, 2, 3, 4})
//
// # Futures
//
// Spawn returns a Task handle immediately once a slot is acquired:
//
//	t, err := pool.Spawn(ctx, p, fetch, url)
//	...
//	body, err := t.Get(ctx)               // blocks for the result
//	body, err = t.GetTimeout(ctx, time.Second) // pool.ErrTimeout on expiry
//	t.Kill(nil)                           // forces the Killed state
//
// Tasks carry completion links (Link/OnDone) that fire exactly once after
// the task is terminal. A panicking link is reported to the process-level
// link-fault handler (see SetLinkFaultHandler) and never corrupts pool
// accounting.
//
// # Streaming
//
// IMap yields results strictly in input order no matter in which order tasks
// finish; IMapUnordered yields in completion order. Both consume their
// source lazily, never spawning more than the pool's capacity ahead of the
// consumer, and both survive individual task failures: the failure is
// returned from Next exactly once at that item's turn and iteration
// continues.
//
//	it := pool.IMap(ctx, p, fetch, pool.FromSlice(urls))
//	for {
//	    body, err := it.Next(ctx)
//	    if err == io.EOF {
//	        break
//	    }
//	    if err != nil {
//	        continue // that one URL failed; the stream goes on
//	    }
//	    use(body)
//	}
//
// Sources can be slices, channels, functions, or a Queue, whose Close marks
// end of input without being an error.
//
// # Lifecycle
//
//   - Pool.Join blocks until every task is accounted for; JoinRaise
//     additionally re-raises the first user failure observed.
//   - Pool.Kill terminates every active task and reclaims all slots promptly.
//   - Pool.Discard releases a task's slot without touching the task, for
//     callers taking over its lifecycle.
//
// # Configuration Options
//
//   - WithRateLimit(tasksPerSecond, burst): throttle spawn admission on top
//     of the capacity bound
//   - WithRateLimiter(l): share one rate limiter across pools
//
// Errors never cross task boundaries implicitly: a task failure is stored on
// its handle and surfaced only to whoever waits on that task or consumes its
// stream position. Panics inside work functions are recovered into
// *PanicError values with the captured stack.
package pool
