package pool

import "runtime"

// callStack captures the current goroutine's stack, used when reporting
// completion-link faults.
func callStack() []byte {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return buf[:n]
}

// closedChan returns a channel that is already closed. Used for the empty
// signal of a freshly constructed pool.
func closedChan() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
