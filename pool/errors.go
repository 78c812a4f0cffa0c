package pool

import (
	"errors"
	"fmt"
	"runtime"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

var (
	// ErrInvalidCapacity is returned by New when capacity is negative.
	ErrInvalidCapacity = errors.New("pool: capacity must be NoLimit or positive")

	// ErrTimeout is returned by GetTimeout when the wait expires before the
	// task is terminal. It is delivered to the waiting caller only; the task
	// itself keeps running.
	ErrTimeout = errors.New("pool: wait timed out")

	// ErrKilled is the default failure recorded on a task that was
	// forcibly terminated.
	ErrKilled = errors.New("pool: task killed")

	// ErrQueueFull is returned by Queue.Put when the queue is at capacity.
	ErrQueueFull = errors.New("pool: queue is full")

	// ErrQueueClosed is returned when putting into a closed queue.
	ErrQueueClosed = errors.New("pool: queue is closed")
)

// PanicError is the failure recorded on a task whose function panicked.
// The panic is recovered inside the task goroutine so that a single work item
// can never crash the pool.
type PanicError struct {
	Value any    // the recovered panic value
	Stack []byte // stack trace captured at the panic site
}

func newPanicError(v any) *PanicError {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return &PanicError{Value: v, Stack: buf[:n]}
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("pool: task panic: %v", e.Value)
}

// Unwrap exposes the panic value when it is itself an error, so that
// errors.Is/errors.As keep working through a recovered panic.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// LinkFaultHandler receives panics raised by completion links (user callbacks
// registered on a task). Link faults are isolated per link: a panicking
// callback never prevents sibling links from running and never reaches an
// arbitrary caller, so they are diverted here instead of being re-raised.
type LinkFaultHandler func(recovered any, stack []byte)

var linkFaultHandler atomic.Pointer[LinkFaultHandler]

// SetLinkFaultHandler replaces the process-level reporter for panics raised
// by completion links. Passing nil restores the default, which logs the fault
// via logrus. The previous handler is returned.
func SetLinkFaultHandler(fn LinkFaultHandler) LinkFaultHandler {
	var prev LinkFaultHandler
	if p := linkFaultHandler.Swap(&fn); p != nil {
		prev = *p
	}
	return prev
}

func reportLinkFault(recovered any, stack []byte) {
	if p := linkFaultHandler.Load(); p != nil && *p != nil {
		(*p)(recovered, stack)
		return
	}
	logrus.WithFields(logrus.Fields{
		"panic": recovered,
		"stack": string(stack),
	}).Error("pool: completion link panicked")
}
