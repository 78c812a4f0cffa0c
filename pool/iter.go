package pool

import (
	"context"
	"io"
)

// IterFunc is a pull-based input source for streaming maps. Each call yields
// the next work item; io.EOF terminates the stream without being an error.
// Any other error aborts the source; the streamer surfaces it once after the
// already-spawned tasks have drained.
type IterFunc[T any] func(ctx context.Context) (T, error)

// FromSlice adapts a slice into an input source.
func FromSlice[T any](items []T) IterFunc[T] {
	var idx int
	return func(ctx context.Context) (T, error) {
		var zero T
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		default:
		}
		if idx >= len(items) {
			return zero, io.EOF
		}
		v := items[idx]
		idx++
		return v, nil
	}
}

// FromChan adapts a channel into an input source. A closed channel ends the
// stream.
func FromChan[T any](ch <-chan T) IterFunc[T] {
	return func(ctx context.Context) (T, error) {
		var zero T
		select {
		case v, ok := <-ch:
			if !ok {
				return zero, io.EOF
			}
			return v, nil
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// FromFunc adapts a plain iterator function into an input source.
func FromFunc[T any](fn func(ctx context.Context) (T, error)) IterFunc[T] {
	return fn
}
