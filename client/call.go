package client

import (
	"context"
)

// Call is a one-shot asynchronous result: a value or an error that becomes
// available at most once, at an unspecified future time. A Call completes
// exactly once; abandoning it (cancelling the context passed to Await) does
// not retract the underlying engine request, and the eventual completion is
// simply discarded.
type Call[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func newCall[T any]() *Call[T] {
	return &Call[T]{done: make(chan struct{})}
}

// failedCall returns an already-completed Call carrying err. Used for
// failures detected before any engine interaction.
func failedCall[T any](err error) *Call[T] {
	c := newCall[T]()
	c.fail(err)
	return c
}

// complete publishes the value. Must be called at most once, and never
// after fail.
func (c *Call[T]) complete(v T) {
	c.value = v
	close(c.done)
}

// fail publishes the error. Must be called at most once, and never after
// complete.
func (c *Call[T]) fail(err error) {
	c.err = err
	close(c.done)
}

// Done returns a channel that is closed once the result is available.
func (c *Call[T]) Done() <-chan struct{} {
	return c.done
}

// Await blocks until the result is available or ctx is cancelled. On
// cancellation the Call is abandoned: the pending engine request stays
// registered and its eventual reply is discarded.
func (c *Call[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-c.done:
		return c.value, c.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
