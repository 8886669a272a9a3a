package chanx

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by [Closable.SendContext] once the channel has been
// closed.
var ErrClosed = errors.New("chanx: send on closed channel")

// ErrFull is returned by [Closable.TrySend] when the buffer has no room.
var ErrFull = errors.New("chanx: buffer is full")

// Closable is a channel with idempotent Close and senders that never panic.
//
// Senders hold a read lock for the whole send, including while blocked.
// Close first signals Done so that blocked senders give up, then takes the
// write lock and closes the channel, so no send can race the close.
type Closable[T any] struct {
	ch     chan T
	once   sync.Once
	closed chan struct{}

	mu       sync.RWMutex
	isClosed bool
}

// NewClosable creates a Closable channel with the given buffer capacity.
func NewClosable[T any](capacity int) *Closable[T] {
	return &Closable[T]{
		ch:     make(chan T, capacity),
		closed: make(chan struct{}),
	}
}

// SendContext sends v, blocking until the value is accepted, ctx is
// cancelled, or the channel is closed.
func (c *Closable[T]) SendContext(ctx context.Context, v T) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.isClosed {
		return ErrClosed
	}

	select {
	case c.ch <- v:
		return nil
	case <-c.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySend sends v only if the buffer has room.
func (c *Closable[T]) TrySend(v T) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.isClosed {
		return ErrClosed
	}

	select {
	case c.ch <- v:
		return nil
	default:
		return ErrFull
	}
}

// Close closes the channel. Only the first call has an effect; values
// already buffered stay readable.
func (c *Closable[T]) Close() {
	c.once.Do(func() {
		close(c.closed)

		c.mu.Lock()
		c.isClosed = true
		close(c.ch)
		c.mu.Unlock()
	})
}

// Chan returns the receive side. It is closed by [Closable.Close].
func (c *Closable[T]) Chan() <-chan T {
	return c.ch
}

// Done is closed as soon as Close starts.
func (c *Closable[T]) Done() <-chan struct{} {
	return c.closed
}
