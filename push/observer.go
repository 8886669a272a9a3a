package push

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// Observer receives the notifications of a push stream: any number of
// OnNext calls followed by at most one OnError or OnCompleted. Calls to one
// observer are never made concurrently by the streams in this package.
//
// The returned error reports a failure of the observer itself. It is
// collected by the dispatching side and never stops delivery to other
// observers.
type Observer[T any] interface {
	OnNext(ctx context.Context, v T) error
	OnError(ctx context.Context, err error) error
	OnCompleted(ctx context.Context) error
}

// Funcs adapts plain functions to [Observer]. Nil fields ignore the
// corresponding notification. Use it by pointer so that subscriptions can
// recognise the same observer subscribing twice.
type Funcs[T any] struct {
	Next      func(ctx context.Context, v T) error
	Error     func(ctx context.Context, err error) error
	Completed func(ctx context.Context) error
}

func (f *Funcs[T]) OnNext(ctx context.Context, v T) error {
	if f.Next == nil {
		return nil
	}
	return f.Next(ctx, v)
}

func (f *Funcs[T]) OnError(ctx context.Context, err error) error {
	if f.Error == nil {
		return nil
	}
	return f.Error(ctx, err)
}

func (f *Funcs[T]) OnCompleted(ctx context.Context) error {
	if f.Completed == nil {
		return nil
	}
	return f.Completed(ctx)
}

// Observable is a push stream that observers subscribe to.
type Observable[T any] interface {
	Subscribe(o Observer[T]) *Subscription
}

// ObservableFunc adapts a subscribe function to [Observable].
type ObservableFunc[T any] func(o Observer[T]) *Subscription

func (f ObservableFunc[T]) Subscribe(o Observer[T]) *Subscription {
	return f(o)
}

// Subscription is the handle returned by Subscribe. Disposing it detaches
// the observer; Dispose is idempotent and safe from any goroutine,
// including from inside the observer's own callbacks.
type Subscription struct {
	id       uuid.UUID
	once     sync.Once
	disposed atomic.Bool
	dispose  func()
}

// NewSubscription returns a subscription that runs dispose exactly once.
// A nil dispose is allowed.
func NewSubscription(dispose func()) *Subscription {
	return &Subscription{
		id:      uuid.Must(uuid.NewV7()),
		dispose: dispose,
	}
}

// disposedSubscription returns a handle that is already disposed.
func disposedSubscription() *Subscription {
	s := NewSubscription(nil)
	s.Dispose()
	return s
}

// ID returns the subscription's unique, time-ordered identifier.
func (s *Subscription) ID() uuid.UUID {
	return s.id
}

// Dispose detaches the observer.
func (s *Subscription) Dispose() {
	s.once.Do(func() {
		s.disposed.Store(true)
		if s.dispose != nil {
			s.dispose()
		}
	})
}

// Disposed reports whether Dispose has been called.
func (s *Subscription) Disposed() bool {
	return s.disposed.Load()
}
