package push

import (
	"context"
	"sync/atomic"
	"time"
)

// Of returns a cold observable that delivers values and completes,
// synchronously inside Subscribe. Delivery stops early if the observer
// fails or disposes its subscription from a callback.
func Of[T any](values ...T) Observable[T] {
	return ObservableFunc[T](func(o Observer[T]) *Subscription {
		var stopped atomic.Bool
		sub := NewSubscription(func() { stopped.Store(true) })
		ctx := context.Background()
		for _, v := range values {
			if stopped.Load() {
				return sub
			}
			if err := o.OnNext(ctx, v); err != nil {
				return sub
			}
		}
		if !stopped.Load() {
			_ = o.OnCompleted(ctx)
		}
		return sub
	})
}

// Empty returns an observable that completes immediately.
func Empty[T any]() Observable[T] {
	return Of[T]()
}

// Never returns an observable that never notifies.
func Never[T any]() Observable[T] {
	return ObservableFunc[T](func(Observer[T]) *Subscription {
		return NewSubscription(nil)
	})
}

// Throw returns an observable that fails with err immediately.
func Throw[T any](err error) Observable[T] {
	return ObservableFunc[T](func(o Observer[T]) *Subscription {
		_ = o.OnError(context.Background(), err)
		return disposedSubscription()
	})
}

// Timer returns an observable that emits once after d and completes.
// Disposing the subscription before d elapses stops the timer. It is the
// usual duration source for [Join] windows.
func Timer(d time.Duration) Observable[struct{}] {
	return ObservableFunc[struct{}](func(o Observer[struct{}]) *Subscription {
		var stopped atomic.Bool
		t := time.AfterFunc(d, func() {
			if stopped.Load() {
				return
			}
			ctx := context.Background()
			if err := o.OnNext(ctx, struct{}{}); err != nil || stopped.Load() {
				return
			}
			_ = o.OnCompleted(ctx)
		})
		return NewSubscription(func() {
			stopped.Store(true)
			t.Stop()
		})
	})
}
