package push

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/baxromumarov/seqflow"
	"github.com/baxromumarov/seqflow/chanx"
)

// FromSequence returns a cold observable over s. Each subscription
// enumerates s on its own goroutine and pushes the items to the observer,
// waiting for every OnNext to return before pulling the next item.
// Disposing the subscription cancels the enumeration; no terminal
// notification is sent after that.
//
// If the observer's OnNext fails, the pump stops and the failure goes to
// [seqflow.ReportUnhandled]. A failing sequence is reported through OnError.
func FromSequence[T any](s *seqflow.Sequence[T]) Observable[T] {
	return ObservableFunc[T](func(o Observer[T]) *Subscription {
		ctx, cancel := context.WithCancel(context.Background())
		go pump(ctx, s, o)
		return NewSubscription(cancel)
	})
}

func pump[T any](ctx context.Context, s *seqflow.Sequence[T], o Observer[T]) {
	var observerErr error
	err := s.ForEach(ctx, func(v T) error {
		if err := notify(o, func(o Observer[T]) error { return o.OnNext(ctx, v) }); err != nil {
			observerErr = err
			return err
		}
		return nil
	})

	switch {
	case observerErr != nil:
		seqflow.ReportUnhandled(observerErr)
	case ctx.Err() != nil:
		// Disposed.
	case err != nil:
		seqflow.ReportUnhandled(notify(o, func(o Observer[T]) error { return o.OnError(ctx, err) }))
	default:
		seqflow.ReportUnhandled(notify(o, func(o Observer[T]) error { return o.OnCompleted(ctx) }))
	}
}

// ToSequence returns a pull sequence over o. Each enumeration subscribes
// on its first Next and unsubscribes when it ends or is closed.
//
// Items are handed over through the generator handoff, so a pushing
// OnNext blocks until the consumer pulls the item: the source is slowed
// down to the consumer's pace instead of being buffered. An OnError from o
// ends the enumeration with a [*seqflow.ProducerFault].
func ToSequence[T any](o Observable[T]) *seqflow.Sequence[T] {
	if o == nil {
		panic(seqflow.NewValidationError("ToSequence", "observable must not be nil"))
	}
	return seqflow.Create(func(ctx context.Context, y *seqflow.Yield[T]) error {
		end := make(chan error, 1)
		var ended atomic.Bool
		finish := func(err error) {
			if ended.CompareAndSwap(false, true) {
				end <- err
			}
		}

		sub := o.Subscribe(&Funcs[T]{
			Next: func(_ context.Context, v T) error {
				if ended.Load() {
					return nil
				}
				if err := y.Return(ctx, v); err != nil && !seqflow.IsCancellation(err) {
					return err
				}
				return nil
			},
			Error: func(_ context.Context, err error) error {
				finish(err)
				return nil
			},
			Completed: func(context.Context) error {
				finish(nil)
				return nil
			},
		})
		defer sub.Dispose()

		select {
		case err := <-end:
			return err
		case <-ctx.Done():
			return context.Cause(ctx)
		}
	})
}

// ToChan subscribes to o and delivers its items on the returned channel,
// buffering up to buffer items. The error channel receives exactly one
// value, nil on completion, once the item channel is about to close.
// Cancelling ctx disposes the subscription and reports ctx's error.
//
// A full buffer blocks the source's OnNext until the reader catches up.
func ToChan[T any](ctx context.Context, o Observable[T], buffer int) (<-chan T, <-chan error) {
	return toChan(ctx, o, buffer, func(out *chanx.Closable[T], v T) {
		// Closed or cancelled sends are dropped; finish reports why.
		_ = out.SendContext(ctx, v)
	})
}

// ToChanDropping is [ToChan] for sources that must never wait on a slow
// reader: an item that finds the buffer full is dropped and handed to
// onDrop, which may be nil. Drops happen on the source's goroutine.
// It panics if buffer is not positive.
func ToChanDropping[T any](ctx context.Context, o Observable[T], buffer int, onDrop func(T)) (<-chan T, <-chan error) {
	if buffer <= 0 {
		panic(seqflow.NewValidationError("ToChanDropping", fmt.Sprintf("buffer must be positive, got %d", buffer)))
	}
	return toChan(ctx, o, buffer, func(out *chanx.Closable[T], v T) {
		if errors.Is(out.TrySend(v), chanx.ErrFull) && onDrop != nil {
			onDrop(v)
		}
	})
}

func toChan[T any](ctx context.Context, o Observable[T], buffer int, send func(*chanx.Closable[T], T)) (<-chan T, <-chan error) {
	out := chanx.NewClosable[T](buffer)
	errCh := make(chan error, 1)

	var once sync.Once
	finish := func(err error) {
		once.Do(func() {
			errCh <- err
			close(errCh)
			out.Close()
		})
	}

	obs := &Funcs[T]{
		Next: func(_ context.Context, v T) error {
			send(out, v)
			return nil
		},
		Error: func(_ context.Context, err error) error {
			finish(err)
			return nil
		},
		Completed: func(context.Context) error {
			finish(nil)
			return nil
		},
	}

	// Subscribe off the caller's goroutine: a synchronous source would
	// otherwise fill the buffer before anyone can read it.
	go func() {
		sub := o.Subscribe(obs)
		select {
		case <-ctx.Done():
			finish(ctx.Err())
		case <-out.Done():
		}
		sub.Dispose()
	}()
	return out.Chan(), errCh
}
