package seqflow

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/baxromumarov/seqflow/chanx"
)

// Enumerator pulls the items of one enumeration of a [Sequence].
//
// Next advances to the next item and reports whether one is available.
// Current returns that item; it is valid only between a Next that returned
// true and the following Next. Once Next returns false, or after Close,
// every further Next returns false with a nil error.
//
// An Enumerator is single-consumer: Next must not be called concurrently.
// Close may be called from any goroutine, including while a Next is in
// flight, and is idempotent.
type Enumerator[T any] interface {
	Next(ctx context.Context) (bool, error)
	Current() T
	Close() error
}

// Sequence is an immutable description of a pull sequence. Every call to
// [Sequence.Enumerate] returns an independent [Enumerator]; nothing runs
// until that enumerator's Next is called.
//
// Sequences are built with constructors such as [Create], [FromSlice] and
// [Range], and composed with methods like [Sequence.Where] and functions
// like [Select]. Functions exist where a method cannot, since Go does not
// allow type parameters on methods.
type Sequence[T any] struct {
	enumerate func() Enumerator[T]
}

// New returns a Sequence whose enumerators are produced by enumerate.
// It panics if enumerate is nil.
func New[T any](enumerate func() Enumerator[T]) *Sequence[T] {
	if enumerate == nil {
		panic(invalid("New", "enumerate must not be nil"))
	}
	return &Sequence[T]{enumerate: enumerate}
}

// Enumerate returns a fresh Enumerator over the sequence.
func (s *Sequence[T]) Enumerate() Enumerator[T] {
	return s.enumerate()
}

// funcEnum adapts a step function to the Enumerator contract, providing the
// Current slot, idempotent exhaustion and idempotent Close.
type funcEnum[T any] struct {
	next func(ctx context.Context) (T, bool, error)
	stop func() error

	cur       T
	done      atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

func newEnum[T any](next func(ctx context.Context) (T, bool, error), stop func() error) *funcEnum[T] {
	return &funcEnum[T]{next: next, stop: stop}
}

func (e *funcEnum[T]) Next(ctx context.Context) (bool, error) {
	if e.done.Load() {
		return false, nil
	}
	v, ok, err := e.next(ctx)
	if err != nil {
		// A cancelled advance leaves the enumerator usable; a fault ends it.
		if !IsCancellation(err) {
			e.done.Store(true)
		}
		return false, err
	}
	if !ok {
		e.done.Store(true)
		return false, nil
	}
	e.cur = v
	return true, nil
}

func (e *funcEnum[T]) Current() T {
	return e.cur
}

func (e *funcEnum[T]) Close() error {
	e.closeOnce.Do(func() {
		e.done.Store(true)
		if e.stop != nil {
			e.closeErr = e.stop()
		}
	})
	return e.closeErr
}

// Empty returns a sequence with no items.
func Empty[T any]() *Sequence[T] {
	return New(func() Enumerator[T] {
		return newEnum(func(context.Context) (T, bool, error) {
			var zero T
			return zero, false, nil
		}, nil)
	})
}

// Of returns a sequence over the given values.
func Of[T any](values ...T) *Sequence[T] {
	return FromSlice(values)
}

// FromSlice returns a replayable sequence over items. The slice is not
// copied; it must not be modified while enumerations are in progress.
func FromSlice[T any](items []T) *Sequence[T] {
	return New(func() Enumerator[T] {
		var idx int
		return newEnum(func(ctx context.Context) (T, bool, error) {
			var zero T
			if err := ctx.Err(); err != nil {
				return zero, false, err
			}
			if idx >= len(items) {
				return zero, false, nil
			}
			v := items[idx]
			idx++
			return v, true, nil
		}, nil)
	})
}

// FromChan returns a hot sequence reading from ch: every enumerator drains
// the same channel, so concurrent enumerations split the values between
// them. The sequence ends when ch is closed.
func FromChan[T any](ch <-chan T) *Sequence[T] {
	return New(func() Enumerator[T] {
		return newEnum(func(ctx context.Context) (T, bool, error) {
			return chanx.Recv(ctx, ch)
		}, nil)
	})
}

// Range returns the sequence of count consecutive integers starting at
// start. It panics with a [*ValidationError] if count is negative.
func Range(start, count int) *Sequence[int] {
	if count < 0 {
		panic(invalid("Range", "count must be non-negative, got %d", count))
	}
	return New(func() Enumerator[int] {
		var i int
		return newEnum(func(ctx context.Context) (int, bool, error) {
			if err := ctx.Err(); err != nil {
				return 0, false, err
			}
			if i >= count {
				return 0, false, nil
			}
			v := start + i
			i++
			return v, true, nil
		}, nil)
	})
}

// Repeat returns a sequence yielding v count times. A negative count
// repeats forever; combine it with [Sequence.Take].
func Repeat[T any](v T, count int) *Sequence[T] {
	return New(func() Enumerator[T] {
		var i int
		return newEnum(func(ctx context.Context) (T, bool, error) {
			if err := ctx.Err(); err != nil {
				var zero T
				return zero, false, err
			}
			if count >= 0 && i >= count {
				var zero T
				return zero, false, nil
			}
			i++
			return v, true, nil
		}, nil)
	})
}
