package seqflow

import (
	"context"
	"errors"
)

// Number is the constraint accepted by [Sum] and [Average].
type Number interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr |
		~float32 | ~float64
}

// drain enumerates s to the end, calling fn for each item, and always
// closes the enumerator. A Close failure is reported only when the
// enumeration itself succeeded.
func drain[T any](ctx context.Context, s *Sequence[T], fn func(T) (bool, error)) (err error) {
	e := s.Enumerate()
	defer func() {
		if cerr := e.Close(); err == nil {
			err = cerr
		}
	}()
	for {
		ok, err := e.Next(ctx)
		if err != nil || !ok {
			return err
		}
		more, err := fn(e.Current())
		if err != nil || !more {
			return err
		}
	}
}

// ForEach calls fn for every item until the sequence ends, fn returns an
// error, or ctx is cancelled.
func (s *Sequence[T]) ForEach(ctx context.Context, fn func(T) error) error {
	return drain(ctx, s, func(v T) (bool, error) {
		return true, fn(v)
	})
}

// ToSlice collects all items into a slice. On error the items collected so
// far are returned alongside it.
func (s *Sequence[T]) ToSlice(ctx context.Context) ([]T, error) {
	var items []T
	err := drain(ctx, s, func(v T) (bool, error) {
		items = append(items, v)
		return true, nil
	})
	return items, err
}

// Count returns the number of items in the sequence.
func (s *Sequence[T]) Count(ctx context.Context) (int, error) {
	var n int
	err := drain(ctx, s, func(T) (bool, error) {
		n++
		return true, nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// First returns the first item, or false if the sequence is empty.
// The enumeration stops after one item.
func (s *Sequence[T]) First(ctx context.Context) (T, bool, error) {
	var (
		first T
		found bool
	)
	err := drain(ctx, s, func(v T) (bool, error) {
		first, found = v, true
		return false, nil
	})
	return first, found, err
}

// Any reports whether some item satisfies pred, stopping at the first match.
func (s *Sequence[T]) Any(ctx context.Context, pred func(T) bool) (bool, error) {
	_, found, err := s.Where(pred).First(ctx)
	return found, err
}

// All reports whether every item satisfies pred, stopping at the first miss.
func (s *Sequence[T]) All(ctx context.Context, pred func(T) bool) (bool, error) {
	found, err := s.Any(ctx, func(v T) bool { return !pred(v) })
	return !found && err == nil, err
}

// Reduce folds the sequence into one value starting from initial.
func Reduce[T, R any](ctx context.Context, s *Sequence[T], initial R, fn func(R, T) R) (R, error) {
	if fn == nil {
		panic(invalid("Reduce", "accumulator must not be nil"))
	}
	acc := initial
	err := drain(ctx, s, func(v T) (bool, error) {
		acc = fn(acc, v)
		return true, nil
	})
	return acc, err
}

// Sum adds up every item. The sum of an empty sequence is zero.
func Sum[T Number](ctx context.Context, s *Sequence[T]) (T, error) {
	var total T
	return Reduce(ctx, s, total, func(acc, v T) T { return acc + v })
}

// Average returns the arithmetic mean of the items as a float64.
// It returns [ErrEmptySequence] for an empty sequence.
func Average[T Number](ctx context.Context, s *Sequence[T]) (float64, error) {
	var (
		total float64
		n     int
	)
	err := drain(ctx, s, func(v T) (bool, error) {
		total += float64(v)
		n++
		return true, nil
	})
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrEmptySequence
	}
	return total / float64(n), nil
}

// SequenceEqual reports whether a and b have the same length and equal
// items in the same order.
func SequenceEqual[T comparable](ctx context.Context, a, b *Sequence[T]) (bool, error) {
	return SequenceEqualFunc(ctx, a, b, func(x, y T) bool { return x == y })
}

// SequenceEqualFunc is [SequenceEqual] with a custom equality. Both
// enumerations stop at the first difference.
func SequenceEqualFunc[T any](ctx context.Context, a, b *Sequence[T], eq func(T, T) bool) (equal bool, err error) {
	if eq == nil {
		panic(invalid("SequenceEqualFunc", "equality must not be nil"))
	}
	ea, eb := a.Enumerate(), b.Enumerate()
	defer func() {
		if cerr := errors.Join(ea.Close(), eb.Close()); err == nil {
			err = cerr
		}
	}()

	for {
		okA, err := ea.Next(ctx)
		if err != nil {
			return false, err
		}
		okB, err := eb.Next(ctx)
		if err != nil {
			return false, err
		}
		if okA != okB {
			return false, nil
		}
		if !okA {
			return true, nil
		}
		if !eq(ea.Current(), eb.Current()) {
			return false, nil
		}
	}
}
