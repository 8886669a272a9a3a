package seqflow

import (
	"context"
	"sync"
)

// Where returns the items of s for which pred reports true.
// It panics if pred is nil.
func (s *Sequence[T]) Where(pred func(T) bool) *Sequence[T] {
	if pred == nil {
		panic(invalid("Where", "predicate must not be nil"))
	}
	return New(func() Enumerator[T] {
		src := s.Enumerate()
		return newEnum(func(ctx context.Context) (T, bool, error) {
			for {
				ok, err := src.Next(ctx)
				if err != nil || !ok {
					var zero T
					return zero, false, err
				}
				if v := src.Current(); pred(v) {
					return v, true, nil
				}
			}
		}, src.Close)
	})
}

// Select projects every item of s through fn. An error returned by fn ends
// the enumeration with a [*ProducerFault].
//
// Note: This is a function and not a method because Go does not support
// generic methods on generic types.
func Select[A, B any](s *Sequence[A], fn func(context.Context, A) (B, error)) *Sequence[B] {
	if fn == nil {
		panic(invalid("Select", "selector must not be nil"))
	}
	return New(func() Enumerator[B] {
		src := s.Enumerate()
		return newEnum(func(ctx context.Context) (B, bool, error) {
			var zero B
			ok, err := src.Next(ctx)
			if err != nil || !ok {
				return zero, false, err
			}
			v, err := fn(ctx, src.Current())
			if err != nil {
				return zero, false, fault("Select", err)
			}
			return v, true, nil
		}, src.Close)
	})
}

// SelectMany projects every item of s to an inner sequence and flattens
// the results. Each inner enumerator is closed before the next one opens,
// and before an error from either level is returned.
func SelectMany[A, B any](s *Sequence[A], fn func(A) *Sequence[B]) *Sequence[B] {
	if fn == nil {
		panic(invalid("SelectMany", "selector must not be nil"))
	}
	return New(func() Enumerator[B] {
		outer := s.Enumerate()
		var (
			mu    sync.Mutex
			inner Enumerator[B]
		)
		swap := func(next Enumerator[B]) {
			mu.Lock()
			prev := inner
			inner = next
			mu.Unlock()
			if prev != nil {
				_ = prev.Close()
			}
		}

		return newEnum(func(ctx context.Context) (B, bool, error) {
			var zero B
			for {
				mu.Lock()
				cur := inner
				mu.Unlock()

				if cur != nil {
					ok, err := cur.Next(ctx)
					if err != nil {
						if !IsCancellation(err) {
							swap(nil)
						}
						return zero, false, err
					}
					if ok {
						return cur.Current(), true, nil
					}
					swap(nil)
				}

				ok, err := outer.Next(ctx)
				if err != nil || !ok {
					return zero, false, err
				}
				seq := fn(outer.Current())
				if seq == nil {
					continue
				}
				swap(seq.Enumerate())
			}
		}, func() error {
			swap(nil)
			return outer.Close()
		})
	})
}

// Take returns at most the first n items of s. The source enumerator is
// closed as soon as the n-th item has been pulled, so a producer behind an
// infinite sequence is stopped right away. It panics if n is negative.
func (s *Sequence[T]) Take(n int) *Sequence[T] {
	if n < 0 {
		panic(invalid("Take", "count must be non-negative, got %d", n))
	}
	return New(func() Enumerator[T] {
		src := s.Enumerate()
		var (
			taken int
			once  sync.Once
			err   error
		)
		release := func() error {
			once.Do(func() { err = src.Close() })
			return err
		}
		return newEnum(func(ctx context.Context) (T, bool, error) {
			var zero T
			if taken >= n {
				return zero, false, release()
			}
			ok, err := src.Next(ctx)
			if err != nil || !ok {
				return zero, false, err
			}
			taken++
			v := src.Current()
			if taken == n {
				if err := release(); err != nil {
					return zero, false, err
				}
			}
			return v, true, nil
		}, release)
	})
}

// Skip bypasses the first n items of s. It panics if n is negative.
func (s *Sequence[T]) Skip(n int) *Sequence[T] {
	if n < 0 {
		panic(invalid("Skip", "count must be non-negative, got %d", n))
	}
	return New(func() Enumerator[T] {
		src := s.Enumerate()
		var skipped int
		return newEnum(func(ctx context.Context) (T, bool, error) {
			var zero T
			for skipped < n {
				ok, err := src.Next(ctx)
				if err != nil || !ok {
					return zero, false, err
				}
				skipped++
			}
			ok, err := src.Next(ctx)
			if err != nil || !ok {
				return zero, false, err
			}
			return src.Current(), true, nil
		}, src.Close)
	})
}

// Peek calls fn for every item as it passes through.
func (s *Sequence[T]) Peek(fn func(T)) *Sequence[T] {
	if fn == nil {
		panic(invalid("Peek", "callback must not be nil"))
	}
	return New(func() Enumerator[T] {
		src := s.Enumerate()
		return newEnum(func(ctx context.Context) (T, bool, error) {
			ok, err := src.Next(ctx)
			if err != nil || !ok {
				var zero T
				return zero, false, err
			}
			v := src.Current()
			fn(v)
			return v, true, nil
		}, src.Close)
	})
}

// Concat returns the items of s followed by the items of each of others.
// Each source is drained and closed before the next one is opened; closing
// the result part-way never opens a later source.
func (s *Sequence[T]) Concat(others ...*Sequence[T]) *Sequence[T] {
	for i, o := range others {
		if o == nil {
			panic(invalid("Concat", "sequence %d is nil", i+1))
		}
	}
	parts := append([]*Sequence[T]{s}, others...)

	return New(func() Enumerator[T] {
		var (
			mu     sync.Mutex
			idx    int
			cur    Enumerator[T]
			closed bool
		)
		return newEnum(func(ctx context.Context) (T, bool, error) {
			var zero T
			for {
				mu.Lock()
				if closed || idx >= len(parts) {
					mu.Unlock()
					return zero, false, nil
				}
				if cur == nil {
					cur = parts[idx].Enumerate()
				}
				e := cur
				mu.Unlock()

				ok, err := e.Next(ctx)
				if err != nil {
					return zero, false, err
				}
				if ok {
					return e.Current(), true, nil
				}

				mu.Lock()
				if cur == e {
					cur = nil
					idx++
				}
				mu.Unlock()
				if err := e.Close(); err != nil {
					return zero, false, err
				}
			}
		}, func() error {
			mu.Lock()
			closed = true
			e := cur
			cur = nil
			mu.Unlock()
			if e != nil {
				return e.Close()
			}
			return nil
		})
	})
}
