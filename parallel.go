package seqflow

import (
	"container/heap"
	"context"
	"errors"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ErrSequenceGap is returned when an ordered parallel projection ends with
// results missing between the last emitted index and the ones still held.
var ErrSequenceGap = errors.New("seqflow: ordered projection terminated with missing results (gap)")

// ParallelOptions configures [ParallelSelect].
type ParallelOptions struct {
	// Workers bounds the number of concurrent fn calls.
	// Zero means runtime.NumCPU().
	Workers int

	// Ordered keeps the output in source order. Unordered output is emitted
	// as results complete.
	Ordered bool
}

// ParallelSelect projects the items of s through fn on up to opts.Workers
// goroutines. The first failing fn cancels the others and ends the
// enumeration with a [*ProducerFault]. Closing the enumerator cancels all
// in-flight calls and waits for them to return.
func ParallelSelect[A, B any](s *Sequence[A], opts ParallelOptions, fn func(context.Context, A) (B, error)) *Sequence[B] {
	if fn == nil {
		panic(invalid("ParallelSelect", "selector must not be nil"))
	}
	if opts.Workers < 0 {
		panic(invalid("ParallelSelect", "workers must be non-negative, got %d", opts.Workers))
	}
	if opts.Workers == 0 {
		opts.Workers = runtime.NumCPU()
	}

	return Create(func(ctx context.Context, y *Yield[B]) error {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.Workers)
		results := make(chan indexedResult[B], opts.Workers)

		var dispatchErr error
		go func() {
			defer close(results)
			dispatchErr = dispatch(gctx, g, s, results, fn)
		}()

		// Always let the dispatcher finish before returning.
		defer func() {
			cancel()
			for range results {
			}
		}()

		var (
			nextIdx int64
			pending indexedResultHeap[B]
		)
		for res := range results {
			if !opts.Ordered {
				if err := y.Return(ctx, res.val); err != nil {
					return err
				}
				continue
			}
			heap.Push(&pending, res)
			for len(pending) > 0 && pending[0].idx == nextIdx {
				r := heap.Pop(&pending).(indexedResult[B])
				nextIdx++
				if err := y.Return(ctx, r.val); err != nil {
					return err
				}
			}
		}

		if dispatchErr != nil {
			return dispatchErr
		}
		if len(pending) > 0 {
			return ErrSequenceGap
		}
		return nil
	})
}

// dispatch feeds every source item to a worker and waits for all workers.
func dispatch[A, B any](
	ctx context.Context,
	g *errgroup.Group,
	s *Sequence[A],
	results chan<- indexedResult[B],
	fn func(context.Context, A) (B, error),
) error {
	src := s.Enumerate()
	defer src.Close()

	var idx int64
	var srcErr error
	for {
		ok, err := src.Next(ctx)
		if err != nil {
			srcErr = err
			break
		}
		if !ok {
			break
		}
		v, i := src.Current(), idx
		idx++
		g.Go(func() error {
			out, err := fn(ctx, v)
			if err != nil {
				return fault("ParallelSelect", err)
			}
			select {
			case results <- indexedResult[B]{idx: i, val: out}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return srcErr
}

type indexedResult[T any] struct {
	idx int64
	val T
}

type indexedResultHeap[T any] []indexedResult[T]

func (h indexedResultHeap[T]) Len() int           { return len(h) }
func (h indexedResultHeap[T]) Less(i, j int) bool { return h[i].idx < h[j].idx }
func (h indexedResultHeap[T]) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *indexedResultHeap[T]) Push(x any)        { *h = append(*h, x.(indexedResult[T])) }
func (h *indexedResultHeap[T]) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
