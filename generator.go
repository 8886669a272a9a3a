package seqflow

import (
	"context"
	"sync"
	"sync/atomic"
)

// State is the lifecycle state of a generator enumerator.
type State int32

const (
	// StateCreated: Next has not been called yet; the producer is not running.
	StateCreated State = iota
	// StateRunning: the producer is executing between two yields.
	StateRunning
	// StateSuspended: the producer handed over an item and waits for demand.
	StateSuspended
	// StateCompleted: the producer ended normally, broke, or was cancelled.
	StateCompleted
	// StateFaulted: the producer failed; the fault was returned by Next.
	StateFaulted
	// StateDisposed: Close was called before the sequence finished.
	StateDisposed
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateSuspended:
		return "suspended"
	case StateCompleted:
		return "completed"
	case StateFaulted:
		return "faulted"
	case StateDisposed:
		return "disposed"
	default:
		return "unknown"
	}
}

// ProducerFunc is the body of a generator. It hands items to the consumer
// one at a time through y and returns when the sequence is over. Returning
// a non-nil error faults the sequence.
type ProducerFunc[T any] func(ctx context.Context, y *Yield[T]) error

// Create returns a sequence driven by produce. Each enumeration runs its
// own producer on a dedicated goroutine, started by the first Next. The
// producer and consumer rendezvous through a one-slot handoff: the producer
// never runs more than one item ahead of the consumer.
//
//	evens := seqflow.Create(func(ctx context.Context, y *seqflow.Yield[int]) error {
//	    for i := 0; ; i += 2 {
//	        if err := y.Return(ctx, i); err != nil {
//	            return err
//	        }
//	    }
//	})
//
// The producer context derives from the context of the first Next call and
// is cancelled with cause [ErrDisposed] when the enumerator is closed, so a
// producer suspended in [Yield.Return] or blocked on ctx unwinds promptly.
//
// It panics with a [*ValidationError] if produce is nil.
func Create[T any](produce ProducerFunc[T]) *Sequence[T] {
	if produce == nil {
		panic(invalid("Create", "producer must not be nil"))
	}
	return New(func() Enumerator[T] {
		return &generator[T]{
			produce: produce,
			out:     make(chan step[T], 1),
			demand:  make(chan struct{}),
			closed:  make(chan struct{}),
			exited:  make(chan struct{}),
		}
	})
}

// step is one message from producer to consumer: an item, or the end of
// the sequence with an optional error.
type step[T any] struct {
	val T
	end bool
	err error
}

type generator[T any] struct {
	produce ProducerFunc[T]

	// out holds at most one undelivered step. The producer only sends after
	// it received demand, so a second send can never queue behind the first.
	out    chan step[T]
	demand chan struct{}
	closed chan struct{}
	exited chan struct{}

	mu       sync.Mutex
	started  bool
	disposed bool
	cancel   context.CancelCauseFunc

	state     atomic.Int32
	closeOnce sync.Once

	// Consumer-side fields; Next is single-consumer.
	cur      T
	finished bool
	awaiting bool

	// Producer-side field.
	broken bool
}

func (g *generator[T]) State() State {
	return State(g.state.Load())
}

func (g *generator[T]) Current() T {
	return g.cur
}

func (g *generator[T]) Next(ctx context.Context) (bool, error) {
	if g.finished {
		return false, nil
	}

	if !g.awaiting {
		g.mu.Lock()
		if g.disposed {
			g.mu.Unlock()
			g.finished = true
			return false, nil
		}
		if !g.started {
			g.started = true
			pctx, cancel := context.WithCancelCause(ctx)
			g.cancel = cancel
			g.state.Store(int32(StateRunning))
			go g.run(pctx)
			g.mu.Unlock()
		} else {
			g.mu.Unlock()
			select {
			case g.demand <- struct{}{}:
			case <-g.exited:
				// The producer ended on its own; its final step is buffered.
			case <-g.closed:
				g.finished = true
				return false, nil
			case <-ctx.Done():
				return false, ctx.Err()
			}
		}
		g.awaiting = true
	}

	select {
	case s := <-g.out:
		g.awaiting = false
		if !s.end {
			g.cur = s.val
			return true, nil
		}
		g.finished = true
		if s.err != nil && !IsCancellation(s.err) {
			g.settle(StateFaulted)
			return false, fault("Create", s.err)
		}
		g.settle(StateCompleted)
		return false, s.err
	case <-g.closed:
		g.finished = true
		return false, nil
	case <-ctx.Done():
		// Demand was already issued; the next call picks up the pending step.
		return false, ctx.Err()
	}
}

// run executes the producer and posts its outcome, unless the consumer has
// already seen the end of the sequence.
func (g *generator[T]) run(ctx context.Context) {
	defer close(g.exited)

	err := g.invoke(ctx)

	if g.broken {
		// The consumer already received the end marker from Break.
		ReportUnhandled(fault("Create", err))
		return
	}
	select {
	case <-g.closed:
		ReportUnhandled(fault("Create", err))
		return
	default:
	}
	select {
	case g.out <- step[T]{end: true, err: err}:
	case <-g.closed:
		ReportUnhandled(fault("Create", err))
	}
}

func (g *generator[T]) invoke(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewPanicError(r)
		}
	}()
	return g.produce(ctx, &Yield[T]{g: g})
}

// Close stops the enumeration. A running producer has its context
// cancelled with cause [ErrDisposed] and any pending [Yield.Return] fails;
// Close waits for the producer goroutine to return.
func (g *generator[T]) Close() error {
	g.closeOnce.Do(func() {
		g.mu.Lock()
		g.disposed = true
		started := g.started
		cancel := g.cancel
		g.mu.Unlock()

		close(g.closed)
		if cancel != nil {
			cancel(ErrDisposed)
		}
		if started {
			<-g.exited
		}
		g.settle(StateDisposed)
	})
	return nil
}

// settle moves the generator into a final state unless it already is in one.
func (g *generator[T]) settle(final State) {
	for {
		cur := g.state.Load()
		if cur == int32(StateCompleted) || cur == int32(StateFaulted) || cur == int32(StateDisposed) {
			return
		}
		if g.state.CompareAndSwap(cur, int32(final)) {
			return
		}
	}
}

// Yield is the producer's side of a generator handoff. It is only valid
// inside the [ProducerFunc] it was passed to and must not be used
// concurrently.
type Yield[T any] struct {
	g *generator[T]
}

// Return hands v to the consumer as its Current item and suspends until
// the consumer asks for the next one. It returns an error, and v may be
// lost, when ctx is cancelled or the enumerator is closed while suspended;
// the producer should then return that error.
func (y *Yield[T]) Return(ctx context.Context, v T) error {
	g := y.g
	if g.broken {
		return ErrYieldAfterBreak
	}
	if ctx.Err() != nil {
		return context.Cause(ctx)
	}

	select {
	case g.out <- step[T]{val: v}:
	case <-g.closed:
		return ErrDisposed
	case <-ctx.Done():
		return context.Cause(ctx)
	}

	g.state.CompareAndSwap(int32(StateRunning), int32(StateSuspended))
	select {
	case <-g.demand:
		g.state.CompareAndSwap(int32(StateSuspended), int32(StateRunning))
		return nil
	case <-g.closed:
		return ErrDisposed
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}

// Break ends the sequence: the consumer's pending Next returns false. The
// producer should return afterwards; later calls to Return fail with
// [ErrYieldAfterBreak]. Break is idempotent.
func (y *Yield[T]) Break(ctx context.Context) error {
	g := y.g
	if g.broken {
		return nil
	}
	if ctx.Err() != nil {
		return context.Cause(ctx)
	}
	g.broken = true
	select {
	case g.out <- step[T]{end: true}:
		return nil
	case <-g.closed:
		return ErrDisposed
	case <-ctx.Done():
		return context.Cause(ctx)
	}
}
