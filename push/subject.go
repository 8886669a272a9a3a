package push

import (
	"context"
	"fmt"
	"sync"

	"github.com/baxromumarov/seqflow"
)

// Kind tags the dispatch behaviour of a [Subject].
type Kind int

const (
	// KindMulticast delivers to every subscribed observer in subscription
	// order, one after the other.
	KindMulticast Kind = iota
	// KindSingle keeps only the most recently subscribed observer; each
	// new subscription replaces the previous one.
	KindSingle
	// KindComposite delivers to every subscribed observer concurrently
	// through a [CompositeObserver] style fan-out.
	KindComposite
)

func (k Kind) String() string {
	switch k {
	case KindMulticast:
		return "multicast"
	case KindSingle:
		return "single"
	case KindComposite:
		return "composite"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Subject is both an [Observer] and an [Observable]: notifications pushed
// into it are broadcast to its subscribers.
//
// A failing or panicking subscriber never stops delivery to the others.
// The failures of one broadcast are returned together as a
// [*seqflow.AggregateFault] whose entries are [*ObserverFault].
//
// OnError and OnCompleted are terminal. Afterwards OnNext is a no-op, and
// an observer subscribing later receives the terminal notification right
// away. Broadcasts are serialised by a gate, so observers of one subject
// never see overlapping notifications.
//
// The same observer subscribed twice is registered once and reference
// counted: it receives each notification once, and stays subscribed until
// every one of its subscriptions is disposed. Observers are compared with
// ==; values of non-comparable types are always distinct.
type Subject[T any] interface {
	Observer[T]
	Observable[T]

	// SubscribeContext is Subscribe, but waits for an in-flight broadcast
	// to finish first. It returns ctx's error if that wait is abandoned.
	// It must not be called from inside one of the subject's own
	// notifications.
	SubscribeContext(ctx context.Context, o Observer[T]) (*Subscription, error)

	// Dispose detaches every observer. Later OnNext and OnCompleted calls
	// are no-ops; a later OnError goes to [seqflow.ReportUnhandled].
	Dispose()

	// Kind reports the dispatch variant.
	Kind() Kind

	// Len returns the number of registered observers.
	Len() int
}

// SubjectOption configures subjects and composite observers.
type SubjectOption func(*subjectConfig)

type subjectConfig struct {
	fanOutLimit int
}

// WithFanOutLimit bounds the number of observers notified concurrently by
// a composite subject or [CompositeObserver]. Zero means no bound.
// It panics if n is negative.
func WithFanOutLimit(n int) SubjectOption {
	if n < 0 {
		panic(seqflow.NewValidationError("WithFanOutLimit", fmt.Sprintf("limit must be non-negative, got %d", n)))
	}
	return func(c *subjectConfig) { c.fanOutLimit = n }
}

func applySubjectOptions(opts []SubjectOption) subjectConfig {
	var cfg subjectConfig
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

// NewSubject returns a multicast subject.
func NewSubject[T any](opts ...SubjectOption) Subject[T] {
	return newSubject[T](KindMulticast, opts)
}

// NewSingleSubject returns a subject that forwards to one observer at a
// time: subscribing replaces the current observer.
func NewSingleSubject[T any](opts ...SubjectOption) Subject[T] {
	return newSubject[T](KindSingle, opts)
}

// NewCompositeSubject returns a subject that notifies its observers
// concurrently and waits for all of them before returning.
func NewCompositeSubject[T any](opts ...SubjectOption) Subject[T] {
	return newSubject[T](KindComposite, opts)
}

// terminal is the notification that ended a subject.
type terminal struct {
	err error
}

type subject[T any] struct {
	kind Kind
	cfg  subjectConfig

	// gate is held for the whole of a broadcast.
	gate *seqflow.Gate

	// mu guards set, term and disposed; it is never held while observers
	// run, so observers may subscribe or dispose from inside a callback.
	mu       sync.Mutex
	set      observerSet[T]
	term     *terminal
	disposed bool
}

func newSubject[T any](kind Kind, opts []SubjectOption) *subject[T] {
	return &subject[T]{
		kind: kind,
		cfg:  applySubjectOptions(opts),
		gate: seqflow.NewGate(),
	}
}

func (s *subject[T]) Kind() Kind {
	return s.kind
}

func (s *subject[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set.len()
}

func (s *subject[T]) Subscribe(o Observer[T]) *Subscription {
	sub, t := s.subscribe(o)
	if t != nil {
		replay(context.Background(), o, t)
	}
	return sub
}

func (s *subject[T]) SubscribeContext(ctx context.Context, o Observer[T]) (*Subscription, error) {
	if err := s.gate.Lock(ctx); err != nil {
		return nil, err
	}
	sub, t := s.subscribe(o)
	s.gate.Unlock()

	if t != nil {
		replay(ctx, o, t)
	}
	return sub, nil
}

// subscribe registers o. When the subject already terminated it returns
// the notification to replay instead; the caller delivers it after
// releasing the gate.
func (s *subject[T]) subscribe(o Observer[T]) (*Subscription, *terminal) {
	if o == nil {
		panic(seqflow.NewValidationError("Subscribe", "observer must not be nil"))
	}

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return disposedSubscription(), nil
	}
	if t := s.term; t != nil {
		s.mu.Unlock()
		return disposedSubscription(), t
	}

	var r *registration[T]
	if s.kind == KindSingle {
		r = s.set.replace(o)
	} else {
		r = s.set.add(o)
	}
	s.mu.Unlock()

	return NewSubscription(func() {
		s.mu.Lock()
		s.set.release(r)
		s.mu.Unlock()
	}), nil
}

// replay delivers a recorded terminal notification to a late subscriber.
func replay[T any](ctx context.Context, o Observer[T], t *terminal) {
	var err error
	if t.err != nil {
		err = notify(o, func(o Observer[T]) error { return o.OnError(ctx, t.err) })
	} else {
		err = notify(o, func(o Observer[T]) error { return o.OnCompleted(ctx) })
	}
	seqflow.ReportUnhandled(err)
}

func (s *subject[T]) OnNext(ctx context.Context, v T) error {
	if err := s.gate.Lock(ctx); err != nil {
		return err
	}
	defer s.gate.Unlock()

	s.mu.Lock()
	if s.term != nil || s.disposed {
		s.mu.Unlock()
		return nil
	}
	regs := s.set.snapshot()
	s.mu.Unlock()

	return s.dispatch("OnNext", regs, true, func(o Observer[T]) error {
		return o.OnNext(ctx, v)
	})
}

func (s *subject[T]) OnError(ctx context.Context, err error) error {
	if err == nil {
		panic(seqflow.NewValidationError("OnError", "error must not be nil"))
	}
	return s.finish(ctx, "OnError", &terminal{err: err}, func(o Observer[T]) error {
		return o.OnError(ctx, err)
	})
}

func (s *subject[T]) OnCompleted(ctx context.Context) error {
	return s.finish(ctx, "OnCompleted", &terminal{}, func(o Observer[T]) error {
		return o.OnCompleted(ctx)
	})
}

func (s *subject[T]) finish(ctx context.Context, op string, t *terminal, fn func(Observer[T]) error) error {
	if err := s.gate.Lock(ctx); err != nil {
		return err
	}
	defer s.gate.Unlock()

	s.mu.Lock()
	if s.term != nil || s.disposed {
		s.mu.Unlock()
		seqflow.ReportUnhandled(t.err)
		return nil
	}
	s.term = t
	regs := s.set.clear()
	s.mu.Unlock()

	return s.dispatch(op, regs, false, fn)
}

func (s *subject[T]) dispatch(op string, regs []*registration[T], live bool, fn func(Observer[T]) error) error {
	if s.kind == KindComposite {
		return dispatchConcurrent(op, regs, live, s.cfg.fanOutLimit, fn)
	}
	return dispatchSerial(op, regs, live, fn)
}

func (s *subject[T]) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disposed = true
	s.set.clear()
}
