package push

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/baxromumarov/seqflow"
	"github.com/sourcegraph/conc/pool"
)

// ObserverFault attributes a failure to the observer at Index in the
// dispatch order of one broadcast.
type ObserverFault struct {
	Index int
	Err   error
}

func (e *ObserverFault) Error() string {
	return fmt.Sprintf("observer #%d: %v", e.Index, e.Err)
}

func (e *ObserverFault) Unwrap() error {
	return e.Err
}

// FaultsOf returns the observer faults carried by err, in dispatch order.
func FaultsOf(err error) []*ObserverFault {
	var agg *seqflow.AggregateFault
	if !errors.As(err, &agg) {
		return nil
	}
	out := make([]*ObserverFault, 0, len(agg.Faults))
	for _, f := range agg.Faults {
		if of, ok := f.(*ObserverFault); ok {
			out = append(out, of)
		}
	}
	return out
}

// notify calls fn on o, turning a panic into a [*seqflow.PanicError].
func notify[T any](o Observer[T], fn func(Observer[T]) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = seqflow.NewPanicError(r)
		}
	}()
	return fn(o)
}

// dispatchSerial delivers to every registration in order on the calling
// goroutine. With live set, registrations disposed after the snapshot was
// taken are skipped.
func dispatchSerial[T any](op string, regs []*registration[T], live bool, fn func(Observer[T]) error) error {
	var faults []error
	for i, r := range regs {
		if live && !r.active.Load() {
			continue
		}
		if err := notify(r.obs, fn); err != nil {
			faults = append(faults, &ObserverFault{Index: i, Err: err})
		}
	}
	return seqflow.NewAggregateFault(op, faults)
}

// dispatchConcurrent delivers to every registration concurrently, at most
// limit at a time when limit is positive, and returns once all of them
// finished. Faults are reported in dispatch order.
func dispatchConcurrent[T any](op string, regs []*registration[T], live bool, limit int, fn func(Observer[T]) error) error {
	if len(regs) == 0 {
		return nil
	}
	results := make([]error, len(regs))
	p := pool.New()
	if limit > 0 {
		p = p.WithMaxGoroutines(limit)
	}
	for i, r := range regs {
		if live && !r.active.Load() {
			continue
		}
		p.Go(func() {
			if err := notify(r.obs, fn); err != nil {
				results[i] = &ObserverFault{Index: i, Err: err}
			}
		})
	}
	p.Wait()

	var faults []error
	for _, err := range results {
		if err != nil {
			faults = append(faults, err)
		}
	}
	return seqflow.NewAggregateFault(op, faults)
}

// CompositeObserver forwards every notification to a changing set of child
// observers, concurrently. Children can be added and removed at any time,
// including from inside a notification. A failing or panicking child never
// prevents delivery to the others; the failures are returned together as a
// [*seqflow.AggregateFault] of [*ObserverFault] once every child returned.
//
// After OnError or OnCompleted the composite is terminated: further
// notifications are ignored and children added later are not notified.
type CompositeObserver[T any] struct {
	mu    sync.Mutex
	set   observerSet[T]
	limit int
	done  bool
}

// NewCompositeObserver returns an empty composite. WithFanOutLimit bounds
// the number of children notified at once.
func NewCompositeObserver[T any](opts ...SubjectOption) *CompositeObserver[T] {
	cfg := applySubjectOptions(opts)
	return &CompositeObserver[T]{limit: cfg.fanOutLimit}
}

// Add registers o and returns a subscription that removes it again. Adding
// the same observer twice is reference counted like a subject subscription.
func (c *CompositeObserver[T]) Add(o Observer[T]) *Subscription {
	if o == nil {
		panic(seqflow.NewValidationError("CompositeObserver.Add", "observer must not be nil"))
	}
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return disposedSubscription()
	}
	r := c.set.add(o)
	c.mu.Unlock()

	return NewSubscription(func() {
		c.mu.Lock()
		c.set.release(r)
		c.mu.Unlock()
	})
}

// Remove drops o regardless of how many times it was added, and reports
// whether it was present.
func (c *CompositeObserver[T]) Remove(o Observer[T]) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.set.byKey[identity(o)]
	if !ok {
		return false
	}
	r.refs = 1
	c.set.release(r)
	return true
}

// Len returns the number of registered children.
func (c *CompositeObserver[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.set.len()
}

func (c *CompositeObserver[T]) OnNext(ctx context.Context, v T) error {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return nil
	}
	regs := c.set.snapshot()
	c.mu.Unlock()

	return dispatchConcurrent("CompositeObserver.OnNext", regs, true, c.limit, func(o Observer[T]) error {
		return o.OnNext(ctx, v)
	})
}

func (c *CompositeObserver[T]) OnError(ctx context.Context, err error) error {
	regs, ok := c.terminate()
	if !ok {
		seqflow.ReportUnhandled(err)
		return nil
	}
	return dispatchConcurrent("CompositeObserver.OnError", regs, false, c.limit, func(o Observer[T]) error {
		return o.OnError(ctx, err)
	})
}

func (c *CompositeObserver[T]) OnCompleted(ctx context.Context) error {
	regs, ok := c.terminate()
	if !ok {
		return nil
	}
	return dispatchConcurrent("CompositeObserver.OnCompleted", regs, false, c.limit, func(o Observer[T]) error {
		return o.OnCompleted(ctx)
	})
}

func (c *CompositeObserver[T]) terminate() ([]*registration[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.done {
		return nil, false
	}
	c.done = true
	return c.set.clear(), true
}
