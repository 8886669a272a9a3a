package push

import (
	"context"
	"sync/atomic"

	"github.com/baxromumarov/seqflow"
)

// Join correlates two push streams by overlapping windows. Every value
// opens a window on its side that stays open until the duration source
// returned for it emits or completes. While a left value l and a right
// value r both have open windows, selector(l, r) is emitted exactly once,
// when the later of the two arrives.
//
// Arrivals and expirations on both sides are serialised, and results for
// one arrival are emitted in the arrival order of the values already open
// on the other side. The join completes once both sources completed, or
// once one source completed and all of its windows closed. An error from
// either source, any duration source, or selector terminates the join and
// is forwarded downstream. A downstream OnNext failure also terminates it.
//
// The downstream observer is notified while the join holds its lock, so it
// must not synchronously push into left, right or any duration source; such
// a call deadlocks. Hand the value to another goroutine instead.
func Join[L, R, LD, RD, Out any](
	left Observable[L],
	right Observable[R],
	leftWindow func(L) Observable[LD],
	rightWindow func(R) Observable[RD],
	selector func(L, R) Out,
) Observable[Out] {
	var issues []string
	if left == nil || right == nil {
		issues = append(issues, "sources must not be nil")
	}
	if leftWindow == nil || rightWindow == nil {
		issues = append(issues, "window selectors must not be nil")
	}
	if selector == nil {
		issues = append(issues, "result selector must not be nil")
	}
	if len(issues) > 0 {
		panic(seqflow.NewValidationError("Join", issues...))
	}

	return ObservableFunc[Out](func(down Observer[Out]) *Subscription {
		j := &join[L, R, Out]{
			gate:     seqflow.NewGate(),
			down:     down,
			selector: selector,
			windows:  make(map[windowKey]*windowSub),
		}
		j.start(left, right,
			func(v L) Observable[struct{}] { return Signal(leftWindow(v)) },
			func(v R) Observable[struct{}] { return Signal(rightWindow(v)) },
		)
		return NewSubscription(j.dispose)
	})
}

// Signal erases the value type of o, keeping only the timing of its
// notifications. Join uses it for duration sources.
func Signal[T any](o Observable[T]) Observable[struct{}] {
	if o == nil {
		return nil
	}
	return ObservableFunc[struct{}](func(obs Observer[struct{}]) *Subscription {
		return o.Subscribe(&Funcs[T]{
			Next:      func(ctx context.Context, _ T) error { return obs.OnNext(ctx, struct{}{}) },
			Error:     obs.OnError,
			Completed: obs.OnCompleted,
		})
	})
}

type side uint8

const (
	leftSide side = iota
	rightSide
)

type windowKey struct {
	side side
	id   uint64
}

// windowSub tracks the duration subscription of one open window. expired
// is set when the window closed before its subscription was recorded.
type windowSub struct {
	sub     *Subscription
	expired bool
}

// window holds the open values of one side in arrival order.
type window[V any] struct {
	ids  []uint64
	vals map[uint64]V
}

func (w *window[V]) put(id uint64, v V) {
	if w.vals == nil {
		w.vals = make(map[uint64]V)
	}
	w.ids = append(w.ids, id)
	w.vals[id] = v
}

func (w *window[V]) remove(id uint64) bool {
	if _, ok := w.vals[id]; !ok {
		return false
	}
	delete(w.vals, id)
	// Compact lazily once most of the order slice is stale.
	if len(w.ids) > 32 && len(w.ids) > 2*len(w.vals) {
		live := w.ids[:0]
		for _, x := range w.ids {
			if _, ok := w.vals[x]; ok {
				live = append(live, x)
			}
		}
		w.ids = live
	}
	return true
}

func (w *window[V]) len() int {
	return len(w.vals)
}

func (w *window[V]) each(fn func(V) error) error {
	for _, id := range w.ids {
		v, ok := w.vals[id]
		if !ok {
			continue
		}
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}

type join[L, R, Out any] struct {
	gate *seqflow.Gate
	// disposing is set by Dispose. When Dispose cannot take the gate, the
	// current holder finishes the disposal as it unlocks.
	disposing atomic.Bool

	down     Observer[Out]
	selector func(L, R) Out

	// Guarded by gate.
	left                window[L]
	right               window[R]
	leftID, rightID     uint64
	leftDone, rightDone bool
	done                bool
	windows             map[windowKey]*windowSub
	leftSub, rightSub   *Subscription
}

func (j *join[L, R, Out]) start(left Observable[L], right Observable[R], lw func(L) Observable[struct{}], rw func(R) Observable[struct{}]) {
	ls := left.Subscribe(&Funcs[L]{
		Next: func(ctx context.Context, v L) error {
			return onArrival(j, ctx, leftSide, &j.leftID, &j.left, v, lw, func(l L) error {
				return j.right.each(func(r R) error { return j.emit(ctx, l, r) })
			})
		},
		Error:     j.fail,
		Completed: func(ctx context.Context) error { return j.sourceDone(ctx, leftSide) },
	})
	j.keep(ls, &j.leftSub)

	rs := right.Subscribe(&Funcs[R]{
		Next: func(ctx context.Context, v R) error {
			return onArrival(j, ctx, rightSide, &j.rightID, &j.right, v, rw, func(r R) error {
				return j.left.each(func(l L) error { return j.emit(ctx, l, r) })
			})
		},
		Error:     j.fail,
		Completed: func(ctx context.Context) error { return j.sourceDone(ctx, rightSide) },
	})
	j.keep(rs, &j.rightSub)
}

// keep records a source subscription, or disposes it if the join already
// ended while Subscribe was running.
func (j *join[L, R, Out]) keep(sub *Subscription, slot **Subscription) {
	_ = j.gate.Lock(context.Background())
	done := j.done
	if !done {
		*slot = sub
	}
	j.unlock()
	if done {
		sub.Dispose()
	}
}

// onArrival stores v in its window, emits the matches against the other
// side, and opens v's duration window. The duration source is subscribed
// outside the gate since it may notify synchronously.
func onArrival[L, R, Out, V any](
	j *join[L, R, Out],
	ctx context.Context,
	s side,
	nextID *uint64,
	w *window[V],
	v V,
	duration func(V) Observable[struct{}],
	match func(V) error,
) error {
	if err := j.gate.Lock(ctx); err != nil {
		return err
	}
	if j.done {
		j.unlock()
		return nil
	}
	id := *nextID
	*nextID++
	w.put(id, v)
	key := windowKey{side: s, id: id}
	ws := &windowSub{}
	j.windows[key] = ws

	if err := match(v); err != nil {
		out := j.terminateLocked(ctx, err)
		j.unlock()
		return out
	}
	j.unlock()

	dur, err := openWindow(duration, v)
	if err != nil {
		return j.fail(ctx, err)
	}
	sub := dur.Subscribe(&expiry{
		next: func(ctx context.Context) error { return j.expire(ctx, key) },
		err:  j.fail,
	})

	_ = j.gate.Lock(context.Background())
	drop := j.done || ws.expired
	if !drop {
		ws.sub = sub
	}
	j.unlock()
	if drop {
		sub.Dispose()
	}
	return nil
}

func openWindow[V any](duration func(V) Observable[struct{}], v V) (o Observable[struct{}], err error) {
	defer func() {
		if r := recover(); r != nil {
			err = seqflow.NewPanicError(r)
		}
	}()
	o = duration(v)
	if o == nil {
		return nil, seqflow.NewValidationError("Join", "window selector returned nil")
	}
	return o, nil
}

// emit sends one joined result downstream. A selector failure is reported
// as a downstream error; a downstream failure ends the join.
func (j *join[L, R, Out]) emit(ctx context.Context, l L, r R) error {
	if j.disposing.Load() {
		return nil
	}
	out, err := j.selectPair(l, r)
	if err != nil {
		return &selectorFault{err: err}
	}
	return j.down.OnNext(ctx, out)
}

func (j *join[L, R, Out]) selectPair(l L, r R) (out Out, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = seqflow.NewPanicError(rec)
		}
	}()
	return j.selector(l, r), nil
}

type selectorFault struct {
	err error
}

func (e *selectorFault) Error() string { return e.err.Error() }
func (e *selectorFault) Unwrap() error { return e.err }

// terminateLocked ends the join after a failure while emitting. Selector
// failures are forwarded downstream; downstream failures are returned to
// the source that pushed the value.
func (j *join[L, R, Out]) terminateLocked(ctx context.Context, err error) error {
	if sf, ok := err.(*selectorFault); ok {
		return j.failLocked(ctx, &seqflow.ProducerFault{Op: "Join", Err: sf.err})
	}
	j.done = true
	j.releaseLocked()
	return err
}

func (j *join[L, R, Out]) expire(ctx context.Context, key windowKey) error {
	if err := j.gate.Lock(ctx); err != nil {
		return err
	}
	defer j.unlock()
	if j.done {
		return nil
	}

	if ws, ok := j.windows[key]; ok {
		delete(j.windows, key)
		ws.expired = true
		if ws.sub != nil {
			ws.sub.Dispose()
		}
	}

	var removed, empty, sideDone bool
	if key.side == leftSide {
		removed, empty, sideDone = j.left.remove(key.id), j.left.len() == 0, j.leftDone
	} else {
		removed, empty, sideDone = j.right.remove(key.id), j.right.len() == 0, j.rightDone
	}
	if removed && empty && sideDone {
		return j.completeLocked(ctx)
	}
	return nil
}

func (j *join[L, R, Out]) sourceDone(ctx context.Context, s side) error {
	if err := j.gate.Lock(ctx); err != nil {
		return err
	}
	defer j.unlock()
	if j.done {
		return nil
	}

	if s == leftSide {
		j.leftDone = true
		if j.rightDone || j.left.len() == 0 {
			return j.completeLocked(ctx)
		}
		return nil
	}
	j.rightDone = true
	if j.leftDone || j.right.len() == 0 {
		return j.completeLocked(ctx)
	}
	return nil
}

func (j *join[L, R, Out]) fail(ctx context.Context, err error) error {
	_ = j.gate.Lock(context.Background())
	defer j.unlock()
	return j.failLocked(ctx, err)
}

func (j *join[L, R, Out]) failLocked(ctx context.Context, err error) error {
	if j.done {
		seqflow.ReportUnhandled(err)
		return nil
	}
	j.done = true
	j.releaseLocked()
	return j.down.OnError(ctx, err)
}

// completeLocked is the only place the join completes; done makes it run
// once.
func (j *join[L, R, Out]) completeLocked(ctx context.Context) error {
	if j.done {
		return nil
	}
	j.done = true
	j.releaseLocked()
	return j.down.OnCompleted(ctx)
}

// releaseLocked disposes both source subscriptions and every open window.
func (j *join[L, R, Out]) releaseLocked() {
	if j.leftSub != nil {
		j.leftSub.Dispose()
	}
	if j.rightSub != nil {
		j.rightSub.Dispose()
	}
	for key, ws := range j.windows {
		delete(j.windows, key)
		ws.expired = true
		if ws.sub != nil {
			ws.sub.Dispose()
		}
	}
}

// dispose may run inside a downstream callback, while the gate is held by
// the goroutine delivering it, so it never blocks on the gate.
func (j *join[L, R, Out]) dispose() {
	j.disposing.Store(true)
	if j.gate.TryLock() {
		j.disposeLocked()
		j.gate.Unlock()
	}
}

func (j *join[L, R, Out]) disposeLocked() {
	if j.done {
		return
	}
	j.done = true
	j.releaseLocked()
}

func (j *join[L, R, Out]) unlock() {
	if j.disposing.Load() {
		j.disposeLocked()
	}
	j.gate.Unlock()
	// A dispose that lost the race for the gate after the check above.
	if j.disposing.Load() && j.gate.TryLock() {
		j.disposeLocked()
		j.gate.Unlock()
	}
}

// expiry closes one window on the first notification of its duration
// source.
type expiry struct {
	fired atomic.Bool
	next  func(ctx context.Context) error
	err   func(ctx context.Context, err error) error
}

func (e *expiry) OnNext(ctx context.Context, _ struct{}) error {
	if e.fired.Swap(true) {
		return nil
	}
	return e.next(ctx)
}

func (e *expiry) OnCompleted(ctx context.Context) error {
	return e.OnNext(ctx, struct{}{})
}

func (e *expiry) OnError(ctx context.Context, err error) error {
	if e.fired.Swap(true) {
		seqflow.ReportUnhandled(err)
		return nil
	}
	return e.err(ctx, err)
}
