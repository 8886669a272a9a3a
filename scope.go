package seqflow

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// Scope owns a group of goroutines with a shared context and a coordinated
// lifecycle. Every goroutine started with [Scope.Go] is joined by
// [Scope.Wait], so background work started by a sequence bridge or a query
// provider can never outlive its owner.
//
// Error handling follows the configured [Policy]. Panics are captured as
// [*PanicError] and either returned ([WithPanicAsError]) or re-raised by Wait.
//
//	sc := seqflow.NewScope(ctx, seqflow.WithPolicy(seqflow.Collect))
//	sc.Go("load", func(ctx context.Context) error { return load(ctx) })
//	err := sc.Wait()
type Scope struct {
	ctx    context.Context
	cancel context.CancelCauseFunc
	cfg    scopeConfig

	wg   sync.WaitGroup
	open atomic.Bool

	errOnce  sync.Once
	firstErr error

	errMu sync.Mutex
	errs  []error

	panicMu sync.Mutex
	panics  []*PanicError

	sem chan struct{}

	finOnce  sync.Once
	finErr   error
	finPanic *PanicError

	totalSpawned atomic.Int64
	activeTasks  atomic.Int64
}

// NewScope creates a Scope whose context derives from parent.
// The caller must call [Scope.Wait] to finalize it.
func NewScope(parent context.Context, opts ...Option) *Scope {
	cfg := newScopeConfig(opts)
	ctx, cancel := context.WithCancelCause(parent)
	s := &Scope{
		ctx:    ctx,
		cancel: cancel,
		cfg:    cfg,
	}
	s.open.Store(true)
	if cfg.limit > 0 {
		s.sem = make(chan struct{}, cfg.limit)
	}
	return s
}

// RunScope creates a [Scope], invokes fn with it, then waits for every task
// to complete and returns the aggregated error.
func RunScope(parent context.Context, fn func(sc *Scope), opts ...Option) error {
	sc := NewScope(parent, opts...)
	defer func() {
		if r := recover(); r != nil {
			// Join in-flight tasks before re-raising so none outlive the call.
			sc.Cancel(nil)
			_, _ = sc.finalize()
			panic(r)
		}
	}()
	fn(sc)
	return sc.Wait()
}

// Go starts fn in a new goroutine owned by the scope.
// It panics if called after [Scope.Wait] has started.
func (s *Scope) Go(name string, fn func(ctx context.Context) error) {
	s.spawn(name, fn, nil)
}

// spawn starts fn; onSkip runs instead of fn when the scope is cancelled
// before the task gets to execute.
func (s *Scope) spawn(name string, fn func(ctx context.Context) error, onSkip func()) {
	// Check open BEFORE wg.Add to avoid racing finalize()'s wg.Wait().
	if !s.open.Load() {
		panic(invalid("Scope.Go", "task %q started after scope shutdown", name))
	}

	s.wg.Add(1)
	s.totalSpawned.Add(1)
	info := TaskInfo{Name: name}

	go func() {
		defer s.wg.Done()

		if s.sem != nil {
			select {
			case s.sem <- struct{}{}:
				defer func() { <-s.sem }()
			case <-s.ctx.Done():
				// The cause is already recorded; a task that never ran is not an error.
				if onSkip != nil {
					onSkip()
				}
				return
			}
		}

		if s.ctx.Err() != nil {
			if onSkip != nil {
				onSkip()
			}
			return
		}

		s.activeTasks.Add(1)
		defer s.activeTasks.Add(-1)

		start := time.Now()
		err := s.exec(func(ctx context.Context) error {
			if s.cfg.onStart != nil {
				s.cfg.onStart(info)
			}
			return fn(ctx)
		})
		if s.cfg.onDone != nil {
			s.cfg.onDone(info, err, time.Since(start))
		}
		if err != nil {
			s.recordError(info, err)
		}
	}()
}

// exec runs fn with panic recovery.
func (s *Scope) exec(fn func(ctx context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			pe := NewPanicError(r)
			if s.cfg.panicAsErr {
				err = pe
				return
			}
			s.panicMu.Lock()
			s.panics = append(s.panics, pe)
			s.panicMu.Unlock()
			s.cancel(pe)
		}
	}()
	return fn(s.ctx)
}

func (s *Scope) recordError(info TaskInfo, err error) {
	te := &TaskError{Task: info, Err: err}

	switch s.cfg.policy {
	case FailFast:
		s.errOnce.Do(func() {
			s.errMu.Lock()
			s.firstErr = te
			s.errMu.Unlock()
			s.cancel(err)
		})
	case Collect:
		s.errMu.Lock()
		s.errs = append(s.errs, te)
		s.errMu.Unlock()
	}
}

func (s *Scope) close() {
	s.open.Store(false)
}

// finalize waits for all tasks and computes the aggregated outcome once.
func (s *Scope) finalize() (error, *PanicError) {
	s.finOnce.Do(func() {
		s.close()
		s.wg.Wait()

		ctxWasCancelled := s.ctx.Err() != nil
		s.cancel(nil)

		if !s.cfg.panicAsErr {
			s.panicMu.Lock()
			if len(s.panics) > 0 {
				s.finPanic = s.panics[0]
			}
			s.panicMu.Unlock()
		}

		s.errMu.Lock()
		switch s.cfg.policy {
		case FailFast:
			s.finErr = s.firstErr
		case Collect:
			s.finErr = errors.Join(s.errs...)
		}
		s.errMu.Unlock()

		// Surface an external cancellation when no task reported anything.
		if s.finErr == nil && ctxWasCancelled && s.finPanic == nil {
			s.finErr = context.Cause(s.ctx)
		}
	})
	return s.finErr, s.finPanic
}

// Wait stops accepting new tasks, waits for every task to complete, and
// returns the aggregated error. If a task panicked and [WithPanicAsError]
// was not set, Wait re-panics with the captured [*PanicError].
//
// Wait is idempotent; subsequent calls return the same result.
func (s *Scope) Wait() error {
	err, pe := s.finalize()
	if pe != nil {
		panic(pe)
	}
	return err
}

// Cancel cancels the scope's context with the given cause.
func (s *Scope) Cancel(cause error) {
	s.cancel(cause)
}

// Context returns the scope's context, cancelled when the scope finalizes
// or is explicitly cancelled via [Scope.Cancel].
func (s *Scope) Context() context.Context {
	return s.ctx
}

// ActiveTasks returns the number of tasks currently executing.
func (s *Scope) ActiveTasks() int64 {
	return s.activeTasks.Load()
}

// TotalSpawned returns the number of tasks started so far.
func (s *Scope) TotalSpawned() int64 {
	return s.totalSpawned.Load()
}
