package seqflow

import (
	"context"
	"sync"
)

// Handle is the asynchronous result of a computation running on another
// goroutine. It completes exactly once with a value, a fault or a
// cancellation, and lets callers wait with their own context or register
// continuations.
//
// Create one with [Spawn] or [Completed].
type Handle[T any] struct {
	done   chan struct{}
	cancel context.CancelFunc

	mu    sync.Mutex
	val   T
	err   error
	conts []func(T, error)
}

// Spawn runs fn as a task of sc and returns a Handle for its outcome. The
// task context is derived from the scope's context and is also cancelled by
// [Handle.Cancel]. The handle's error is not reported to the scope, so a
// failed computation never cancels its siblings; panics are recovered and
// delivered to the handle as [*PanicError].
func Spawn[T any](sc *Scope, name string, fn func(ctx context.Context) (T, error)) *Handle[T] {
	ctx, cancel := context.WithCancel(sc.Context())
	h := &Handle[T]{
		done:   make(chan struct{}),
		cancel: cancel,
	}

	sc.spawn(name, func(context.Context) error {
		defer cancel()
		var (
			v   T
			err error
		)
		func() {
			defer func() {
				if r := recover(); r != nil {
					err = NewPanicError(r)
				}
			}()
			v, err = fn(ctx)
		}()
		h.complete(v, err)
		return nil
	}, func() {
		defer cancel()
		var zero T
		h.complete(zero, context.Cause(sc.Context()))
	})

	return h
}

// Completed returns a Handle that is already complete with v and err.
func Completed[T any](v T, err error) *Handle[T] {
	h := &Handle[T]{
		done:   make(chan struct{}),
		cancel: func() {},
	}
	h.complete(v, err)
	return h
}

func (h *Handle[T]) complete(v T, err error) {
	h.mu.Lock()
	select {
	case <-h.done:
		h.mu.Unlock()
		return
	default:
	}
	h.val, h.err = v, err
	conts := h.conts
	h.conts = nil
	close(h.done)
	h.mu.Unlock()

	for _, fn := range conts {
		fn(v, err)
	}
}

// Wait blocks until the computation completes or ctx is cancelled.
// Cancelling ctx abandons the wait only; use [Handle.Cancel] to stop the
// computation itself.
func (h *Handle[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-h.done:
		h.mu.Lock()
		defer h.mu.Unlock()
		return h.val, h.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done returns a channel that is closed when the computation completes.
func (h *Handle[T]) Done() <-chan struct{} {
	return h.done
}

// Then registers fn to run with the outcome. If the handle is already
// complete fn runs immediately on the calling goroutine; otherwise it runs
// on the goroutine that completes the handle.
func (h *Handle[T]) Then(fn func(T, error)) {
	h.mu.Lock()
	select {
	case <-h.done:
		v, err := h.val, h.err
		h.mu.Unlock()
		fn(v, err)
		return
	default:
	}
	h.conts = append(h.conts, fn)
	h.mu.Unlock()
}

// Cancel requests cancellation of the computation's context.
func (h *Handle[T]) Cancel() {
	h.cancel()
}
