package seqflow

import (
	"context"
	"sync/atomic"
)

// Gate is a context-aware mutual-exclusion primitive. Unlike sync.Mutex,
// waiting for a Gate can be abandoned when ctx is cancelled, which makes it
// usable at suspension points that must honour cancellation.
//
// A Gate must be created with [NewGate]. It is not reentrant.
type Gate struct {
	ch   chan struct{}
	held atomic.Bool
}

// NewGate returns an unlocked Gate.
func NewGate() *Gate {
	return &Gate{ch: make(chan struct{}, 1)}
}

// Lock blocks until the gate is acquired or ctx is cancelled.
// Returns ctx.Err() on cancellation, nil on success.
func (g *Gate) Lock(ctx context.Context) error {
	// Prefer an immediate acquire over a cancelled context so that
	// uncontended callers behave like a plain mutex.
	select {
	case g.ch <- struct{}{}:
		g.held.Store(true)
		return nil
	default:
	}

	select {
	case g.ch <- struct{}{}:
		g.held.Store(true)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TryLock acquires the gate without blocking.
// Returns true if acquired, false otherwise.
func (g *Gate) TryLock() bool {
	select {
	case g.ch <- struct{}{}:
		g.held.Store(true)
		return true
	default:
		return false
	}
}

// Unlock releases the gate. Panics if the gate is not held.
func (g *Gate) Unlock() {
	if !g.held.CompareAndSwap(true, false) {
		panic("seqflow: Gate.Unlock of unlocked gate")
	}
	<-g.ch
}

// Locked reports whether the gate is currently held.
// The value may be stale in concurrent contexts.
func (g *Gate) Locked() bool {
	return g.held.Load()
}
