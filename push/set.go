package push

import (
	"reflect"
	"sync/atomic"
)

// registration is one observer in an observer set. refs counts the live
// subscriptions that share it.
type registration[T any] struct {
	obs    Observer[T]
	key    any
	refs   int
	active atomic.Bool
}

// observerSet keeps registrations in subscription order. It is not
// synchronised; owners guard it with their own mutex. list is replaced on
// every change, never mutated, so a slice returned by snapshot stays valid
// while a broadcast walks it.
type observerSet[T any] struct {
	byKey map[any]*registration[T]
	list  []*registration[T]
}

// identity returns the key used to detect an observer subscribing twice.
// Observers of non-comparable types get a fresh key and are never merged.
func identity[T any](o Observer[T]) any {
	if t := reflect.TypeOf(o); t != nil && t.Comparable() {
		return o
	}
	return new(byte)
}

// add registers o, or bumps the reference count if it is already present.
func (s *observerSet[T]) add(o Observer[T]) *registration[T] {
	if s.byKey == nil {
		s.byKey = make(map[any]*registration[T])
	}
	key := identity(o)
	if r, ok := s.byKey[key]; ok {
		r.refs++
		return r
	}
	r := &registration[T]{obs: o, key: key, refs: 1}
	r.active.Store(true)
	s.byKey[key] = r

	next := make([]*registration[T], len(s.list), len(s.list)+1)
	copy(next, s.list)
	s.list = append(next, r)
	return r
}

// replace makes o the only registration, keeping its count if o was
// already the current observer.
func (s *observerSet[T]) replace(o Observer[T]) *registration[T] {
	if cur, ok := s.byKey[identity(o)]; ok && len(s.list) == 1 {
		cur.refs++
		return cur
	}
	s.clear()
	return s.add(o)
}

// release drops one reference to r and removes it once none remain.
func (s *observerSet[T]) release(r *registration[T]) {
	if r.refs == 0 {
		return
	}
	r.refs--
	if r.refs > 0 {
		return
	}
	r.active.Store(false)
	delete(s.byKey, r.key)

	next := make([]*registration[T], 0, len(s.list))
	for _, x := range s.list {
		if x != r {
			next = append(next, x)
		}
	}
	s.list = next
}

// clear removes every registration and returns them.
func (s *observerSet[T]) clear() []*registration[T] {
	old := s.list
	for _, r := range old {
		r.refs = 0
		r.active.Store(false)
	}
	s.list = nil
	s.byKey = nil
	return old
}

func (s *observerSet[T]) snapshot() []*registration[T] {
	return s.list
}

func (s *observerSet[T]) len() int {
	return len(s.list)
}
