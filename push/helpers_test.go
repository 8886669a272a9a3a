package push

import (
	"context"
	"sync"
)

// recorder is an observer that keeps everything it receives.
type recorder[T any] struct {
	mu        sync.Mutex
	items     []T
	err       error
	completed int
	failNext  error
}

func (r *recorder[T]) OnNext(_ context.Context, v T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items, v)
	return r.failNext
}

func (r *recorder[T]) OnError(_ context.Context, err error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
	return nil
}

func (r *recorder[T]) OnCompleted(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed++
	return nil
}

func (r *recorder[T]) Items() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.items...)
}

func (r *recorder[T]) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *recorder[T]) Completed() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completed
}
