// Package syncx provides extended synchronization primitives
package syncx

import "sync"

// Ref holds the latest value of something written by one callback and read by
// another. Readers always observe the most recent Store, never a copy captured
// when they were scheduled.
type Ref[T any] struct {
	mu    sync.RWMutex
	value T
}

// NewRef creates a reference holding initial.
func NewRef[T any](initial T) *Ref[T] {
	return &Ref[T]{value: initial}
}

// Load returns the current value.
func (r *Ref[T]) Load() T {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.value
}

// Store replaces the value.
func (r *Ref[T]) Store(v T) {
	r.mu.Lock()
	r.value = v
	r.mu.Unlock()
}

// Swap replaces the value and returns the previous one.
func (r *Ref[T]) Swap(v T) T {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.value
	r.value = v
	return old
}
