// Package syncx provides extended synchronization primitives
package syncx

import (
	"sync"
	"sync/atomic"
)

// Value guards a value that one goroutine writes and others read as a snapshot.
type Value[T any] struct {
	mu    sync.RWMutex
	value T
}

// NewValue creates a guarded value.
func NewValue[T any](initial T) *Value[T] {
	return &Value[T]{value: initial}
}

// Get returns a copy of the value (T should be a value type or immutable).
func (v *Value[T]) Get() T {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.value
}

// Set atomically replaces the value.
func (v *Value[T]) Set(val T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.value = val
}

// Swap atomically replaces and returns the old value.
func (v *Value[T]) Swap(val T) T {
	v.mu.Lock()
	defer v.mu.Unlock()
	old := v.value
	v.value = val
	return old
}

// Update applies fn under the write lock and stores its result.
func (v *Value[T]) Update(fn func(T) T) T {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.value = fn(v.value)
	return v.value
}

// Flag is a latch that reports only the first Raise after each Clear.
type Flag struct {
	raised atomic.Bool
}

// Raise sets the flag and returns true if it was not already set.
func (f *Flag) Raise() bool {
	return f.raised.CompareAndSwap(false, true)
}

// Clear resets the flag and returns true if it was set.
func (f *Flag) Clear() bool {
	return f.raised.CompareAndSwap(true, false)
}
