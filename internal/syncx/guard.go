// Package syncx holds the shared-state helpers used by the session
// registry and the event feed.
package syncx

import "sync"

// RWGuard couples a value with the RWMutex that protects it, so every
// access goes through a lock-scoped callback instead of a bare mutex
// field next to the data.
type RWGuard[T any] struct {
	mu    sync.RWMutex
	value T
}

// NewGuard returns a guard owning initial.
func NewGuard[T any](initial T) *RWGuard[T] {
	return &RWGuard[T]{value: initial}
}

// Read runs fn under the read lock and returns its result. fn must not
// retain the value past the call when T is a reference type.
func (g *RWGuard[T]) Read(fn func(T) any) any {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return fn(g.value)
}

// Write runs fn under the write lock with a pointer to the value.
func (g *RWGuard[T]) Write(fn func(*T)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fn(&g.value)
}

// Update is Write with a result.
func (g *RWGuard[T]) Update(fn func(*T) any) any {
	g.mu.Lock()
	defer g.mu.Unlock()
	return fn(&g.value)
}

// Get returns the value under the read lock. For reference types the
// caller receives the live header, not a deep copy.
func (g *RWGuard[T]) Get() T {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.value
}

// Set replaces the value.
func (g *RWGuard[T]) Set(v T) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.value = v
}

// Swap replaces the value and returns the previous one.
func (g *RWGuard[T]) Swap(v T) T {
	g.mu.Lock()
	defer g.mu.Unlock()
	old := g.value
	g.value = v
	return old
}
