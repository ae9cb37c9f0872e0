package event

import (
	"fmt"
	"sync"
)

// Property stores a value and announces every change through OnSet.
//
// The zero value holds the zero T and is ready for use. A Property must not
// be copied after first use.
type Property[T any] struct {
	mu    sync.RWMutex
	value T

	// OnSet is triggered with the new value after every Set or Update.
	OnSet Event[T]

	// OnGet is triggered on every Get.
	OnGet Event[struct{}]
}

// NewProperty creates a Property holding v.
func NewProperty[T any](v T) *Property[T] {
	return &Property[T]{value: v}
}

// Get returns the current value.
func (p *Property[T]) Get() T {
	p.mu.RLock()
	v := p.value
	p.mu.RUnlock()

	p.OnGet.Trigger(struct{}{})
	return v
}

// Set stores v and triggers OnSet with it.
func (p *Property[T]) Set(v T) {
	p.mu.Lock()
	p.value = v
	p.mu.Unlock()

	p.OnSet.Trigger(v)
}

// Update replaces the value with fn(current) atomically, triggers OnSet
// with the result and returns it.
func (p *Property[T]) Update(fn func(T) T) T {
	p.mu.Lock()
	v := fn(p.value)
	p.value = v
	p.mu.Unlock()

	p.OnSet.Trigger(v)
	return v
}

// String formats the current value.
func (p *Property[T]) String() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return fmt.Sprint(p.value)
}
