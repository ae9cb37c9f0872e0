// Package slot provides a single-assignment holder for at most one value.
//
// A Slot is the storage primitive behind every subscriber variant of an
// event: installing into an occupied slot is refused instead of silently
// replacing the previous occupant.
package slot

import (
	"errors"
	"sync"
)

// ErrAlreadySet is returned by Install when the slot already holds a value.
var ErrAlreadySet = errors.New("slot already set")

// Slot holds at most one value of type T.
// The zero value is an empty slot ready for use. A Slot must not be copied
// after first use.
type Slot[T any] struct {
	mu    sync.Mutex
	value T
	set   bool
}

// IsSet reports whether the slot currently holds a value.
func (s *Slot[T]) IsSet() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set
}

// Install stores v if the slot is empty.
// Returns ErrAlreadySet without touching the current value otherwise.
func (s *Slot[T]) Install(v T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.set {
		return ErrAlreadySet
	}
	s.value = v
	s.set = true
	return nil
}

// MustInstall is like Install but panics if the slot is occupied.
func (s *Slot[T]) MustInstall(v T) {
	if err := s.Install(v); err != nil {
		panic(err)
	}
}

// Take removes and returns the held value.
// The second result is false if the slot was empty.
func (s *Slot[T]) Take() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.value, s.set
	var zero T
	s.value = zero
	s.set = false
	return v, ok
}

// Peek returns a copy of the held value without removing it.
func (s *Slot[T]) Peek() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.set
}

// With calls fn with a pointer to the held value while the slot is locked.
// Returns false, without calling fn, if the slot is empty.
// fn must not call back into the same slot.
func (s *Slot[T]) With(fn func(*T)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.set {
		return false
	}
	fn(&s.value)
	return true
}

// Clear empties the slot, releasing any held value.
func (s *Slot[T]) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero T
	s.value = zero
	s.set = false
}
