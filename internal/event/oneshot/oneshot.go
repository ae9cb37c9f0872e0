// Package oneshot provides a single-value channel: a Sender that delivers
// at most one value and a Receiver that waits for it.
//
// Dropping either half is observable by the other. A Receiver whose Sender
// is closed without sending gets ErrDisconnected; a Sender whose Receiver
// is closed gets ErrReceiverClosed from Send.
package oneshot

import (
	"context"
	"errors"
	"sync"
)

var (
	// ErrDisconnected is returned by Recv when the sender was dropped
	// before sending a value.
	ErrDisconnected = errors.New("oneshot sender dropped without a value")

	// ErrReceiverClosed is returned by Send when the receiver is gone.
	ErrReceiverClosed = errors.New("oneshot receiver closed")

	// ErrAlreadyUsed is returned by Send after a value was already sent or
	// the sender was closed.
	ErrAlreadyUsed = errors.New("oneshot sender already used")

	// ErrAlreadyReceived is returned by Recv after the value was consumed.
	ErrAlreadyReceived = errors.New("oneshot value already received")
)

type channel[T any] struct {
	ch chan T

	mu             sync.Mutex
	senderDone     bool
	sent           bool
	receiverClosed bool
	received       bool
}

// Sender is the sending half of a oneshot channel.
type Sender[T any] struct {
	c *channel[T]
}

// Receiver is the receiving half of a oneshot channel.
type Receiver[T any] struct {
	c *channel[T]
}

// New creates a connected Sender/Receiver pair.
func New[T any]() (*Sender[T], *Receiver[T]) {
	c := &channel[T]{ch: make(chan T, 1)}
	return &Sender[T]{c: c}, &Receiver[T]{c: c}
}

// Send delivers v to the receiver without blocking.
func (s *Sender[T]) Send(v T) error {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	if s.c.senderDone {
		return ErrAlreadyUsed
	}
	s.c.senderDone = true

	if s.c.receiverClosed {
		close(s.c.ch)
		return ErrReceiverClosed
	}

	s.c.sent = true
	s.c.ch <- v
	close(s.c.ch)
	return nil
}

// Close drops the sender without sending. A pending Recv returns
// ErrDisconnected. Closing after Send is a no-op.
func (s *Sender[T]) Close() {
	s.c.mu.Lock()
	defer s.c.mu.Unlock()

	if s.c.senderDone {
		return
	}
	s.c.senderDone = true
	close(s.c.ch)
}

// Recv blocks until a value arrives, the sender is dropped, or ctx is done.
func (r *Receiver[T]) Recv(ctx context.Context) (T, error) {
	var zero T

	r.c.mu.Lock()
	if r.c.received {
		r.c.mu.Unlock()
		return zero, ErrAlreadyReceived
	}
	r.c.mu.Unlock()

	select {
	case v, ok := <-r.c.ch:
		if !ok {
			return zero, r.c.closedErr()
		}
		r.c.mu.Lock()
		r.c.received = true
		r.c.mu.Unlock()
		return v, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// TryRecv returns the value if one is ready, without blocking.
// The boolean result is false if nothing has been sent yet.
func (r *Receiver[T]) TryRecv() (T, bool, error) {
	var zero T

	r.c.mu.Lock()
	if r.c.received {
		r.c.mu.Unlock()
		return zero, false, ErrAlreadyReceived
	}
	r.c.mu.Unlock()

	select {
	case v, ok := <-r.c.ch:
		if !ok {
			return zero, false, r.c.closedErr()
		}
		r.c.mu.Lock()
		r.c.received = true
		r.c.mu.Unlock()
		return v, true, nil
	default:
		return zero, false, nil
	}
}

// closedErr explains a closed, empty channel: another receive took the
// value, or the sender was dropped without one.
func (c *channel[T]) closedErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sent {
		return ErrAlreadyReceived
	}
	return ErrDisconnected
}

// Close drops the receiver. A later Send reports ErrReceiverClosed.
func (r *Receiver[T]) Close() {
	r.c.mu.Lock()
	defer r.c.mu.Unlock()
	r.c.receiverClosed = true
}
