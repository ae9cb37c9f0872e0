package delayed

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// Scheduler is the substrate deferred deliveries run on. It runs work
// concurrently with the caller and suspends that work for a duration.
type Scheduler interface {
	// Go runs fn concurrently, independent of the caller.
	Go(fn func())

	// Sleep suspends the calling goroutine for d.
	Sleep(d time.Duration)
}

// ClockScheduler runs each unit of work on its own goroutine and sleeps
// on a clockwork clock, so tests can drive time with a fake clock.
type ClockScheduler struct {
	clock clockwork.Clock
}

// NewScheduler creates a scheduler sleeping on clock.
// A nil clock means the real clock.
func NewScheduler(clock clockwork.Clock) *ClockScheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &ClockScheduler{clock: clock}
}

// Go implements Scheduler.
func (s *ClockScheduler) Go(fn func()) {
	go fn()
}

// Sleep implements Scheduler.
func (s *ClockScheduler) Sleep(d time.Duration) {
	s.clock.Sleep(d)
}

// Clock returns the underlying clock.
func (s *ClockScheduler) Clock() clockwork.Clock {
	return s.clock
}

var defaultScheduler = NewScheduler(nil)

// DefaultScheduler returns the shared real-clock scheduler.
func DefaultScheduler() Scheduler {
	return defaultScheduler
}

// Ensure ClockScheduler implements Scheduler.
var _ Scheduler = (*ClockScheduler)(nil)
