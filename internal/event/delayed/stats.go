package delayed

import "sync/atomic"

// Stats contains delivery statistics for a delayed Event.
type Stats struct {
	// Triggered is the number of Trigger calls.
	Triggered uint64

	// Immediate is the number of synchronous deliveries made with zero delay.
	Immediate uint64

	// Scheduled is the number of deferred checks started.
	Scheduled uint64

	// Delivered is the number of deferred deliveries that completed.
	Delivered uint64

	// Superseded is the number of deferred checks that lost to a newer trigger.
	Superseded uint64

	// AfterClose is the number of deferred checks that woke after Close.
	AfterClose uint64

	// NoSubscriber is the number of triggers or checks that found no subscriber.
	NoSubscriber uint64

	// Panicked is the number of deferred deliveries whose callback panicked.
	Panicked uint64
}

type counters struct {
	triggered    atomic.Uint64
	immediate    atomic.Uint64
	scheduled    atomic.Uint64
	delivered    atomic.Uint64
	superseded   atomic.Uint64
	afterClose   atomic.Uint64
	noSubscriber atomic.Uint64
	panicked     atomic.Uint64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Triggered:    c.triggered.Load(),
		Immediate:    c.immediate.Load(),
		Scheduled:    c.scheduled.Load(),
		Delivered:    c.delivered.Load(),
		Superseded:   c.superseded.Load(),
		AfterClose:   c.afterClose.Load(),
		NoSubscriber: c.noSubscriber.Load(),
		Panicked:     c.panicked.Load(),
	}
}
