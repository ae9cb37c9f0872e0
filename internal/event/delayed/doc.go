// Package delayed provides a debounced single-subscriber event.
//
// Each Trigger with a positive delay schedules a deferred check on a
// Scheduler. The check sleeps for the delay and then delivers only if its
// stamp is still the latest one handed out, so a burst of triggers
// collapses into a single delivery of the last value:
//
//	e := delayed.New[string](delayed.WithDelay(250 * time.Millisecond))
//	defer e.Close()
//	e.MustVal(func(path string) { reload(path) })
//
//	e.Trigger("a.toml")
//	e.Trigger("b.toml") // only "b.toml" is delivered, 250ms from now
//
// Sleeps are never cancelled. A superseded check, or one that wakes after
// Close, simply does nothing. Deferred deliveries run through a
// dispatch.Executor, so a panicking subscriber is recovered and logged
// rather than crashing the scheduler goroutine.
package delayed
