// Package dispatch runs subscriber callbacks with panic isolation.
//
// Synchronous event triggers call their subscriber directly, so a panic
// reaches the caller that triggered it. Deliveries that run on a goroutine
// of their own (debounced deliveries, scripted callbacks pumped by a host)
// have no caller to return to; they go through an [Executor], which
// recovers the panic, reports it through a [PanicHandler] and returns a
// [Result] describing the outcome.
//
//	exec := dispatch.NewExecutor(dispatch.WithLogger(logger))
//	result := exec.Call("Event[int]", func() { callback(v) })
//	if result.IsPanic() {
//	    // already logged; count it
//	}
package dispatch
