// Package event provides typed, single-subscriber events.
//
// An [Event] decouples the producer of a value from the one consumer that
// reacts to it. Exactly one subscriber may be installed at a time, in one
// of three variants:
//
//   - Persistent: [Event.Sub] / [Event.Val] install a callback invoked on
//     every trigger until removed.
//   - One-shot: [Event.Once] installs a callback consumed by the next trigger.
//   - One-shot async: [Event.OnceAsync] installs a oneshot channel and
//     returns its receiver, for a goroutine that waits on the next value.
//
// Installing a second subscriber without [Event.RemoveSubscribers] fails
// with [ErrAlreadySubscribed]. The Must variants panic instead, for call
// sites that treat a double subscription as a programming error.
//
// # Dispatch
//
// [Event.Trigger] runs synchronously. It delivers to the persistent callback
// if there is one, otherwise to the one-shot callback, otherwise to the
// oneshot channel. With no subscriber the trigger is dropped; that is not an
// error. Callbacks run without any event lock held.
//
// # Weak binding
//
// [Bind] attaches a callback to an externally owned object through a weak
// pointer. The object is resolved on each trigger and the callback is
// skipped once the object has been collected.
//
//	type Counter struct{ n int }
//
//	c := &Counter{}
//	var clicks event.Event[int]
//	_ = event.Bind(&clicks, c, func(c *Counter, delta int) { c.n += delta })
//	clicks.Trigger(1)
//
// # Related types
//
//   - [OnceEvent]: every subscriber is one-shot.
//   - [Property]: a stored value with an OnSet event.
//
// Debounced delivery lives in the delayed subpackage.
package event
