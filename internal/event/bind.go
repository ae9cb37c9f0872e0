package event

import "weak"

// Bind installs a persistent callback on e that receives obj alongside the
// triggered value, without keeping obj alive.
//
// obj is resolved at each trigger. Once it has been garbage collected the
// callback is skipped and the trigger is a no-op.
func Bind[O, T any](e *Event[T], obj *O, action func(*O, T)) error {
	if obj == nil || action == nil {
		return ErrNilCallback
	}

	ref := weak.Make(obj)
	return e.Val(func(value T) {
		target := ref.Value()
		if target == nil {
			return
		}
		action(target, value)
	})
}
