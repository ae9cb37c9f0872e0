package dispatch

import "errors"

// ErrCallbackPanic matches any *PanicError via errors.Is.
var ErrCallbackPanic = errors.New("callback panicked")
