// Package pointer emits absolute pointer positions to the system, by
// default through a virtual touchscreen created over /dev/uinput.
package pointer

// Sink receives screen-space pointer frames. Implementations must tolerate
// repeated frames at the same position.
type Sink interface {
	// Frame moves the pointer to (x, y) with the touch state down or up.
	// A frame with touch up releases the virtual contact.
	Frame(x, y int32, touch bool) error
	Close() error
}
