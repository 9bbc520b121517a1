package debounce

// NewMutable returns a debounced function like New, but it allows the callback
// to be changed, as a new callback function is passed to each call of the
// debounced function.
//
// Only the very last f passed to the debounced function is called when the
// delay or max wait expires. Previous f values are discarded. A nil f is
// recorded like any other call but does nothing when invoked.
//
// Both debounced and cancel functions are safe for concurrent use in
// goroutines, and can both be called multiple times.
func NewMutable(opts ...Option) (debounced func(f func()), cancel func()) {
	return New(func(f func()) {
		if f != nil {
			f()
		}
	}, opts...)
}
