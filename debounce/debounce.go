// Package debounce provides functions to debounce function calls, i.e., to
// ensure that a function is only executed after a certain amount of time has
// passed since the last call.
//
// Debouncing can be useful in scenarios where function calls may be triggered
// rapidly, such as in response to user input, but the underlying operation is
// expensive and only needs to be performed once per batch of calls. Saving
// state to storage is the typical example: every change triggers a save, and
// the debouncer coalesces them into one write per quiet period, with an
// optional ceiling on how long a write may be postponed.
package debounce

// New returns a debounced trigger for action, along with a cancel function
// that discards any pending invocation. The cancel function is not required
// to be called, so can be ignored if not needed.
//
// Both trigger and cancel are safe for concurrent use in goroutines, and can
// both be called multiple times.
//
// The trigger does not wait for action to complete, so action needs to be
// thread-safe as it may be invoked again before the previous invocation
// completes.
func New[T any](
	action func(T),
	opts ...Option,
) (trigger func(T), cancel func()) {
	inv := NewInvoker(action, opts...)

	return inv.Trigger, inv.Cancel
}
