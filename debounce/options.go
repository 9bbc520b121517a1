package debounce

import (
	"time"

	"go.uber.org/zap"
)

// DefaultDelay is the quiet period used when WithDelay is not given.
const DefaultDelay = time.Second

// Option is a function that can be used to configure an Invoker.
type Option func(*config)

type config struct {
	leading bool
	delay   time.Duration
	maxWait time.Duration
	logger  *zap.Logger
}

func newConfig(opts []Option) config {
	c := config{delay: DefaultDelay}
	for _, opt := range opts {
		opt(&c)
	}

	if c.logger == nil {
		c.logger = zap.NewNop()
	}

	return c
}

// WithLeading returns an option that will cause the action to be invoked
// immediately on the first call made while the Invoker is idle.
//
// The leading invocation consumes only the call that triggered it. Calls that
// follow within the delay keep the burst open but are not invoked by the
// trailing timer; only the max wait ceiling, if any, delivers them. Once the
// delay has passed without calls, the next call is a leading call again.
func WithLeading() Option {
	return func(c *config) {
		c.leading = true
	}
}

// WithDelay returns an option setting the quiet period after the last call
// before the trailing invocation fires. A delay of zero or less invokes the
// action on every call.
func WithDelay(d time.Duration) Option {
	return func(c *config) {
		c.delay = d
	}
}

// WithMaxWait returns an option that will cause the action to be invoked no
// later than maxWait after the first call of a burst, even if calls keep
// arriving within the delay.
//
// For example, with a 100ms delay and a 500ms max wait, a function called
// non-stop every 10ms is invoked every 500ms.
//
// A max wait shorter than the delay is honored as given: it is a hard ceiling
// and may fire before the trailing timer would have.
func WithMaxWait(maxWait time.Duration) Option {
	return func(c *config) {
		c.maxWait = maxWait
	}
}

// WithLogger returns an option setting the logger used for debug output about
// timer firings. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}
