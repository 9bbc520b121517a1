package debounce

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Invoker debounces calls to an action taking a single argument of type T.
// It combines configuration and state into a single struct with methods for
// triggering, flushing and canceling the debounced action.
//
// Only the argument of the latest call survives to the invocation. The action
// runs on its own goroutine and is never awaited by Trigger, so it must report
// its own failures.
type Invoker[T any] struct {
	// Configuration
	action  func(T)
	leading bool
	delay   time.Duration
	maxWait time.Duration
	log     *zap.Logger

	// State
	mux        sync.Mutex
	idle       *sync.Cond
	pending    bool
	pendingArg T
	firstCall  time.Time
	lastInvoke time.Time
	trailing   timer
	maxTimer   timer
	inflight   int
}

// NewInvoker creates a new Invoker wrapping action, configured by opts.
func NewInvoker[T any](action func(T), opts ...Option) *Invoker[T] {
	c := newConfig(opts)

	inv := &Invoker[T]{
		action:  action,
		leading: c.leading,
		delay:   c.delay,
		maxWait: c.maxWait,
		log:     c.logger,
	}
	inv.idle = sync.NewCond(&inv.mux)

	return inv
}

// Trigger records arg as the latest pending call and schedules the action
// according to the configured options. It never blocks on the action and is
// safe for concurrent use.
func (inv *Invoker[T]) Trigger(arg T) {
	inv.mux.Lock()
	defer inv.mux.Unlock()

	now := time.Now()
	wasIdle := !inv.pending && !inv.trailing.live() && !inv.maxTimer.live()

	inv.pendingArg = arg
	inv.pending = true
	if inv.firstCall.IsZero() {
		inv.firstCall = now
	}

	if inv.delay <= 0 {
		inv.invoke(now)
		return
	}

	if inv.leading && wasIdle {
		inv.log.Debug("leading invocation")
		inv.invoke(now)
	}

	inv.trailing.start(inv.delay, inv.fireTrailing)

	if inv.maxWait > 0 && inv.pending && !inv.maxTimer.live() {
		remaining := inv.maxWait - now.Sub(inv.firstCall)
		inv.maxTimer.start(remaining, inv.fireMaxWait)
	}
}

// Flush cancels any scheduled timers and invokes the pending call, if any,
// right away.
func (inv *Invoker[T]) Flush() {
	inv.mux.Lock()
	defer inv.mux.Unlock()

	inv.trailing.stop()
	inv.maxTimer.stop()
	inv.invoke(time.Now())
}

// Cancel discards the pending call, if any, and stops all timers. The next
// call starts a new burst.
func (inv *Invoker[T]) Cancel() {
	inv.mux.Lock()
	defer inv.mux.Unlock()

	inv.trailing.stop()
	inv.maxTimer.stop()
	inv.discard()
}

// Pending reports whether a call is waiting to be delivered.
func (inv *Invoker[T]) Pending() bool {
	inv.mux.Lock()
	defer inv.mux.Unlock()

	return inv.pending
}

// LastInvoke returns the time of the most recent invocation, or the zero time
// if the action has never been invoked.
func (inv *Invoker[T]) LastInvoke() time.Time {
	inv.mux.Lock()
	defer inv.mux.Unlock()

	return inv.lastInvoke
}

// Wait blocks until every invocation started so far has returned. It does
// not deliver pending calls; use Flush first for that.
func (inv *Invoker[T]) Wait() {
	inv.mux.Lock()
	defer inv.mux.Unlock()

	for inv.inflight > 0 {
		inv.idle.Wait()
	}
}

func (inv *Invoker[T]) fireTrailing(gen uint64) {
	inv.mux.Lock()
	defer inv.mux.Unlock()

	if !inv.trailing.fired(gen) {
		return
	}

	inv.log.Debug("trailing timer fired", zap.Bool("pending", inv.pending))

	// In leading mode the trailing timer only marks the end of the quiet
	// period; calls that arrived during it are dropped.
	if inv.leading {
		inv.discard()
	} else {
		inv.invoke(time.Now())
	}
	inv.maxTimer.stop()
}

func (inv *Invoker[T]) fireMaxWait(gen uint64) {
	inv.mux.Lock()
	defer inv.mux.Unlock()

	if !inv.maxTimer.fired(gen) {
		return
	}

	inv.log.Debug("max wait timer fired", zap.Bool("pending", inv.pending))

	// In leading mode the trailing timer keeps running: the burst is still
	// open until the quiet period ends, so the next call must not count as
	// leading.
	if !inv.leading {
		inv.trailing.stop()
	}
	inv.invoke(time.Now())
}

// invoke runs the action with the pending argument on a new goroutine. State
// is cleared before the action starts, so a failing action cannot leave a
// stale burst behind. It must only be called while the mutex is held.
func (inv *Invoker[T]) invoke(now time.Time) {
	if !inv.pending {
		return
	}

	arg := inv.pendingArg
	inv.discard()
	inv.lastInvoke = now

	if inv.action == nil {
		return
	}

	inv.inflight++
	go func() {
		defer inv.done()
		inv.action(arg)
	}()
}

func (inv *Invoker[T]) done() {
	inv.mux.Lock()
	defer inv.mux.Unlock()

	inv.inflight--
	if inv.inflight == 0 {
		inv.idle.Broadcast()
	}
}

// discard clears the pending call and closes the burst. It must only be
// called while the mutex is held.
func (inv *Invoker[T]) discard() {
	var zero T
	inv.pendingArg = zero
	inv.pending = false
	inv.firstCall = time.Time{}
}
