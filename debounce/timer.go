package debounce

import (
	"time"
)

// timer is a restartable one-shot timer built on time.AfterFunc. Each start
// bumps a generation counter which is handed to the callback, so a callback
// that was already running when the timer got stopped or restarted can tell
// that it is stale.
//
// timer is not safe for concurrent use; callers guard it with their own lock.
type timer struct {
	t   *time.Timer
	gen uint64
}

// start stops any running timer and schedules f to be called with the new
// generation after d.
func (t *timer) start(d time.Duration, f func(gen uint64)) {
	t.stop()

	if d < 0 {
		d = 0
	}

	t.gen++
	gen := t.gen
	t.t = time.AfterFunc(d, func() { f(gen) })
}

// stop cancels the timer. A callback for the stopped generation that is
// already in flight will be rejected by fired.
func (t *timer) stop() {
	if t.t != nil {
		t.t.Stop()
		t.t = nil
	}
}

func (t *timer) live() bool {
	return t.t != nil
}

// fired reports whether gen belongs to the live timer, and if so marks the
// timer as no longer live.
func (t *timer) fired(gen uint64) bool {
	if t.t == nil || gen != t.gen {
		return false
	}
	t.t = nil

	return true
}
