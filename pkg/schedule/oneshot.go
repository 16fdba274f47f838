package schedule

import (
	"sync"
	"time"
)

// OneShot invokes a callback once, a fixed delay after the most recent
// Arm. Rearming before expiry replaces the pending delay.
type OneShot struct {
	mu sync.Mutex

	// Pending Go timer, nil when never armed
	timer *time.Timer

	// Generation of the pending delay; expiries from replaced delays
	// carry a stale generation and are dropped.
	gen uint64

	// True while a delay is pending
	armed bool

	// Expiry callback, invoked outside the lock
	fn func()
}

// NewOneShot creates a one-shot timer that invokes fn on expiry.
func NewOneShot(fn func()) *OneShot {
	return &OneShot{fn: fn}
}

// Arm schedules the callback to fire after d, replacing any pending
// delay.
func (o *OneShot) Arm(d time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.timer != nil {
		o.timer.Stop()
	}

	o.gen++
	o.armed = true
	gen := o.gen
	o.timer = time.AfterFunc(d, func() {
		o.fire(gen)
	})
}

// Cancel drops any pending delay without invoking the callback.
func (o *OneShot) Cancel() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.timer != nil {
		o.timer.Stop()
	}
	o.gen++
	o.armed = false
}

// Armed reports whether a delay is pending.
func (o *OneShot) Armed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.armed
}

// fire handles expiry of the delay with the given generation.
func (o *OneShot) fire(gen uint64) {
	o.mu.Lock()

	if gen != o.gen {
		o.mu.Unlock()
		return
	}
	o.armed = false
	fn := o.fn

	o.mu.Unlock()

	// Call callback outside lock
	if fn != nil {
		fn()
	}
}
