package schedule

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestOneShotFires(t *testing.T) {
	fired := make(chan struct{}, 1)
	o := NewOneShot(func() { fired <- struct{}{} })

	o.Arm(10 * time.Millisecond)
	if !o.Armed() {
		t.Error("Armed() = false immediately after Arm")
	}

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("one-shot never fired")
	}

	if o.Armed() {
		t.Error("Armed() = true after expiry")
	}
}

func TestOneShotCancel(t *testing.T) {
	var fires atomic.Int32
	o := NewOneShot(func() { fires.Add(1) })

	o.Arm(30 * time.Millisecond)
	o.Cancel()

	if o.Armed() {
		t.Error("Armed() = true after Cancel")
	}

	time.Sleep(150 * time.Millisecond)
	if got := fires.Load(); got != 0 {
		t.Errorf("canceled one-shot fired %d times", got)
	}
}

func TestOneShotRearmReplacesDelay(t *testing.T) {
	var fires atomic.Int32
	o := NewOneShot(func() { fires.Add(1) })

	// The second Arm replaces the first; only one expiry may land.
	o.Arm(20 * time.Millisecond)
	o.Arm(60 * time.Millisecond)

	time.Sleep(300 * time.Millisecond)
	if got := fires.Load(); got != 1 {
		t.Errorf("rearmed one-shot fired %d times, want 1", got)
	}
}

func TestOneShotReusableAfterExpiry(t *testing.T) {
	fired := make(chan struct{}, 2)
	o := NewOneShot(func() { fired <- struct{}{} })

	for i := 0; i < 2; i++ {
		o.Arm(10 * time.Millisecond)
		select {
		case <-fired:
		case <-time.After(2 * time.Second):
			t.Fatalf("arm %d never fired", i)
		}
	}
}

func TestOneShotNilCallback(t *testing.T) {
	o := NewOneShot(nil)
	o.Arm(5 * time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	// Expiry with a nil callback must not panic.
}
