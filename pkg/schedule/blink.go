package schedule

import (
	"errors"
	"sync"
	"time"
)

// ErrEmptyTable is returned when a table is created without intervals.
var ErrEmptyTable = errors.New("empty interval table")

// DefaultBlinkIndex is the table position the status LED starts at.
const DefaultBlinkIndex = 2

// DefaultBlinkIntervals returns the built-in blink cycle, fastest to
// slowest.
func DefaultBlinkIntervals() []time.Duration {
	return []time.Duration{
		125 * time.Millisecond,
		250 * time.Millisecond,
		500 * time.Millisecond,
		750 * time.Millisecond,
		1 * time.Second,
	}
}

// Table is a cycle of blink intervals with a current position.
type Table struct {
	mu sync.Mutex

	// Intervals in cycle order
	intervals []time.Duration

	// Current position
	index int
}

// NewBlinkTable creates a table with the built-in intervals, positioned
// at DefaultBlinkIndex.
func NewBlinkTable() *Table {
	t, _ := NewTable(DefaultBlinkIntervals(), DefaultBlinkIndex)
	return t
}

// NewTable creates a table from the given intervals, positioned at
// index. The index wraps modulo the table length.
func NewTable(intervals []time.Duration, index int) (*Table, error) {
	if len(intervals) == 0 {
		return nil, ErrEmptyTable
	}
	t := &Table{intervals: append([]time.Duration(nil), intervals...)}
	t.index = t.wrap(index)
	return t, nil
}

// Current returns the interval at the current position.
func (t *Table) Current() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.intervals[t.index]
}

// Index returns the current position.
func (t *Table) Index() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.index
}

// Len returns the number of intervals in the cycle.
func (t *Table) Len() int {
	return len(t.intervals)
}

// Cycle advances to the next position, wrapping at the end, and returns
// the new interval.
func (t *Table) Cycle() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.index = (t.index + 1) % len(t.intervals)
	return t.intervals[t.index]
}

// Set repositions the cycle. Out-of-range indices wrap modulo the table
// length; negative values wrap from the end. Returns the new interval.
func (t *Table) Set(index int) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.index = t.wrap(index)
	return t.intervals[t.index]
}

// wrap maps any integer onto a valid table position.
// Callers must hold t.mu or have exclusive access.
func (t *Table) wrap(index int) int {
	n := len(t.intervals)
	return ((index % n) + n) % n
}
