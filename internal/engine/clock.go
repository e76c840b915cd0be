package engine

import "sync/atomic"

// Sequencer issues logical time to a Registry.
type Sequencer interface {
	Next() int64
	Current() int64
}

// Clock is a monotonic logical clock. Every instantiation and every hook
// run is stamped with a strictly increasing seq, so recorded traces order
// the same way on replay regardless of wall time.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock that resumes after start.
// Used when appending to an existing store.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
