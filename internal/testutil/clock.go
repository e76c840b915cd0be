package testutil

import (
	"sync"

	"github.com/roach88/typekit/internal/engine"
)

var _ engine.Sequencer = (*DeterministicClock)(nil)

// DeterministicClock is an engine.Sequencer for tests and the scenario
// harness. Unlike engine.Clock it can be rewound, so one scenario can be
// run twice with identical seq values.
type DeterministicClock struct {
	mu  sync.Mutex
	seq int64
}

// NewDeterministicClock creates a clock whose first Next returns 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Next increments and returns the sequence number.
func (c *DeterministicClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the last issued sequence number.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset rewinds the clock to 0.
func (c *DeterministicClock) Reset() {
	c.ResetTo(0)
}

// ResetTo rewinds (or advances) the clock so the next Next returns seq+1.
func (c *DeterministicClock) ResetTo(seq int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = seq
}
