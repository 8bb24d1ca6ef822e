// Package testutil holds deterministic helpers shared by tests and the
// scenario harness.
package testutil

import "sync"

// SequenceClock is a resettable counter standing in for wall time wherever
// tests need reproducible ordering.
//
// Thread-safety: all methods are safe for concurrent use.
type SequenceClock struct {
	mu  sync.Mutex
	seq int64
}

// NewSequenceClock returns a clock at 0. The first Next returns 1.
func NewSequenceClock() *SequenceClock {
	return &SequenceClock{}
}

// Next advances the clock and returns the new value.
func (c *SequenceClock) Next() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}

// Current returns the last value handed out, or 0.
func (c *SequenceClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seq
}

// Reset rewinds the clock to 0.
func (c *SequenceClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq = 0
}
