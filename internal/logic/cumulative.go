package logic

import "math"

// Cumulative displays the total number of actions since the last reset.
// It has no time decay and no tick. Not safe for concurrent use.
type Cumulative struct {
	total uint32
	stats Stats
}

// NewCumulative creates a zeroed cumulative counter.
func NewCumulative() *Cumulative {
	return &Cumulative{}
}

// Record adds actions to the total. The total saturates at math.MaxUint32.
func (c *Cumulative) Record(actions int) {
	if actions <= 0 {
		return
	}
	if uint64(c.total)+uint64(actions) > math.MaxUint32 {
		c.total = math.MaxUint32
	} else {
		c.total += uint32(actions)
	}
	c.stats.Actions += uint64(actions)
}

// Value returns the total.
func (c *Cumulative) Value() uint32 {
	return c.total
}

// Reset zeroes the total.
func (c *Cumulative) Reset() {
	c.total = 0
	c.stats = Stats{}
}

// Stats returns lifetime counters since the last reset.
func (c *Cumulative) Stats() Stats {
	return c.stats
}
