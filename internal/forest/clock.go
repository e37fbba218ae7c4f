package forest

import "sync/atomic"

// Clock is the monotonic logical clock that allocates pending line ids.
//
// Every draft line receives PendingID(clock.Next()), so pending ids are
// unique within a forest and their allocation order is reproducible.
// Clones carry the clock position forward so a rolled-back draft never
// hands out an id twice.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a new clock starting at a specific sequence number.
// Used when loading a forest that already contains pending ids.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
