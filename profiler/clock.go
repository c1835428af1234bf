package profiler

import "time"

// Clock supplies monotonic timestamps for scope measurements.
type Clock interface {
	Now() time.Time
}

// MonotonicClock reads time.Now, whose readings carry Go's monotonic clock.
type MonotonicClock struct{}

// Now returns the current time.
func (MonotonicClock) Now() time.Time { return time.Now() }

// ManualClock only moves when advanced. It drives simulated runs and tests.
type ManualClock struct {
	now time.Time
}

// NewManualClock returns a ManualClock reading start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

// Now returns the current manual reading.
func (c *ManualClock) Now() time.Time { return c.now }

// Advance moves the clock by d. A negative d simulates a clock regression.
func (c *ManualClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// elapsed clamps a backwards clock step to zero.
func elapsed(start, now time.Time) time.Duration {
	d := now.Sub(start)
	if d < 0 {
		return 0
	}
	return d
}
