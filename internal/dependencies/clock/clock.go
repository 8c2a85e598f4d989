package clock

import "time"

// Clock is the source of wall time for event timestamps, session expiry,
// invitation deadlines and match log records. Simulation frames are
// counted by the engine's ticker, not by the clock.
type Clock interface {
	Now() time.Time
}

// RealClock implements Clock using the system clock in UTC
type RealClock struct{}

// New creates a new RealClock
func New() *RealClock {
	return &RealClock{}
}

// Now returns the current UTC time
func (c *RealClock) Now() time.Time {
	return time.Now().UTC()
}
