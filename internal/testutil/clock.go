package testutil

import (
	"sync"
	"time"
)

// FixedClock is a settable wall clock for tests.
//
// It satisfies formula.Clock, so "today" can be frozen and formulas that
// mention the current date become byte-for-byte reproducible.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type FixedClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixedClock creates a clock frozen at now.
func NewFixedClock(now time.Time) *FixedClock {
	return &FixedClock{now: now}
}

// NewFixedDate creates a clock frozen at noon on the given day in loc.
// Noon keeps the calendar day stable under small timezone shifts.
func NewFixedDate(year int, month time.Month, day int, loc *time.Location) *FixedClock {
	return NewFixedClock(time.Date(year, month, day, 12, 0, 0, 0, loc))
}

// Now returns the frozen time.
func (c *FixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Set moves the clock to t.
func (c *FixedClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d.
func (c *FixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
