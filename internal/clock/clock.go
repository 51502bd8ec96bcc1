// Package clock is the single source of timestamps for pack records. Every
// record stores Unix milliseconds, so the package deals in that unit.
package clock

import (
	"sync"
	"time"
)

type Clock interface {
	Now() time.Time
}

// RealClock reads the system time.
type RealClock struct{}

func (c *RealClock) Now() time.Time {
	return time.Now()
}

// FakeClock stands still until advanced. Scenario workers read it
// concurrently, so access is guarded.
type FakeClock struct {
	mu      sync.Mutex
	current time.Time
}

func NewFakeClock(t time.Time) *FakeClock {
	return &FakeClock{current: t}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Advance moves the clock forward by d, for example to separate two
// validates that must produce identical lock bytes.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

// EpochMillis returns c's current time as Unix milliseconds.
func EpochMillis(c Clock) int64 {
	return c.Now().UnixMilli()
}
