// Package clock supplies the current instant and the location that wall-clock
// schedules are interpreted in. Production code uses System; tests drive a
// Manual clock.
package clock

import (
	"sync"
	"time"
)

// Clock reports the current time in a fixed location.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

// System is a Clock backed by time.Now.
type System struct {
	loc *time.Location
}

// NewSystem returns a system clock that reports times in loc. A nil loc means
// UTC.
func NewSystem(loc *time.Location) *System {
	if loc == nil {
		loc = time.UTC
	}
	return &System{loc: loc}
}

// Now returns the current time in the clock's location.
func (c *System) Now() time.Time {
	return time.Now().In(c.loc)
}

// Location returns the clock's location.
func (c *System) Location() *time.Location {
	return c.loc
}

// Manual is a Clock whose time only moves when told to. It is safe for
// concurrent use.
type Manual struct {
	mu  sync.RWMutex
	now time.Time
}

// NewManual returns a manual clock frozen at start. The clock's location is
// start's location.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the frozen time.
func (c *Manual) Now() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now
}

// Location returns the location of the frozen time.
func (c *Manual) Location() *time.Location {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.now.Location()
}

// Set moves the clock to t.
func (c *Manual) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// Advance moves the clock forward by d.
func (c *Manual) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var (
	_ Clock = (*System)(nil)
	_ Clock = (*Manual)(nil)
)
