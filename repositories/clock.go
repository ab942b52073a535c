package repositories

import (
	"sync"
	"time"
)

// ServerClock hands out strictly increasing UTC timestamps.
// Two writes never share a timestamp, so timestamp order is write order.
type ServerClock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

func NewServerClock(now func() time.Time) *ServerClock {
	if now == nil {
		now = time.Now
	}
	return &ServerClock{now: now}
}

func (c *ServerClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now().UTC()
	if !t.After(c.last) {
		t = c.last.Add(time.Nanosecond)
	}
	c.last = t
	return t
}

// Observe moves the clock forward so it never hands out a timestamp older than t.
// Used when a backend already holds documents written by a previous run.
func (c *ServerClock) Observe(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t.After(c.last) {
		c.last = t.UTC()
	}
}
