package database

import (
	"sync"
	"time"
)

// Clock stamps ledger entries. Every stamp is strictly later than the
// previous one and than anything already in the ledger, so ordering
// by applied_at always matches the order of application.
type Clock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}

	return &Clock{now: now}
}

// Observe moves the clock past the latest applied entry
func (c *Clock) Observe(entries Entries) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range entries {
		if at := entries[i].AppliedAt.UTC(); at.After(c.last) {
			c.last = at
		}
	}
}

// Next returns a UTC stamp with microsecond precision, the finest all
// supported dialects keep
func (c *Clock) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.now().UTC().Truncate(time.Microsecond)
	if !next.After(c.last) {
		next = c.last.Add(time.Microsecond)
	}

	c.last = next

	return next
}
