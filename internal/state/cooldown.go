package state

import (
	"context"
	"sync"
	"time"

	"newsbot/internal/storage"
)

// Cooldown gates broadcasts to at most one per interval. Only successful
// deliveries consume the window; a failed or empty cycle leaves the
// persisted timestamp untouched.
type Cooldown struct {
	db storage.Store

	mu       sync.RWMutex
	interval time.Duration

	now func() time.Time
}

func NewCooldown(db storage.Store, interval time.Duration) *Cooldown {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Cooldown{db: db, interval: interval, now: time.Now}
}

// SetInterval swaps the cooldown window (config hot reload).
func (c *Cooldown) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	c.interval = d
	c.mu.Unlock()
}

func (c *Cooldown) Interval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.interval
}

// Allowed reports whether a broadcast may start now. The first run (no
// persisted timestamp) is always allowed.
func (c *Cooldown) Allowed(ctx context.Context) (bool, error) {
	last, ok, err := c.db.LastBroadcast(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	return c.now().Sub(last) >= c.Interval(), nil
}

// Remaining reports the time until the next broadcast is allowed; zero when
// one is allowed already. Display-only (the /status surface).
func (c *Cooldown) Remaining(ctx context.Context) (time.Duration, error) {
	last, ok, err := c.db.LastBroadcast(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	rem := c.Interval() - c.now().Sub(last)
	if rem < 0 {
		rem = 0
	}
	return rem, nil
}

// Mark persists the current time as the last successful broadcast.
func (c *Cooldown) Mark(ctx context.Context) error {
	return c.db.SetLastBroadcast(ctx, c.now())
}
