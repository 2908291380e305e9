package commands

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultCooldown   = 5 * time.Second
	idleEntryLifetime = 10 * time.Minute
)

type cooldownEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Cooldown allows one command per user per period.
type Cooldown struct {
	period time.Duration

	mu        sync.Mutex
	users     map[string]*cooldownEntry
	lastPrune time.Time
}

func NewCooldown(period time.Duration) *Cooldown {
	if period <= 0 {
		period = defaultCooldown
	}
	return &Cooldown{
		period: period,
		users:  make(map[string]*cooldownEntry),
	}
}

// Allow reports whether userID may run a command at now. When it may not,
// retryAfter is the wait until the next command is accepted.
func (c *Cooldown) Allow(userID string, now time.Time) (ok bool, retryAfter time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.prune(now)

	entry, found := c.users[userID]
	if !found {
		entry = &cooldownEntry{limiter: rate.NewLimiter(rate.Every(c.period), 1)}
		c.users[userID] = entry
	}
	entry.lastSeen = now

	reservation := entry.limiter.ReserveN(now, 1)
	if !reservation.OK() {
		return false, c.period
	}
	if delay := reservation.DelayFrom(now); delay > 0 {
		reservation.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// prune drops users idle for longer than idleEntryLifetime. Must be called
// with mu held.
func (c *Cooldown) prune(now time.Time) {
	if now.Sub(c.lastPrune) < idleEntryLifetime {
		return
	}
	c.lastPrune = now
	for id, entry := range c.users {
		if now.Sub(entry.lastSeen) > idleEntryLifetime {
			delete(c.users, id)
		}
	}
}

func (c *Cooldown) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.users)
}
