package paysession

import (
	"sync"
	"time"
)

// Countdown ticks a deadline down once per second. It never goes below zero
// and keeps reporting zero after expiry.
type Countdown struct {
	mu        sync.Mutex
	remaining time.Duration
	done      chan struct{}
	stopOnce  sync.Once
}

// StartCountdown begins ticking from the given remaining duration.
func StartCountdown(remaining time.Duration) *Countdown {
	return startCountdown(remaining, time.Second)
}

func startCountdown(remaining time.Duration, tick time.Duration) *Countdown {
	if remaining < 0 {
		remaining = 0
	}
	c := &Countdown{
		remaining: remaining,
		done:      make(chan struct{}),
	}
	go c.run(tick)
	return c
}

func (c *Countdown) run(tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mu.Lock()
			c.remaining -= tick
			if c.remaining <= 0 {
				c.remaining = 0
				c.mu.Unlock()
				c.Stop()
				return
			}
			c.mu.Unlock()
		}
	}
}

// Remaining returns the time left, floored at zero.
func (c *Countdown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Expired reports whether the countdown reached zero.
func (c *Countdown) Expired() bool {
	return c.Remaining() <= 0
}

// Done is closed when the countdown expires or is stopped.
func (c *Countdown) Done() <-chan struct{} {
	return c.done
}

// Stop halts the ticker. It is safe to call more than once.
func (c *Countdown) Stop() {
	c.stopOnce.Do(func() { close(c.done) })
}
