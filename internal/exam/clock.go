package exam

import (
	"sync"
	"time"
)

// Clock counts a session's remaining time down once per tick and signals
// expiry exactly once. It never fires after Stop: stopping sets a
// suppression flag that every tick checks first, so a tick already
// scheduled by the runtime cannot slip an expiry through after submission
// has begun.
//
// A stopped clock cannot be restarted; each session owns a fresh Clock.
type Clock struct {
	mu         sync.Mutex
	interval   time.Duration
	remaining  int
	active     bool
	fired      bool
	suppressed bool
	stop       chan struct{}
	expired    chan struct{}
}

// ClockOption configures a Clock.
type ClockOption func(*Clock)

// WithTickInterval overrides the one-second tick, used by tests to run
// compressed countdowns.
func WithTickInterval(d time.Duration) ClockOption {
	return func(c *Clock) {
		c.interval = d
	}
}

// NewClock creates an idle clock.
func NewClock(opts ...ClockOption) *Clock {
	c := &Clock{
		interval: time.Second,
		expired:  make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins ticking down from initialSeconds. Calling Start while the
// clock is active or after it was stopped is a no-op.
func (c *Clock) Start(initialSeconds int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active || c.suppressed {
		return
	}
	if initialSeconds < 0 {
		initialSeconds = 0
	}

	c.remaining = initialSeconds
	c.active = true
	c.stop = make(chan struct{})

	go c.run(c.stop)
}

func (c *Clock) run(stop chan struct{}) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			c.tick()
		}
	}
}

func (c *Clock) tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.suppressed || !c.active {
		return
	}

	if c.remaining > 0 {
		c.remaining--
	}
	if c.remaining == 0 && !c.fired {
		c.fired = true
		select {
		case c.expired <- struct{}{}:
		default:
		}
	}
}

// Stop cancels ticking and suppresses any expiry that has not fired yet.
// Idempotent.
func (c *Clock) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.suppressed = true
	c.active = false
	if c.stop != nil {
		close(c.stop)
		c.stop = nil
	}
}

// Expired delivers at most one signal when the countdown reaches zero.
func (c *Clock) Expired() <-chan struct{} {
	return c.expired
}

// Remaining returns the seconds left, clamped at 0. Advisory only: host
// timer granularity makes displayed time approximate, never an audit
// timestamp.
func (c *Clock) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}
