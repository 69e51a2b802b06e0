package session

import "time"

// DefaultRoundDuration is the nominal length of a round.
const DefaultRoundDuration = 180 * time.Second

// Countdown is a display-only round timer. It is advanced by Tick from the
// owner's event loop; reaching zero only stops it.
type Countdown struct {
	duration  time.Duration
	remaining time.Duration
	running   bool
}

func NewCountdown(d time.Duration) *Countdown {
	if d <= 0 {
		d = DefaultRoundDuration
	}
	return &Countdown{duration: d, remaining: d}
}

// Start restarts the countdown from the full duration.
func (c *Countdown) Start() {
	c.remaining = c.duration
	c.running = true
}

func (c *Countdown) Stop() {
	c.running = false
}

// Tick subtracts elapsed time and reports whether the countdown just expired.
func (c *Countdown) Tick(elapsed time.Duration) bool {
	if !c.running {
		return false
	}
	c.remaining -= elapsed
	if c.remaining <= 0 {
		c.remaining = 0
		c.running = false
		return true
	}
	return false
}

func (c *Countdown) Remaining() time.Duration { return c.remaining }
func (c *Countdown) Running() bool            { return c.running }
