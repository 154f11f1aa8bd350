package stepup

import (
	"fmt"
	"sync"
	"time"
)

// Tick is one countdown observation.
type Tick struct {
	ChallengeID    string
	Remaining      int
	ResendEligible bool
}

// Remaining returns the whole seconds left before expiresAt, never negative.
func Remaining(expiresAt, now time.Time) int {
	d := expiresAt.Sub(now)
	if d <= 0 {
		return 0
	}
	return int(d / time.Second)
}

// FormatRemaining renders seconds as MM:SS.
func FormatRemaining(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// ResendEligible returns true if an out-of-band code may be resent with
// remaining seconds left.
func ResendEligible(t ChallengeType, remaining, threshold int) bool {
	return t.SupportsResend() && remaining < threshold
}

// Countdown emits a Tick right away and then on every interval until the
// challenge expires or Stop is called. Ticks are delivered on C.
type Countdown struct {
	challenge Challenge
	threshold int
	interval  time.Duration
	clock     Clock

	ticks chan Tick
	stop  chan struct{}
	done  chan struct{}
	once  sync.Once
}

func StartCountdown(clock Clock, challenge Challenge, threshold int, interval time.Duration) *Countdown {
	c := &Countdown{
		challenge: challenge,
		threshold: threshold,
		interval:  interval,
		clock:     clock,
		ticks:     make(chan Tick),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go c.run()
	return c
}

// C is nil-safe so a missing countdown blocks forever in a select.
func (c *Countdown) C() <-chan Tick {
	if c == nil {
		return nil
	}
	return c.ticks
}

// Stop halts the countdown and waits for its goroutine to exit.
// Calling it more than once, or on a nil Countdown, is a no-op.
func (c *Countdown) Stop() {
	if c == nil {
		return
	}
	c.once.Do(func() { close(c.stop) })
	<-c.done
}

func (c *Countdown) run() {
	defer close(c.done)

	ticker := c.clock.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		remaining := Remaining(c.challenge.ExpiresAt, c.clock.Now())
		tick := Tick{
			ChallengeID:    c.challenge.ID,
			Remaining:      remaining,
			ResendEligible: ResendEligible(c.challenge.Type, remaining, c.threshold),
		}

		select {
		case c.ticks <- tick:
		case <-c.stop:
			return
		}

		if remaining == 0 {
			return
		}

		select {
		case <-ticker.C():
		case <-c.stop:
			return
		}
	}
}
