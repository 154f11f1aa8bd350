package stepup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestRemaining(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 600, Remaining(now.Add(10*time.Minute), now))
	assert.Equal(t, 599, Remaining(now.Add(599*time.Second+999*time.Millisecond), now))
	assert.Equal(t, 0, Remaining(now.Add(999*time.Millisecond), now))
	assert.Equal(t, 0, Remaining(now, now))
	assert.Equal(t, 0, Remaining(now.Add(-time.Hour), now))
}

func TestFormatRemaining(t *testing.T) {
	cases := map[int]string{
		600: "10:00",
		599: "09:59",
		61:  "01:01",
		9:   "00:09",
		0:   "00:00",
		-5:  "00:00",
	}
	for seconds, want := range cases {
		assert.Equal(t, want, FormatRemaining(seconds))
	}
}

func TestResendEligible(t *testing.T) {
	assert.False(t, ResendEligible(ChallengeSMS, 570, DefaultResendThreshold))
	assert.True(t, ResendEligible(ChallengeSMS, 569, DefaultResendThreshold))
	assert.True(t, ResendEligible(ChallengePush, 10, DefaultResendThreshold))
	assert.False(t, ResendEligible(ChallengeTOTP, 10, DefaultResendThreshold))
	assert.True(t, ResendEligible(ChallengeSMS, 100, 120))
}

func TestCountdown(t *testing.T) {
	defer goleak.VerifyNone(t)

	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("should tick down once per interval and stop at zero", func(t *testing.T) {
		clock := newFakeClock(start)
		c := StartCountdown(clock, Challenge{ID: "c1", Type: ChallengeSMS, ExpiresAt: start.Add(5 * time.Second)}, 3, time.Second)
		defer c.Stop()

		var got []Tick
		got = append(got, receive(t, c.C()))
		for i := 0; i < 5; i++ {
			clock.Advance(time.Second)
			got = append(got, receive(t, c.C()))
		}

		assert.Equal(t, []Tick{
			{ChallengeID: "c1", Remaining: 5},
			{ChallengeID: "c1", Remaining: 4},
			{ChallengeID: "c1", Remaining: 3},
			{ChallengeID: "c1", Remaining: 2, ResendEligible: true},
			{ChallengeID: "c1", Remaining: 1, ResendEligible: true},
			{ChallengeID: "c1", Remaining: 0, ResendEligible: true},
		}, got)

		<-c.done
		assert.Equal(t, 0, clock.ActiveTickers())
	})

	t.Run("should report zero immediately for an expired challenge", func(t *testing.T) {
		clock := newFakeClock(start)
		c := StartCountdown(clock, Challenge{ID: "c1", Type: ChallengeTOTP, ExpiresAt: start.Add(-time.Second)}, 570, time.Second)
		defer c.Stop()

		assert.Equal(t, 0, receive(t, c.C()).Remaining)
	})

	t.Run("should stop while a tick is pending", func(t *testing.T) {
		clock := newFakeClock(start)
		c := StartCountdown(clock, Challenge{ID: "c1", Type: ChallengeTOTP, ExpiresAt: start.Add(time.Minute)}, 570, time.Second)

		c.Stop()
		c.Stop()
		assert.Equal(t, 0, clock.ActiveTickers())
	})

	t.Run("should tolerate stopping a nil countdown", func(t *testing.T) {
		var c *Countdown
		assert.NotPanics(t, c.Stop)
		assert.Nil(t, c.C())
	})
}
