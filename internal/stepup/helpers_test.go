package stepup

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// --- Fake clock ---

type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	tickers []*fakeTicker
}

type fakeTicker struct {
	clock   *fakeClock
	ch      chan time.Time
	period  time.Duration
	next    time.Time
	stopped bool
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTicker{clock: c, ch: make(chan time.Time, 1), period: d, next: c.now.Add(d)}
	c.tickers = append(c.tickers, t)
	return t
}

// Advance moves time forward and fires due tickers. Like time.Ticker,
// ticks are dropped when the reader falls behind.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	for _, t := range c.tickers {
		if t.stopped {
			continue
		}
		for !t.next.After(c.now) {
			select {
			case t.ch <- c.now:
			default:
			}
			t.next = t.next.Add(t.period)
		}
	}
}

func (c *fakeClock) ActiveTickers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.tickers {
		if !t.stopped {
			n++
		}
	}
	return n
}

func (t *fakeTicker) C() <-chan time.Time { return t.ch }

func (t *fakeTicker) Stop() {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	t.stopped = true
}

// --- Recording observer ---

type recorder struct {
	challenges chan Challenge
	ticks      chan int
	eligible   chan struct{}
	expired    chan struct{}
	errors     chan *Error
	elevated   chan ElevatedToken
	cleared    chan struct{}
}

func newRecorder() *recorder {
	return &recorder{
		challenges: make(chan Challenge, 16),
		ticks:      make(chan int, 2048),
		eligible:   make(chan struct{}, 16),
		expired:    make(chan struct{}, 16),
		errors:     make(chan *Error, 64),
		elevated:   make(chan ElevatedToken, 16),
		cleared:    make(chan struct{}, 16),
	}
}

func (r *recorder) OnChallengeActive(_ *Attempt, c Challenge) { r.challenges <- c }
func (r *recorder) OnTick(remaining int)                      { r.ticks <- remaining }
func (r *recorder) OnResendEligible()                         { r.eligible <- struct{}{} }
func (r *recorder) OnExpired()                                { r.expired <- struct{}{} }
func (r *recorder) OnError(err *Error)                        { r.errors <- err }
func (r *recorder) OnElevated(token ElevatedToken)            { r.elevated <- token }
func (r *recorder) OnCodeCleared()                            { r.cleared <- struct{}{} }

const waitTimeout = 2 * time.Second

func receive[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for observer callback")
	}
	var zero T
	return zero
}

func requireEmpty[T any](t *testing.T, ch <-chan T) {
	t.Helper()
	select {
	case v := <-ch:
		t.Fatalf("unexpected callback: %v", v)
	default:
	}
}

func waitForState(t *testing.T, a *Attempt, name string) {
	t.Helper()
	require.Eventually(t, func() bool {
		return a.State().Name() == name
	}, waitTimeout, time.Millisecond)
}

// --- Fake service ---

type fakeService struct {
	mu            sync.Mutex
	initiateCalls int
	completeCalls []string
	challengeIDs  []string

	initiate func(ctx context.Context, call int) (Challenge, error)
	complete func(ctx context.Context, challengeID, code string) (ElevatedToken, error)
}

func (f *fakeService) Initiate(ctx context.Context, _ string, _ RequestContext) (Challenge, error) {
	f.mu.Lock()
	f.initiateCalls++
	call := f.initiateCalls
	f.mu.Unlock()
	return f.initiate(ctx, call)
}

func (f *fakeService) Verify(ctx context.Context, challengeID, code string) (ElevatedToken, error) {
	f.mu.Lock()
	f.completeCalls = append(f.completeCalls, code)
	f.challengeIDs = append(f.challengeIDs, challengeID)
	f.mu.Unlock()
	return f.complete(ctx, challengeID, code)
}

func (f *fakeService) Initiations() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initiateCalls
}

func (f *fakeService) Completions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.completeCalls...)
}

func (f *fakeService) CompletedChallenges() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.challengeIDs...)
}

// gated blocks until gate is closed or ctx is done.
func gated(ctx context.Context, gate <-chan struct{}) error {
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
