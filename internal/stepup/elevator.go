package stepup

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Elevator starts elevation attempts against an AuthService.
type Elevator struct {
	service         AuthService
	clock           Clock
	resendThreshold int
	tickInterval    time.Duration
	tokens          *TokenStore
	logger          *zap.Logger
}

type Option func(*Elevator)

func WithClock(clock Clock) Option {
	return func(e *Elevator) { e.clock = clock }
}

func WithResendThreshold(seconds int) Option {
	return func(e *Elevator) { e.resendThreshold = seconds }
}

func WithTickInterval(d time.Duration) Option {
	return func(e *Elevator) { e.tickInterval = d }
}

func WithTokenStore(store *TokenStore) Option {
	return func(e *Elevator) { e.tokens = store }
}

func WithLogger(logger *zap.Logger) Option {
	return func(e *Elevator) { e.logger = logger }
}

func NewElevator(service AuthService, opts ...Option) *Elevator {
	e := &Elevator{
		service:         service,
		clock:           SystemClock{},
		resendThreshold: DefaultResendThreshold,
		tickInterval:    DefaultTickInterval,
		logger:          zap.NewNop(),
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.tickInterval <= 0 {
		e.tickInterval = DefaultTickInterval
	}
	if e.resendThreshold <= 0 {
		e.resendThreshold = DefaultResendThreshold
	}
	return e
}

// Begin starts an attempt and returns immediately.
func (e *Elevator) Begin(ctx context.Context, action string, rc RequestContext, observer Observer) *Attempt {
	a := newAttempt(e, action, rc, observer)
	go a.run(ctx)
	return a
}

// RequestElevation runs an attempt to completion. The observer receives the
// *Attempt through OnChallengeActive and drives it with Submit, Resend and
// Cancel. Cancelling ctx cancels the attempt.
func (e *Elevator) RequestElevation(ctx context.Context, action string, rc RequestContext, observer Observer) (ElevatedToken, error) {
	if action == "" {
		return ElevatedToken{}, newError(KindInitiationFailed, "Action is required", nil)
	}
	return e.Begin(ctx, action, rc, observer).Wait()
}
