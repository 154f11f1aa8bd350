package stepup

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type commandKind int

const (
	commandSubmit commandKind = iota
	commandResend
	commandCancel
)

type command struct {
	kind  commandKind
	code  string
	reply chan commandResult
}

type commandResult struct {
	err     error
	started bool
}

// Attempt is one elevation flow. A single goroutine owns its state, its
// countdown and its in-flight calls; the exported methods post commands to it.
type Attempt struct {
	id        string
	action    string
	rc        RequestContext
	service   AuthService
	observer  Observer
	clock     Clock
	threshold int
	interval  time.Duration
	logger    *zap.Logger

	commands chan command
	events   chan Event
	quit     chan struct{}
	done     chan struct{}
	cancel   context.CancelFunc
	calls    sync.WaitGroup

	mu      sync.RWMutex
	current State

	countdown *Countdown
	lastTick  int
	token     ElevatedToken
	err       error
}

func newAttempt(e *Elevator, action string, rc RequestContext, observer Observer) *Attempt {
	if observer == nil {
		observer = Callbacks{}
	}

	return &Attempt{
		id:        uuid.NewString(),
		action:    action,
		rc:        rc,
		service:   e.service,
		observer:  observer,
		clock:     e.clock,
		threshold: e.resendThreshold,
		interval:  e.tickInterval,
		logger:    e.logger,
		commands:  make(chan command),
		events:    make(chan Event),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		current:   Idle{},
		lastTick:  -1,
	}
}

// ID identifies the attempt in logs.
func (a *Attempt) ID() string {
	return a.id
}

// Action is the protected action being elevated for.
func (a *Attempt) Action() string {
	return a.action
}

// State returns a snapshot of the current state.
func (a *Attempt) State() State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current
}

// Done is closed once the attempt reached a final state and released
// its resources.
func (a *Attempt) Done() <-chan struct{} {
	return a.done
}

// Wait blocks until the attempt ends and returns its outcome.
func (a *Attempt) Wait() (ElevatedToken, error) {
	<-a.done
	return a.token, a.err
}

// Submit hands a verification code to the active challenge. Format errors
// and a missing challenge are returned right away; the verification outcome
// is reported through the Observer. Submissions made while a call is in
// flight are ignored.
func (a *Attempt) Submit(code string) error {
	res, ok := a.send(command{kind: commandSubmit, code: code})
	if !ok {
		return ErrNoActiveChallenge
	}
	return res.err
}

// Resend requests a fresh out-of-band code. It returns false when the
// challenge is not eligible or a resend is already running.
func (a *Attempt) Resend() bool {
	res, ok := a.send(command{kind: commandResend})
	return ok && res.started
}

// Cancel abandons the attempt. It returns once the countdown is stopped.
// No call is made to the service.
func (a *Attempt) Cancel() {
	if _, ok := a.send(command{kind: commandCancel}); ok {
		<-a.done
	}
}

func (a *Attempt) send(cmd command) (commandResult, bool) {
	cmd.reply = make(chan commandResult, 1)

	select {
	case a.commands <- cmd:
	case <-a.done:
		return commandResult{}, false
	}

	select {
	case res := <-cmd.reply:
		return res, true
	case <-a.done:
		return commandResult{}, false
	}
}

func (a *Attempt) run(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)
	defer a.finish()

	a.apply(ctx, Requested{Action: a.action, Context: a.rc})

	for !Terminal(a.current) {
		select {
		case <-ctx.Done():
			a.apply(ctx, CancelRequested{})
		case cmd := <-a.commands:
			cmd.reply <- a.handle(ctx, cmd)
		case ev := <-a.events:
			a.apply(ctx, ev)
		case tick := <-a.countdown.C():
			a.apply(ctx, Ticked{
				ChallengeID:    tick.ChallengeID,
				Remaining:      tick.Remaining,
				ResendEligible: tick.ResendEligible,
			})
		}
	}
}

func (a *Attempt) finish() {
	a.countdown.Stop()
	a.cancel()
	close(a.quit)
	a.calls.Wait()

	switch st := a.current.(type) {
	case Elevated:
		a.token = st.Token
	case Expired:
		a.err = ErrExpired
	case Cancelled:
		a.err = ErrCancelled
	case Idle:
		a.err = st.Err
	}

	a.logger.Debug("Step-up attempt finished",
		zap.String("attempt_id", a.id),
		zap.String("action", a.action),
		zap.String("state", a.current.Name()))

	close(a.done)
}

func (a *Attempt) handle(ctx context.Context, cmd command) commandResult {
	switch cmd.kind {
	case commandSubmit:
		return commandResult{err: a.submit(ctx, cmd.code)}
	case commandResend:
		if _, ok := a.current.(ChallengeActive); !ok {
			return commandResult{}
		}
		next := a.apply(ctx, ResendRequested{})
		_, started := next.(Resending)
		return commandResult{started: started}
	case commandCancel:
		a.apply(ctx, CancelRequested{})
	}
	return commandResult{}
}

func (a *Attempt) submit(ctx context.Context, code string) error {
	switch st := a.current.(type) {
	case ChallengeActive:
		if st.Challenge.ExpiredAt(a.clock.Now()) {
			a.apply(ctx, Ticked{ChallengeID: st.Challenge.ID, Remaining: 0})
			return ErrExpired
		}
		next := a.apply(ctx, CodeSubmitted{Code: code})
		if active, ok := next.(ChallengeActive); ok && active.Err != nil {
			return active.Err
		}
		return nil
	case Verifying, Resending:
		return nil
	}

	a.observer.OnError(ErrNoActiveChallenge)
	return ErrNoActiveChallenge
}

func (a *Attempt) apply(ctx context.Context, ev Event) State {
	prev := a.current
	next := Transition(prev, ev)

	a.mu.Lock()
	a.current = next
	a.mu.Unlock()

	if prev.Name() != next.Name() {
		a.logger.Debug("Step-up transition",
			zap.String("attempt_id", a.id),
			zap.String("from", prev.Name()),
			zap.String("to", next.Name()))
	}

	a.effects(ctx, prev, next, ev)
	return next
}

// effects runs the side effects of moving from prev to next.
func (a *Attempt) effects(ctx context.Context, prev, next State, ev Event) {
	if tick, ok := ev.(Ticked); ok {
		a.reportTick(prev, next, tick)
	}

	switch st := next.(type) {
	case Initiating:
		if _, was := prev.(Initiating); !was {
			a.initiate(ctx)
		}

	case ChallengeActive:
		switch e := ev.(type) {
		case ChallengeIssued:
			a.startCountdown(e.Challenge)
			a.observer.OnChallengeActive(a, e.Challenge)
		case ResendSucceeded:
			a.startCountdown(e.Challenge)
			a.observer.OnChallengeActive(a, e.Challenge)
			a.observer.OnCodeCleared()
		case ResendFailed:
			a.observer.OnError(e.Err)
		case VerificationRejected:
			a.observer.OnError(e.Err)
			a.observer.OnCodeCleared()
		case CodeSubmitted:
			if st.Err != nil {
				a.observer.OnError(st.Err)
			}
		}

	case Verifying:
		if _, was := prev.(ChallengeActive); was {
			a.verify(ctx, st.Challenge.ID, st.Code)
		}

	case Resending:
		if _, was := prev.(ChallengeActive); was {
			a.resend(ctx)
		}

	case Elevated:
		a.countdown.Stop()
		a.observer.OnElevated(st.Token)

	case Expired:
		a.countdown.Stop()
		a.observer.OnError(ErrExpired)
		a.observer.OnExpired()

	case Cancelled:
		a.countdown.Stop()

	case Idle:
		if st.Err != nil {
			a.countdown.Stop()
			a.observer.OnError(st.Err)
		}
	}
}

func (a *Attempt) reportTick(prev, next State, tick Ticked) {
	cur, ok := CurrentChallenge(prev)
	if !ok || cur.ID != tick.ChallengeID {
		return
	}

	if tick.Remaining != a.lastTick {
		a.lastTick = tick.Remaining
		a.observer.OnTick(tick.Remaining)
	}

	if !resendEligible(prev) && resendEligible(next) {
		a.observer.OnResendEligible()
	}
}

func resendEligible(s State) bool {
	switch st := s.(type) {
	case ChallengeActive:
		return st.ResendEligible
	case Verifying:
		return st.ResendEligible
	case Resending:
		return st.ResendEligible
	}
	return false
}

// startCountdown replaces the countdown with one for c.
func (a *Attempt) startCountdown(c Challenge) {
	a.countdown.Stop()
	a.lastTick = -1
	a.countdown = StartCountdown(a.clock, c, a.threshold, a.interval)
}

// call runs fn outside the loop and feeds its result back as an event.
func (a *Attempt) call(fn func() Event) {
	a.calls.Add(1)
	go func() {
		defer a.calls.Done()
		ev := fn()
		select {
		case a.events <- ev:
		case <-a.quit:
		}
	}()
}

func (a *Attempt) initiate(ctx context.Context) {
	a.call(func() Event {
		challenge, err := a.service.Initiate(ctx, a.action, a.rc)
		if err != nil {
			return InitiationFailed{Err: asKind(err, KindInitiationFailed, defaultInitiateMessage)}
		}
		return ChallengeIssued{Challenge: challenge, Remaining: Remaining(challenge.ExpiresAt, a.clock.Now())}
	})
}

func (a *Attempt) resend(ctx context.Context) {
	a.call(func() Event {
		challenge, err := a.service.Initiate(ctx, a.action, a.rc)
		if err != nil {
			se := asKind(err, KindResendFailed, ErrResendFailed.Message)
			if se.Kind == KindInitiationFailed {
				se = newError(KindResendFailed, se.Message, se.Err)
			}
			return ResendFailed{Err: se}
		}
		return ResendSucceeded{Challenge: challenge, Remaining: Remaining(challenge.ExpiresAt, a.clock.Now())}
	})
}

func (a *Attempt) verify(ctx context.Context, challengeID, code string) {
	a.call(func() Event {
		token, err := a.service.Verify(ctx, challengeID, code)
		if err != nil {
			return VerificationRejected{Err: asKind(err, KindVerificationFailed, defaultVerifyMessage)}
		}
		return VerificationSucceeded{Token: token}
	})
}

// asKind keeps typed errors and wraps anything else into kind.
func asKind(err error, kind Kind, message string) *Error {
	if se, ok := AsError(err); ok {
		return se
	}
	if errors.Is(err, context.Canceled) {
		return ErrCancelled
	}
	return newError(kind, message, err)
}
