package stepup

// State is one node of the elevation state machine.
type State interface {
	Name() string
	isState()
}

type Idle struct {
	Err *Error
}

type Initiating struct {
	Action  string
	Context RequestContext
}

type ChallengeActive struct {
	Challenge      Challenge
	Remaining      int
	ResendEligible bool
	Err            *Error
}

type Verifying struct {
	Challenge      Challenge
	Remaining      int
	ResendEligible bool
	Code           string
}

type Resending struct {
	Challenge      Challenge
	Remaining      int
	ResendEligible bool
}

type Elevated struct {
	Token ElevatedToken
}

type Expired struct {
	Challenge Challenge
}

type Cancelled struct{}

func (Idle) Name() string            { return "idle" }
func (Initiating) Name() string      { return "initiating" }
func (ChallengeActive) Name() string { return "challenge_active" }
func (Verifying) Name() string       { return "verifying" }
func (Resending) Name() string       { return "resending" }
func (Elevated) Name() string        { return "elevated" }
func (Expired) Name() string         { return "expired" }
func (Cancelled) Name() string       { return "cancelled" }

func (Idle) isState()            {}
func (Initiating) isState()      {}
func (ChallengeActive) isState() {}
func (Verifying) isState()       {}
func (Resending) isState()       {}
func (Elevated) isState()        {}
func (Expired) isState()         {}
func (Cancelled) isState()       {}

// Event is an input to Transition.
type Event interface {
	isEvent()
}

type Requested struct {
	Action  string
	Context RequestContext
}

type ChallengeIssued struct {
	Challenge Challenge
	Remaining int
}

type InitiationFailed struct {
	Err *Error
}

type CodeSubmitted struct {
	Code string
}

type VerificationSucceeded struct {
	Token ElevatedToken
}

type VerificationRejected struct {
	Err *Error
}

type ResendRequested struct{}

type ResendSucceeded struct {
	Challenge Challenge
	Remaining int
}

type ResendFailed struct {
	Err *Error
}

type Ticked struct {
	ChallengeID    string
	Remaining      int
	ResendEligible bool
}

type CancelRequested struct{}

func (Requested) isEvent()             {}
func (ChallengeIssued) isEvent()       {}
func (InitiationFailed) isEvent()      {}
func (CodeSubmitted) isEvent()         {}
func (VerificationSucceeded) isEvent() {}
func (VerificationRejected) isEvent()  {}
func (ResendRequested) isEvent()       {}
func (ResendSucceeded) isEvent()       {}
func (ResendFailed) isEvent()          {}
func (Ticked) isEvent()                {}
func (CancelRequested) isEvent()       {}

// Terminal reports whether no further event can move s.
// Idle is terminal only once it carries an error.
func Terminal(s State) bool {
	switch st := s.(type) {
	case Elevated, Expired, Cancelled:
		return true
	case Idle:
		return st.Err != nil
	}
	return false
}

// CurrentChallenge returns the challenge held by s, if any.
func CurrentChallenge(s State) (Challenge, bool) {
	switch st := s.(type) {
	case ChallengeActive:
		return st.Challenge, true
	case Verifying:
		return st.Challenge, true
	case Resending:
		return st.Challenge, true
	}
	return Challenge{}, false
}

// Transition is the pure reducer of the state machine. Events that do not
// apply to the current state leave it unchanged.
func Transition(s State, ev Event) State {
	switch cur := s.(type) {
	case Idle:
		if e, ok := ev.(Requested); ok && cur.Err == nil {
			return Initiating{Action: e.Action, Context: e.Context}
		}

	case Initiating:
		switch e := ev.(type) {
		case ChallengeIssued:
			return ChallengeActive{Challenge: e.Challenge, Remaining: e.Remaining}
		case InitiationFailed:
			return Idle{Err: e.Err}
		case CancelRequested:
			return Cancelled{}
		}

	case ChallengeActive:
		switch e := ev.(type) {
		case CodeSubmitted:
			if !ValidCode(e.Code) {
				cur.Err = ErrInvalidFormat
				return cur
			}
			return Verifying{
				Challenge:      cur.Challenge,
				Remaining:      cur.Remaining,
				ResendEligible: cur.ResendEligible,
				Code:           e.Code,
			}
		case ResendRequested:
			if !cur.ResendEligible {
				return cur
			}
			return Resending{Challenge: cur.Challenge, Remaining: cur.Remaining, ResendEligible: true}
		case Ticked:
			if e.ChallengeID != cur.Challenge.ID {
				return cur
			}
			if e.Remaining <= 0 {
				return Expired{Challenge: cur.Challenge}
			}
			cur.Remaining = e.Remaining
			cur.ResendEligible = sticky(cur.Challenge, cur.ResendEligible, e.ResendEligible)
			return cur
		case CancelRequested:
			return Cancelled{}
		}

	case Verifying:
		switch e := ev.(type) {
		case VerificationSucceeded:
			return Elevated{Token: e.Token}
		case VerificationRejected:
			if e.Err.Fatal() {
				return Idle{Err: e.Err}
			}
			return ChallengeActive{
				Challenge:      cur.Challenge,
				Remaining:      cur.Remaining,
				ResendEligible: cur.ResendEligible,
				Err:            e.Err,
			}
		case Ticked:
			if e.ChallengeID != cur.Challenge.ID {
				return cur
			}
			if e.Remaining <= 0 {
				return Expired{Challenge: cur.Challenge}
			}
			cur.Remaining = e.Remaining
			cur.ResendEligible = sticky(cur.Challenge, cur.ResendEligible, e.ResendEligible)
			return cur
		case CancelRequested:
			return Cancelled{}
		}

	case Resending:
		switch e := ev.(type) {
		case ResendSucceeded:
			return ChallengeActive{Challenge: e.Challenge, Remaining: e.Remaining}
		case ResendFailed:
			return ChallengeActive{
				Challenge:      cur.Challenge,
				Remaining:      cur.Remaining,
				ResendEligible: cur.ResendEligible,
				Err:            e.Err,
			}
		case Ticked:
			if e.ChallengeID != cur.Challenge.ID {
				return cur
			}
			if e.Remaining <= 0 {
				return Expired{Challenge: cur.Challenge}
			}
			cur.Remaining = e.Remaining
			return cur
		case CancelRequested:
			return Cancelled{}
		}
	}

	return s
}

// sticky keeps resend eligibility set for the rest of the challenge.
func sticky(c Challenge, was, now bool) bool {
	return was || (now && c.Type.SupportsResend())
}
