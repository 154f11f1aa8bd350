package stepup

// Observer receives the progress of an attempt. Callbacks run on the
// attempt's goroutine, so they must not call back into the Attempt's
// controls synchronously.
type Observer interface {
	OnChallengeActive(a *Attempt, c Challenge)
	OnTick(remaining int)
	OnResendEligible()
	OnExpired()
	OnError(err *Error)
	OnElevated(token ElevatedToken)
	OnCodeCleared()
}

// Callbacks implements Observer with optional functions.
type Callbacks struct {
	ChallengeActive func(a *Attempt, c Challenge)
	Tick            func(remaining int)
	ResendEligible  func()
	Expired         func()
	Error           func(err *Error)
	Elevated        func(token ElevatedToken)
	CodeCleared     func()
}

func (cb Callbacks) OnChallengeActive(a *Attempt, c Challenge) {
	if cb.ChallengeActive != nil {
		cb.ChallengeActive(a, c)
	}
}

func (cb Callbacks) OnTick(remaining int) {
	if cb.Tick != nil {
		cb.Tick(remaining)
	}
}

func (cb Callbacks) OnResendEligible() {
	if cb.ResendEligible != nil {
		cb.ResendEligible()
	}
}

func (cb Callbacks) OnExpired() {
	if cb.Expired != nil {
		cb.Expired()
	}
}

func (cb Callbacks) OnError(err *Error) {
	if cb.Error != nil {
		cb.Error(err)
	}
}

func (cb Callbacks) OnElevated(token ElevatedToken) {
	if cb.Elevated != nil {
		cb.Elevated(token)
	}
}

func (cb Callbacks) OnCodeCleared() {
	if cb.CodeCleared != nil {
		cb.CodeCleared()
	}
}
