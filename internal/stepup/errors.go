package stepup

import "errors"

// Kind classifies a step-up failure.
type Kind string

const (
	KindUnauthenticated    Kind = "UNAUTHENTICATED"
	KindInitiationFailed   Kind = "INITIATION_FAILED"
	KindInvalidFormat      Kind = "INVALID_FORMAT"
	KindInvalidCode        Kind = "INVALID_CODE"
	KindVerificationFailed Kind = "VERIFICATION_FAILED"
	KindExpired            Kind = "EXPIRED"
	KindNoActiveChallenge  Kind = "NO_ACTIVE_CHALLENGE"
	KindResendFailed       Kind = "RESEND_FAILED"
	KindCancelled          Kind = "CANCELLED"
)

const (
	defaultInitiateMessage = "Failed to initiate step-up challenge"
	defaultVerifyMessage   = "Verification failed"
)

// Error is the typed error surfaced by every step-up operation.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

var (
	ErrUnauthenticated   = &Error{Kind: KindUnauthenticated, Message: "No active session"}
	ErrInvalidFormat     = &Error{Kind: KindInvalidFormat, Message: "Code must be 6 digits"}
	ErrInvalidCode       = &Error{Kind: KindInvalidCode, Message: "Invalid verification code"}
	ErrExpired           = &Error{Kind: KindExpired, Message: "Challenge expired"}
	ErrNoActiveChallenge = &Error{Kind: KindNoActiveChallenge, Message: "No active challenge"}
	ErrResendFailed      = &Error{Kind: KindResendFailed, Message: "Failed to resend code"}
	ErrCancelled         = &Error{Kind: KindCancelled, Message: "Step-up cancelled"}
)

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind, so sentinels work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// Fatal reports whether the error ends the current elevation attempt.
func (e *Error) Fatal() bool {
	switch e.Kind {
	case KindExpired, KindUnauthenticated, KindCancelled, KindInitiationFailed:
		return true
	}
	return false
}

// AsError extracts the *Error from err, if any.
func AsError(err error) (*Error, bool) {
	var se *Error
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
