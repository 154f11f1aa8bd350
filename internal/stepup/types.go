// Package stepup drives the step-up authentication flow on the client side:
// it opens a challenge for a protected action, counts it down, verifies the
// user's code and hands back a short-lived elevated token.
package stepup

import (
	"regexp"
	"time"
)

// ChallengeType is the channel the authentication service picked for a challenge.
type ChallengeType string

const (
	ChallengeTOTP ChallengeType = "totp"
	ChallengeSMS  ChallengeType = "sms"
	ChallengePush ChallengeType = "push"
)

// CodeLength is the number of digits of a verification code.
const CodeLength = 6

// DefaultResendThreshold is the remaining time (seconds) under which an
// out-of-band code may be resent.
const DefaultResendThreshold = 570

// DefaultTickInterval is how often the countdown recomputes the remaining time.
const DefaultTickInterval = time.Second

// HeaderElevatedToken carries the elevated token on a protected request.
const HeaderElevatedToken = "X-Step-Up-Token"

var codePattern = regexp.MustCompile(`^\d{6}$`)

// IsValid returns true if the ChallengeType is a known value.
func (t ChallengeType) IsValid() bool {
	switch t {
	case ChallengeTOTP, ChallengeSMS, ChallengePush:
		return true
	}
	return false
}

// SupportsResend returns true for out-of-band channels where a new code can be sent.
func (t ChallengeType) SupportsResend() bool {
	return t == ChallengeSMS || t == ChallengePush
}

// Challenge is a server-issued, time-limited verification request.
type Challenge struct {
	ID        string        `json:"challenge_id"`
	Type      ChallengeType `json:"challenge_type"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// ExpiredAt reports whether the challenge is no longer valid at now.
func (c Challenge) ExpiredAt(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// RequestContext is the optional context sent along with an elevation request.
type RequestContext struct {
	PositionID string
}

// ElevatedToken is the credential returned once a challenge is satisfied.
// The caller owns its storage.
type ElevatedToken struct {
	Token      string    `json:"elevated_token"`
	ValidUntil time.Time `json:"valid_until"`
}

// Valid reports whether the token may still be used at now.
func (t ElevatedToken) Valid(now time.Time) bool {
	return t.Token != "" && now.Before(t.ValidUntil)
}

// ValidCode returns true if code is exactly six ASCII digits.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}
