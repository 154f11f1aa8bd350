package apierrors

// HTTP 400 Bad Request.
const (
	ErrInvalidRequest         = "INVALID_REQUEST"
	ErrMFANotEnabled          = "MFA_NOT_ENABLED"
	ErrActionNotProtected     = "ACTION_NOT_PROTECTED"
	ErrStepUpChallengeExpired = "STEP_UP_CHALLENGE_EXPIRED"
)

// HTTP 401 Unauthorized.
const (
	ErrWrongCode = "WRONG_CODE"
)

// HTTP 403 Forbidden.
const (
	ErrChallengeLocked = "CHALLENGE_LOCKED"
	ErrStepUpRequired  = "STEP_UP_REQUIRED"
)

// HTTP 429 Too Many Requests.
const (
	ErrMFALocked         = "MFA_LOCKED"
	ErrStepUpRateLimited = "STEP_UP_RATE_LIMITED"
)
