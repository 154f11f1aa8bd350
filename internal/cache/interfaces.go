package cache

type ICache interface {
	RegisterPlatform(id string) error
	DeleteInactivePlatform() error
	StartIdentityTicker(id string)

	// GetRateLimit counts a request for identifier and returns the number of
	// seconds to wait when the per minute budget is exhausted, 0 otherwise.
	GetRateLimit(identifier string, requestsPerMinute int) (int, error)

	// MarkTOTPCodeUsed records code for deviceID and reports whether it was
	// unused. Uses configuration.TOTPCodeTTL.
	MarkTOTPCodeUsed(deviceID string, code string) (bool, error)

	// GetMFAAttempts returns the current number of failed MFA attempts for a user.
	GetMFAAttempts(userID string) (int, error)
	// IncrementMFAAttempts increments failed MFA attempts and sets lockout TTL.
	IncrementMFAAttempts(userID string) error
	// ResetMFAAttempts clears the failed attempts counter (called on successful verification).
	ResetMFAAttempts(userID string) error

	TryAcquireLock(key string, instanceID string, ttlSeconds int) (bool, error)
	RefreshLock(key string, instanceID string, ttlSeconds int) (bool, error)

	Close() error
}
