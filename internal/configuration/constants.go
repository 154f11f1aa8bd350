package configuration

const AppName = "stepup"

// JWT Audience constants for token type separation.
const (
	AudienceAccessToken   = "app:*"
	AudienceElevatedToken = "auth:step-up"
)

const HeaderElevatedToken = "X-Step-Up-Token"

const (
	CacheMaxAppIdentityLifetime = 60
	CacheAppIdentityKey         = "app:identity"
	CacheAppRateLimitKey        = "app:ratelimit:%s"
	CacheAppWorkerLockKey       = "app:worker:lock:%s" //nolint:gosec // not a credential
	CacheAppWorkerLockTTL       = 60
	CacheAppWorkerLockRefresh   = 55
	CacheMFAAttemptsKey         = "mfa:attempts:%s"
	CacheTOTPUsedKey            = "totp:used:%s:%s"
	CacheStepUpRateLimitKey     = "stepup:%s"
)

const (
	EventsNotifications = "notifications"
)

const (
	ProviderMemory    = "memory"
	ProviderJetstream = "jetstream"
)

const (
	// MaxMFADevicesPerUser is the maximum number of MFA devices allowed per user.
	MaxMFADevicesPerUser = 5
	// TOTPCodeTTL is the time-to-live for TOTP code replay protection (in seconds).
	TOTPCodeTTL = 90
	// MFAMaxAttempts is the maximum number of failed MFA verification attempts before lockout.
	MFAMaxAttempts = 5
	// MFALockoutSeconds is the lockout duration after max failed MFA attempts (in seconds).
	MFALockoutSeconds = 900
)

const (
	StepUpChallengeMaxFailedAttempts = 3
	StepUpCodeLength                 = 6
	// StepUpRateLimit is the default number of initiations allowed per user per minute.
	StepUpRateLimit = 5
)

// Protected actions that can be elevated.
const (
	ActionApprovePosition = "approve_position"
	ActionRemoveMFADevice = "remove_mfa_device"
)

var ArrayConfigFields = []string{
	"app.trusted_proxies",
	"app.allowed_origins",
	"app.protected_actions",
	"cache.redis.hosts",
	"cache.valkey.hosts",
}

var ConfigFileSearchPaths = []string{
	"./config.yaml",
	"templates/config.yaml",
}

var ClientConfigFileSearchPaths = []string{
	"./stepup.yaml",
	"$HOME/.config/stepup/config.yaml",
}
