package models

type Configuration struct {
	App      AppConfiguration      `mapstructure:"app"      validate:"required"`
	Database DatabaseConfiguration `mapstructure:"database" validate:"required"`
	Cache    CacheConfiguration    `mapstructure:"cache"    validate:"required"`
	Events   EventsConfiguration   `mapstructure:"events"   validate:"required"`
	Notifier NotifierConfiguration `mapstructure:"notifier" validate:"required"`
	Activity ActivityConfiguration `mapstructure:"activity" validate:"required"`
	Tracing  TracingConfiguration  `mapstructure:"tracing"`
}

type AppConfiguration struct {
	Profile              string   `mapstructure:"profile"                 validate:"oneof=default api worker"`
	AdminEmail           string   `mapstructure:"admin_email"             validate:"required,email"`
	AdminPassword        string   `mapstructure:"admin_password"          validate:"required"`
	APIURL               string   `mapstructure:"api_url"                 validate:"required"`
	AllowedOrigins       []string `mapstructure:"allowed_origins"         validate:"required"`
	JWTSecret            string   `mapstructure:"jwt_secret"              validate:"required"`
	MFAEncryptionKey     string   `mapstructure:"mfa_encryption_key"      validate:"len=32"`
	AccessTokenExpiry    int      `mapstructure:"access_token_expiry"     validate:"gte=1,lte=1440"`
	StepUpChallengeTTL   int      `mapstructure:"step_up_challenge_ttl"   validate:"gte=60,lte=3600"`
	ElevatedTokenExpiry  int      `mapstructure:"elevated_token_expiry"   validate:"gte=1,lte=60"`
	StepUpRateLimit      int      `mapstructure:"step_up_rate_limit"      validate:"gte=1,lte=100"`
	ProtectedActions     []string `mapstructure:"protected_actions"       validate:"required,min=1,dive,required"`
	UnverifiedDeviceTTL  int      `mapstructure:"unverified_device_ttl"   validate:"gte=1"`
	GarbageCollectPeriod int      `mapstructure:"garbage_collect_period"  validate:"gte=1"`
	LogLevel             string   `mapstructure:"log_level"               validate:"oneof=debug info warn error fatal panic"`
	Port                 int      `mapstructure:"port"                    validate:"gte=80,lte=65535"`
	TrustedProxies       []string `mapstructure:"trusted_proxies"         validate:"required"`
}

type DatabaseConfiguration struct {
	Type     string `mapstructure:"type"     validate:"required,oneof=postgres sqlite"`
	Host     string `mapstructure:"host"     validate:"required_if=Type postgres"`
	Port     int32  `mapstructure:"port"     validate:"gte=80,lte=65535"`
	User     string `mapstructure:"user"     validate:"required_if=Type postgres"`
	Password string `mapstructure:"password" validate:"required_if=Type postgres"`
	Name     string `mapstructure:"name"     validate:"required"`
	SSLMode  string `mapstructure:"sslmode"`
}

type CacheConfiguration struct {
	Type   string                    `mapstructure:"type"   validate:"required,oneof=redis valkey"`
	Redis  *RedisCacheConfiguration  `mapstructure:"redis"  validate:"required_if=Type redis"`
	Valkey *ValkeyCacheConfiguration `mapstructure:"valkey" validate:"required_if=Type valkey"`
}

type RedisCacheConfiguration struct {
	Hosts         []string `mapstructure:"hosts"`
	Password      string   `mapstructure:"password"`
	TLSEnabled    bool     `mapstructure:"tls_enabled"`
	TLSServerName string   `mapstructure:"tls_server_name"`
}

type ValkeyCacheConfiguration struct {
	Hosts         []string `mapstructure:"hosts"`
	Password      string   `mapstructure:"password"`
	TLSEnabled    bool     `mapstructure:"tls_enabled"`
	TLSServerName string   `mapstructure:"tls_server_name"`
}

// EventsConfiguration selects the code delivery transport. The memory
// transport requires the notifications worker to run next to the API.
type EventsConfiguration struct {
	Type      string                        `mapstructure:"type"      validate:"required,oneof=memory jetstream"`
	Jetstream *JetStreamEventsConfiguration `mapstructure:"jetstream" validate:"required_if=Type jetstream"`
}

type JetStreamEventsConfiguration struct {
	Host string `mapstructure:"host" validate:"required"`
	Port string `mapstructure:"port" validate:"required"`
}

type MailerConfiguration struct {
	Host          string `mapstructure:"host"            validate:"required"`
	Port          int    `mapstructure:"port"            validate:"required"`
	Username      string `mapstructure:"username"`
	Password      string `mapstructure:"password"`
	Sender        string `mapstructure:"sender"          validate:"required"`
	EnableTLS     bool   `mapstructure:"enable_tls"`
	SkipVerifyTLS bool   `mapstructure:"skip_verify_tls"`
}

type NotifierConfiguration struct {
	Type       string                           `mapstructure:"type"       validate:"required,oneof=smtp filesystem"`
	SMTP       *MailerConfiguration             `mapstructure:"smtp"       validate:"required_if=Type smtp"`
	Filesystem *FilesystemNotifierConfiguration `mapstructure:"filesystem" validate:"required_if=Type filesystem"`
}

type FilesystemNotifierConfiguration struct {
	Directory string `mapstructure:"directory" validate:"required"`
}

type ActivityConfiguration struct {
	Type       string                           `mapstructure:"type"       validate:"required,oneof=filesystem"`
	Filesystem *FilesystemActivityConfiguration `mapstructure:"filesystem" validate:"required_if=Type filesystem"`
}

type FilesystemActivityConfiguration struct {
	Directory string `mapstructure:"directory" validate:"required"`
}

// TracingConfiguration enables the OTLP HTTP exporter when Endpoint is set.
type TracingConfiguration struct {
	Endpoint    string  `mapstructure:"endpoint"`
	Insecure    bool    `mapstructure:"insecure"`
	SampleRatio float64 `mapstructure:"sample_ratio" validate:"gte=0,lte=1"`
}

// AuthConfig groups authentication-related configuration for services.
type AuthConfig struct {
	JWTSecret           string
	MFAEncryptionKey    string
	AccessTokenExpiry   int
	StepUpChallengeTTL  int
	ElevatedTokenExpiry int
	StepUpRateLimit     int
	ProtectedActions    []string
}

// GetAuthConfig extracts authentication configuration from AppConfiguration.
func (c *AppConfiguration) GetAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret:           c.JWTSecret,
		MFAEncryptionKey:    c.MFAEncryptionKey,
		AccessTokenExpiry:   c.AccessTokenExpiry,
		StepUpChallengeTTL:  c.StepUpChallengeTTL,
		ElevatedTokenExpiry: c.ElevatedTokenExpiry,
		StepUpRateLimit:     c.StepUpRateLimit,
		ProtectedActions:    c.ProtectedActions,
	}
}

// IsProtectedAction reports whether action may be elevated.
func (c AuthConfig) IsProtectedAction(action string) bool {
	for _, a := range c.ProtectedActions {
		if a == action {
			return true
		}
	}
	return false
}

// ClientConfiguration is read by the CLI host from STEPUP__* variables.
type ClientConfiguration struct {
	APIURL          string `mapstructure:"api_url"          validate:"required,http_url"`
	Timeout         int    `mapstructure:"timeout"          validate:"gte=1,lte=300"`
	ResendThreshold int    `mapstructure:"resend_threshold" validate:"gte=1,lte=3600"`
	SessionFile     string `mapstructure:"session_file"     validate:"required"`
	LogLevel        string `mapstructure:"log_level"        validate:"oneof=debug info warn error fatal panic"`
}
