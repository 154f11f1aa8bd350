package helpers

import (
	"time"

	"stepup/internal/configuration"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// TOTPKey holds the generated TOTP key information.
type TOTPKey struct {
	Secret string // Base32-encoded secret
	URL    string // otpauth:// URL for QR code generation
}

// GenerateTOTPSecret creates a new TOTP secret for the given email.
func GenerateTOTPSecret(email string) (*TOTPKey, error) {
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      configuration.AppName,
		AccountName: email,
		SecretSize:  20,
	})
	if err != nil {
		return nil, err
	}

	return &TOTPKey{
		Secret: key.Secret(),
		URL:    key.URL(),
	}, nil
}

// ValidateTOTPCode validates a 6-digit TOTP code against the given secret.
func ValidateTOTPCode(secret string, code string) bool {
	return ValidateTOTPCodeAt(secret, code, time.Now())
}

// ValidateTOTPCodeAt validates code at the given instant, allowing one step of skew.
func ValidateTOTPCodeAt(secret string, code string, at time.Time) bool {
	valid, err := totp.ValidateCustom(code, secret, at.UTC(), totp.ValidateOpts{
		Period:    30,
		Skew:      1,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	})
	return err == nil && valid
}
