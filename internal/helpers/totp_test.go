package helpers

import (
	"strings"
	"testing"
	"time"

	"stepup/internal/configuration"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateTOTPSecret(t *testing.T) {
	t.Run("should build an otpauth url for the account", func(t *testing.T) {
		key, err := GenerateTOTPSecret("approver@example.com")

		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(key.URL, "otpauth://totp/"))
		assert.Contains(t, key.URL, "issuer="+configuration.AppName)
		assert.Contains(t, key.URL, "approver@example.com")
		assert.Len(t, key.Secret, 32)
	})

	t.Run("should generate a distinct secret each time", func(t *testing.T) {
		first, err := GenerateTOTPSecret("approver@example.com")
		require.NoError(t, err)
		second, err := GenerateTOTPSecret("approver@example.com")
		require.NoError(t, err)

		assert.NotEqual(t, first.Secret, second.Secret)
	})
}

func TestValidateTOTPCodeAt(t *testing.T) {
	key, err := GenerateTOTPSecret("approver@example.com")
	require.NoError(t, err)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	code, err := totp.GenerateCode(key.Secret, at)
	require.NoError(t, err)

	t.Run("should accept the current code", func(t *testing.T) {
		assert.True(t, ValidateTOTPCodeAt(key.Secret, code, at))
	})

	t.Run("should accept the code one step later", func(t *testing.T) {
		assert.True(t, ValidateTOTPCodeAt(key.Secret, code, at.Add(30*time.Second)))
	})

	t.Run("should reject the code two minutes later", func(t *testing.T) {
		assert.False(t, ValidateTOTPCodeAt(key.Secret, code, at.Add(2*time.Minute)))
	})

	t.Run("should reject malformed codes", func(t *testing.T) {
		assert.False(t, ValidateTOTPCodeAt(key.Secret, "", at))
		assert.False(t, ValidateTOTPCodeAt(key.Secret, "12345", at))
		assert.False(t, ValidateTOTPCodeAt(key.Secret, "abcdef", at))
	})
}
