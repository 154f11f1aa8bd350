package cache

import (
	"context"
	"testing"

	"stepup/internal/configuration"
	"stepup/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func newTestCache(t *testing.T) ICache {
	t.Helper()
	if testing.Short() {
		t.Skip("redis container test skipped in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "valkey/valkey:8-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	testcontainers.CleanupContainer(t, container)
	require.NoError(t, err)

	endpoint, err := container.PortEndpoint(ctx, "6379/tcp", "")
	require.NoError(t, err)

	c, err := New(models.CacheConfiguration{
		Type:   "valkey",
		Valkey: &models.ValkeyCacheConfiguration{Hosts: []string{endpoint}},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	return c
}

func TestRueidisCache(t *testing.T) {
	c := newTestCache(t)

	t.Run("should accept a totp code only once per device", func(t *testing.T) {
		unused, err := c.MarkTOTPCodeUsed("device-1", "123456")
		require.NoError(t, err)
		assert.True(t, unused)

		unused, err = c.MarkTOTPCodeUsed("device-1", "123456")
		require.NoError(t, err)
		assert.False(t, unused)

		unused, err = c.MarkTOTPCodeUsed("device-2", "123456")
		require.NoError(t, err)
		assert.True(t, unused)
	})

	t.Run("should count and reset failed attempts", func(t *testing.T) {
		for range configuration.MFAMaxAttempts {
			require.NoError(t, c.IncrementMFAAttempts("user-1"))
		}

		attempts, err := c.GetMFAAttempts("user-1")
		require.NoError(t, err)
		assert.Equal(t, configuration.MFAMaxAttempts, attempts)

		require.NoError(t, c.ResetMFAAttempts("user-1"))
		attempts, err = c.GetMFAAttempts("user-1")
		require.NoError(t, err)
		assert.Zero(t, attempts)
	})

	t.Run("should throttle once the budget is spent", func(t *testing.T) {
		for range 3 {
			retryAfter, err := c.GetRateLimit("stepup:user-2", 3)
			require.NoError(t, err)
			assert.Zero(t, retryAfter)
		}

		retryAfter, err := c.GetRateLimit("stepup:user-2", 3)
		require.NoError(t, err)
		assert.Positive(t, retryAfter)
	})

	t.Run("should hand a worker lock to a single instance", func(t *testing.T) {
		acquired, err := c.TryAcquireLock("lock:gc", "instance-a", 30)
		require.NoError(t, err)
		assert.True(t, acquired)

		acquired, err = c.TryAcquireLock("lock:gc", "instance-b", 30)
		require.NoError(t, err)
		assert.False(t, acquired)

		refreshed, err := c.RefreshLock("lock:gc", "instance-a", 30)
		require.NoError(t, err)
		assert.True(t, refreshed)

		refreshed, err = c.RefreshLock("lock:gc", "instance-b", 30)
		require.NoError(t, err)
		assert.False(t, refreshed)
	})
}
