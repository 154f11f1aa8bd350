package cache

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"stepup/internal/configuration"
	"stepup/internal/models"

	"github.com/redis/rueidis"
	"go.uber.org/zap"
)

type RueidisCache struct {
	client rueidis.Client
}

// New connects to the configured redis compatible backend.
func New(config models.CacheConfiguration) (ICache, error) {
	switch config.Type {
	case "redis":
		r := config.Redis
		return newRueidisCache(r.Hosts, r.Password, r.TLSEnabled, r.TLSServerName, "redis")
	case "valkey":
		v := config.Valkey
		return newRueidisCache(v.Hosts, v.Password, v.TLSEnabled, v.TLSServerName, "valkey")
	default:
		return nil, fmt.Errorf("unsupported cache type %q", config.Type)
	}
}

func newRueidisCache(hosts []string, password string, tlsEnabled bool, tlsServerName, kind string) (*RueidisCache, error) {
	option := rueidis.ClientOption{InitAddress: hosts, Password: password}
	if tlsEnabled {
		option.TLSConfig = &tls.Config{ServerName: tlsServerName, MinVersion: tls.VersionTLS12}
	}

	client, err := rueidis.NewClient(option)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", kind, err)
	}
	return &RueidisCache{client: client}, nil
}

// setNX reports false without error when key already exists.
func (r *RueidisCache) setNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	err := r.client.Do(ctx, r.client.B().Set().Key(key).Value(value).Nx().Ex(ttl).Build()).Error()
	if rueidis.IsRedisNil(err) {
		return false, nil
	}
	return err == nil, err
}

// incrWithTTL increments key and arms its TTL. When onFirst is set the TTL
// is only armed by the first increment so the window is fixed.
func (r *RueidisCache) incrWithTTL(ctx context.Context, key string, ttl time.Duration, onFirst bool) (int64, error) {
	count, err := r.client.Do(ctx, r.client.B().Incr().Key(key).Build()).AsInt64()
	if err != nil {
		return 0, err
	}
	if !onFirst || count == 1 {
		err = r.client.Do(ctx, r.client.B().Expire().Key(key).Seconds(int64(ttl.Seconds())).Build()).Error()
	}
	return count, err
}

func (r *RueidisCache) RegisterPlatform(id string) error {
	now := float64(time.Now().Unix())
	cmd := r.client.B().Zadd().Key(configuration.CacheAppIdentityKey).ScoreMember().ScoreMember(now, id).Build()
	return r.client.Do(context.Background(), cmd).Error()
}

func (r *RueidisCache) DeleteInactivePlatform() error {
	cutoff := float64(time.Now().Unix() - configuration.CacheMaxAppIdentityLifetime)
	cmd := r.client.B().Zremrangebyscore().
		Key(configuration.CacheAppIdentityKey).
		Min("-inf").
		Max(fmt.Sprintf("%f", cutoff)).
		Build()
	return r.client.Do(context.Background(), cmd).Error()
}

func (r *RueidisCache) StartIdentityTicker(id string) {
	beat := func() {
		if err := r.RegisterPlatform(id); err != nil {
			zap.L().Fatal("Failed to register platform", zap.String("platform", id), zap.Error(err))
		}
		if err := r.DeleteInactivePlatform(); err != nil {
			zap.L().Fatal("Failed to delete inactive platforms", zap.String("platform", id), zap.Error(err))
		}
	}

	beat()
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()
	for range ticker.C {
		beat()
	}
}

func (r *RueidisCache) GetRateLimit(identifier string, requestsPerMinute int) (int, error) {
	ctx := context.Background()
	key := fmt.Sprintf(configuration.CacheAppRateLimitKey, identifier)

	count, err := r.incrWithTTL(ctx, key, time.Minute, true)
	if err != nil {
		return 0, err
	}
	if int(count) <= requestsPerMinute {
		return 0, nil
	}

	retryAfter, err := r.client.Do(ctx, r.client.B().Ttl().Key(key).Build()).AsInt64()
	if err != nil {
		return 0, err
	}
	return int(retryAfter), nil
}

// TryAcquireLock attempts to acquire a distributed lock using SET NX EX.
func (r *RueidisCache) TryAcquireLock(key string, instanceID string, ttlSeconds int) (bool, error) {
	return r.setNX(context.Background(), key, instanceID, time.Duration(ttlSeconds)*time.Second)
}

// RefreshLock extends the TTL of an existing lock if held by this instance.
func (r *RueidisCache) RefreshLock(key string, instanceID string, ttlSeconds int) (bool, error) {
	ctx := context.Background()
	holder, err := r.client.Do(ctx, r.client.B().Get().Key(key).Build()).ToString()
	if rueidis.IsRedisNil(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if holder != instanceID {
		return false, nil
	}

	err = r.client.Do(ctx, r.client.B().Expire().Key(key).Seconds(int64(ttlSeconds)).Build()).Error()
	return err == nil, err
}

func (r *RueidisCache) MarkTOTPCodeUsed(deviceID string, code string) (bool, error) {
	key := fmt.Sprintf(configuration.CacheTOTPUsedKey, deviceID, code)
	return r.setNX(context.Background(), key, "1", configuration.TOTPCodeTTL*time.Second)
}

func (r *RueidisCache) GetMFAAttempts(userID string) (int, error) {
	key := fmt.Sprintf(configuration.CacheMFAAttemptsKey, userID)

	count, err := r.client.Do(context.Background(), r.client.B().Get().Key(key).Build()).AsInt64()
	if rueidis.IsRedisNil(err) {
		return 0, nil
	}
	return int(count), err
}

func (r *RueidisCache) IncrementMFAAttempts(userID string) error {
	key := fmt.Sprintf(configuration.CacheMFAAttemptsKey, userID)
	_, err := r.incrWithTTL(context.Background(), key, configuration.MFALockoutSeconds*time.Second, false)
	return err
}

func (r *RueidisCache) ResetMFAAttempts(userID string) error {
	key := fmt.Sprintf(configuration.CacheMFAAttemptsKey, userID)
	return r.client.Do(context.Background(), r.client.B().Del().Key(key).Build()).Error()
}

func (r *RueidisCache) Close() error {
	r.client.Close()
	return nil
}
