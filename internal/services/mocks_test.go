package services

import (
	"sync"
	"testing"

	"stepup/internal/activity"
	"stepup/internal/cache"
	"stepup/internal/messaging"
	"stepup/internal/models"
	"stepup/internal/notifier"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// --- Inline Mocks ---

type MockCache struct {
	mu            sync.Mutex
	RetryAfter    int
	Attempts      int
	CodeUsed      bool
	Err           error
	Incremented   int
	ResetCalls    int
	RateLimitKeys []string
}

func (m *MockCache) RegisterPlatform(_ string) error { return nil }
func (m *MockCache) DeleteInactivePlatform() error   { return nil }
func (m *MockCache) StartIdentityTicker(_ string)    {}

func (m *MockCache) GetRateLimit(identifier string, _ int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RateLimitKeys = append(m.RateLimitKeys, identifier)
	return m.RetryAfter, m.Err
}

func (m *MockCache) MarkTOTPCodeUsed(_ string, _ string) (bool, error) {
	return !m.CodeUsed, m.Err
}

func (m *MockCache) GetMFAAttempts(_ string) (int, error) { return m.Attempts, m.Err }

func (m *MockCache) IncrementMFAAttempts(_ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Incremented++
	return nil
}

func (m *MockCache) ResetMFAAttempts(_ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ResetCalls++
	return nil
}

func (m *MockCache) TryAcquireLock(_ string, _ string, _ int) (bool, error) { return true, nil }
func (m *MockCache) RefreshLock(_ string, _ string, _ int) (bool, error)    { return true, nil }
func (m *MockCache) Close() error                                           { return nil }

var _ cache.ICache = (*MockCache)(nil)

type MockNotifier struct {
	mu   sync.Mutex
	Sent []string
}

func (m *MockNotifier) NotifyFromTemplate(to string, _ string, _ string, _ any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, to)
	return nil
}

var _ notifier.INotifier = (*MockNotifier)(nil)

type MockActivityLogger struct {
	Sent     []models.Activity
	Points   []models.TimeSeriesPoint
	Criteria map[string][]string
}

func (m *MockActivityLogger) Send(a models.Activity) error {
	m.Sent = append(m.Sent, a)
	return nil
}

func (m *MockActivityLogger) Search(criteria map[string][]string) ([]map[string]any, error) {
	m.Criteria = criteria
	return []map[string]any{}, nil
}

func (m *MockActivityLogger) CountByDay(_ map[string][]string, _ int) ([]models.TimeSeriesPoint, error) {
	return m.Points, nil
}

func (m *MockActivityLogger) Close() error { return nil }

func (m *MockActivityLogger) Actions() []string {
	actions := make([]string, 0, len(m.Sent))
	for _, a := range m.Sent {
		actions = append(actions, a.Filter.Fields["action"])
	}
	return actions
}

var _ activity.IActivityLogger = (*MockActivityLogger)(nil)

type MockPublisher struct {
	Messages []*message.Message
	Err      error
}

func (m *MockPublisher) Publish(messages ...*message.Message) error {
	if m.Err != nil {
		return m.Err
	}
	m.Messages = append(m.Messages, messages...)
	return nil
}

func (m *MockPublisher) Close() error { return nil }

var _ messaging.IPublisher = (*MockPublisher)(nil)

// --- Helpers ---

const (
	testJWTSecret     = "test-secret-key-for-jwt-signing"
	testEncryptionKey = "01234567890123456789012345678901"
)

func testAuthConfig() models.AuthConfig {
	return models.AuthConfig{
		JWTSecret:           testJWTSecret,
		MFAEncryptionKey:    testEncryptionKey,
		AccessTokenExpiry:   60,
		StepUpChallengeTTL:  600,
		ElevatedTokenExpiry: 5,
		StepUpRateLimit:     5,
		ProtectedActions:    []string{"approve_position", "remove_mfa_device"},
	}
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)
	return gormDB, mock
}
