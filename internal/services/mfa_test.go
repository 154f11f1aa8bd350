package services

import (
	"regexp"
	"testing"
	"time"

	"stepup/internal/configuration"
	h "stepup/internal/helpers"
	"stepup/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const countDevicesQuery = `SELECT count(*) FROM "mfa_devices"`

func newMFAService(t *testing.T) (MFAService, sqlmock.Sqlmock, *MockCache, *MockNotifier, *MockActivityLogger) {
	t.Helper()
	db, mock := newMockDB(t)
	c := &MockCache{}
	n := &MockNotifier{}
	activityLogger := &MockActivityLogger{}
	return MFAService{
		DB:             db,
		Cache:          c,
		AuthConfig:     testAuthConfig(),
		Notifier:       n,
		ActivityLogger: activityLogger,
	}, mock, c, n, activityLogger
}

func TestMFAListDevices(t *testing.T) {
	t.Run("should report mfa status from verified devices", func(t *testing.T) {
		service, mock, _, _, _ := newMFAService(t)
		userID := uuid.New()

		mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "mfa_devices" WHERE user_id = $1 AND is_verified = $2 ORDER BY is_default DESC, created_at ASC`)).
			WithArgs(userID, true).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "name", "type", "is_default", "is_verified"}).
				AddRow(uuid.NewString(), userID.String(), "Phone", "totp", true, true))

		resp, err := service.ListDevices(zap.NewNop(), models.UserClaims{UserID: userID}, nil)

		require.NoError(t, err)
		assert.True(t, resp.MFAEnabled)
		assert.Equal(t, 1, resp.DeviceCount)
		assert.Equal(t, configuration.MaxMFADevicesPerUser, resp.MaxDevices)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMFAAddDevice(t *testing.T) {
	logger := zap.NewNop()
	password := "correct-horse-battery"
	hash, err := h.CreateHash(password)
	require.NoError(t, err)

	expectUser := func(mock sqlmock.Sqlmock, userID uuid.UUID) {
		mock.ExpectQuery(regexp.QuoteMeta(selectUserQuery)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "email", "hashed_password", "provider_type"}).
				AddRow(userID.String(), "approver@example.com", hash, "local"))
	}

	t.Run("should reject a wrong password", func(t *testing.T) {
		service, mock, _, _, _ := newMFAService(t)
		userID := uuid.New()
		expectUser(mock, userID)

		_, err := service.AddDevice(logger, models.UserClaims{UserID: userID}, nil,
			models.MFADeviceSetupBody{Name: "Phone", Password: "wrong"})

		requireAPIError(t, err, "INVALID_PASSWORD")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("should cap the number of devices", func(t *testing.T) {
		service, mock, _, _, _ := newMFAService(t)
		userID := uuid.New()
		expectUser(mock, userID)
		mock.ExpectQuery(regexp.QuoteMeta(countDevicesQuery)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(configuration.MaxMFADevicesPerUser))

		_, err := service.AddDevice(logger, models.UserClaims{UserID: userID}, nil,
			models.MFADeviceSetupBody{Name: "Phone", Password: password})

		requireAPIError(t, err, "MAX_MFA_DEVICES_REACHED")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("should return a totp seed", func(t *testing.T) {
		service, mock, _, n, activityLogger := newMFAService(t)
		userID := uuid.New()
		expectUser(mock, userID)
		mock.ExpectQuery(regexp.QuoteMeta(countDevicesQuery)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(regexp.QuoteMeta(countDevicesQuery)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "mfa_devices"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.NewString()))
		mock.ExpectCommit()

		resp, err := service.AddDevice(logger, models.UserClaims{UserID: userID}, nil,
			models.MFADeviceSetupBody{Name: "Authenticator", Password: password})

		require.NoError(t, err)
		assert.Equal(t, models.MFADeviceTypeTOTP, resp.Type)
		assert.NotEmpty(t, resp.Secret)
		assert.Contains(t, resp.QRCodeURI, "otpauth://totp/")
		assert.Empty(t, n.Sent)
		assert.Equal(t, []string{"MFA_DEVICE_ENROLLED"}, activityLogger.Actions())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("should send an enrolment code to sms devices", func(t *testing.T) {
		service, mock, _, n, _ := newMFAService(t)
		userID := uuid.New()
		expectUser(mock, userID)
		mock.ExpectQuery(regexp.QuoteMeta(countDevicesQuery)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery(regexp.QuoteMeta(countDevicesQuery)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "mfa_devices"`)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.NewString()))
		mock.ExpectCommit()

		resp, err := service.AddDevice(logger, models.UserClaims{UserID: userID}, nil,
			models.MFADeviceSetupBody{
				Name:     "Phone",
				Type:     models.MFADeviceTypeSMS,
				Target:   "15550100@sms.example.com",
				Password: password,
			})

		require.NoError(t, err)
		assert.Empty(t, resp.Secret)
		assert.Eventually(t, func() bool {
			n.mu.Lock()
			defer n.mu.Unlock()
			return len(n.Sent) == 1 && n.Sent[0] == "15550100@sms.example.com"
		}, time.Second, 10*time.Millisecond)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMFAVerifyDevice(t *testing.T) {
	logger := zap.NewNop()
	code := "482913"
	hash, err := h.CreateHash(code)
	require.NoError(t, err)

	deviceRows := func(deviceID, userID uuid.UUID) *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "user_id", "name", "type", "encrypted_secret", "is_verified"}).
			AddRow(deviceID.String(), userID.String(), "Phone", "sms", hash, false)
	}

	t.Run("should verify and promote the first device to default", func(t *testing.T) {
		service, mock, c, _, activityLogger := newMFAService(t)
		userID, deviceID := uuid.New(), uuid.New()

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(selectDevicesQuery)).
			WillReturnRows(deviceRows(deviceID, userID))
		mock.ExpectQuery(regexp.QuoteMeta(countDevicesQuery)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectExec(regexp.QuoteMeta(updateDeviceQuery)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		device, err := service.VerifyDevice(logger, models.UserClaims{UserID: userID}, uuid.UUIDs{deviceID},
			models.MFADeviceVerifyBody{Code: code})

		require.NoError(t, err)
		assert.True(t, device.IsVerified)
		assert.True(t, device.IsDefault)
		assert.Empty(t, device.EncryptedSecret)
		assert.Equal(t, 1, c.ResetCalls)
		assert.Equal(t, []string{"MFA_DEVICE_VERIFIED"}, activityLogger.Actions())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("should count wrong codes towards the lockout", func(t *testing.T) {
		service, mock, c, _, _ := newMFAService(t)
		userID, deviceID := uuid.New(), uuid.New()

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(selectDevicesQuery)).
			WillReturnRows(deviceRows(deviceID, userID))
		mock.ExpectRollback()

		_, err := service.VerifyDevice(logger, models.UserClaims{UserID: userID}, uuid.UUIDs{deviceID},
			models.MFADeviceVerifyBody{Code: "000000"})

		requireAPIError(t, err, "INVALID_MFA_CODE")
		assert.Equal(t, 1, c.Incremented)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("should refuse while the user is locked out", func(t *testing.T) {
		service, _, c, _, _ := newMFAService(t)
		c.Attempts = configuration.MFAMaxAttempts

		_, err := service.VerifyDevice(logger, models.UserClaims{UserID: uuid.New()}, uuid.UUIDs{uuid.New()},
			models.MFADeviceVerifyBody{Code: code})

		requireAPIError(t, err, "MFA_RATE_LIMITED")
	})
}

func TestMFARemoveDevice(t *testing.T) {
	t.Run("should drop pending challenges and promote the next device", func(t *testing.T) {
		service, mock, _, _, activityLogger := newMFAService(t)
		userID, deviceID, nextID := uuid.New(), uuid.New(), uuid.New()

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(selectDevicesQuery)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "type", "is_default", "is_verified"}).
				AddRow(deviceID.String(), userID.String(), "totp", true, true))
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "mfa_devices"`)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "challenges" WHERE device_id = $1`)).
			WithArgs(deviceID).
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectQuery(regexp.QuoteMeta(selectDevicesQuery)).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "is_verified"}).
				AddRow(nextID.String(), userID.String(), true))
		mock.ExpectExec(regexp.QuoteMeta(updateDeviceQuery)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := service.RemoveDevice(zap.NewNop(), models.UserClaims{UserID: userID}, uuid.UUIDs{deviceID})

		require.NoError(t, err)
		assert.Equal(t, []string{"MFA_DEVICE_REMOVED"}, activityLogger.Actions())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("should return not found for foreign devices", func(t *testing.T) {
		service, mock, _, _, _ := newMFAService(t)

		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta(selectDevicesQuery)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))
		mock.ExpectRollback()

		err := service.RemoveDevice(zap.NewNop(), models.UserClaims{UserID: uuid.New()}, uuid.UUIDs{uuid.New()})

		requireAPIError(t, err, "MFA_DEVICE_NOT_FOUND")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
