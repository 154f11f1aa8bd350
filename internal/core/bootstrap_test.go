package core

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"stepup/internal/configuration"
	h "stepup/internal/helpers"
	"stepup/internal/models"
	"stepup/internal/tests"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const routerTestSecret = "test-secret-key-for-router"

type routerCache struct{}

func (routerCache) RegisterPlatform(string) error                    { return nil }
func (routerCache) DeleteInactivePlatform() error                    { return nil }
func (routerCache) StartIdentityTicker(string)                       {}
func (routerCache) GetRateLimit(string, int) (int, error)            { return 0, nil }
func (routerCache) MarkTOTPCodeUsed(string, string) (bool, error)    { return true, nil }
func (routerCache) GetMFAAttempts(string) (int, error)               { return 0, nil }
func (routerCache) IncrementMFAAttempts(string) error                { return nil }
func (routerCache) ResetMFAAttempts(string) error                    { return nil }
func (routerCache) TryAcquireLock(string, string, int) (bool, error) { return true, nil }
func (routerCache) RefreshLock(string, string, int) (bool, error)    { return true, nil }
func (routerCache) Close() error                                     { return nil }

func newTestRouter() http.Handler {
	config := models.Configuration{
		App: models.AppConfiguration{
			JWTSecret:           routerTestSecret,
			AllowedOrigins:      []string{"*"},
			AccessTokenExpiry:   60,
			StepUpChallengeTTL:  600,
			ElevatedTokenExpiry: 5,
			StepUpRateLimit:     5,
			ProtectedActions:    []string{configuration.ActionApprovePosition},
		},
	}
	return NewRouter(config, nil, routerCache{}, nil, nil, nil)
}

func sessionToken(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := h.NewAccessToken(routerTestSecret, user, 60)
	require.NoError(t, err)
	return "Bearer " + token
}

func elevatedToken(t *testing.T, userID uuid.UUID, positionID uuid.UUID) string {
	t.Helper()
	token, _, err := h.NewElevatedToken(routerTestSecret, &models.Challenge{
		ID:         uuid.New(),
		UserID:     userID,
		Action:     configuration.ActionApprovePosition,
		PositionID: &positionID,
		DeviceType: models.MFADeviceTypeTOTP,
	}, time.Now(), 5)
	require.NoError(t, err)
	return token
}

func TestRouter(t *testing.T) {
	router := newTestRouter()
	user := &models.User{ID: uuid.New(), Email: "approver@example.com", Role: models.RoleUser}

	serve := func(req *http.Request) *httptest.ResponseRecorder {
		recorder := httptest.NewRecorder()
		router.ServeHTTP(recorder, req)
		return recorder
	}

	t.Run("should require a session for step-up initiation", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/functions/v1/auth-step-up-initiate",
			strings.NewReader(`{"action":"approve_position"}`))

		tests.AssertJSONResponse(t, serve(req), 403, models.Error{
			Status:  403,
			Error:   []string{"FORBIDDEN"},
			Message: "No active session",
		})
	})

	t.Run("should validate the completion body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/functions/v1/auth-step-up-complete",
			strings.NewReader(`{}`))
		req.Header.Set("Authorization", sessionToken(t, user))

		tests.AssertJSONResponse(t, serve(req), 400, models.Error{
			Status: 400,
			Error:  []string{"CHALLENGE_ID_REQUIRED", "VERIFICATION_CODE_REQUIRED"},
		})
	})

	t.Run("should require an elevation to approve a position", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/positions/"+uuid.NewString()+"/approve",
			strings.NewReader(`{}`))
		req.Header.Set("Authorization", sessionToken(t, user))

		tests.AssertJSONResponse(t, serve(req), 403, models.Error{
			Status:  403,
			Error:   []string{"STEP_UP_REQUIRED"},
			Message: "Step-up verification required",
		})
	})

	t.Run("should reject an elevation bound to another position", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/positions/"+uuid.NewString()+"/approve",
			strings.NewReader(`{}`))
		req.Header.Set("Authorization", sessionToken(t, user))
		req.Header.Set(configuration.HeaderElevatedToken, elevatedToken(t, user.ID, uuid.New()))

		response := tests.DecodeJSON[models.Error](t, serve(req))
		require.Equal(t, []string{"STEP_UP_REQUIRED"}, response.Error)
	})

	t.Run("should not accept an elevated token as a session", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/mfa/devices/", nil)
		req.Header.Set("Authorization", "Bearer "+elevatedToken(t, user.ID, uuid.New()))

		response := tests.DecodeJSON[models.Error](t, serve(req))
		require.Equal(t, 403, response.Status)
		require.Equal(t, []string{"FORBIDDEN"}, response.Error)
	})

	t.Run("should restrict stats to admins", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/stats", nil)
		req.Header.Set("Authorization", sessionToken(t, user))

		tests.AssertJSONResponse(t, serve(req), 403, models.Error{
			Status: 403,
			Error:  []string{"FORBIDDEN"},
		})
	})
}
