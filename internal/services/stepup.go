package services

import (
	"errors"
	"fmt"
	"time"

	"stepup/internal/activity"
	"stepup/internal/cache"
	"stepup/internal/configuration"
	apierrors "stepup/internal/errors"
	"stepup/internal/events"
	"stepup/internal/handlers"
	h "stepup/internal/helpers"
	"stepup/internal/messaging"
	"stepup/internal/mfa"
	m "stepup/internal/middlewares"
	"stepup/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	errActionNotProtected = apierrors.NewAPIError(400, apierrors.ErrActionNotProtected).WithMessage("This action does not require step-up verification")
	errPositionRequired   = apierrors.NewAPIError(400, apierrors.ErrInvalidRequest).WithMessage("A position is required for this action")
	errStepUpRateLimited  = apierrors.NewAPIError(429, apierrors.ErrStepUpRateLimited).WithMessage("Too many step-up requests, try again later")
	errMFANotEnabled      = apierrors.NewAPIError(400, apierrors.ErrMFANotEnabled).WithMessage("Enable a verification device before performing this action")
	errUnknownChallenge   = apierrors.NewAPIError(400, apierrors.ErrInvalidRequest).WithMessage("Unknown or already completed challenge")
	errChallengeExpired   = apierrors.NewAPIError(400, apierrors.ErrStepUpChallengeExpired).WithMessage("Verification challenge has expired")
	errMFALocked          = apierrors.NewAPIError(429, apierrors.ErrMFALocked).WithMessage("Too many failed attempts, try again later")
	errWrongCode          = apierrors.NewAPIError(401, apierrors.ErrWrongCode).WithMessage("Invalid verification code")
	errChallengeLocked    = apierrors.NewAPIError(403, apierrors.ErrChallengeLocked).WithMessage("Too many invalid codes, request a new challenge")
)

// actionsRequiringPosition are bound to the position they act on.
var actionsRequiringPosition = map[string]bool{
	configuration.ActionApprovePosition: true,
}

// StepUpService issues and completes step-up challenges. Its routes are
// mounted under /functions/v1 where the client expects them.
type StepUpService struct {
	DB             *gorm.DB
	Cache          cache.ICache
	AuthConfig     models.AuthConfig
	Publisher      messaging.IPublisher
	ActivityLogger activity.IActivityLogger
}

func (s StepUpService) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(m.Validate[models.StepUpInitiateBody]).
		Post("/auth-step-up-initiate", handlers.ActionHandler(s.Initiate))
	r.With(m.Validate[models.StepUpCompleteBody]).
		Post("/auth-step-up-complete", handlers.ActionHandler(s.Complete))
	return r
}

// defaultDevice returns the default verified device, falling back to the
// oldest verified one.
func defaultDevice(devices []models.MFADevice) *models.MFADevice {
	var selected *models.MFADevice
	for i := range devices {
		d := &devices[i]
		if !d.IsVerified {
			continue
		}
		if d.IsDefault {
			return d
		}
		if selected == nil || d.CreatedAt.Before(selected.CreatedAt) {
			selected = d
		}
	}
	return selected
}

func (s StepUpService) Initiate(
	logger *zap.Logger,
	claims models.UserClaims,
	_ uuid.UUIDs,
	body models.StepUpInitiateBody,
) (models.StepUpInitiateResponse, error) {
	userID := claims.UserID

	if !s.AuthConfig.IsProtectedAction(body.Action) {
		return models.StepUpInitiateResponse{}, errActionNotProtected
	}
	if actionsRequiringPosition[body.Action] && body.PositionID == nil {
		return models.StepUpInitiateResponse{}, errPositionRequired
	}

	retryAfter, err := s.Cache.GetRateLimit(
		fmt.Sprintf(configuration.CacheStepUpRateLimitKey, userID.String()),
		s.AuthConfig.StepUpRateLimit,
	)
	if err != nil {
		logger.Error("Step-up rate limit check failed - denying request", zap.Error(err))
		return models.StepUpInitiateResponse{}, apierrors.ErrServiceUnavailable
	}
	if retryAfter > 0 {
		logger.Warn("Step-up initiation rate limited",
			zap.String("user_id", userID.String()),
			zap.Int("retry_after", retryAfter))
		return models.StepUpInitiateResponse{}, errStepUpRateLimited
	}

	var user models.User
	result := s.DB.Preload("MFADevices", "is_verified = ?", true).Where("id = ?", userID).First(&user)
	if result.RowsAffected == 0 {
		return models.StepUpInitiateResponse{}, apierrors.NewAPIError(404, "USER_NOT_FOUND")
	}

	device := defaultDevice(user.MFADevices)
	if device == nil {
		return models.StepUpInitiateResponse{}, errMFANotEnabled
	}

	// Rounded up so the client never sees less than the full TTL.
	ttl := time.Duration(s.AuthConfig.StepUpChallengeTTL) * time.Second
	expiresAt := time.Now().Add(ttl + time.Second - 1).Truncate(time.Second)

	challenge := models.Challenge{
		Type:         models.ChallengeTypeStepUp,
		UserID:       userID,
		DeviceID:     device.ID,
		DeviceType:   device.Type,
		Action:       body.Action,
		PositionID:   body.PositionID,
		AttemptsLeft: configuration.StepUpChallengeMaxFailedAttempts,
		ExpiresAt:    expiresAt,
	}

	var code string
	if device.Type.DeliversCode() {
		code, err = h.GenerateNumericCode(configuration.StepUpCodeLength)
		if err != nil {
			logger.Error("Failed to generate step-up code", zap.Error(err))
			return models.StepUpInitiateResponse{}, apierrors.ErrInternalServer
		}
		challenge.HashedSecret, err = h.CreateHash(code)
		if err != nil {
			logger.Error("Failed to hash step-up code", zap.Error(err))
			return models.StepUpInitiateResponse{}, apierrors.ErrInternalServer
		}
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		// A new challenge supersedes any pending one for the same action.
		if err := tx.Where("user_id = ? AND action = ?", userID, body.Action).
			Delete(&models.Challenge{}).Error; err != nil {
			return err
		}
		return tx.Create(&challenge).Error
	})
	if err != nil {
		logger.Error("Failed to create step-up challenge", zap.Error(err))
		return models.StepUpInitiateResponse{}, apierrors.ErrCreateFailed
	}

	if code != "" {
		event := events.NewStepUpCodeDelivery(s.Publisher, &challenge, device, user.Email, code)
		if err = event.Trigger(); err != nil {
			logger.Error("Failed to publish step-up code delivery",
				zap.String("challenge_id", challenge.ID.String()),
				zap.Error(err))
			if delErr := s.DB.Delete(&challenge).Error; delErr != nil {
				logger.Error("Failed to delete undeliverable challenge", zap.Error(delErr))
			}
			return models.StepUpInitiateResponse{}, apierrors.ErrServiceUnavailable
		}
	}

	s.logChallengeActivity(logger, activity.StepUpInitiated, &challenge)

	logger.Info("Step-up challenge issued",
		zap.String("user_id", userID.String()),
		zap.String("challenge_id", challenge.ID.String()),
		zap.String("action", challenge.Action),
		zap.String("challenge_type", string(challenge.DeviceType)))

	return models.StepUpInitiateResponse{
		ChallengeID:   challenge.ID,
		ChallengeType: challenge.DeviceType,
		ExpiresAt:     challenge.ExpiresAt,
	}, nil
}

// Complete checks the submitted code against the caller's challenge. Rejections
// that change state (expiry cleanup, attempt accounting) are committed before
// the error is returned.
func (s StepUpService) Complete(
	logger *zap.Logger,
	claims models.UserClaims,
	_ uuid.UUIDs,
	body models.StepUpCompleteBody,
) (models.StepUpCompleteResponse, error) {
	userID := claims.UserID

	attempts, err := s.Cache.GetMFAAttempts(userID.String())
	if err != nil {
		logger.Error("MFA attempts check failed - denying request", zap.Error(err))
		return models.StepUpCompleteResponse{}, apierrors.ErrServiceUnavailable
	}
	if attempts >= configuration.MFAMaxAttempts {
		logger.Warn("Step-up completion locked out", zap.String("user_id", userID.String()))
		return models.StepUpCompleteResponse{}, errMFALocked
	}

	var challenge models.Challenge
	var response models.StepUpCompleteResponse
	var rejection *apierrors.APIError

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND user_id = ? AND type = ?", body.ChallengeID, userID, models.ChallengeTypeStepUp).
			Find(&challenge)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			rejection = errUnknownChallenge
			return nil
		}

		now := time.Now()
		if challenge.Expired(now) {
			rejection = errChallengeExpired
			return tx.Delete(&challenge).Error
		}

		valid, err := s.checkCode(logger, tx, &challenge, body.VerificationCode, now)
		if err != nil {
			return err
		}

		if !valid {
			if incErr := s.Cache.IncrementMFAAttempts(userID.String()); incErr != nil {
				logger.Error("Failed to increment MFA attempts", zap.Error(incErr))
			}

			challenge.AttemptsLeft--
			if challenge.AttemptsLeft <= 0 {
				rejection = errChallengeLocked
				return tx.Delete(&challenge).Error
			}
			rejection = errWrongCode
			return tx.Model(&challenge).Update("attempts_left", challenge.AttemptsLeft).Error
		}

		// Single use: the challenge is consumed by the elevation it grants.
		if err = tx.Delete(&challenge).Error; err != nil {
			return err
		}
		if err = tx.Model(&models.MFADevice{}).
			Where("id = ?", challenge.DeviceID).
			Update("last_used_at", now).Error; err != nil {
			return err
		}

		response, err = mfa.GenerateElevation(s.AuthConfig, &challenge, now)
		return err
	})
	if err != nil {
		logger.Error("Failed to complete step-up challenge", zap.Error(err))
		var apiErr *apierrors.APIError
		if errors.As(err, &apiErr) {
			return models.StepUpCompleteResponse{}, apiErr
		}
		return models.StepUpCompleteResponse{}, apierrors.ErrInternalServer
	}

	if rejection != nil {
		s.logRejection(logger, rejection, &challenge, body.ChallengeID)
		return models.StepUpCompleteResponse{}, rejection
	}

	if err = s.Cache.ResetMFAAttempts(userID.String()); err != nil {
		logger.Error("Failed to reset MFA attempts", zap.Error(err))
	}

	s.logChallengeActivity(logger, activity.StepUpVerified, &challenge)

	logger.Info("Step-up verification succeeded",
		zap.String("user_id", userID.String()),
		zap.String("challenge_id", challenge.ID.String()),
		zap.String("action", challenge.Action))

	return response, nil
}

// checkCode validates code against the TOTP seed of the challenge device or
// against the hash of the delivered code.
func (s StepUpService) checkCode(
	logger *zap.Logger,
	tx *gorm.DB,
	challenge *models.Challenge,
	code string,
	now time.Time,
) (bool, error) {
	if challenge.DeviceType.DeliversCode() {
		match, err := h.CompareCode(code, challenge.HashedSecret)
		if err != nil {
			logger.Error("Failed to compare step-up code", zap.Error(err))
			return false, apierrors.ErrInternalServer
		}
		return match, nil
	}

	var device models.MFADevice
	result := tx.Where("id = ? AND user_id = ? AND is_verified = ?", challenge.DeviceID, challenge.UserID, true).
		First(&device)
	if result.RowsAffected == 0 {
		logger.Warn("Step-up device no longer available", zap.String("device_id", challenge.DeviceID.String()))
		return false, nil
	}

	secret, err := h.DecryptSecret(device.EncryptedSecret, []byte(s.AuthConfig.MFAEncryptionKey))
	if err != nil {
		logger.Error("Failed to decrypt TOTP secret", zap.Error(err))
		return false, apierrors.ErrInternalServer
	}

	if !h.ValidateTOTPCodeAt(secret, code, now) {
		return false, nil
	}

	unused, err := s.Cache.MarkTOTPCodeUsed(device.ID.String(), code)
	if err != nil {
		logger.Error("Failed to mark TOTP code as used", zap.Error(err))
		return false, apierrors.ErrServiceUnavailable
	}
	if !unused {
		logger.Warn("TOTP code replay attempt detected", zap.String("device_id", device.ID.String()))
	}
	return unused, nil
}

func (s StepUpService) logRejection(
	logger *zap.Logger,
	rejection *apierrors.APIError,
	challenge *models.Challenge,
	challengeID uuid.UUID,
) {
	logger.Warn("Step-up verification rejected",
		zap.String("challenge_id", challengeID.String()),
		zap.String("reason", rejection.Code))

	switch rejection {
	case errWrongCode:
		s.logChallengeActivity(logger, activity.StepUpFailed, challenge)
	case errChallengeLocked:
		s.logChallengeActivity(logger, activity.StepUpLocked, challenge)
	}
}

func (s StepUpService) logChallengeActivity(logger *zap.Logger, action string, challenge *models.Challenge) {
	fields := map[string]string{
		"action":         action,
		"user_id":        challenge.UserID.String(),
		"object_type":    "step_up_challenge",
		"challenge_id":   challenge.ID.String(),
		"challenge_type": string(challenge.DeviceType),
		"device_id":      challenge.DeviceID.String(),
		"step_up_action": challenge.Action,
	}
	if challenge.PositionID != nil {
		fields["position_id"] = challenge.PositionID.String()
	}

	entry := models.Activity{
		Message: action,
		Object:  challenge.ToActivity(),
		Filter:  activity.NewLogFilter(fields),
	}
	if err := s.ActivityLogger.Send(entry); err != nil {
		logger.Error("Failed to log step-up activity", zap.String("action", action), zap.Error(err))
	}
}
