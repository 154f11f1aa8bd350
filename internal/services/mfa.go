package services

import (
	"time"

	"stepup/internal/activity"
	"stepup/internal/cache"
	"stepup/internal/configuration"
	apierrors "stepup/internal/errors"
	"stepup/internal/handlers"
	h "stepup/internal/helpers"
	m "stepup/internal/middlewares"
	"stepup/internal/models"
	"stepup/internal/notifier"

	"github.com/alexedwards/argon2id"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var errInvalidMFACode = apierrors.NewAPIError(401, "INVALID_MFA_CODE")

// MFAService manages the verification devices step-up challenges are sent to.
type MFAService struct {
	DB             *gorm.DB
	Cache          cache.ICache
	AuthConfig     models.AuthConfig
	Notifier       notifier.INotifier
	ActivityLogger activity.IActivityLogger
}

func (s MFAService) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/devices", func(r chi.Router) {
		r.Get("/", handlers.GetOneHandler(s.ListDevices))

		r.With(m.Validate[models.MFADeviceSetupBody]).
			Post("/", handlers.CreateHandler(s.AddDevice))

		r.Route("/{id0}", func(r chi.Router) {
			r.Get("/", handlers.GetOneHandler(s.GetDevice))

			r.With(m.ElevationValidate(s.AuthConfig.JWTSecret, configuration.ActionRemoveMFADevice, -1)).
				Delete("/", handlers.DeleteHandler(s.RemoveDevice))

			r.With(m.Validate[models.MFADeviceVerifyBody]).
				Post("/verify", handlers.ActionHandler(s.VerifyDevice))
		})
	})
	return r
}

// ListDevices returns verified devices. Pending enrolments are hidden and
// eventually removed by the garbage collector.
func (s MFAService) ListDevices(
	_ *zap.Logger,
	claims models.UserClaims,
	_ uuid.UUIDs,
) (models.MFADevicesListResponse, error) {
	devices := []models.MFADevice{}
	result := s.DB.Where("user_id = ? AND is_verified = ?", claims.UserID, true).
		Order("is_default DESC, created_at ASC").
		Find(&devices)
	if result.Error != nil {
		return models.MFADevicesListResponse{}, result.Error
	}

	return models.MFADevicesListResponse{
		Devices:     devices,
		MFAEnabled:  len(devices) > 0,
		DeviceCount: len(devices),
		MaxDevices:  configuration.MaxMFADevicesPerUser,
	}, nil
}

// AddDevice starts an enrolment. TOTP devices get a fresh seed; sms and push
// devices are sent a one time code that VerifyDevice checks.
func (s MFAService) AddDevice(
	logger *zap.Logger,
	claims models.UserClaims,
	_ uuid.UUIDs,
	body models.MFADeviceSetupBody,
) (models.MFADeviceSetupResponse, error) {
	userID := claims.UserID
	deviceType := body.Type
	if deviceType == "" {
		deviceType = models.MFADeviceTypeTOTP
	}

	var user models.User
	result := s.DB.Where("id = ? AND provider_type = ?", userID, models.LocalProviderType).First(&user)
	if result.RowsAffected == 0 {
		return models.MFADeviceSetupResponse{}, apierrors.NewAPIError(404, "USER_NOT_FOUND")
	}

	match, err := argon2id.ComparePasswordAndHash(body.Password, user.HashedPassword)
	if err != nil {
		logger.Error("Failed to compare password and hash", zap.Error(err))
		return models.MFADeviceSetupResponse{}, apierrors.NewAPIError(400, "BAD_REQUEST")
	}
	if !match {
		logger.Warn("Invalid password provided for device enrolment", zap.String("user_id", userID.String()))
		return models.MFADeviceSetupResponse{}, apierrors.NewAPIError(401, "INVALID_PASSWORD")
	}

	var count int64
	if err = s.DB.Model(&models.MFADevice{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		logger.Error("Failed to count MFA devices", zap.Error(err))
		return models.MFADeviceSetupResponse{}, err
	}
	if count >= int64(configuration.MaxMFADevicesPerUser) {
		return models.MFADeviceSetupResponse{}, apierrors.NewAPIError(400, "MAX_MFA_DEVICES_REACHED")
	}

	var existing int64
	s.DB.Model(&models.MFADevice{}).Where("user_id = ? AND name = ?", userID, body.Name).Count(&existing)
	if existing > 0 {
		return models.MFADeviceSetupResponse{}, apierrors.NewAPIError(409, "MFA_DEVICE_NAME_EXISTS")
	}

	device := models.MFADevice{
		UserID: userID,
		Name:   body.Name,
		Type:   deviceType,
		Target: body.Target,
	}
	response := models.MFADeviceSetupResponse{Type: deviceType, Issuer: configuration.AppName}

	var code string
	if deviceType.DeliversCode() {
		code, err = h.GenerateNumericCode(configuration.StepUpCodeLength)
		if err == nil {
			device.EncryptedSecret, err = h.CreateHash(code)
		}
	} else {
		var key *h.TOTPKey
		key, err = h.GenerateTOTPSecret(user.Email)
		if err == nil {
			response.Secret = key.Secret
			response.QRCodeURI = key.URL
			device.EncryptedSecret, err = h.EncryptSecret(key.Secret, []byte(s.AuthConfig.MFAEncryptionKey))
		}
	}
	if err != nil {
		logger.Error("Failed to prepare MFA device secret", zap.Error(err))
		return models.MFADeviceSetupResponse{}, apierrors.NewAPIError(500, "MFA_SETUP_FAILED")
	}

	if err = s.DB.Create(&device).Error; err != nil {
		logger.Error("Failed to create MFA device", zap.Error(err))
		return models.MFADeviceSetupResponse{}, apierrors.NewAPIError(500, "MFA_SETUP_FAILED")
	}
	response.DeviceID = device.ID

	if code != "" {
		s.sendEnrolmentCode(logger, &device, code)
	}

	s.logDeviceActivity(logger, activity.MFADeviceEnrolled, userID, &device)

	logger.Info("MFA device setup initiated",
		zap.String("user_id", userID.String()),
		zap.String("device_id", device.ID.String()),
		zap.String("device_type", string(device.Type)))

	return response, nil
}

func (s MFAService) sendEnrolmentCode(logger *zap.Logger, device *models.MFADevice, code string) {
	expiresAt := time.Now().Add(time.Duration(s.AuthConfig.StepUpChallengeTTL) * time.Second)
	go func() {
		if err := s.Notifier.NotifyFromTemplate(
			device.Target,
			"Confirm your verification device",
			"step_up_"+string(device.Type),
			map[string]string{
				"Code":      code,
				"Action":    "verify_device",
				"ExpiresAt": expiresAt.UTC().Format(time.RFC3339),
			},
		); err != nil {
			logger.Warn("Failed to send device enrolment code",
				zap.String("device_id", device.ID.String()),
				zap.Error(err))
		}
	}()
}

func (s MFAService) GetDevice(
	_ *zap.Logger,
	claims models.UserClaims,
	ids uuid.UUIDs,
) (models.MFADevice, error) {
	var device models.MFADevice
	result := s.DB.Where("id = ? AND user_id = ?", ids[0], claims.UserID).First(&device)
	if result.RowsAffected == 0 {
		return models.MFADevice{}, apierrors.NewAPIError(404, "MFA_DEVICE_NOT_FOUND")
	}
	return device, nil
}

// VerifyDevice completes an enrolment. The first verified device becomes the
// default device step-up challenges are issued for.
func (s MFAService) VerifyDevice(
	logger *zap.Logger,
	claims models.UserClaims,
	ids uuid.UUIDs,
	body models.MFADeviceVerifyBody,
) (models.MFADevice, error) {
	userID := claims.UserID
	deviceID := ids[0]

	attempts, err := s.Cache.GetMFAAttempts(userID.String())
	if err != nil {
		logger.Error("Rate limit check failed - denying request", zap.Error(err))
		return models.MFADevice{}, apierrors.ErrServiceUnavailable
	}
	if attempts >= configuration.MFAMaxAttempts {
		return models.MFADevice{}, apierrors.NewAPIError(429, "MFA_RATE_LIMITED")
	}

	var device models.MFADevice
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND user_id = ?", deviceID, userID).
			First(&device)
		if result.RowsAffected == 0 {
			return apierrors.NewAPIError(404, "MFA_DEVICE_NOT_FOUND")
		}
		if device.IsVerified {
			return apierrors.NewAPIError(409, "MFA_DEVICE_ALREADY_VERIFIED")
		}

		valid, err := s.checkEnrolmentCode(logger, &device, body.Code)
		if err != nil {
			return err
		}
		if !valid {
			if incErr := s.Cache.IncrementMFAAttempts(userID.String()); incErr != nil {
				logger.Error("Failed to increment MFA attempts", zap.Error(incErr))
			}
			return errInvalidMFACode
		}

		var defaults int64
		tx.Model(&models.MFADevice{}).
			Where("user_id = ? AND is_verified = ? AND is_default = ? AND id != ?", userID, true, true, deviceID).
			Count(&defaults)

		now := time.Now()
		updates := map[string]any{
			"is_verified":  true,
			"is_default":   defaults == 0,
			"verified_at":  now,
			"last_used_at": now,
		}
		if device.Type.DeliversCode() {
			updates["encrypted_secret"] = ""
		}
		return tx.Model(&device).Updates(updates).Error
	})
	if err != nil {
		return models.MFADevice{}, err
	}

	if err = s.Cache.ResetMFAAttempts(userID.String()); err != nil {
		logger.Error("Failed to reset MFA attempts", zap.Error(err))
	}

	s.logDeviceActivity(logger, activity.MFADeviceVerified, userID, &device)

	logger.Info("MFA device verified",
		zap.String("user_id", userID.String()),
		zap.String("device_id", deviceID.String()))

	return device, nil
}

func (s MFAService) checkEnrolmentCode(logger *zap.Logger, device *models.MFADevice, code string) (bool, error) {
	if device.Type.DeliversCode() {
		match, err := h.CompareCode(code, device.EncryptedSecret)
		if err != nil {
			logger.Error("Failed to compare enrolment code", zap.Error(err))
			return false, apierrors.NewAPIError(500, "MFA_VERIFICATION_FAILED")
		}
		return match, nil
	}

	secret, err := h.DecryptSecret(device.EncryptedSecret, []byte(s.AuthConfig.MFAEncryptionKey))
	if err != nil {
		logger.Error("Failed to decrypt TOTP secret", zap.Error(err))
		return false, apierrors.NewAPIError(500, "MFA_VERIFICATION_FAILED")
	}
	if !h.ValidateTOTPCode(secret, code) {
		return false, nil
	}

	unused, err := s.Cache.MarkTOTPCodeUsed(device.ID.String(), code)
	if err != nil {
		logger.Error("Failed to mark TOTP code as used", zap.Error(err))
		return false, apierrors.NewAPIError(500, "MFA_VERIFICATION_FAILED")
	}
	return unused, nil
}

// RemoveDevice deletes a device. The route is itself a protected action, so
// the caller proved possession of a device moments ago.
func (s MFAService) RemoveDevice(
	logger *zap.Logger,
	claims models.UserClaims,
	ids uuid.UUIDs,
) error {
	userID := claims.UserID
	deviceID := ids[0]

	var device models.MFADevice
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ? AND user_id = ?", deviceID, userID).
			First(&device)
		if result.RowsAffected == 0 {
			return apierrors.NewAPIError(404, "MFA_DEVICE_NOT_FOUND")
		}

		if err := tx.Delete(&device).Error; err != nil {
			return err
		}

		// Pending challenges for this device can no longer be completed.
		if err := tx.Where("device_id = ?", deviceID).Delete(&models.Challenge{}).Error; err != nil {
			return err
		}

		if device.IsDefault && device.IsVerified {
			var next []models.MFADevice
			tx.Where("user_id = ? AND is_verified = ?", userID, true).
				Order("created_at ASC").
				Limit(1).
				Find(&next)
			if len(next) > 0 {
				return tx.Model(&next[0]).Update("is_default", true).Error
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logDeviceActivity(logger, activity.MFADeviceRemoved, userID, &device)

	logger.Info("MFA device removed",
		zap.String("user_id", userID.String()),
		zap.String("device_id", deviceID.String()))

	return nil
}

func (s MFAService) logDeviceActivity(logger *zap.Logger, action string, userID uuid.UUID, device *models.MFADevice) {
	entry := models.Activity{
		Message: action,
		Object:  device.ToActivity(),
		Filter: activity.NewLogFilter(map[string]string{
			"action":      action,
			"user_id":     userID.String(),
			"object_type": "mfa_device",
			"device_id":   device.ID.String(),
		}),
	}
	if err := s.ActivityLogger.Send(entry); err != nil {
		logger.Error("Failed to log MFA device activity", zap.String("action", action), zap.Error(err))
	}
}
