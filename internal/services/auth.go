package services

import (
	"stepup/internal/activity"
	apierrors "stepup/internal/errors"
	"stepup/internal/handlers"
	"stepup/internal/mfa"
	m "stepup/internal/middlewares"
	"stepup/internal/models"

	"github.com/alexedwards/argon2id"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var errInvalidCredentials = apierrors.NewAPIError(401, "INVALID_CREDENTIALS").
	WithMessage("Invalid email / password combination")

type AuthService struct {
	DB             *gorm.DB
	AuthConfig     models.AuthConfig
	ActivityLogger activity.IActivityLogger
}

func (s AuthService) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(m.Validate[models.AuthLoginBody]).Post("/login", handlers.CreateHandler(s.Login))
	r.Get("/me", handlers.GetOneHandler(s.Me))
	return r
}

func (s AuthService) Login(
	logger *zap.Logger,
	_ models.UserClaims,
	_ uuid.UUIDs,
	body models.AuthLoginBody,
) (models.AuthLoginResponse, error) {
	var user models.User
	result := s.DB.Preload("MFADevices", "is_verified = ?", true).
		Where("email = ? AND provider_type = ? AND provider_key = ?",
			body.Email, models.LocalProviderType, string(models.LocalProviderType)).
		First(&user)
	if result.RowsAffected != 1 {
		return models.AuthLoginResponse{}, errInvalidCredentials
	}

	match, err := argon2id.ComparePasswordAndHash(body.Password, user.HashedPassword)
	if err != nil || !match {
		logger.Debug("Login rejected", zap.String("user_id", user.ID.String()))
		return models.AuthLoginResponse{}, errInvalidCredentials
	}

	tokens, err := mfa.GenerateTokens(s.AuthConfig, &user)
	if err != nil {
		return models.AuthLoginResponse{}, err
	}

	entry := models.Activity{
		Message: activity.UserLoggedIn,
		Object:  user.ToActivity(),
		Filter: activity.NewLogFilter(map[string]string{
			"action":      activity.UserLoggedIn,
			"user_id":     user.ID.String(),
			"object_type": "user",
		}),
	}
	if logErr := s.ActivityLogger.Send(entry); logErr != nil {
		logger.Error("Failed to log login activity", zap.Error(logErr))
	}

	return tokens, nil
}

// Me returns the account behind the session token.
func (s AuthService) Me(_ *zap.Logger, claims models.UserClaims, _ uuid.UUIDs) (models.User, error) {
	var user models.User
	result := s.DB.Where("id = ?", claims.UserID).First(&user)
	if result.RowsAffected == 0 {
		return models.User{}, apierrors.NewAPIError(404, "USER_NOT_FOUND")
	}
	return user, nil
}
