package services

import (
	"time"

	"stepup/internal/activity"
	"stepup/internal/handlers"
	m "stepup/internal/middlewares"
	"stepup/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultStatsDays = 7

type AdminService struct {
	DB             *gorm.DB
	ActivityLogger activity.IActivityLogger
}

func (s AdminService) Routes() chi.Router {
	r := chi.NewRouter()

	r.With(m.AuthorizeRole(models.RoleAdmin)).
		With(m.ValidateQuery[models.AdminStatsQueryParams]).
		Get("/stats", handlers.QueryHandler(s.GetStats))

	return r
}

// GetStats reports step-up adoption and outcomes over the requested window.
func (s AdminService) GetStats(
	logger *zap.Logger,
	_ models.UserClaims,
	_ uuid.UUIDs,
	queryParams models.AdminStatsQueryParams,
) (models.AdminStatsResponse, error) {
	days := queryParams.Days
	if days == 0 {
		days = defaultStatsDays
	}

	var response models.AdminStatsResponse

	if err := s.DB.Model(&models.User{}).Count(&response.TotalUsers).Error; err != nil {
		return models.AdminStatsResponse{}, err
	}

	if err := s.DB.Model(&models.User{}).
		Where("EXISTS (SELECT 1 FROM mfa_devices WHERE mfa_devices.user_id = users.id AND mfa_devices.is_verified = ?)", true).
		Count(&response.UsersWithMFA).Error; err != nil {
		return models.AdminStatsResponse{}, err
	}

	if err := s.DB.Model(&models.Challenge{}).
		Where("expires_at > ?", time.Now()).
		Count(&response.PendingChallenges).Error; err != nil {
		return models.AdminStatsResponse{}, err
	}

	response.VerificationsPerDay = s.countByDay(logger, activity.StepUpVerified, days)
	response.FailuresPerDay = s.countByDay(logger, activity.StepUpFailed, days)
	response.ApprovalsPerDay = s.countByDay(logger, activity.PositionApproved, days)

	return response, nil
}

// countByDay degrades to an empty series when the activity index fails.
func (s AdminService) countByDay(logger *zap.Logger, action string, days int) []models.TimeSeriesPoint {
	points, err := s.ActivityLogger.CountByDay(map[string][]string{"action": {action}}, days)
	if err != nil {
		logger.Error("Failed to count activity", zap.String("action", action), zap.Error(err))
		return []models.TimeSeriesPoint{}
	}
	if points == nil {
		return []models.TimeSeriesPoint{}
	}
	return points
}
