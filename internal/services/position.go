package services

import (
	"errors"

	"stepup/internal/activity"
	"stepup/internal/configuration"
	apierrors "stepup/internal/errors"
	"stepup/internal/handlers"
	m "stepup/internal/middlewares"
	"stepup/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PositionService exposes the position approval chain. Approving is a
// protected action and requires an elevation bound to the position.
type PositionService struct {
	DB             *gorm.DB
	AuthConfig     models.AuthConfig
	ActivityLogger activity.IActivityLogger
}

func (s PositionService) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/{id0}", func(r chi.Router) {
		r.Get("/approvals", handlers.GetOneHandler(s.ListApprovals))

		r.With(m.ElevationValidate(s.AuthConfig.JWTSecret, configuration.ActionApprovePosition, 0)).
			With(m.Validate[models.PositionApproveBody]).
			Post("/approve", handlers.ElevatedHandler(s.Approve))
	})
	return r
}

func (s PositionService) ListApprovals(
	_ *zap.Logger,
	_ models.UserClaims,
	ids uuid.UUIDs,
) ([]models.PositionApproval, error) {
	approvals := []models.PositionApproval{}
	result := s.DB.Where("position_id = ?", ids[0]).Order("stage ASC").Find(&approvals)
	if result.Error != nil {
		return nil, result.Error
	}
	return approvals, nil
}

// Approve appends the next stage to the position approval chain. Each
// approver signs a position at most once.
func (s PositionService) Approve(
	logger *zap.Logger,
	claims models.UserClaims,
	elevated models.ElevatedClaims,
	ids uuid.UUIDs,
	body models.PositionApproveBody,
) (models.PositionApproval, error) {
	positionID := ids[0]
	challengeID := elevated.ChallengeID

	approval := models.PositionApproval{
		PositionID:        positionID,
		ApproverID:        claims.UserID,
		Action:            models.ApprovalActionApprove,
		Comments:          body.Comments,
		StepUpVerified:    true,
		StepUpChallengeID: &challengeID,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var signed int64
		if err := tx.Model(&models.PositionApproval{}).
			Where("position_id = ? AND approver_id = ?", positionID, claims.UserID).
			Count(&signed).Error; err != nil {
			return err
		}
		if signed > 0 {
			return apierrors.NewAPIError(409, "POSITION_ALREADY_APPROVED")
		}

		var stages int64
		if err := tx.Model(&models.PositionApproval{}).
			Where("position_id = ?", positionID).
			Count(&stages).Error; err != nil {
			return err
		}
		approval.Stage = int(stages) + 1

		return tx.Create(&approval).Error
	})
	if err != nil {
		var apiErr *apierrors.APIError
		if errors.As(err, &apiErr) {
			return models.PositionApproval{}, apiErr
		}
		logger.Error("Failed to record position approval", zap.Error(err))
		return models.PositionApproval{}, apierrors.ErrCreateFailed
	}

	entry := models.Activity{
		Message: activity.PositionApproved,
		Object:  approval.ToActivity(),
		Filter: activity.NewLogFilter(map[string]string{
			"action":         activity.PositionApproved,
			"user_id":        claims.UserID.String(),
			"object_type":    "position_approval",
			"position_id":    positionID.String(),
			"challenge_id":   challengeID.String(),
			"challenge_type": string(elevated.ChallengeType),
			"step_up_action": elevated.Action,
		}),
	}
	if logErr := s.ActivityLogger.Send(entry); logErr != nil {
		logger.Error("Failed to log position approval activity", zap.Error(logErr))
	}

	logger.Info("Position approved",
		zap.String("position_id", positionID.String()),
		zap.String("approver_id", claims.UserID.String()),
		zap.Int("stage", approval.Stage))

	return approval, nil
}
