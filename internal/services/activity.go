package services

import (
	"stepup/internal/activity"
	"stepup/internal/handlers"
	m "stepup/internal/middlewares"
	"stepup/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ActivityService lets users review their own step-up history.
type ActivityService struct {
	ActivityLogger activity.IActivityLogger
}

func (s ActivityService) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(m.ValidateQuery[models.ActivityQueryParams]).
		Get("/", handlers.QueryHandler(s.ListActivity))
	return r
}

func (s ActivityService) ListActivity(
	logger *zap.Logger,
	claims models.UserClaims,
	_ uuid.UUIDs,
	params models.ActivityQueryParams,
) ([]map[string]any, error) {
	criteria := map[string][]string{"user_id": {claims.UserID.String()}}
	if params.Action != "" {
		criteria["action"] = []string{params.Action}
	}

	history, err := s.ActivityLogger.Search(criteria)
	if err != nil {
		logger.Error("Failed to search activity", zap.Error(err))
		return nil, err
	}
	return history, nil
}
