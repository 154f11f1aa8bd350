package helpers

import (
	"encoding/json"
	"errors"
	"net/http"

	apierrors "stepup/internal/errors"
	"stepup/internal/models"

	"go.uber.org/zap"
)

func RespondWithJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("Failed to encode response", zap.Error(err))
	}
}

func RespondWithError(w http.ResponseWriter, status int, codes []string) {
	RespondWithJSON(w, status, models.Error{Status: status, Error: codes})
}

func RespondWithErrorMessage(w http.ResponseWriter, status int, codes []string, message string) {
	RespondWithJSON(w, status, models.Error{Status: status, Error: codes, Message: message})
}

// HandleError writes an APIError as-is and hides everything else behind a 500.
func HandleError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var apiErr *apierrors.APIError
	if errors.As(err, &apiErr) {
		RespondWithErrorMessage(w, apiErr.Status, []string{apiErr.Code}, apiErr.Message)
		return
	}

	logger.Error("Unhandled error", zap.Error(err))
	RespondWithError(w, http.StatusInternalServerError, []string{apierrors.ErrInternalServer.Code})
}
