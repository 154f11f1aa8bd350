package handlers

import (
	"net/http"

	apierrors "stepup/internal/errors"
	h "stepup/internal/helpers"
	m "stepup/internal/middlewares"
	"stepup/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type (
	CreateTargetFunc[In any, Out any] func(*zap.Logger, models.UserClaims, uuid.UUIDs, In) (Out, error)
	GetOneTargetFunc[Out any]         func(*zap.Logger, models.UserClaims, uuid.UUIDs) (Out, error)
	BodyTargetFunc[In any]            func(*zap.Logger, models.UserClaims, uuid.UUIDs, In) error
	DeleteTargetFunc                  func(*zap.Logger, models.UserClaims, uuid.UUIDs) error

	ElevatedTargetFunc[In any, Out any] func(*zap.Logger, models.UserClaims, models.ElevatedClaims, uuid.UUIDs, In) (Out, error)
)

// request extracts what every handler needs. Claims are zero on public routes.
func request(w http.ResponseWriter, r *http.Request) (*zap.Logger, models.UserClaims, uuid.UUIDs, bool) {
	logger := m.LoggerFromContext(r.Context())

	ids, ok := h.ParseUUIDs(w, r)
	if !ok {
		return nil, models.UserClaims{}, nil, false
	}

	claims, _ := h.GetUserClaims(r.Context())
	return logger, claims, ids, true
}

func bodyHandler[In any, Out any](status int, fn CreateTargetFunc[In, Out]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger, claims, ids, ok := request(w, r)
		if !ok {
			return
		}

		body, ok := r.Context().Value(m.BodyKey{}).(In)
		if !ok {
			h.RespondWithError(w, http.StatusBadRequest, []string{"BAD_REQUEST"})
			return
		}

		out, err := fn(logger, claims, ids, body)
		if err != nil {
			h.HandleError(w, logger, err)
			return
		}

		h.RespondWithJSON(w, status, out)
	}
}

// CreateHandler runs fn with the body validated by m.Validate and answers 201.
func CreateHandler[In any, Out any](fn CreateTargetFunc[In, Out]) http.HandlerFunc {
	return bodyHandler(http.StatusCreated, fn)
}

// ActionHandler is CreateHandler for POST routes that do not create a resource.
func ActionHandler[In any, Out any](fn CreateTargetFunc[In, Out]) http.HandlerFunc {
	return bodyHandler(http.StatusOK, fn)
}

func GetOneHandler[Out any](fn GetOneTargetFunc[Out]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger, claims, ids, ok := request(w, r)
		if !ok {
			return
		}

		out, err := fn(logger, claims, ids)
		if err != nil {
			h.HandleError(w, logger, err)
			return
		}

		h.RespondWithJSON(w, http.StatusOK, out)
	}
}

// QueryHandler is GetOneHandler for routes guarded by m.ValidateQuery.
func QueryHandler[Q any, Out any](fn CreateTargetFunc[Q, Out]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger, claims, ids, ok := request(w, r)
		if !ok {
			return
		}

		params, ok := r.Context().Value(m.QueryKey{}).(Q)
		if !ok {
			h.RespondWithError(w, http.StatusBadRequest, []string{"BAD_REQUEST"})
			return
		}

		out, err := fn(logger, claims, ids, params)
		if err != nil {
			h.HandleError(w, logger, err)
			return
		}

		h.RespondWithJSON(w, http.StatusOK, out)
	}
}

// BodyHandler answers 204 when fn succeeds.
func BodyHandler[In any](fn BodyTargetFunc[In]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger, claims, ids, ok := request(w, r)
		if !ok {
			return
		}

		body, ok := r.Context().Value(m.BodyKey{}).(In)
		if !ok {
			h.RespondWithError(w, http.StatusBadRequest, []string{"BAD_REQUEST"})
			return
		}

		if err := fn(logger, claims, ids, body); err != nil {
			h.HandleError(w, logger, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func DeleteHandler(fn DeleteTargetFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger, claims, ids, ok := request(w, r)
		if !ok {
			return
		}

		if err := fn(logger, claims, ids); err != nil {
			h.HandleError(w, logger, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

// ElevatedHandler is CreateHandler for routes guarded by m.ElevationValidate.
// fn receives the elevation the request was authorized with.
func ElevatedHandler[In any, Out any](fn ElevatedTargetFunc[In, Out]) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger, claims, ids, ok := request(w, r)
		if !ok {
			return
		}

		elevated, ok := h.GetElevatedClaims(r.Context())
		if !ok {
			h.RespondWithError(w, http.StatusForbidden, []string{apierrors.ErrStepUpRequired})
			return
		}

		body, ok := r.Context().Value(m.BodyKey{}).(In)
		if !ok {
			h.RespondWithError(w, http.StatusBadRequest, []string{"BAD_REQUEST"})
			return
		}

		out, err := fn(logger, claims, elevated, ids, body)
		if err != nil {
			h.HandleError(w, logger, err)
			return
		}

		h.RespondWithJSON(w, http.StatusCreated, out)
	}
}
