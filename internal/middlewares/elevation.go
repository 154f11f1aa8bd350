package middlewares

import (
	"context"
	"net/http"

	"stepup/internal/configuration"
	apierrors "stepup/internal/errors"
	h "stepup/internal/helpers"
	"stepup/internal/models"
)

const stepUpRequiredMessage = "Step-up verification required"

// ElevationValidate guards a protected action. The request must carry an
// elevated token issued to the same user for action. When positionIDIndex is
// not negative, the token must also be bound to that route id.
func ElevationValidate(jwtSecret string, action string, positionIDIndex int) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userClaims, ok := r.Context().Value(models.UserClaimKey{}).(models.UserClaims)
			if !ok {
				h.RespondWithError(w, 401, []string{"UNAUTHORIZED"})
				return
			}

			reject := func() {
				h.RespondWithErrorMessage(w, 403, []string{apierrors.ErrStepUpRequired}, stepUpRequiredMessage)
			}

			raw := r.Header.Get(configuration.HeaderElevatedToken)
			if raw == "" {
				reject()
				return
			}

			elevated, err := h.ParseElevatedToken(jwtSecret, raw)
			if err != nil || elevated.UserID != userClaims.UserID || elevated.Action != action {
				reject()
				return
			}

			if positionIDIndex >= 0 {
				ids, parsed := h.ParseUUIDs(w, r)
				if !parsed {
					return
				}
				if positionIDIndex >= len(ids) || elevated.PositionID == nil || *elevated.PositionID != ids[positionIDIndex] {
					reject()
					return
				}
			}

			ctx := context.WithValue(r.Context(), models.ElevatedClaimKey{}, elevated)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
