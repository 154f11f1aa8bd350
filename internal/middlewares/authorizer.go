package middlewares

import (
	"net/http"

	h "stepup/internal/helpers"
	"stepup/internal/models"
)

// AuthorizeRole only lets admins through when requiredRole is RoleAdmin.
// Every authenticated user satisfies RoleUser.
func AuthorizeRole(requiredRole models.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userClaims, ok := r.Context().Value(models.UserClaimKey{}).(models.UserClaims)
			if !ok {
				h.RespondWithError(w, 401, []string{"UNAUTHORIZED"})
				return
			}

			if requiredRole == models.RoleAdmin && userClaims.Role != models.RoleAdmin {
				h.RespondWithError(w, 403, []string{"FORBIDDEN"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
