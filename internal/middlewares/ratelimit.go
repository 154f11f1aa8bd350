package middlewares

import (
	"net/http"
	"strconv"

	"stepup/internal/cache"
	h "stepup/internal/helpers"
	"stepup/internal/models"

	"go.uber.org/zap"
)

const defaultRequestsPerMinute = 120

// RateLimit throttles per user, or per client address for anonymous calls.
// Cache failures let the request through.
func RateLimit(c cache.ICache, trustedProxies []string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identifier := h.ClientIP(r, trustedProxies)
			if claims, ok := r.Context().Value(models.UserClaimKey{}).(models.UserClaims); ok {
				identifier = claims.UserID.String()
			}

			retryAfter, err := c.GetRateLimit(identifier, defaultRequestsPerMinute)
			if err != nil {
				LoggerFromContext(r.Context()).Warn("Rate limit check failed", zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			if retryAfter > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				h.RespondWithError(w, 429, []string{"TOO_MANY_REQUESTS"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
