package helpers

import (
	"fmt"
	"net"
	"net/http"
	"slices"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// ParseUUIDs reads the id0, id1, ... route parameters in order. It writes a
// 400 response and returns false when one of them is not a UUID.
func ParseUUIDs(w http.ResponseWriter, r *http.Request) (uuid.UUIDs, bool) {
	var ids uuid.UUIDs
	for i := 0; ; i++ {
		raw := chi.URLParam(r, fmt.Sprintf("id%d", i))
		if raw == "" {
			return ids, true
		}

		id, err := uuid.Parse(raw)
		if err != nil {
			RespondWithError(w, http.StatusBadRequest, []string{"INVALID_UUID"})
			return nil, false
		}
		ids = append(ids, id)
	}
}

// ClientIP returns the address of the client as seen by the closest trusted
// proxy. X-Forwarded-For is read from the right and trusted proxies are
// skipped, since every entry left of the first untrusted hop is client input.
func ClientIP(r *http.Request, trustedProxies []string) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}

	if !slices.Contains(trustedProxies, host) {
		return host
	}

	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded == "" {
		return host
	}

	hops := strings.Split(forwarded, ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop != "" && !slices.Contains(trustedProxies, hop) {
			return hop
		}
	}
	return host
}
