package helpers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClientIP(t *testing.T) {
	trusted := []string{"10.0.0.1", "10.0.0.2"}

	newRequest := func(remoteAddr, forwarded string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil)
		req.RemoteAddr = remoteAddr
		if forwarded != "" {
			req.Header.Set("X-Forwarded-For", forwarded)
		}
		return req
	}

	t.Run("should use the peer address without a trusted proxy", func(t *testing.T) {
		req := newRequest("198.51.100.4:5123", "1.1.1.1")
		assert.Equal(t, "198.51.100.4", ClientIP(req, trusted))
	})

	t.Run("should use the peer address when the proxy sends no header", func(t *testing.T) {
		req := newRequest("10.0.0.1:5123", "")
		assert.Equal(t, "10.0.0.1", ClientIP(req, trusted))
	})

	t.Run("should ignore hops written by the client", func(t *testing.T) {
		first := ClientIP(newRequest("10.0.0.1:5123", "1.1.1.1, 203.0.113.7"), trusted)
		second := ClientIP(newRequest("10.0.0.1:5123", "2.2.2.2, 203.0.113.7"), trusted)

		assert.Equal(t, "203.0.113.7", first)
		assert.Equal(t, first, second)
	})

	t.Run("should trust forwarded headers only from known proxies", func(t *testing.T) {
		req := newRequest("10.0.0.1:4000", "203.0.113.7, 10.0.0.1")

		assert.Equal(t, "203.0.113.7", ClientIP(req, []string{"10.0.0.1"}))
		assert.Equal(t, "10.0.0.1", ClientIP(req, []string{"10.0.0.2"}))
	})

	t.Run("should skip chained trusted proxies", func(t *testing.T) {
		req := newRequest("10.0.0.1:5123", "9.9.9.9, 203.0.113.7, 10.0.0.2")
		assert.Equal(t, "203.0.113.7", ClientIP(req, trusted))
	})

	t.Run("should fall back to the peer when every hop is trusted", func(t *testing.T) {
		req := newRequest("10.0.0.1:5123", "10.0.0.2")
		assert.Equal(t, "10.0.0.1", ClientIP(req, trusted))
	})
}
