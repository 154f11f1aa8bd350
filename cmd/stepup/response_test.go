package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, status int, body string) (*resty.Response, error) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	return resty.New().R().Get(server.URL)
}

func TestCheckResponse(t *testing.T) {
	t.Run("should accept a successful response", func(t *testing.T) {
		resp, err := get(t, http.StatusOK, `{}`)
		assert.NoError(t, checkResponse(resp, err))
	})

	t.Run("should include the message and error codes", func(t *testing.T) {
		resp, err := get(t, http.StatusConflict,
			`{"status":409,"error":["POSITION_ALREADY_APPROVED"],"message":"Already approved"}`)

		err = checkResponse(resp, err)
		require.Error(t, err)
		assert.Equal(t, "Already approved (POSITION_ALREADY_APPROVED)", err.Error())
	})

	t.Run("should fall back to the error codes", func(t *testing.T) {
		resp, err := get(t, http.StatusForbidden, `{"status":403,"error":["FORBIDDEN"]}`)

		err = checkResponse(resp, err)
		require.Error(t, err)
		assert.Equal(t, "FORBIDDEN", err.Error())
	})

	t.Run("should report the status of an unreadable body", func(t *testing.T) {
		resp, err := get(t, http.StatusBadGateway, `bad gateway`)

		err = checkResponse(resp, err)
		require.Error(t, err)
		assert.Equal(t, "unexpected status 502", err.Error())
	})
}
