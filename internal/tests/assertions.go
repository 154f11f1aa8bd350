package tests

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AssertJSONResponse checks the status code and decodes the body into a
// value of the same type as expected before comparing.
func AssertJSONResponse[T any](t *testing.T, recorder *httptest.ResponseRecorder, status int, expected T) {
	t.Helper()

	assert.Equal(t, status, recorder.Code)

	var actual T
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &actual))
	assert.Equal(t, expected, actual)
}

// DecodeJSON decodes the recorded body into T.
func DecodeJSON[T any](t *testing.T, recorder *httptest.ResponseRecorder) T {
	t.Helper()

	var value T
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &value))
	return value
}
