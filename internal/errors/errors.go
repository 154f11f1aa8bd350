package apierrors

import "fmt"

// APIError is returned by services and translated into an HTTP response by
// the handler layer.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Code)
}

func NewAPIError(status int, code string) *APIError {
	return &APIError{Status: status, Code: code}
}

// WithMessage returns a copy carrying a human readable message.
func (e *APIError) WithMessage(message string) *APIError {
	return &APIError{Status: e.Status, Code: e.Code, Message: message}
}

var (
	ErrInternalServer              = NewAPIError(500, "INTERNAL_SERVER_ERROR")
	ErrGenerateAccessTokenFailed   = NewAPIError(500, "GENERATE_ACCESS_TOKEN_FAILED")
	ErrGenerateElevatedTokenFailed = NewAPIError(500, "GENERATE_ELEVATED_TOKEN_FAILED")
	ErrCreateFailed                = NewAPIError(500, "CREATE_FAILED")
	ErrDeleteFailed                = NewAPIError(500, "DELETE_FAILED")
	ErrServiceUnavailable          = NewAPIError(503, "SERVICE_UNAVAILABLE")
)
