package stepup

import (
	"context"
	"net/http"
	"slices"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// CodeStepUpRequired is returned by the API when a protected action needs
// an elevated token.
const CodeStepUpRequired = "STEP_UP_REQUIRED"

// ProtectedCall performs the protected request. token is empty on the first try.
type ProtectedCall func(ctx context.Context, token string) (*resty.Response, error)

// StepUpRequired reports whether resp asks for an elevated token.
func StepUpRequired(resp *resty.Response) bool {
	if resp == nil || resp.StatusCode() != http.StatusForbidden {
		return false
	}
	return slices.Contains(errorCodes(resp.Body()), CodeStepUpRequired)
}

// CallProtected runs call with a cached elevated token when one exists. If the
// server still asks for step-up, it runs an elevation attempt and retries
// once with the new token.
func (e *Elevator) CallProtected(ctx context.Context, action string, rc RequestContext, observer Observer, call ProtectedCall) (*resty.Response, error) {
	key := TokenKey(action, rc)

	var token string
	if e.tokens != nil {
		if cached, ok := e.tokens.Get(key); ok {
			token = cached.Token
		}
	}

	resp, err := call(ctx, token)
	if err != nil || !StepUpRequired(resp) {
		return resp, err
	}

	if e.tokens != nil {
		e.tokens.Delete(key)
	}

	e.logger.Debug("Protected call requires step-up", zap.String("action", action))

	elevated, err := e.RequestElevation(ctx, action, rc, observer)
	if err != nil {
		return resp, err
	}

	if e.tokens != nil {
		e.tokens.Put(key, elevated)
	}

	return call(ctx, elevated.Token)
}
