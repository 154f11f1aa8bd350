package stepup

import (
	"context"
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

type completeResponse struct {
	ElevatedToken string   `json:"elevated_token"`
	ValidUntil    jsonTime `json:"valid_until"`
}

// Verify submits code for challengeID. A 401 maps to ErrInvalidCode, any
// other failure to KindVerificationFailed with the server's message.
func (c *AuthClient) Verify(ctx context.Context, challengeID string, code string) (ElevatedToken, error) {
	if !ValidCode(code) {
		return ElevatedToken{}, ErrInvalidFormat
	}

	token, ok := c.session(ctx)
	if !ok {
		return ElevatedToken{}, ErrUnauthenticated
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(completeRequest{ChallengeID: challengeID, VerificationCode: code}).
		Post(PathComplete)
	if err != nil {
		c.logger.Error("Failed to reach step-up complete endpoint", zap.Error(err))
		return ElevatedToken{}, newError(KindVerificationFailed, defaultVerifyMessage, err)
	}

	if resp.StatusCode() == http.StatusUnauthorized {
		return ElevatedToken{}, ErrInvalidCode
	}

	if !resp.IsSuccess() {
		return ElevatedToken{}, newError(KindVerificationFailed, messageFrom(resp.Body(), defaultVerifyMessage), nil)
	}

	var body completeResponse
	if err = json.Unmarshal(resp.Body(), &body); err != nil {
		return ElevatedToken{}, newError(KindVerificationFailed, defaultVerifyMessage, err)
	}

	if body.ElevatedToken == "" {
		return ElevatedToken{}, newError(KindVerificationFailed, "Invalid verification response", nil)
	}

	return ElevatedToken{Token: body.ElevatedToken, ValidUntil: body.ValidUntil.Time}, nil
}
