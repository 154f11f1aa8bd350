package stepup

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

type initiateResponse struct {
	ChallengeID   string        `json:"challenge_id"`
	ChallengeType ChallengeType `json:"challenge_type"`
	ExpiresAt     jsonTime      `json:"expires_at"`
}

// Initiate asks the service to open a challenge for action. No request is
// sent when there is no session.
func (c *AuthClient) Initiate(ctx context.Context, action string, rc RequestContext) (Challenge, error) {
	token, ok := c.session(ctx)
	if !ok {
		return Challenge{}, ErrUnauthenticated
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(token).
		SetBody(initiateRequest{Action: action, PositionID: rc.PositionID}).
		Post(PathInitiate)
	if err != nil {
		c.logger.Error("Failed to reach step-up initiate endpoint", zap.Error(err))
		return Challenge{}, newError(KindInitiationFailed, defaultInitiateMessage, err)
	}

	if !resp.IsSuccess() {
		c.logger.Debug("Step-up initiate rejected", zap.Int("status", resp.StatusCode()))
		return Challenge{}, newError(KindInitiationFailed, messageFrom(resp.Body(), defaultInitiateMessage), nil)
	}

	var body initiateResponse
	if err = json.Unmarshal(resp.Body(), &body); err != nil {
		return Challenge{}, newError(KindInitiationFailed, defaultInitiateMessage, err)
	}

	if body.ChallengeID == "" || !body.ChallengeType.IsValid() || body.ExpiresAt.IsZero() {
		return Challenge{}, newError(KindInitiationFailed, "Invalid challenge response", nil)
	}

	return Challenge{
		ID:        body.ChallengeID,
		Type:      body.ChallengeType,
		ExpiresAt: body.ExpiresAt.Time,
	}, nil
}
