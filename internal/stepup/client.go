package stepup

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	PathInitiate = "/functions/v1/auth-step-up-initiate"
	PathComplete = "/functions/v1/auth-step-up-complete"
)

// AuthService is the remote side of the flow.
type AuthService interface {
	Initiate(ctx context.Context, action string, rc RequestContext) (Challenge, error)
	Verify(ctx context.Context, challengeID string, code string) (ElevatedToken, error)
}

// SessionProvider returns the bearer token of the signed-in user.
type SessionProvider interface {
	SessionToken(ctx context.Context) (string, bool)
}

// SessionFunc adapts a function to SessionProvider.
type SessionFunc func(ctx context.Context) (string, bool)

func (f SessionFunc) SessionToken(ctx context.Context) (string, bool) {
	return f(ctx)
}

// StaticSession always returns the same token.
type StaticSession string

func (s StaticSession) SessionToken(context.Context) (string, bool) {
	return string(s), s != ""
}

type ClientConfig struct {
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the transport, e.g. to add tracing.
	HTTPClient *http.Client
}

// AuthClient talks to the step-up endpoints of the authentication service.
type AuthClient struct {
	http     *resty.Client
	sessions SessionProvider
	logger   *zap.Logger
}

type initiateRequest struct {
	Action     string `json:"action"`
	PositionID string `json:"position_id,omitempty"`
}

type completeRequest struct {
	ChallengeID      string `json:"challenge_id"`
	VerificationCode string `json:"verification_code"`
}

type errorBody struct {
	Message string   `json:"message"`
	Error   []string `json:"error"`
}

func NewAuthClient(cfg ClientConfig, sessions SessionProvider, logger *zap.Logger) *AuthClient {
	var client *resty.Client
	if cfg.HTTPClient != nil {
		client = resty.NewWithClient(cfg.HTTPClient)
	} else {
		client = resty.New()
	}

	client.SetBaseURL(cfg.BaseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &AuthClient{http: client, sessions: sessions, logger: logger}
}

// HTTP exposes the underlying client so protected calls share its settings.
func (c *AuthClient) HTTP() *resty.Client {
	return c.http
}

func (c *AuthClient) session(ctx context.Context) (string, bool) {
	if c.sessions == nil {
		return "", false
	}
	token, ok := c.sessions.SessionToken(ctx)
	return token, ok && token != ""
}

// messageFrom extracts the server supplied message from an error body.
func messageFrom(body []byte, fallback string) string {
	var payload errorBody
	if err := json.Unmarshal(body, &payload); err != nil {
		return fallback
	}
	if payload.Message != "" {
		return payload.Message
	}
	return fallback
}

// errorCodes returns the machine readable codes of an error body.
func errorCodes(body []byte) []string {
	var payload errorBody
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil
	}
	return payload.Error
}
