package mfa

import (
	"time"

	apierrors "stepup/internal/errors"
	h "stepup/internal/helpers"
	"stepup/internal/models"
)

// GenerateTokens issues the session access token returned by login.
func GenerateTokens(authConfig models.AuthConfig, user *models.User) (models.AuthLoginResponse, error) {
	accessToken, err := h.NewAccessToken(authConfig.JWTSecret, user, authConfig.AccessTokenExpiry)
	if err != nil {
		return models.AuthLoginResponse{}, apierrors.ErrGenerateAccessTokenFailed
	}

	return models.AuthLoginResponse{AccessToken: accessToken, MFAEnabled: user.HasMFAEnabled()}, nil
}

// GenerateElevation issues the elevated token for a completed challenge. The
// returned ValidUntil is the exact expiry carried by the token.
func GenerateElevation(
	authConfig models.AuthConfig,
	challenge *models.Challenge,
	now time.Time,
) (models.StepUpCompleteResponse, error) {
	token, validUntil, err := h.NewElevatedToken(authConfig.JWTSecret, challenge, now, authConfig.ElevatedTokenExpiry)
	if err != nil {
		return models.StepUpCompleteResponse{}, apierrors.ErrGenerateElevatedTokenFailed
	}

	return models.StepUpCompleteResponse{ElevatedToken: token, ValidUntil: validUntil}, nil
}
