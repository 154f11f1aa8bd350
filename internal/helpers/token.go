package helpers

import (
	"context"
	"errors"
	"strings"
	"time"

	"stepup/internal/configuration"
	"stepup/internal/models"

	"github.com/alexedwards/argon2id"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func keyFunc(jwtSecret string) jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(jwtSecret), nil
	}
}

// ParseToken parses and validates a session JWT. Signature, expiry and issuer
// are checked here. The requireBearer parameter controls whether the
// "Bearer " prefix is required.
func ParseToken(jwtSecret string, tokenString string, requireBearer bool) (models.UserClaims, error) {
	if requireBearer {
		if !strings.HasPrefix(tokenString, "Bearer ") {
			return models.UserClaims{}, errors.New("invalid token")
		}
		tokenString = strings.TrimPrefix(tokenString, "Bearer ")
	}

	claims := &models.UserClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, keyFunc(jwtSecret))
	if err != nil || claims.Issuer != configuration.AppName {
		return models.UserClaims{}, errors.New("invalid token")
	}

	return *claims, nil
}

// ParseAccessToken only accepts full session tokens. Elevated tokens share the
// signing key but never authenticate a request on their own.
func ParseAccessToken(jwtSecret string, header string) (models.UserClaims, error) {
	claims, err := ParseToken(jwtSecret, header, true)
	if err != nil {
		return models.UserClaims{}, err
	}

	if claims.Aud != configuration.AudienceAccessToken {
		return models.UserClaims{}, errors.New("invalid token audience")
	}

	return claims, nil
}

func CreateHash(password string) (string, error) {
	argonParams := argon2id.Params{
		Memory:      64 * 1024,
		Iterations:  3,
		Parallelism: 2,
		SaltLength:  32,
		KeyLength:   32,
	}
	hash, err := argon2id.CreateHash(password, &argonParams)
	if err != nil {
		return "", errors.New("can not create hash password")
	}

	return hash, nil
}

func NewAccessToken(jwtSecret string, user *models.User, expiryMinutes int) (string, error) {
	now := time.Now()
	claims := models.UserClaims{
		Email:    user.Email,
		UserID:   user.ID,
		Role:     user.Role,
		Aud:      configuration.AudienceAccessToken,
		Issuer:   configuration.AppName,
		Provider: string(user.ProviderType),
		MFA:      user.HasMFAEnabled(),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(expiryMinutes) * time.Minute)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(jwtSecret))
}

// NewElevatedToken signs a short lived token bound to the user, the protected
// action and optionally a position. The expiry is returned so the caller can
// report it verbatim.
func NewElevatedToken(
	jwtSecret string,
	challenge *models.Challenge,
	now time.Time,
	expiryMinutes int,
) (string, time.Time, error) {
	validUntil := now.Add(time.Duration(expiryMinutes) * time.Minute).Truncate(time.Second)
	claims := models.ElevatedClaims{
		UserID:        challenge.UserID,
		Action:        challenge.Action,
		PositionID:    challenge.PositionID,
		ChallengeID:   challenge.ID,
		ChallengeType: challenge.DeviceType,
		Aud:           configuration.AudienceElevatedToken,
		Issuer:        configuration.AppName,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(validUntil),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(jwtSecret))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, validUntil, nil
}

func ParseElevatedToken(jwtSecret string, tokenString string) (models.ElevatedClaims, error) {
	claims := &models.ElevatedClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, keyFunc(jwtSecret))
	if err != nil {
		return models.ElevatedClaims{}, errors.New("invalid elevated token")
	}

	if claims.Issuer != configuration.AppName || claims.Aud != configuration.AudienceElevatedToken {
		return models.ElevatedClaims{}, errors.New("invalid elevated token audience")
	}

	return *claims, nil
}

func GetUserClaims(c context.Context) (models.UserClaims, error) {
	value, ok := c.Value(models.UserClaimKey{}).(models.UserClaims)
	if !ok {
		return models.UserClaims{}, errors.New("invalid user claims")
	}
	return value, nil
}

func GetElevatedClaims(c context.Context) (models.ElevatedClaims, bool) {
	value, ok := c.Value(models.ElevatedClaimKey{}).(models.ElevatedClaims)
	return value, ok
}
