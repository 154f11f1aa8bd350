package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

type User struct {
	ID             uuid.UUID      `gorm:"type:uuid;primarykey;default:gen_random_uuid()" json:"id"`
	FirstName      string         `gorm:"default:null"                                   json:"first_name"`
	LastName       string         `gorm:"default:null"                                   json:"last_name"`
	Email          string         `gorm:"not null;index"                                 json:"email"`
	HashedPassword string         `gorm:"default:null"                                   json:"-"`
	ProviderType   ProviderType   `gorm:"type:provider_type;not null"                    json:"provider_type"`
	ProviderKey    string         `gorm:"not null"                                       json:"provider_key"`
	Role           Role           `gorm:"type:role;not null;default:'user'"              json:"role"`
	MFADevices     []MFADevice    `gorm:"foreignKey:UserID"                              json:"-"`
	CreatedAt      time.Time      `                                                      json:"created_at"`
	UpdatedAt      time.Time      `                                                      json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index"                                          json:"-"`
}

// HasMFAEnabled is true when at least one loaded device is verified.
func (u *User) HasMFAEnabled() bool {
	for _, d := range u.MFADevices {
		if d.IsVerified {
			return true
		}
	}
	return false
}

type UserActivity struct {
	ID    uuid.UUID `json:"id"`
	Email string    `json:"email"`
}

func (u *User) ToActivity() UserActivity {
	return UserActivity{ID: u.ID, Email: u.Email}
}

type UserClaimKey struct{}

type UserClaims struct {
	Email    string    `json:"email"`
	UserID   uuid.UUID `json:"user_id"`
	Role     Role      `json:"role"`
	Aud      string    `json:"aud"`
	Issuer   string    `json:"iss"`
	Provider string    `json:"provider"`
	MFA      bool      `json:"mfa"`
	jwt.RegisteredClaims
}

type ElevatedClaimKey struct{}

// ElevatedClaims are carried by the token returned after a successful
// step-up and presented in the X-Step-Up-Token header.
type ElevatedClaims struct {
	UserID        uuid.UUID     `json:"user_id"`
	Action        string        `json:"action"`
	PositionID    *uuid.UUID    `json:"position_id,omitempty"`
	ChallengeID   uuid.UUID     `json:"challenge_id"`
	ChallengeType MFADeviceType `json:"challenge_type"`
	Aud           string        `json:"aud"`
	Issuer        string        `json:"iss"`
	jwt.RegisteredClaims
}
