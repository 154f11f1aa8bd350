package models

import (
	"time"

	"github.com/google/uuid"
)

type ChallengeType string

const (
	ChallengeTypeStepUp ChallengeType = "step_up"
)

// Challenge is a pending step-up verification. HashedSecret is only set
// when the code was generated server side (sms and push devices).
type Challenge struct {
	ID           uuid.UUID     `gorm:"type:uuid;primarykey;default:gen_random_uuid()" json:"id"`
	Type         ChallengeType `gorm:"type:challenge_type;not null"                   json:"type"`
	UserID       uuid.UUID     `gorm:"type:uuid;not null;index"                       json:"user_id"`
	User         *User         `gorm:"foreignKey:UserID"                              json:"-"`
	DeviceID     uuid.UUID     `gorm:"type:uuid;not null"                             json:"device_id"`
	DeviceType   MFADeviceType `gorm:"type:mfa_device_type;not null"                  json:"device_type"`
	Action       string        `gorm:"type:varchar(64);not null"                      json:"action"`
	PositionID   *uuid.UUID    `gorm:"type:uuid;default:null"                         json:"position_id,omitempty"`
	HashedSecret string        `gorm:"default:null"                                   json:"-"`
	AttemptsLeft int           `gorm:"not null"                                       json:"attempts_left"`
	ExpiresAt    time.Time     `gorm:"not null;index"                                 json:"expires_at"`
	CreatedAt    time.Time     `                                                      json:"created_at"`
}

// Expired reports whether the challenge can no longer be completed at now.
func (c *Challenge) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

type ChallengeActivity struct {
	ID         uuid.UUID     `json:"id"`
	Action     string        `json:"action"`
	DeviceType MFADeviceType `json:"device_type"`
	PositionID *uuid.UUID    `json:"position_id,omitempty"`
	ExpiresAt  time.Time     `json:"expires_at"`
}

func (c *Challenge) ToActivity() ChallengeActivity {
	return ChallengeActivity{
		ID:         c.ID,
		Action:     c.Action,
		DeviceType: c.DeviceType,
		PositionID: c.PositionID,
		ExpiresAt:  c.ExpiresAt,
	}
}

type StepUpInitiateBody struct {
	Action     string     `json:"action"      validate:"required,max=64"`
	PositionID *uuid.UUID `json:"position_id" validate:"omitempty"`
}

type StepUpInitiateResponse struct {
	ChallengeID   uuid.UUID     `json:"challenge_id"`
	ChallengeType MFADeviceType `json:"challenge_type"`
	ExpiresAt     time.Time     `json:"expires_at"`
}

type StepUpCompleteBody struct {
	ChallengeID      uuid.UUID `json:"challenge_id"      validate:"required"`
	VerificationCode string    `json:"verification_code" validate:"required,len=6,numeric"`
}

type StepUpCompleteResponse struct {
	ElevatedToken string    `json:"elevated_token"`
	ValidUntil    time.Time `json:"valid_until"`
}

// CodeDeliveryPayload is published for sms and push devices so that the
// notifications worker can deliver the plaintext code out of band.
type CodeDeliveryPayload struct {
	Type        string        `json:"type"`
	ChallengeID uuid.UUID     `json:"challenge_id"`
	DeviceType  MFADeviceType `json:"device_type"`
	Target      string        `json:"target"`
	Email       string        `json:"email"`
	Code        string        `json:"code"`
	Action      string        `json:"action"`
	ExpiresAt   time.Time     `json:"expires_at"`
}
