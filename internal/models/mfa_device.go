package models

import (
	"time"

	"github.com/google/uuid"
)

// MFADeviceType represents the type of MFA device.
type MFADeviceType string

const (
	MFADeviceTypeTOTP MFADeviceType = "totp"
	MFADeviceTypeSMS  MFADeviceType = "sms"
	MFADeviceTypePush MFADeviceType = "push"
)

// DeliversCode is true for devices that receive a server generated code.
func (t MFADeviceType) DeliversCode() bool {
	return t == MFADeviceTypeSMS || t == MFADeviceTypePush
}

// MFADevice represents an MFA device associated with a user.
// For totp devices EncryptedSecret holds the AES-GCM encrypted seed. For sms
// and push devices it holds the argon2id hash of the pending enrolment code
// and is cleared once the device is verified.
type MFADevice struct {
	ID              uuid.UUID     `gorm:"type:uuid;primarykey;default:gen_random_uuid()" json:"id"`
	UserID          uuid.UUID     `gorm:"type:uuid;not null;index"                       json:"user_id"`
	Name            string        `gorm:"type:varchar(100);not null"                     json:"name"`
	Type            MFADeviceType `gorm:"type:mfa_device_type;not null;default:'totp'"   json:"type"`
	Target          string        `gorm:"type:varchar(254);default:null"                 json:"target,omitempty"`
	EncryptedSecret string        `gorm:"not null"                                       json:"-"`
	IsDefault       bool          `gorm:"column:is_default;not null;default:false"       json:"is_default"`
	IsVerified      bool          `gorm:"not null;default:false"                         json:"is_verified"`
	CreatedAt       time.Time     `                                                      json:"created_at"`
	UpdatedAt       time.Time     `                                                      json:"updated_at"`
	VerifiedAt      *time.Time    `                                                      json:"verified_at,omitempty"`
	LastUsedAt      *time.Time    `                                                      json:"last_used_at,omitempty"`
}

type MFADeviceActivity struct {
	ID   uuid.UUID     `json:"id"`
	Name string        `json:"name"`
	Type MFADeviceType `json:"type"`
}

func (d *MFADevice) ToActivity() MFADeviceActivity {
	return MFADeviceActivity{ID: d.ID, Name: d.Name, Type: d.Type}
}

// MFADevicesListResponse wraps device list with user MFA status.
type MFADevicesListResponse struct {
	Devices     []MFADevice `json:"devices"`
	MFAEnabled  bool        `json:"mfa_enabled"`
	DeviceCount int         `json:"device_count"`
	MaxDevices  int         `json:"max_devices"`
}

// MFADeviceSetupBody is used to initiate MFA setup.
type MFADeviceSetupBody struct {
	Name     string        `json:"name"     validate:"required,min=1,max=50"`
	Type     MFADeviceType `json:"type"     validate:"omitempty,oneof=totp sms push"`
	Target   string        `json:"target"   validate:"required_if=Type sms,required_if=Type push,omitempty,max=254"`
	Password string        `json:"password" validate:"required"`
}

// MFADeviceSetupResponse is returned when initiating device setup.
// Secret and QRCodeURI are only set for totp devices.
type MFADeviceSetupResponse struct {
	DeviceID  uuid.UUID     `json:"device_id"`
	Type      MFADeviceType `json:"type"`
	Secret    string        `json:"secret,omitempty"`
	QRCodeURI string        `json:"qr_code_uri,omitempty"`
	Issuer    string        `json:"issuer"`
}

// MFADeviceVerifyBody is used to verify and enable a new device.
type MFADeviceVerifyBody struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}
