package activity

import (
	"strconv"
	"time"

	"stepup/internal/models"
)

const (
	UserLoggedIn        = "USER_LOGGED_IN"
	MFADeviceEnrolled   = "MFA_DEVICE_ENROLLED"
	MFADeviceVerified   = "MFA_DEVICE_VERIFIED"
	MFADeviceRemoved    = "MFA_DEVICE_REMOVED"
	StepUpInitiated     = "STEP_UP_INITIATED"
	StepUpCodeDelivered = "STEP_UP_CODE_DELIVERED"
	StepUpVerified      = "STEP_UP_VERIFIED"
	StepUpFailed        = "STEP_UP_FAILED"
	StepUpLocked        = "STEP_UP_LOCKED"
	PositionApproved    = "POSITION_APPROVED"
)

// Object types whose payload may be stored alongside the entry.
var authorizedObjectTypes = map[string]bool{
	"user":              true,
	"mfa_device":        true,
	"step_up_challenge": true,
	"position_approval": true,
}

func isAuthorizedObject(objectType string) bool {
	return authorizedObjectTypes[objectType]
}

// NewLogFilter stamps fields with the current time.
func NewLogFilter(fields map[string]string) models.LogFilter {
	return models.LogFilter{
		Fields:    fields,
		Timestamp: strconv.FormatInt(time.Now().UnixNano(), 10),
	}
}
