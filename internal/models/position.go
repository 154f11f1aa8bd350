package models

import (
	"time"

	"github.com/google/uuid"
)

const ApprovalActionApprove = "approve"

// PositionApproval records one stage of a position approval chain performed
// under a step-up elevation.
type PositionApproval struct {
	ID                uuid.UUID  `gorm:"type:uuid;primarykey;default:gen_random_uuid()" json:"id"`
	PositionID        uuid.UUID  `gorm:"type:uuid;not null;index"                       json:"position_id"`
	ApproverID        uuid.UUID  `gorm:"type:uuid;not null"                             json:"approver_id"`
	Action            string     `gorm:"type:varchar(32);not null"                      json:"action"`
	Stage             int        `gorm:"not null"                                       json:"stage"`
	Comments          string     `gorm:"default:null"                                   json:"comments,omitempty"`
	StepUpVerified    bool       `gorm:"not null;default:false"                         json:"step_up_verified"`
	StepUpChallengeID *uuid.UUID `gorm:"type:uuid;default:null"                         json:"step_up_challenge_id,omitempty"`
	CreatedAt         time.Time  `                                                      json:"created_at"`
}

type PositionApproveBody struct {
	Comments string `json:"comments" validate:"omitempty,max=500"`
}

type PositionApprovalActivity struct {
	ID         uuid.UUID `json:"id"`
	PositionID uuid.UUID `json:"position_id"`
	Stage      int       `json:"stage"`
}

func (a *PositionApproval) ToActivity() PositionApprovalActivity {
	return PositionApprovalActivity{ID: a.ID, PositionID: a.PositionID, Stage: a.Stage}
}
