package events

import (
	"encoding/json"
	"fmt"
	"time"

	"stepup/internal/activity"
	"stepup/internal/messaging"
	"stepup/internal/models"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

const StepUpCodeDeliveryName = "StepUpCodeDelivery"

var codeDeliveryTemplates = map[models.MFADeviceType]string{
	models.MFADeviceTypeSMS:  "step_up_sms",
	models.MFADeviceTypePush: "step_up_push",
}

// StepUpCodeDelivery sends a server generated step-up code to the device
// the challenge was issued for.
type StepUpCodeDelivery struct {
	Publisher messaging.IPublisher
	Payload   models.CodeDeliveryPayload
}

func NewStepUpCodeDelivery(
	publisher messaging.IPublisher,
	challenge *models.Challenge,
	device *models.MFADevice,
	email string,
	code string,
) StepUpCodeDelivery {
	return StepUpCodeDelivery{
		Publisher: publisher,
		Payload: models.CodeDeliveryPayload{
			Type:        StepUpCodeDeliveryName,
			ChallengeID: challenge.ID,
			DeviceType:  device.Type,
			Target:      device.Target,
			Email:       email,
			Code:        code,
			Action:      challenge.Action,
			ExpiresAt:   challenge.ExpiresAt,
		},
	}
}

func (e *StepUpCodeDelivery) Trigger() error {
	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal code delivery: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("type", StepUpCodeDeliveryName)

	if err = e.Publisher.Publish(msg); err != nil {
		return fmt.Errorf("failed to publish code delivery: %w", err)
	}
	return nil
}

func (e *StepUpCodeDelivery) callback(params *EventParams) error {
	if time.Now().After(e.Payload.ExpiresAt) {
		zap.L().Info("Skipping delivery of expired step-up code",
			zap.String("challenge_id", e.Payload.ChallengeID.String()))
		return nil
	}

	templateName, ok := codeDeliveryTemplates[e.Payload.DeviceType]
	if !ok {
		zap.L().Warn("No delivery template for device type",
			zap.String("device_type", string(e.Payload.DeviceType)))
		return nil
	}

	to := e.Payload.Target
	if to == "" {
		to = e.Payload.Email
	}

	err := params.Notifier.NotifyFromTemplate(
		to,
		"Your verification code",
		templateName,
		map[string]string{
			"Code":      e.Payload.Code,
			"Action":    e.Payload.Action,
			"ExpiresAt": e.Payload.ExpiresAt.UTC().Format(time.RFC3339),
		},
	)
	if err != nil {
		return err
	}

	if params.ActivityLogger == nil {
		return nil
	}
	return params.ActivityLogger.Send(models.Activity{
		Message: activity.StepUpCodeDelivered,
		Filter: activity.NewLogFilter(map[string]string{
			"action":         activity.StepUpCodeDelivered,
			"object_type":    "step_up_challenge",
			"challenge_id":   e.Payload.ChallengeID.String(),
			"challenge_type": string(e.Payload.DeviceType),
			"step_up_action": e.Payload.Action,
		}),
	})
}
