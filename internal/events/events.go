package events

import (
	"encoding/json"
	"fmt"

	"stepup/internal/activity"
	"stepup/internal/notifier"

	"github.com/ThreeDotsLabs/watermill/message"
	"go.uber.org/zap"
)

// EventParams carries the dependencies event callbacks run with.
type EventParams struct {
	Notifier       notifier.INotifier
	ActivityLogger activity.IActivityLogger
}

// Event is a message consumed by the notifications worker.
type Event interface {
	callback(params *EventParams) error
}

type envelope struct {
	Type string `json:"type"`
}

func getEventFromMessage(msg *message.Message) (Event, error) {
	var env envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		return nil, fmt.Errorf("invalid event payload: %w", err)
	}

	switch env.Type {
	case StepUpCodeDeliveryName:
		var event StepUpCodeDelivery
		if err := json.Unmarshal(msg.Payload, &event.Payload); err != nil {
			return nil, fmt.Errorf("invalid %s payload: %w", env.Type, err)
		}
		return &event, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", env.Type)
	}
}

// HandleEvents consumes messages until the channel is closed. Malformed
// messages are acked and dropped since redelivery cannot fix them. Failed
// callbacks are nacked so the transport may retry.
func HandleEvents(params *EventParams, messages <-chan *message.Message) {
	for msg := range messages {
		event, err := getEventFromMessage(msg)
		if err != nil {
			zap.L().Error("Dropping event", zap.String("message_id", msg.UUID), zap.Error(err))
			msg.Ack()
			continue
		}

		if err = event.callback(params); err != nil {
			zap.L().Error("Event callback failed", zap.String("message_id", msg.UUID), zap.Error(err))
			msg.Nack()
			continue
		}

		msg.Ack()
	}
}
