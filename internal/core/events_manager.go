package core

import (
	"stepup/internal/configuration"
	"stepup/internal/messaging"
	"stepup/internal/models"

	"go.uber.org/zap"
)

var topics = []string{configuration.EventsNotifications}

// EventsManager owns one publisher and one subscriber per topic.
type EventsManager struct {
	publishers  map[string]messaging.IPublisher
	subscribers map[string]messaging.ISubscriber
	config      models.EventsConfiguration
}

func NewEventsManager(config models.EventsConfiguration) *EventsManager {
	manager := &EventsManager{
		publishers:  make(map[string]messaging.IPublisher),
		subscribers: make(map[string]messaging.ISubscriber),
		config:      config,
	}

	for _, topic := range topics {
		manager.initializeTopic(topic)
	}

	return manager
}

func (em *EventsManager) initializeTopic(topic string) {
	switch em.config.Type {
	case configuration.ProviderMemory:
		// Both ends must share the same channel.
		bus := messaging.NewMemoryBus(topic)
		em.publishers[topic] = bus.Publisher()
		em.subscribers[topic] = bus.Subscriber()
	case configuration.ProviderJetstream:
		publisher, err := messaging.NewJetStreamPublisher(em.config.Jetstream, topic)
		if err != nil {
			zap.L().Fatal("Failed to create publisher", zap.String("topic", topic), zap.Error(err))
		}
		subscriber, err := messaging.NewJetStreamSubscriber(em.config.Jetstream, topic)
		if err != nil {
			zap.L().Fatal("Failed to create subscriber", zap.String("topic", topic), zap.Error(err))
		}
		em.publishers[topic] = publisher
		em.subscribers[topic] = subscriber
	default:
		zap.L().Fatal("Unsupported events provider", zap.String("provider", em.config.Type))
	}

	zap.L().Info("Initialized topic",
		zap.String("topic", topic),
		zap.String("provider", em.config.Type))
}

func (em *EventsManager) GetPublisher(topic string) messaging.IPublisher {
	publisher, exists := em.publishers[topic]
	if !exists {
		zap.L().Warn("Publisher not found", zap.String("topic", topic))
		return nil
	}
	return publisher
}

func (em *EventsManager) GetSubscriber(topic string) messaging.ISubscriber {
	subscriber, exists := em.subscribers[topic]
	if !exists {
		zap.L().Warn("Subscriber not found", zap.String("topic", topic))
		return nil
	}
	return subscriber
}

func (em *EventsManager) Close() {
	for topic, publisher := range em.publishers {
		if err := publisher.Close(); err != nil {
			zap.L().Error("Failed to close publisher", zap.String("topic", topic), zap.Error(err))
		}
	}

	for topic, subscriber := range em.subscribers {
		if err := subscriber.Close(); err != nil {
			zap.L().Error("Failed to close subscriber", zap.String("topic", topic), zap.Error(err))
		}
	}
}
