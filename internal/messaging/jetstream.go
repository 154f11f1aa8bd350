package messaging

import (
	"context"
	"fmt"
	"net"
	"time"

	"stepup/internal/models"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/jetstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/nats-io/nats.go"
	natsJs "github.com/nats-io/nats.go/jetstream"
	"go.uber.org/zap"
)

// Code delivery messages are useless once the longest challenge has expired.
const jetStreamMaxAge = time.Hour

type JetStreamPublisher struct {
	topicName string
	publisher *jetstream.Publisher
}

func connectNATS(config *models.JetStreamEventsConfiguration) (*nats.Conn, error) {
	nc, err := nats.Connect(
		net.JoinHostPort(config.Host, config.Port),
		nats.Name("stepup"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return nc, nil
}

func NewJetStreamPublisher(config *models.JetStreamEventsConfiguration, topicName string) (IPublisher, error) {
	nc, err := connectNATS(config)
	if err != nil {
		return nil, err
	}

	publisher, err := jetstream.NewPublisher(jetstream.PublisherConfig{Conn: nc})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream publisher: %w", err)
	}

	return &JetStreamPublisher{topicName: topicName, publisher: publisher}, nil
}

func (p *JetStreamPublisher) Publish(messages ...*message.Message) error {
	return p.publisher.Publish(p.topicName, messages...)
}

func (p *JetStreamPublisher) Close() error {
	return p.publisher.Close()
}

type JetStreamSubscriber struct {
	topicName  string
	subscriber *jetstream.Subscriber
}

// NewJetStreamSubscriber ensures a work queue stream and a durable consumer
// exist for topicName so that every message is handled by one worker only.
func NewJetStreamSubscriber(config *models.JetStreamEventsConfiguration, topicName string) (ISubscriber, error) {
	nc, err := connectNATS(config)
	if err != nil {
		return nil, err
	}

	if err = ensureWorkQueue(nc, topicName); err != nil {
		nc.Close()
		return nil, err
	}

	var namer jetstream.ConsumerConfigurator
	subscriber, err := jetstream.NewSubscriber(jetstream.SubscriberConfig{
		Conn:                nc,
		AckWaitTimeout:      5 * time.Second,
		ResourceInitializer: jetstream.ExistingConsumer(namer, ""),
		Logger:              watermill.NopLogger{},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream subscriber: %w", err)
	}

	return &JetStreamSubscriber{topicName: topicName, subscriber: subscriber}, nil
}

func ensureWorkQueue(nc *nats.Conn, topicName string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	js, err := natsJs.New(nc)
	if err != nil {
		return fmt.Errorf("failed to create JetStream context: %w", err)
	}

	stream, err := js.CreateOrUpdateStream(ctx, natsJs.StreamConfig{
		Name:      topicName,
		Subjects:  []string{topicName},
		Retention: natsJs.WorkQueuePolicy,
		MaxAge:    jetStreamMaxAge,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", topicName, err)
	}

	consumerName := fmt.Sprintf("watermill__%s", topicName)
	_, err = stream.CreateOrUpdateConsumer(ctx, natsJs.ConsumerConfig{
		Name:      consumerName,
		Durable:   consumerName,
		AckPolicy: natsJs.AckExplicitPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer %s: %w", consumerName, err)
	}
	return nil
}

func (s *JetStreamSubscriber) Subscribe() <-chan *message.Message {
	sub, err := s.subscriber.Subscribe(context.Background(), s.topicName)
	if err != nil {
		zap.L().Error("Failed to subscribe to topic", zap.String("topic", s.topicName), zap.Error(err))
		return nil
	}
	return sub
}

func (s *JetStreamSubscriber) Close() error {
	return s.subscriber.Close()
}
