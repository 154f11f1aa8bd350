package messaging

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"go.uber.org/zap"
)

// MemoryBus is an in-process topic. Publisher and subscriber must share it,
// so both are obtained from the same bus.
type MemoryBus struct {
	topicName string
	channel   *gochannel.GoChannel
}

func NewMemoryBus(topicName string) *MemoryBus {
	return &MemoryBus{
		topicName: topicName,
		channel: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 64,
			Persistent:          true,
		}, watermill.NopLogger{}),
	}
}

func (b *MemoryBus) Publisher() IPublisher {
	return &memoryPublisher{bus: b}
}

func (b *MemoryBus) Subscriber() ISubscriber {
	return &memorySubscriber{bus: b}
}

type memoryPublisher struct {
	bus *MemoryBus
}

func (p *memoryPublisher) Publish(messages ...*message.Message) error {
	return p.bus.channel.Publish(p.bus.topicName, messages...)
}

func (p *memoryPublisher) Close() error {
	return p.bus.channel.Close()
}

type memorySubscriber struct {
	bus *MemoryBus
}

func (s *memorySubscriber) Subscribe() <-chan *message.Message {
	sub, err := s.bus.channel.Subscribe(context.Background(), s.bus.topicName)
	if err != nil {
		zap.L().Error("Failed to subscribe to memory topic", zap.String("topic", s.bus.topicName), zap.Error(err))
		return nil
	}
	return sub
}

func (s *memorySubscriber) Close() error {
	return s.bus.channel.Close()
}
