package events

import (
	"context"
	"encoding/json"
	"fmt"

	"manual-chatbot-be/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const logModule = "EventBus"

// Bus is the in-process pub/sub between the registry and its listeners.
// Messages published while nobody listens are dropped.
type Bus struct {
	pubsub *gochannel.GoChannel
	logger logger.ILogger
}

func NewBus(log logger.ILogger) *Bus {
	pubsub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		newWatermillLogger(log),
	)
	return &Bus{pubsub: pubsub, logger: log}
}

func (b *Bus) Publish(topic string, event Event) error {
	payload, err := json.Marshal(BaseEvent{
		Type:       event.EventType(),
		Data:       event.Payload(),
		OccurredAt: event.Timestamp(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set("event_type", event.EventType())
	return b.pubsub.Publish(topic, msg)
}

// Subscribe returns a channel that closes when ctx is done or the bus is closed.
// Every received message must be acked before the next one is delivered.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, topic)
}

// Listen runs handler for every event on topic until ctx is done. Handler
// errors are logged and the message is acked anyway.
func (b *Bus) Listen(ctx context.Context, topic string, handler func(BaseEvent) error) error {
	messages, err := b.Subscribe(ctx, topic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			event, err := Decode(msg)
			if err != nil {
				b.logger.Warn(logModule, "Dropping undecodable message", map[string]interface{}{
					"topic": topic,
					"error": err.Error(),
				})
				msg.Ack()
				continue
			}
			if err := handler(event); err != nil {
				b.logger.Error(logModule, "Event handler failed", map[string]interface{}{
					"topic":      topic,
					"event_type": event.Type,
					"error":      err.Error(),
				})
			}
			msg.Ack()
		}
	}()
	return nil
}

func (b *Bus) Close() error {
	return b.pubsub.Close()
}

func Decode(msg *message.Message) (BaseEvent, error) {
	var e BaseEvent
	if err := json.Unmarshal(msg.Payload, &e); err != nil {
		return BaseEvent{}, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	return e, nil
}
