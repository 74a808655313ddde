package nats

import (
	"context"
	"time"

	"manual-chatbot-be/pkg/events"
)

type eventSource interface {
	Listen(ctx context.Context, topic string, handler func(events.BaseEvent) error) error
}

type eventSink interface {
	Publish(ctx context.Context, event events.Event) error
}

const publishTimeout = 5 * time.Second

// Forward copies every lifecycle event from the in-process bus to sink until
// ctx is done.
func Forward(ctx context.Context, bus eventSource, sink eventSink) error {
	return bus.Listen(ctx, events.TopicLifecycle, func(e events.BaseEvent) error {
		pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()
		return sink.Publish(pubCtx, e)
	})
}
