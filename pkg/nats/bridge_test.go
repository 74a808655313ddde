package nats

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"manual-chatbot-be/internal/pkg/logger"
	"manual-chatbot-be/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memorySink struct {
	mu     sync.Mutex
	events []events.Event
	fail   bool
}

func (s *memorySink) Publish(ctx context.Context, e events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("nats down")
	}
	s.events = append(s.events, e)
	return nil
}

func (s *memorySink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "events.session.ready", Subject(events.TypeSessionReady))
}

func TestForward_OnlyLifecycle(t *testing.T) {
	bus := events.NewBus(logger.NewNop())
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &memorySink{}
	require.NoError(t, Forward(ctx, bus, sink))

	require.NoError(t, bus.Publish(events.TopicProgress, events.NewSessionEvent(events.TypeSessionProgress, "s1", nil)))
	require.NoError(t, bus.Publish(events.TopicLifecycle, events.NewSessionEvent(events.TypeSessionReady, "s1", nil)))

	assert.Eventually(t, func() bool { return sink.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	sink.mu.Lock()
	assert.Equal(t, events.TypeSessionReady, sink.events[0].EventType())
	sink.mu.Unlock()
}

func TestForward_SinkErrorDoesNotStopForwarding(t *testing.T) {
	bus := events.NewBus(logger.NewNop())
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := &memorySink{fail: true}
	require.NoError(t, Forward(ctx, bus, sink))

	require.NoError(t, bus.Publish(events.TopicLifecycle, events.NewSessionEvent(events.TypeSessionFailed, "s1", nil)))
	time.Sleep(50 * time.Millisecond)

	sink.mu.Lock()
	sink.fail = false
	sink.mu.Unlock()

	require.NoError(t, bus.Publish(events.TopicLifecycle, events.NewSessionEvent(events.TypeSessionDeleted, "s1", nil)))
	assert.Eventually(t, func() bool { return sink.count() == 1 }, 2*time.Second, 10*time.Millisecond)
}
