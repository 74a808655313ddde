package events

import (
	"sync"

	"manual-chatbot-be/internal/pkg/logger"
	"manual-chatbot-be/pkg/session"
)

type publisher interface {
	Publish(topic string, event Event) error
}

type runState struct {
	run       int
	announced bool
}

// SessionNotifier turns registry mutations into bus events. Every change goes
// to TopicProgress; creation, the end of each run and deletion also go to
// TopicLifecycle, once each.
type SessionNotifier struct {
	bus    publisher
	logger logger.ILogger

	mu    sync.Mutex
	state map[string]runState
}

func NewSessionNotifier(bus publisher, log logger.ILogger) *SessionNotifier {
	return &SessionNotifier{
		bus:    bus,
		logger: log,
		state:  make(map[string]runState),
	}
}

func (n *SessionNotifier) SessionChanged(s session.Session) {
	n.publish(TopicProgress, NewSessionEvent(TypeSessionProgress, s.ID, map[string]interface{}{
		"status":  string(s.Progress.Status),
		"percent": s.Progress.Percent,
		"run":     s.Progress.Run,
	}))

	if lifecycle, ok := n.transition(s); ok {
		n.publish(TopicLifecycle, lifecycle)
	}
}

func (n *SessionNotifier) SessionDeleted(id string) {
	n.mu.Lock()
	delete(n.state, id)
	n.mu.Unlock()

	deleted := NewSessionEvent(TypeSessionDeleted, id, nil)
	n.publish(TopicProgress, deleted)
	n.publish(TopicLifecycle, deleted)
}

// transition decides whether s is a lifecycle edge. Snapshots can arrive out
// of order across goroutines, so a stale run is ignored and a terminal
// status is announced at most once per run.
func (n *SessionNotifier) transition(s session.Session) (BaseEvent, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()

	st, seen := n.state[s.ID]
	if !seen {
		n.state[s.ID] = runState{run: s.Progress.Run}
		return NewSessionEvent(TypeSessionCreated, s.ID, map[string]interface{}{
			"label": s.Label,
		}), true
	}

	if s.Progress.Run < st.run {
		return BaseEvent{}, false
	}
	if s.Progress.Run > st.run {
		st = runState{run: s.Progress.Run}
	}

	var eventType string
	data := map[string]interface{}{"run": s.Progress.Run}
	switch s.Progress.Status {
	case session.StatusReady:
		eventType = TypeSessionReady
		data["pages"] = s.Progress.ProcessedUnits
	case session.StatusError:
		eventType = TypeSessionFailed
		data["error"] = s.Progress.Error
	}

	if eventType == "" || st.announced {
		n.state[s.ID] = st
		return BaseEvent{}, false
	}
	st.announced = true
	n.state[s.ID] = st
	return NewSessionEvent(eventType, s.ID, data), true
}

func (n *SessionNotifier) publish(topic string, e BaseEvent) {
	if err := n.bus.Publish(topic, e); err != nil {
		n.logger.Warn(logModule, "Failed to publish event", map[string]interface{}{
			"topic":      topic,
			"event_type": e.Type,
			"error":      err.Error(),
		})
	}
}
