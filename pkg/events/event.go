package events

import "time"

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "session.ready").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Bus topics. Progress carries every registry mutation, lifecycle only the
// transitions worth exporting.
const (
	TopicProgress  = "session.progress"
	TopicLifecycle = "session.lifecycle"
)

const (
	TypeSessionProgress = "session.progress"
	TypeSessionCreated  = "session.created"
	TypeSessionReady    = "session.ready"
	TypeSessionFailed   = "session.failed"
	TypeSessionDeleted  = "session.deleted"
)

type BaseEvent struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// SessionID pulls the "session_id" field out of the payload, if any.
func (e BaseEvent) SessionID() string {
	id, _ := e.Data["session_id"].(string)
	return id
}

// NewSessionEvent builds an event whose payload always carries session_id.
func NewSessionEvent(eventType, sessionID string, data map[string]interface{}) BaseEvent {
	payload := make(map[string]interface{}, len(data)+1)
	for k, v := range data {
		payload[k] = v
	}
	payload["session_id"] = sessionID
	return BaseEvent{
		Type:       eventType,
		Data:       payload,
		OccurredAt: time.Now().UTC(),
	}
}
