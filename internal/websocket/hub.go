package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"manual-chatbot-be/internal/mapper"
	"manual-chatbot-be/internal/pkg/logger"
	"manual-chatbot-be/pkg/events"
	"manual-chatbot-be/pkg/session"
)

const logModule = "Hub"

// SnapshotSource is where the hub reads the current state of a session.
type SnapshotSource interface {
	Get(id string) (session.Session, bool)
}

type eventSource interface {
	Listen(ctx context.Context, topic string, handler func(events.BaseEvent) error) error
}

// Hub fans session progress out to the websocket clients watching it.
// Every push is the registry's current snapshot, never the event payload,
// so clients always converge on the latest state even if events race.
type Hub struct {
	// Registered clients: SessionID -> watchers
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	mu sync.RWMutex

	sessions SnapshotSource
	mapper   *mapper.SessionMapper
	logger   logger.ILogger
}

func NewHub(sessions SnapshotSource, log logger.ILogger) *Hub {
	return &Hub{
		clients:    make(map[string][]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		sessions:   sessions,
		mapper:     mapper.NewSessionMapper(),
		logger:     log,
	}
}

// Listen subscribes the hub to the progress topic of bus.
func (h *Hub) Listen(ctx context.Context, bus eventSource) error {
	return bus.Listen(ctx, events.TopicProgress, h.HandleEvent)
}

// Run owns client registration until ctx is done, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.SessionID] = append(h.clients[client.SessionID], client)
			h.mu.Unlock()
			h.logger.Debug(logModule, "Client registered", map[string]interface{}{"session_id": client.SessionID})

			// First frame is the state at connect time.
			h.pushSnapshot(client.SessionID)

		case client := <-h.unregister:
			h.remove(client)

		case <-ctx.Done():
			h.mu.Lock()
			for id, clients := range h.clients {
				for _, c := range clients {
					close(c.Send)
				}
				delete(h.clients, id)
			}
			h.mu.Unlock()
			return
		}
	}
}

// attach and detach give up once Run has returned.
func (h *Hub) attach(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) detach(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.clients[client.SessionID]
	if !ok {
		return
	}
	for i, c := range clients {
		if c == client {
			h.clients[client.SessionID] = append(clients[:i], clients[i+1:]...)
			close(client.Send)
			break
		}
	}
	if len(h.clients[client.SessionID]) == 0 {
		delete(h.clients, client.SessionID)
		h.logger.Debug(logModule, "No more watchers", map[string]interface{}{"session_id": client.SessionID})
	}
}

// HandleEvent reacts to one progress-topic event.
func (h *Hub) HandleEvent(e events.BaseEvent) error {
	id := e.SessionID()
	if id == "" {
		return nil
	}
	if e.Type == events.TypeSessionDeleted {
		h.broadcast(id, h.mapper.ToDeletedMessage(id))
		return nil
	}
	h.pushSnapshot(id)
	return nil
}

func (h *Hub) pushSnapshot(id string) {
	s, ok := h.sessions.Get(id)
	if !ok {
		h.broadcast(id, h.mapper.ToDeletedMessage(id))
		return
	}
	h.broadcast(id, h.mapper.ToStreamMessage(s))
}

func (h *Hub) broadcast(id string, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error(logModule, "Failed to encode frame", map[string]interface{}{"error": err.Error()})
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients[id] {
		client.offer(data)
	}
}

// Watchers reports how many clients follow a session.
func (h *Hub) Watchers(id string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[id])
}
