package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"manual-chatbot-be/internal/dto"
	"manual-chatbot-be/internal/pkg/logger"
	"manual-chatbot-be/pkg/events"
	"manual-chatbot-be/pkg/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(h *Hub, sessionID string) *Client {
	return &Client{Hub: h, SessionID: sessionID, Send: make(chan []byte, sendBuffer), logger: logger.NewNop()}
}

func nextFrame(t *testing.T, c *Client) dto.SessionStreamMessage {
	t.Helper()
	select {
	case raw, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		var msg dto.SessionStreamMessage
		require.NoError(t, json.Unmarshal(raw, &msg))
		return msg
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
		return dto.SessionStreamMessage{}
	}
}

func setup(t *testing.T) (*Hub, *session.Registry, context.CancelFunc) {
	t.Helper()
	reg, err := session.NewRegistry(t.TempDir(), logger.NewNop())
	require.NoError(t, err)

	hub := NewHub(reg, logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	return hub, reg, cancel
}

func TestHub_SnapshotOnRegisterAndOnEvent(t *testing.T) {
	hub, reg, cancel := setup(t)
	defer cancel()

	s, err := reg.Create("Auris")
	require.NoError(t, err)

	client := newTestClient(hub, s.ID)
	require.True(t, hub.attach(client))

	first := nextFrame(t, client)
	assert.Equal(t, "progress", first.Type)
	assert.Equal(t, "created", first.Session.Status)

	require.NoError(t, reg.AddUploadedFile(s.ID, "manual.pdf"))
	require.NoError(t, hub.HandleEvent(events.NewSessionEvent(events.TypeSessionProgress, s.ID, nil)))

	second := nextFrame(t, client)
	assert.Equal(t, "uploading", second.Session.Status)
	assert.Equal(t, []string{"manual.pdf"}, second.Session.PdfFiles)
}

func TestHub_DeletedSession(t *testing.T) {
	hub, reg, cancel := setup(t)
	defer cancel()

	s, err := reg.Create("Auris")
	require.NoError(t, err)

	client := newTestClient(hub, s.ID)
	require.True(t, hub.attach(client))
	nextFrame(t, client)

	reg.Delete(s.ID)
	require.NoError(t, hub.HandleEvent(events.NewSessionEvent(events.TypeSessionDeleted, s.ID, nil)))

	msg := nextFrame(t, client)
	assert.Equal(t, "deleted", msg.Type)
	assert.Equal(t, s.ID, msg.SessionId)
	assert.Nil(t, msg.Session)
}

func TestHub_OtherSessionsNotNotified(t *testing.T) {
	hub, reg, cancel := setup(t)
	defer cancel()

	a, _ := reg.Create("A")
	b, _ := reg.Create("B")

	client := newTestClient(hub, a.ID)
	require.True(t, hub.attach(client))
	nextFrame(t, client)

	require.NoError(t, hub.HandleEvent(events.NewSessionEvent(events.TypeSessionProgress, b.ID, nil)))

	select {
	case <-client.Send:
		t.Fatal("client received a frame for another session")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_DetachClosesSend(t *testing.T) {
	hub, reg, cancel := setup(t)
	defer cancel()

	s, _ := reg.Create("Auris")
	client := newTestClient(hub, s.ID)
	require.True(t, hub.attach(client))
	nextFrame(t, client)

	hub.detach(client)

	assert.Eventually(t, func() bool { return hub.Watchers(s.ID) == 0 }, time.Second, 10*time.Millisecond)
	_, ok := <-client.Send
	assert.False(t, ok)
}

func TestHub_ShutdownReleasesClients(t *testing.T) {
	hub, reg, cancel := setup(t)

	s, _ := reg.Create("Auris")
	client := newTestClient(hub, s.ID)
	require.True(t, hub.attach(client))
	nextFrame(t, client)

	cancel()
	<-hub.done

	_, ok := <-client.Send
	assert.False(t, ok)
	assert.False(t, hub.attach(newTestClient(hub, s.ID)))

	// must not block after shutdown
	hub.detach(client)
}

func TestClient_OfferKeepsNewest(t *testing.T) {
	c := &Client{Send: make(chan []byte, 1), logger: logger.NewNop()}

	c.offer([]byte("old"))
	c.offer([]byte("new"))

	assert.Equal(t, "new", string(<-c.Send))
}

func TestHub_ListenOnBus(t *testing.T) {
	hub, reg, cancel := setup(t)
	defer cancel()

	bus := events.NewBus(logger.NewNop())
	defer bus.Close()
	reg.SetNotifier(events.NewSessionNotifier(bus, logger.NewNop()))

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	require.NoError(t, hub.Listen(ctx, bus))

	s, err := reg.Create("Auris")
	require.NoError(t, err)

	client := newTestClient(hub, s.ID)
	require.True(t, hub.attach(client))
	nextFrame(t, client)

	require.NoError(t, reg.AddUploadedFile(s.ID, "manual.pdf"))

	assert.Eventually(t, func() bool {
		select {
		case raw := <-client.Send:
			var msg dto.SessionStreamMessage
			return json.Unmarshal(raw, &msg) == nil && msg.Session != nil && msg.Session.Status == "uploading"
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}
