package websocket

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// ServeWs attaches a connection to the hub for sessionID and blocks until
// the peer goes away.
func ServeWs(hub *Hub, c *websocket.Conn, sessionID string) {
	client := &Client{
		Hub:       hub,
		Conn:      c,
		SessionID: sessionID,
		Send:      make(chan []byte, sendBuffer),
		logger:    hub.logger,
	}
	if !hub.attach(client) {
		_ = c.Close()
		return
	}

	go client.writePump()
	client.readPump()
}

// Handler upgrades /session/:id/ws requests. Unknown sessions are rejected
// before the upgrade.
func Handler(hub *Hub) []fiber.Handler {
	guard := func(ctx *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(ctx) {
			return fiber.ErrUpgradeRequired
		}
		if _, ok := hub.sessions.Get(ctx.Params("id")); !ok {
			return fiber.NewError(fiber.StatusNotFound, "session not found")
		}
		return ctx.Next()
	}
	upgrade := websocket.New(func(c *websocket.Conn) {
		ServeWs(hub, c, c.Params("id"))
	})
	return []fiber.Handler{guard, upgrade}
}
