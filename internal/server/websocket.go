package server

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"warhorse/internal/observability"
	"warhorse/internal/realtime"
)

// upgradeGuard rejects plain HTTP requests to the socket endpoint.
func upgradeGuard(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		c.Locals("allowed", true)
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// socketHandler owns one connection's lifecycle: session setup, the two
// pumps, and teardown. The read pump runs on the fiber-owned goroutine so
// the handler returns only when the peer is gone.
func (s *Server) socketHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		ctx := context.Background()
		if reqID, ok := conn.Locals("requestid").(string); ok {
			ctx = observability.WithRequestID(ctx, reqID)
		}

		sess := realtime.NewSession(conn)
		sess.IncomingHandler = func(sess *realtime.Session, raw []byte) {
			s.HandleFrame(ctx, sess, raw)
		}

		s.HandleConnect(ctx, sess)

		go sess.WritePump()
		sess.ReadPump()

		sess.Close()
		s.HandleDisconnect(ctx, sess)
	})
}
