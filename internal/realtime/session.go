package realtime

import (
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"warhorse/internal/observability"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 16384

	// Outbound buffer per session before backpressure drops kick in.
	sendBufferSize = 256
)

// Session is one live socket connection. It starts anonymous; the dispatcher
// binds it to a user on login or registration through the Registry.
//
// All outbound traffic goes through the buffered Send channel so no caller
// ever blocks on a slow peer; the write pump is the only goroutine touching
// the connection for writes.
type Session struct {
	ID string

	// The websocket connection. Nil in tests that only exercise the
	// channel plumbing.
	Conn *websocket.Conn

	// Buffered channel of outbound frames.
	Send chan []byte

	// Callback for inbound frames, invoked serially by the read pump.
	IncomingHandler func(*Session, []byte)

	closeOnce sync.Once
}

// NewSession wraps a connection in a Session with a fresh id.
func NewSession(conn *websocket.Conn) *Session {
	return &Session{
		ID:   uuid.NewString(),
		Conn: conn,
		Send: make(chan []byte, sendBufferSize),
	}
}

// ReadPump reads frames from the socket and hands each to IncomingHandler,
// in arrival order. It returns when the peer disconnects or errors. The
// caller owns post-disconnect cleanup.
func (s *Session) ReadPump() {
	defer func() {
		_ = s.Conn.Close()
	}()

	s.Conn.SetReadLimit(maxMessageSize)
	_ = s.Conn.SetReadDeadline(time.Now().Add(pongWait))
	s.Conn.SetPongHandler(func(string) error {
		_ = s.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := s.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				observability.GlobalLogger.Warn("session read failed",
					"session_id", s.ID, "error", err.Error())
			}
			return
		}
		if s.IncomingHandler != nil {
			s.IncomingHandler(s, message)
		}
	}
}

// WritePump drains the Send channel onto the socket and keeps the
// connection alive with pings. It exits when Send is closed or a write
// fails.
func (s *Session) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-s.Send:
			_ = s.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := s.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = s.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// TrySend queues a frame without blocking. Frames to a full or closed
// session are dropped and counted; a dropped frame never fails the command
// that produced it.
func (s *Session) TrySend(frame []byte) {
	defer func() {
		if r := recover(); r != nil {
			observability.BackpressureDrops.WithLabelValues("socket", "closed").Inc()
		}
	}()

	select {
	case s.Send <- frame:
	default:
		observability.BackpressureDrops.WithLabelValues("socket", "full").Inc()
		observability.GlobalLogger.Warn("session send buffer full, frame dropped",
			"session_id", s.ID)
	}
}

// Close closes the outbound channel, letting the write pump flush and shut
// the connection. Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		close(s.Send)
	})
}
