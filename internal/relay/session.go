package relay

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"basegraph.app/chat/common/logger"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Session is one Connected WebSocket. It moves to Disconnected when either
// pump exits; it is never reused.
type Session struct {
	id     string
	userID string
	conn   *websocket.Conn
	hub    *Hub
	send   chan []byte

	mu     sync.Mutex
	closed bool
}

func newSession(hub *Hub, conn *websocket.Conn, userID string) *Session {
	return &Session{
		id:     uuid.NewString(),
		userID: userID,
		conn:   conn,
		hub:    hub,
		send:   make(chan []byte, hub.cfg.SendBuffer),
	}
}

func (s *Session) ID() string     { return s.id }
func (s *Session) UserID() string { return s.userID }

// enqueue never blocks. It reports false when the frame was dropped.
func (s *Session) enqueue(frame []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.send <- frame:
		return true
	default:
		return false
	}
}

func (s *Session) closeSend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.send)
	}
}

// run serves the session until the connection ends.
func (s *Session) run(ctx context.Context) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		SessionID: logger.Ptr(s.id),
		UserID:    logger.Ptr(s.userID),
		Component: "chat.relay.session",
	})

	s.hub.register(s)
	slog.InfoContext(ctx, "relay session connected", "sessions", s.hub.Len())

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.writePump(ctx)
	}()

	s.readPump(ctx)
	s.hub.unregister(s)
	<-done
	slog.InfoContext(ctx, "relay session disconnected", "sessions", s.hub.Len())
}

func (s *Session) readPump(ctx context.Context) {
	s.conn.SetReadLimit(s.hub.cfg.MaxFrameBytes)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.DebugContext(ctx, "relay session read ended", "error", err)
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			slog.DebugContext(ctx, "ignoring malformed frame", "error", err)
			continue
		}
		switch frame.Type {
		case FrameSendMessage:
			if len(frame.Message) == 0 {
				continue
			}
			// published from this goroutine so one sender's frames keep their order
			s.hub.forward(ctx, frame.Message)
		default:
			slog.DebugContext(ctx, "ignoring unknown frame type", "type", frame.Type)
		}
	}
}

func (s *Session) writePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				if !errors.Is(err, websocket.ErrCloseSent) {
					slog.DebugContext(ctx, "relay session write failed", "error", err)
				}
				s.closeSend()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
