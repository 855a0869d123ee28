package relay

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"basegraph.app/chat/common/logger"
	"basegraph.app/chat/internal/model"
)

type Config struct {
	// SendBuffer is the per-session queue length. Frames beyond it are dropped.
	SendBuffer int
	// FilterByReceiver limits message frames to their sender and receiver.
	// Off means every connected session gets every frame.
	FilterByReceiver bool
	MaxFrameBytes    int64
}

// Hub fans frames out to every connected session. Delivery is best effort:
// no acknowledgement, retry or replay.
type Hub struct {
	mu       sync.RWMutex
	sessions map[*Session]struct{}
	cfg      Config
	metrics  *Metrics
}

func NewHub(cfg Config, metrics *Metrics) *Hub {
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 256
	}
	if cfg.MaxFrameBytes <= 0 {
		cfg.MaxFrameBytes = 64 * 1024
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Hub{
		sessions: make(map[*Session]struct{}),
		cfg:      cfg,
		metrics:  metrics,
	}
}

func (h *Hub) register(s *Session) {
	h.mu.Lock()
	h.sessions[s] = struct{}{}
	n := len(h.sessions)
	h.mu.Unlock()
	h.metrics.sessions.Set(float64(n))
}

func (h *Hub) unregister(s *Session) {
	h.mu.Lock()
	_, ok := h.sessions[s]
	delete(h.sessions, s)
	n := len(h.sessions)
	h.mu.Unlock()
	if ok {
		s.closeSend()
		h.metrics.sessions.Set(float64(n))
	}
}

// Len returns the number of connected sessions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Publish implements service.EventSink.
func (h *Hub) Publish(ctx context.Context, event model.Event) {
	frame, err := json.Marshal(event)
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode relay event", "event_type", event.Type, "error", err)
		return
	}
	aud := audience{}
	if event.Type == model.EventMessageCreated {
		aud = audienceOf(event.Message)
	}
	h.broadcast(ctx, string(event.Type), frame, aud)
}

// forward re-emits a client's send_message payload unchanged.
func (h *Hub) forward(ctx context.Context, payload json.RawMessage) {
	frame, err := json.Marshal(Frame{Type: string(model.EventMessageCreated), Message: payload})
	if err != nil {
		slog.WarnContext(ctx, "dropping unencodable frame", "error", err)
		return
	}
	h.broadcast(ctx, string(model.EventMessageCreated), frame, audienceOfRaw(payload))
}

func (h *Hub) broadcast(ctx context.Context, eventType string, frame []byte, aud audience) {
	h.metrics.published.WithLabelValues(eventType).Inc()

	h.mu.RLock()
	defer h.mu.RUnlock()

	var delivered, dropped int
	for s := range h.sessions {
		if h.cfg.FilterByReceiver && !aud.includes(s.userID) {
			continue
		}
		if s.enqueue(frame) {
			delivered++
		} else {
			dropped++
		}
	}
	h.metrics.delivered.Add(float64(delivered))
	h.metrics.dropped.Add(float64(dropped))

	if dropped > 0 {
		slog.WarnContext(logger.WithLogFields(ctx, logger.LogFields{EventType: logger.Ptr(eventType), Component: "chat.relay.hub"}),
			"relay dropped frames for slow sessions", "dropped", dropped, "delivered", delivered)
	}
}

// Close disconnects every session.
func (h *Hub) Close() {
	h.mu.Lock()
	sessions := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.sessions = make(map[*Session]struct{})
	h.mu.Unlock()

	for _, s := range sessions {
		s.closeSend()
	}
	h.metrics.sessions.Set(0)
}
