package service

import (
	"context"

	"basegraph.app/chat/internal/model"
)

// EventSink receives state changes after they are committed. Publish must
// not block on slow receivers.
type EventSink interface {
	Publish(ctx context.Context, event model.Event)
}

type nopSink struct{}

func (nopSink) Publish(context.Context, model.Event) {}

// NopSink discards events.
func NopSink() EventSink {
	return nopSink{}
}
