package sse

import (
	"log/slog"

	"github.com/mcoot/pongmatch-go/internal/events"
	"github.com/mcoot/pongmatch-go/internal/model"
)

// Broadcaster publishes match events to the hub of their room
type Broadcaster struct {
	hubManager *HubManager
	logger     *slog.Logger
}

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(hubManager *HubManager, logger *slog.Logger) *Broadcaster {
	return &Broadcaster{
		hubManager: hubManager,
		logger:     logger.With(slog.String("component", "sse-broadcaster")),
	}
}

// Publish sends the event to everyone watching its room. The hub of an
// ended room is closed once the end event has gone out.
func (b *Broadcaster) Publish(event model.Event) {
	hub := b.hubManager.GetHub(event.RoomID)
	if hub == nil {
		return
	}

	data, err := events.Encode(event)
	if err != nil {
		b.logger.Error("sse failed to encode event",
			slog.String("room_id", string(event.RoomID)),
			slog.String("type", string(event.Type)),
			slog.Any("error", err))
		return
	}
	hub.BroadcastEvent(string(event.Type), string(data))

	if event.Type == model.EventMatchEnd {
		b.hubManager.RemoveHub(event.RoomID)
	}
}
