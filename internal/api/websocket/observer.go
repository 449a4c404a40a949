package websocket

import (
	"log"

	"github.com/ramonehamilton/MTG-Collection/internal/events"
)

// Observer forwards domain events to the websocket clients of the event's
// user.
type Observer struct {
	name string
	hub  *Hub
}

// NewObserver creates an observer that forwards events to hub.
func NewObserver(hub *Hub) *Observer {
	return &Observer{
		name: "WebSocketObserver",
		hub:  hub,
	}
}

// OnEvent forwards the event.
func (o *Observer) OnEvent(event events.Event) error {
	if o.hub == nil {
		log.Printf("[%s] Cannot emit event %s: hub is nil", o.name, event.Type)
		return nil
	}

	o.hub.SendEvent(event.UserID, Event{Type: event.Type, Data: event.Data})
	return nil
}

// GetName returns the observer's name.
func (o *Observer) GetName() string {
	return o.name
}

// ShouldHandle returns true for every event type.
func (o *Observer) ShouldHandle(string) bool {
	return true
}

var _ events.Observer = (*Observer)(nil)
