// Package events fans domain events out to observers such as the
// WebSocket hub.
package events

import (
	"log"
	"sync"
)

// Event is a domain event. UserID scopes delivery; an empty UserID goes to
// every listener.
type Event struct {
	Type   string
	UserID string
	Data   any
}

// NewEvent creates an event for one user.
func NewEvent(eventType, userID string, data any) Event {
	return Event{Type: eventType, UserID: userID, Data: data}
}

// Observer receives events.
type Observer interface {
	// OnEvent handles one event. An error is logged and does not stop
	// delivery to other observers.
	OnEvent(event Event) error

	// GetName returns a human-readable name for logging.
	GetName() string

	// ShouldHandle filters the event types the observer cares about.
	ShouldHandle(eventType string) bool
}

// Publisher is the sending side used by services.
type Publisher interface {
	Dispatch(event Event)
}

// EventDispatcher delivers events to registered observers in registration
// order. Safe for concurrent use.
type EventDispatcher struct {
	observers []Observer
	mu        sync.RWMutex
}

// NewEventDispatcher creates a new EventDispatcher.
func NewEventDispatcher() *EventDispatcher {
	return &EventDispatcher{
		observers: make([]Observer, 0),
	}
}

// Register adds an observer.
func (d *EventDispatcher) Register(observer Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.observers = append(d.observers, observer)
	log.Printf("[EventDispatcher] Registered observer: %s", observer.GetName())
}

// Unregister removes an observer.
func (d *EventDispatcher) Unregister(observer Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, obs := range d.observers {
		if obs == observer {
			d.observers = append(d.observers[:i], d.observers[i+1:]...)
			log.Printf("[EventDispatcher] Unregistered observer: %s", observer.GetName())
			return
		}
	}
}

// Dispatch sends event to every interested observer, synchronously.
func (d *EventDispatcher) Dispatch(event Event) {
	d.mu.RLock()
	observers := make([]Observer, len(d.observers))
	copy(observers, d.observers)
	d.mu.RUnlock()

	for _, observer := range observers {
		if !observer.ShouldHandle(event.Type) {
			continue
		}
		if err := observer.OnEvent(event); err != nil {
			log.Printf("[EventDispatcher] Observer %s failed to handle event %s: %v",
				observer.GetName(), event.Type, err)
		}
	}
}

// ObserverCount returns the number of registered observers.
func (d *EventDispatcher) ObserverCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.observers)
}

// GetTypedData extracts the payload of event as T.
func GetTypedData[T any](event Event) (T, bool) {
	typed, ok := event.Data.(T)
	return typed, ok
}

// Discard is a Publisher that drops every event.
var Discard Publisher = discard{}

type discard struct{}

func (discard) Dispatch(Event) {}
