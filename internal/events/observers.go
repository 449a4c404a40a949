package events

import (
	"log"
)

// LoggingObserver logs events. Progress events are only logged when
// verbose, since an import emits one per row.
type LoggingObserver struct {
	name    string
	verbose bool
}

// NewLoggingObserver creates a new observer that logs events.
func NewLoggingObserver(verbose bool) *LoggingObserver {
	return &LoggingObserver{
		name:    "LoggingObserver",
		verbose: verbose,
	}
}

// OnEvent logs the event.
func (o *LoggingObserver) OnEvent(event Event) error {
	if o.verbose {
		log.Printf("[%s] Event: %s, User: %s, Data: %+v", o.name, event.Type, event.UserID, event.Data)
	} else {
		log.Printf("[%s] Event: %s", o.name, event.Type)
	}
	return nil
}

// GetName returns the observer's name.
func (o *LoggingObserver) GetName() string {
	return o.name
}

// ShouldHandle skips per-row progress unless verbose.
func (o *LoggingObserver) ShouldHandle(eventType string) bool {
	return o.verbose || eventType != TypeImportProgress
}
