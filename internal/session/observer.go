package session

import "time"

// EventType represents the lifecycle phases of a cursor operation
type EventType string

const (
	EventBuildStart EventType = "build_start"
	EventBuildEnd   EventType = "build_end"
	EventStepStart  EventType = "step_start"
	EventStepEnd    EventType = "step_end"
	EventBackStart  EventType = "back_start"
	EventBackEnd    EventType = "back_end"
	EventQueryStart EventType = "query_start"
	EventQueryEnd   EventType = "query_end"
	EventReset      EventType = "reset"
	EventClosed     EventType = "closed"
)

// Event represents a lifecycle event of one session
type Event struct {
	Type      EventType   // Type of event
	UID       string      // Session the event belongs to
	OpID      string      // Correlates the start and end of one operation
	Timestamp time.Time   // When the event occurred
	Data      interface{} // Phase-specific data (offsets, record counts, error)
}

// Observer receives cursor lifecycle events
type Observer interface {
	OnEvent(event Event)
}
