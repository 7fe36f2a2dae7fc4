package interfaces

import "context"

// EventType identifies a scan lifecycle event.
type EventType string

const (
	EventScanStarted   EventType = "scan_started"
	EventScanCompleted EventType = "scan_completed"
	EventSlotsFound    EventType = "slots_found"
)

// Event carries an event type plus a JSON-serializable payload.
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload"`
}

// EventHandler receives published events.
type EventHandler func(ctx context.Context, event Event)

// EventService provides pub/sub distribution of scan events.
type EventService interface {
	Subscribe(eventType EventType, handler EventHandler)
	Publish(ctx context.Context, event Event)
}
