package interfaces

import "context"

// EventType names a topic on the in-process bus
type EventType string

const (
	// EventTrackingRecorded follows a successful tracking append. Payload is *models.TrackingEvent.
	EventTrackingRecorded EventType = "tracking_recorded"

	// EventTimerAutoPaused is raised once per timer the sweep paused. Payload is *models.TimerRecord.
	EventTimerAutoPaused EventType = "timer_auto_paused"
)

type Event struct {
	Type    EventType
	Payload interface{}
}

type EventHandler func(ctx context.Context, event Event) error

// EventService fans events out to subscribers. Delivery is best effort and
// never feeds back into the transition that raised the event.
type EventService interface {
	Subscribe(eventType EventType, handler EventHandler) error

	// Publish returns before handlers run
	Publish(ctx context.Context, event Event) error

	// PublishSync returns the joined handler errors
	PublishSync(ctx context.Context, event Event) error

	// Close stops delivery and waits for running handlers
	Close() error
}
