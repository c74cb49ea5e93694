package events

import (
	"context"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/shiftlog/internal/interfaces"
	"github.com/ternarybob/shiftlog/internal/models"
)

// subjectOf extracts the subject and a short detail from known payloads
func subjectOf(payload interface{}) (subject, detail string) {
	switch p := payload.(type) {
	case *models.TrackingEvent:
		return p.SubjectID, string(p.EventType)
	case *models.TimerRecord:
		return p.SubjectID, fmt.Sprintf("working=%t", p.IsWorking)
	}
	return "", ""
}

// NewLoggerSubscriber returns a handler that writes each event at debug level
func NewLoggerSubscriber(logger arbor.ILogger) interfaces.EventHandler {
	return func(ctx context.Context, event interfaces.Event) error {
		subject, detail := subjectOf(event.Payload)
		logger.Debug().
			Str("event_type", string(event.Type)).
			Str("subject_id", subject).
			Str("detail", detail).
			Msg("Event published")
		return nil
	}
}

// SubscribeLoggerToAllEvents attaches one logger subscriber to every event type
func SubscribeLoggerToAllEvents(eventService interfaces.EventService, logger arbor.ILogger) error {
	subscriber := NewLoggerSubscriber(logger)
	for _, eventType := range []interfaces.EventType{
		interfaces.EventTrackingRecorded,
		interfaces.EventTimerAutoPaused,
	} {
		if err := eventService.Subscribe(eventType, subscriber); err != nil {
			return fmt.Errorf("subscribe logger to %s: %w", eventType, err)
		}
	}
	return nil
}
