package models

import "time"

// TrackingEventType names a timer state transition recorded for audit.
type TrackingEventType string

const (
	TrackingEventResumed        TrackingEventType = "Resumed"
	TrackingEventPaused         TrackingEventType = "Paused"
	TrackingEventTimeLogged     TrackingEventType = "TimeLogged"
	TrackingEventAutomaticPause TrackingEventType = "AutomaticPause"
)

// IsValid reports whether t is one of the known event types.
func (t TrackingEventType) IsValid() bool {
	switch t {
	case TrackingEventResumed, TrackingEventPaused, TrackingEventTimeLogged, TrackingEventAutomaticPause:
		return true
	}
	return false
}

// TrackingEvent is an immutable audit entry; it is never updated or deleted.
type TrackingEvent struct {
	ID        string            `json:"id"`
	SubjectID string            `json:"subjectId" badgerhold:"index"`
	EventType TrackingEventType `json:"eventType"`
	Timestamp time.Time         `json:"timestamp"`
	CreatedAt time.Time         `json:"createdAt"`
}
