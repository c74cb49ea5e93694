package common

import (
	"github.com/google/uuid"
)

// NewTrackingEventID generates a unique tracking event ID with the "evt_" prefix
// Format: evt_<uuid>
func NewTrackingEventID() string {
	return "evt_" + uuid.New().String()
}

// NewRequestID generates a correlation ID for an inbound HTTP request
func NewRequestID() string {
	return uuid.New().String()
}
