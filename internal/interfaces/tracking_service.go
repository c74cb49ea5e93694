package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/shiftlog/internal/models"
)

// TrackingService records and serves the audit trail of timer transitions
type TrackingService interface {
	// Record appends an event for the subject.
	Record(ctx context.Context, subjectID string, eventType models.TrackingEventType, timestamp time.Time) (*models.TrackingEvent, error)

	// ListRecent returns the subject's most recent events, newest first, once
	// the requester is authorized to view them.
	ListRecent(ctx context.Context, requester models.Identity, subjectID string) ([]*models.TrackingEvent, error)
}

// Authorizer decides whether a caller may read a subject's tracking history
type Authorizer interface {
	CanViewTracking(requester models.Identity, subjectID string) error
}
