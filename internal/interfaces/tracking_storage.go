package interfaces

import (
	"context"

	"github.com/ternarybob/shiftlog/internal/models"
)

// TrackingEventStorage is the append-only tracking event log.
type TrackingEventStorage interface {
	// Append writes a new event. Events are never updated or deleted.
	Append(ctx context.Context, event *models.TrackingEvent) error

	// ListBySubject returns up to limit events for the subject, newest first.
	ListBySubject(ctx context.Context, subjectID string, limit int) ([]*models.TrackingEvent, error)
}
