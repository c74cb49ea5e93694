package badger

import (
	"context"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/shiftlog/internal/interfaces"
	"github.com/ternarybob/shiftlog/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// TrackingEventStorage implements the TrackingEventStorage interface for Badger
type TrackingEventStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewTrackingEventStorage creates a new TrackingEventStorage instance
func NewTrackingEventStorage(db *BadgerDB, logger arbor.ILogger) interfaces.TrackingEventStorage {
	return &TrackingEventStorage{
		db:     db,
		logger: logger,
	}
}

// Append inserts a new event. Inserting an existing ID fails, events are immutable.
func (s *TrackingEventStorage) Append(ctx context.Context, event *models.TrackingEvent) error {
	if event.ID == "" {
		return fmt.Errorf("%w: tracking event ID is required", interfaces.ErrValidation)
	}

	// The SubjectID index entry is shared by all events of a subject, so
	// concurrent appends for one subject can conflict and are retried.
	return s.db.update(ctx, func(txn *badger.Txn) error {
		if err := s.db.Store().TxInsert(txn, event.ID, event); err != nil {
			return fmt.Errorf("failed to append tracking event %s: %w", event.ID, err)
		}
		return nil
	})
}

// ListBySubject returns up to limit events for the subject, newest first
func (s *TrackingEventStorage) ListBySubject(ctx context.Context, subjectID string, limit int) ([]*models.TrackingEvent, error) {
	query := badgerhold.Where("SubjectID").Eq(subjectID).Index("SubjectID").SortBy("Timestamp", "CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var events []models.TrackingEvent
	if err := s.db.Store().Find(&events, query); err != nil {
		return nil, fmt.Errorf("failed to list tracking events for %s: %w", subjectID, err)
	}

	result := make([]*models.TrackingEvent, len(events))
	for i := range events {
		result[i] = &events[i]
	}
	return result, nil
}
