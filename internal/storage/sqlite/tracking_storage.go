package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/shiftlog/internal/interfaces"
	"github.com/ternarybob/shiftlog/internal/models"
)

// TrackingEventStorage implements the TrackingEventStorage interface for SQLite
type TrackingEventStorage struct {
	db     *SQLiteDB
	logger arbor.ILogger
}

// NewTrackingEventStorage creates a new TrackingEventStorage instance
func NewTrackingEventStorage(db *SQLiteDB, logger arbor.ILogger) interfaces.TrackingEventStorage {
	return &TrackingEventStorage{
		db:     db,
		logger: logger,
	}
}

// Append inserts a new event; a duplicate ID violates the primary key
func (s *TrackingEventStorage) Append(ctx context.Context, event *models.TrackingEvent) error {
	if event.ID == "" {
		return fmt.Errorf("%w: tracking event ID is required", interfaces.ErrValidation)
	}

	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO tracking_events (id, subject_id, event_type, timestamp, created_at) VALUES (?, ?, ?, ?, ?)`,
			event.ID, event.SubjectID, string(event.EventType), toNanos(event.Timestamp), toNanos(event.CreatedAt))
		if err != nil {
			return fmt.Errorf("failed to append tracking event %s: %w", event.ID, err)
		}
		return nil
	})
}

// ListBySubject returns up to limit events for the subject, newest first
func (s *TrackingEventStorage) ListBySubject(ctx context.Context, subjectID string, limit int) ([]*models.TrackingEvent, error) {
	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as unbounded
	}

	rows, err := s.db.DB().QueryContext(ctx, `
		SELECT id, subject_id, event_type, timestamp, created_at
		FROM tracking_events
		WHERE subject_id = ?
		ORDER BY timestamp DESC, created_at DESC
		LIMIT ?`, subjectID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tracking events for %s: %w", subjectID, err)
	}
	defer rows.Close()

	events := []*models.TrackingEvent{}
	for rows.Next() {
		var (
			event     models.TrackingEvent
			eventType string
			timestamp int64
			createdAt int64
		)
		if err := rows.Scan(&event.ID, &event.SubjectID, &eventType, &timestamp, &createdAt); err != nil {
			return nil, err
		}
		event.EventType = models.TrackingEventType(eventType)
		event.Timestamp = fromNanos(timestamp)
		event.CreatedAt = fromNanos(createdAt)
		events = append(events, &event)
	}
	return events, rows.Err()
}
