package tracking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/shiftlog/internal/common"
	"github.com/ternarybob/shiftlog/internal/interfaces"
	"github.com/ternarybob/shiftlog/internal/models"
)

// Service implements TrackingService: append-only writes, authorized reads
// and a short-lived per-subject read cache.
type Service struct {
	storage    interfaces.TrackingEventStorage
	authorizer interfaces.Authorizer
	events     interfaces.EventService
	cache      *historyCache
	limit      int
	logger     arbor.ILogger
	now        func() time.Time
}

// NewService creates a new tracking service from the [tracking] config section
func NewService(storage interfaces.TrackingEventStorage, authorizer interfaces.Authorizer, events interfaces.EventService, config common.TrackingConfig, logger arbor.ILogger) (*Service, error) {
	cache, err := newHistoryCache(config.CacheMaxEntries, common.ParseDuration(config.CacheTTL, 0))
	if err != nil {
		return nil, err
	}

	limit := config.HistoryLimit
	if limit <= 0 {
		limit = 100
	}

	return &Service{
		storage:    storage,
		authorizer: authorizer,
		events:     events,
		cache:      cache,
		limit:      limit,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}, nil
}

// Record appends an event for the subject and announces it on the event bus
func (s *Service) Record(ctx context.Context, subjectID string, eventType models.TrackingEventType, timestamp time.Time) (*models.TrackingEvent, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, fmt.Errorf("%w: subjectId is required", interfaces.ErrValidation)
	}
	if !eventType.IsValid() {
		return nil, fmt.Errorf("%w: unknown event type %q", interfaces.ErrValidation, eventType)
	}

	now := s.now()
	if timestamp.IsZero() {
		timestamp = now
	}

	event := &models.TrackingEvent{
		ID:        common.NewTrackingEventID(),
		SubjectID: subjectID,
		EventType: eventType,
		Timestamp: timestamp.UTC(),
		CreatedAt: now,
	}

	if err := s.storage.Append(ctx, event); err != nil {
		return nil, err
	}
	s.cache.invalidate(subjectID)

	s.logger.Debug().
		Str("subject_id", subjectID).
		Str("event_type", string(eventType)).
		Str("event_id", event.ID).
		Msg("Tracking event recorded")

	if s.events != nil {
		if err := s.events.Publish(ctx, interfaces.Event{Type: interfaces.EventTrackingRecorded, Payload: event}); err != nil {
			s.logger.Warn().Err(err).Str("event_id", event.ID).Msg("Failed to publish tracking event")
		}
	}

	return event, nil
}

// ListRecent returns the subject's latest events, newest first. The
// authorization check runs before any storage or cache access.
func (s *Service) ListRecent(ctx context.Context, requester models.Identity, subjectID string) ([]*models.TrackingEvent, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, fmt.Errorf("%w: userId is required", interfaces.ErrValidation)
	}
	if err := s.authorizer.CanViewTracking(requester, subjectID); err != nil {
		return nil, err
	}

	if events, ok := s.cache.get(subjectID); ok {
		return events, nil
	}

	events, err := s.storage.ListBySubject(ctx, subjectID, s.limit)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []*models.TrackingEvent{}
	}

	s.cache.set(subjectID, events)
	return events, nil
}

// Close releases the cache
func (s *Service) Close() error {
	s.cache.close()
	return nil
}
