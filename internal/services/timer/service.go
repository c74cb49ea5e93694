package timer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/shiftlog/internal/interfaces"
	"github.com/ternarybob/shiftlog/internal/models"
)

// Service implements TimerService. It keeps no state of its own: every
// transition is a single TimerStorage.ApplyTransition call.
type Service struct {
	storage  interfaces.TimerStorage
	tracking interfaces.TrackingService
	events   interfaces.EventService
	logger   arbor.ILogger
	timeout  time.Duration
	now      func() time.Time
}

// NewService creates a new timer service
func NewService(storage interfaces.TimerStorage, tracking interfaces.TrackingService, events interfaces.EventService, logger arbor.ILogger, timeout time.Duration) *Service {
	return &Service{
		storage:  storage,
		tracking: tracking,
		events:   events,
		logger:   logger,
		timeout:  timeout,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Pause stops the subject's timer. Pausing a paused timer only moves pausedAt.
func (s *Service) Pause(ctx context.Context, subjectID string, pausedAt time.Time) (*interfaces.TimerResult, error) {
	if pausedAt.IsZero() {
		return nil, fmt.Errorf("%w: pausedAt is required", interfaces.ErrValidation)
	}
	pausedAt = pausedAt.UTC()

	result, err := s.apply(ctx, subjectID, func(current *models.TimerRecord) (*models.TimerRecord, error) {
		next := s.base(subjectID, current)
		next.IsWorking = false
		next.PausedAt = &pausedAt
		return next, nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, subjectID, models.TrackingEventPaused, pausedAt)
	return result, nil
}

// Resume restarts the subject's timer
func (s *Service) Resume(ctx context.Context, subjectID string) (*interfaces.TimerResult, error) {
	result, err := s.apply(ctx, subjectID, func(current *models.TimerRecord) (*models.TimerRecord, error) {
		next := s.base(subjectID, current)
		next.IsWorking = true
		next.PausedAt = nil
		return next, nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, subjectID, models.TrackingEventResumed, result.Record.UpdatedAt)
	return result, nil
}

// Apply dispatches a partial PUT body to Pause or Resume
func (s *Service) Apply(ctx context.Context, subjectID string, update interfaces.TimerUpdate) (*interfaces.TimerResult, error) {
	if update.IsWorking == nil {
		return nil, fmt.Errorf("%w: isWorking is required", interfaces.ErrValidation)
	}

	if *update.IsWorking {
		if update.PausedAt != nil {
			return nil, fmt.Errorf("%w: pausedAt must be null while working", interfaces.ErrValidation)
		}
		return s.Resume(ctx, subjectID)
	}

	if update.PausedAt == nil {
		return nil, fmt.Errorf("%w: pausedAt is required when pausing", interfaces.ErrValidation)
	}
	return s.Pause(ctx, subjectID, *update.PausedAt)
}

// GetState returns the stored timer; a subject that never transitioned is ErrNotFound
func (s *Service) GetState(ctx context.Context, subjectID string) (*models.TimerRecord, error) {
	if strings.TrimSpace(subjectID) == "" {
		return nil, fmt.Errorf("%w: subjectId is required", interfaces.ErrValidation)
	}
	return s.storage.Get(ctx, subjectID)
}

// AutoPauseStale pauses every timer that has been working for longer than
// maxWorking. Staleness is re-checked inside each transition, so a timer
// resumed or paused in the meantime is left alone.
func (s *Service) AutoPauseStale(ctx context.Context, maxWorking time.Duration) ([]string, error) {
	if maxWorking <= 0 {
		return nil, fmt.Errorf("%w: max working duration must be positive", interfaces.ErrValidation)
	}

	working, err := s.storage.ListWorking(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list working timers: %w", err)
	}

	var paused []string
	for _, candidate := range working {
		if err := ctx.Err(); err != nil {
			return paused, err
		}

		now := s.now()
		if now.Sub(candidate.UpdatedAt) < maxWorking {
			continue
		}

		result, err := s.apply(ctx, candidate.SubjectID, func(current *models.TimerRecord) (*models.TimerRecord, error) {
			if current == nil || !current.IsWorking || now.Sub(current.UpdatedAt) < maxWorking {
				return nil, fmt.Errorf("%w: timer %s is no longer stale", interfaces.ErrInvalidTransition, candidate.SubjectID)
			}
			next := current.Clone()
			next.IsWorking = false
			next.PausedAt = &now
			return next, nil
		})
		if errors.Is(err, interfaces.ErrInvalidTransition) {
			continue
		}
		if err != nil {
			s.logger.Warn().Err(err).Str("subject_id", candidate.SubjectID).Msg("Auto-pause transition failed")
			continue
		}

		paused = append(paused, candidate.SubjectID)
		s.record(ctx, candidate.SubjectID, models.TrackingEventAutomaticPause, now)

		if s.events != nil {
			event := interfaces.Event{Type: interfaces.EventTimerAutoPaused, Payload: result.Record}
			if err := s.events.Publish(ctx, event); err != nil {
				s.logger.Warn().Err(err).Msg("Failed to publish auto-pause event")
			}
		}
	}

	if len(paused) > 0 {
		s.logger.Info().
			Int("paused_count", len(paused)).
			Dur("max_working", maxWorking).
			Msg("Auto-paused stale timers")
	}
	return paused, nil
}

// base returns the record a transition starts from: a copy of current, or a
// fresh record for a subject seen for the first time.
func (s *Service) base(subjectID string, current *models.TimerRecord) *models.TimerRecord {
	if current != nil {
		return current.Clone()
	}
	return &models.TimerRecord{SubjectID: subjectID, CreatedAt: s.now()}
}

// apply runs fn through the store, stamping and validating the record it produces
func (s *Service) apply(ctx context.Context, subjectID string, fn interfaces.TimerTransition) (*interfaces.TimerResult, error) {
	subjectID = strings.TrimSpace(subjectID)
	if subjectID == "" {
		return nil, fmt.Errorf("%w: subjectId is required", interfaces.ErrValidation)
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	record, created, err := s.storage.ApplyTransition(ctx, subjectID, func(current *models.TimerRecord) (*models.TimerRecord, error) {
		next, err := fn(current)
		if err != nil {
			return nil, err
		}
		next.UpdatedAt = s.now()
		if err := next.Validate(); err != nil {
			return nil, fmt.Errorf("%w: %v", interfaces.ErrValidation, err)
		}
		return next, nil
	})
	if err != nil {
		if errors.Is(err, interfaces.ErrPersistenceAmbiguous) {
			s.logger.Error().Err(err).Str("subject_id", subjectID).Msg("Timer transition outcome unknown")
		}
		return nil, err
	}

	s.logger.Debug().
		Str("subject_id", subjectID).
		Bool("is_working", record.IsWorking).
		Bool("created", created).
		Msg("Timer transition applied")

	return &interfaces.TimerResult{Record: record, Created: created}, nil
}

// record appends a tracking event after a committed transition. Failures are
// logged; the transition itself already succeeded.
func (s *Service) record(ctx context.Context, subjectID string, eventType models.TrackingEventType, at time.Time) {
	if s.tracking == nil {
		return
	}
	if _, err := s.tracking.Record(ctx, subjectID, eventType, at); err != nil {
		s.logger.Warn().
			Err(err).
			Str("subject_id", subjectID).
			Str("event_type", string(eventType)).
			Msg("Failed to record tracking event for committed timer transition")
	}
}
