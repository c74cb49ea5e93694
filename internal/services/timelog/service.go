package timelog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/shiftlog/internal/interfaces"
	"github.com/ternarybob/shiftlog/internal/models"
)

// Service implements TimeLogService on top of the atomic TimeLogStorage.
// Every transition is computed inside ApplyTransition, so two racing
// pause/resume calls for one parent are linearized by the store.
type Service struct {
	storage  interfaces.TimeLogStorage
	tracking interfaces.TrackingService
	logger   arbor.ILogger
	timeout  time.Duration
	now      func() time.Time
}

// NewService creates a new time log service
func NewService(storage interfaces.TimeLogStorage, tracking interfaces.TrackingService, logger arbor.ILogger, timeout time.Duration) *Service {
	return &Service{
		storage:  storage,
		tracking: tracking,
		logger:   logger,
		timeout:  timeout,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// StartSession creates the log with an open interval, or reopens a paused one
func (s *Service) StartSession(ctx context.Context, parentID, memberID, task string) (*interfaces.TimeLogResult, error) {
	parentID = strings.TrimSpace(parentID)
	memberID = strings.TrimSpace(memberID)
	if parentID == "" {
		return nil, fmt.Errorf("%w: parentId is required", interfaces.ErrValidation)
	}
	if memberID == "" {
		return nil, fmt.Errorf("%w: memberId is required", interfaces.ErrValidation)
	}

	now := s.now()
	result, err := s.apply(ctx, parentID, func(current *models.TimeLog) (*models.TimeLog, error) {
		if current == nil {
			return &models.TimeLog{
				ID:        parentID,
				MemberID:  memberID,
				Task:      task,
				Status:    models.TimeLogStatusOngoing,
				Intervals: []models.Interval{{StartTime: now}},
				CreatedAt: now,
				UpdatedAt: now,
			}, nil
		}

		switch current.Status {
		case models.TimeLogStatusCompleted:
			return nil, fmt.Errorf("%w: time log %s is completed", interfaces.ErrInvalidTransition, parentID)
		case models.TimeLogStatusOngoing:
			return nil, fmt.Errorf("%w: time log %s already has an open session", interfaces.ErrInvalidTransition, parentID)
		}
		if current.MemberID != memberID {
			return nil, fmt.Errorf("%w: time log %s belongs to another member", interfaces.ErrValidation, parentID)
		}

		if task != "" {
			current.Task = task
		}
		openInterval(current, now)
		return current, nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, result.Log, models.TrackingEventResumed, now)
	return result, nil
}

// PauseSession closes the open interval and marks the log paused
func (s *Service) PauseSession(ctx context.Context, parentID string) (*interfaces.TimeLogResult, error) {
	now := s.now()
	result, err := s.applyExisting(ctx, parentID, func(current *models.TimeLog) (*models.TimeLog, error) {
		if current.Status != models.TimeLogStatusOngoing || current.OpenInterval() < 0 {
			return nil, fmt.Errorf("%w: time log %s is %s", interfaces.ErrInvalidTransition, parentID, current.Status)
		}
		closeInterval(current, now)
		current.Status = models.TimeLogStatusPaused
		return current, nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, result.Log, models.TrackingEventPaused, now)
	return result, nil
}

// ResumeSession opens a new interval on a paused log
func (s *Service) ResumeSession(ctx context.Context, parentID string) (*interfaces.TimeLogResult, error) {
	now := s.now()
	result, err := s.applyExisting(ctx, parentID, func(current *models.TimeLog) (*models.TimeLog, error) {
		if current.Status != models.TimeLogStatusPaused {
			return nil, fmt.Errorf("%w: time log %s is %s", interfaces.ErrInvalidTransition, parentID, current.Status)
		}
		openInterval(current, now)
		return current, nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ctx, result.Log, models.TrackingEventResumed, now)
	return result, nil
}

// CompleteSession closes any open interval and marks the log completed for good
func (s *Service) CompleteSession(ctx context.Context, parentID string) (*interfaces.TimeLogResult, error) {
	now := s.now()
	result, err := s.applyExisting(ctx, parentID, func(current *models.TimeLog) (*models.TimeLog, error) {
		if current.IsCompleted() {
			return nil, fmt.Errorf("%w: time log %s is already completed", interfaces.ErrInvalidTransition, parentID)
		}
		closeInterval(current, now)
		current.Status = models.TimeLogStatusCompleted
		current.CompletedAt = &now
		return current, nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("parent_id", parentID).
		Str("member_id", result.Log.MemberID).
		Int64("total_elapsed_ms", result.Log.TotalElapsedMs).
		Msg("Time log completed")

	s.record(ctx, result.Log, models.TrackingEventTimeLogged, now)
	return result, nil
}

// GetSession returns the log with its derived durations
func (s *Service) GetSession(ctx context.Context, parentID string) (*interfaces.SessionView, error) {
	if strings.TrimSpace(parentID) == "" {
		return nil, fmt.Errorf("%w: parentId is required", interfaces.ErrValidation)
	}

	log, err := s.storage.Get(ctx, parentID)
	if err != nil {
		return nil, err
	}
	return s.view(log), nil
}

// ListMemberSessions returns every log of a member with derived durations
func (s *Service) ListMemberSessions(ctx context.Context, memberID string) ([]*interfaces.SessionView, error) {
	if strings.TrimSpace(memberID) == "" {
		return nil, fmt.Errorf("%w: memberId is required", interfaces.ErrValidation)
	}

	logs, err := s.storage.ListByMember(ctx, memberID)
	if err != nil {
		return nil, err
	}

	views := make([]*interfaces.SessionView, 0, len(logs))
	for _, log := range logs {
		views = append(views, s.view(log))
	}
	return views, nil
}

func (s *Service) view(log *models.TimeLog) *interfaces.SessionView {
	current := CurrentSessionDuration(log, s.now()).Milliseconds()
	return &interfaces.SessionView{
		Log:              log,
		CurrentSessionMs: current,
		ElapsedMs:        log.TotalElapsedMs + current,
	}
}

// applyExisting is apply for transitions that require the log to exist
func (s *Service) applyExisting(ctx context.Context, parentID string, fn interfaces.TimeLogTransition) (*interfaces.TimeLogResult, error) {
	if strings.TrimSpace(parentID) == "" {
		return nil, fmt.Errorf("%w: parentId is required", interfaces.ErrValidation)
	}
	return s.apply(ctx, parentID, func(current *models.TimeLog) (*models.TimeLog, error) {
		if current == nil {
			return nil, fmt.Errorf("%w: time log %s", interfaces.ErrNotFound, parentID)
		}
		return fn(current)
	})
}

// apply runs fn through the store and validates the record it produces
func (s *Service) apply(ctx context.Context, parentID string, fn interfaces.TimeLogTransition) (*interfaces.TimeLogResult, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	log, created, err := s.storage.ApplyTransition(ctx, parentID, func(current *models.TimeLog) (*models.TimeLog, error) {
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
		s.logger.Debug().Err(err).Str("parent_id", parentID).Msg("Time log transition rejected")
		return nil, err
	}

	return &interfaces.TimeLogResult{Log: log, Created: created}, nil
}

// record appends a tracking event for the log's member. The transition has
// already committed, so a failure here is logged and not returned.
func (s *Service) record(ctx context.Context, log *models.TimeLog, eventType models.TrackingEventType, at time.Time) {
	if s.tracking == nil {
		return
	}
	if _, err := s.tracking.Record(ctx, log.MemberID, eventType, at); err != nil {
		s.logger.Warn().
			Err(err).
			Str("parent_id", log.ID).
			Str("event_type", string(eventType)).
			Msg("Failed to record tracking event for committed time log transition")
	}
}

func openInterval(log *models.TimeLog, now time.Time) {
	log.Intervals = append(log.Intervals, models.Interval{StartTime: now})
	log.Status = models.TimeLogStatusOngoing
}

// closeInterval ends the open interval, if any, and folds it into the total.
// A clock reading before the start yields a zero-length interval.
func closeInterval(log *models.TimeLog, now time.Time) {
	i := log.OpenInterval()
	if i < 0 {
		return
	}
	interval := &log.Intervals[i]
	end := now
	if end.Before(interval.StartTime) {
		end = interval.StartTime
	}
	interval.EndTime = &end
	interval.DurationMs = end.Sub(interval.StartTime).Milliseconds()
	log.TotalElapsedMs += interval.DurationMs
}
