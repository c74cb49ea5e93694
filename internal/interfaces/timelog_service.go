package interfaces

import (
	"context"

	"github.com/ternarybob/shiftlog/internal/models"
)

// TimeLogResult is a committed time log transition
type TimeLogResult struct {
	Log     *models.TimeLog
	Created bool
}

// SessionView is a time log together with its derived, read-time durations
type SessionView struct {
	Log *models.TimeLog `json:"timeLog"`

	// CurrentSessionMs is the elapsed time of the open interval, 0 when paused or completed.
	CurrentSessionMs int64 `json:"currentSessionMs"`

	// ElapsedMs is totalElapsedMs plus CurrentSessionMs.
	ElapsedMs int64 `json:"elapsedMs"`
}

// TimeLogService drives interval-based time logs
type TimeLogService interface {
	// StartSession creates the log with one open interval, or reopens a paused log.
	StartSession(ctx context.Context, parentID, memberID, task string) (*TimeLogResult, error)

	// PauseSession closes the open interval and folds it into the total.
	PauseSession(ctx context.Context, parentID string) (*TimeLogResult, error)

	// ResumeSession opens a new interval on a paused log.
	ResumeSession(ctx context.Context, parentID string) (*TimeLogResult, error)

	// CompleteSession closes any open interval and makes the log terminal.
	CompleteSession(ctx context.Context, parentID string) (*TimeLogResult, error)

	// GetSession returns the log with its derived durations.
	GetSession(ctx context.Context, parentID string) (*SessionView, error)

	// ListMemberSessions returns a member's logs with derived durations.
	ListMemberSessions(ctx context.Context, memberID string) ([]*SessionView, error)
}
