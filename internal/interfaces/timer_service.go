package interfaces

import (
	"context"
	"time"

	"github.com/ternarybob/shiftlog/internal/models"
)

// TimerUpdate is a partial timer write. A nil field means "not supplied".
type TimerUpdate struct {
	IsWorking *bool
	PausedAt  *time.Time
}

// TimerResult is a committed timer transition. Created distinguishes a
// first write (HTTP 201) from an update of an existing record (HTTP 200).
type TimerResult struct {
	Record  *models.TimerRecord
	Created bool
}

// TimerService drives the pause/resume state machine of per-subject timers
type TimerService interface {
	// Pause stops the timer, recording pausedAt. A missing record is created paused.
	Pause(ctx context.Context, subjectID string, pausedAt time.Time) (*TimerResult, error)

	// Resume restarts the timer. A missing record is created working.
	Resume(ctx context.Context, subjectID string) (*TimerResult, error)

	// Apply dispatches a partial update to Pause or Resume.
	Apply(ctx context.Context, subjectID string, update TimerUpdate) (*TimerResult, error)

	// GetState returns the stored timer or ErrNotFound.
	GetState(ctx context.Context, subjectID string) (*models.TimerRecord, error)

	// AutoPauseStale pauses timers that have been working longer than maxWorking
	// and returns the subjects that were paused.
	AutoPauseStale(ctx context.Context, maxWorking time.Duration) ([]string, error)
}
