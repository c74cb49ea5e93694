package interfaces

import (
	"context"

	"github.com/ternarybob/shiftlog/internal/models"
)

// TimeLogTransition computes the next time log from the current one (nil when absent).
type TimeLogTransition func(current *models.TimeLog) (*models.TimeLog, error)

// TimeLogStorage persists interval-based time logs keyed by parent ID.
type TimeLogStorage interface {
	// ApplyTransition has the same atomic read-transform-write contract as
	// TimerStorage.ApplyTransition.
	ApplyTransition(ctx context.Context, parentID string, fn TimeLogTransition) (log *models.TimeLog, created bool, err error)

	// Get returns the time log or ErrNotFound.
	Get(ctx context.Context, parentID string) (*models.TimeLog, error)

	// ListByMember returns a member's time logs, most recently updated first.
	ListByMember(ctx context.Context, memberID string) ([]*models.TimeLog, error)
}
