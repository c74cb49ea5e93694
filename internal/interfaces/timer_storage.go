package interfaces

import (
	"context"

	"github.com/ternarybob/shiftlog/internal/models"
)

// TimerTransition computes the next timer record from the current one.
// current is nil when no record exists yet; the transition must then return the
// record to create. Returning an error aborts the write and leaves state untouched.
type TimerTransition func(current *models.TimerRecord) (*models.TimerRecord, error)

// TimerStorage persists one TimerRecord per subject.
type TimerStorage interface {
	// ApplyTransition reads, transforms and writes the subject's record as one
	// atomic operation. created is true when the record did not exist before.
	ApplyTransition(ctx context.Context, subjectID string, fn TimerTransition) (record *models.TimerRecord, created bool, err error)

	// Get returns the subject's record or ErrNotFound.
	Get(ctx context.Context, subjectID string) (*models.TimerRecord, error)

	// ListWorking returns every timer currently accruing time.
	ListWorking(ctx context.Context) ([]*models.TimerRecord, error)
}
