package models

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// validate is shared; validator caches struct metadata per instance
var validate = validator.New()

// TimerRecord is the persisted pause/resume state of one subject's timer.
// Field names are part of the public API and must stay stable.
type TimerRecord struct {
	SubjectID string     `json:"subjectId" validate:"required"`
	IsWorking bool       `json:"isWorking"`
	PausedAt  *time.Time `json:"pausedAt"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Validate checks required fields and the working/paused invariant:
// a working timer never carries a pause timestamp.
func (t *TimerRecord) Validate() error {
	if err := validate.Struct(t); err != nil {
		return err
	}
	if t.IsWorking && t.PausedAt != nil {
		return fmt.Errorf("timer %s is working but has pausedAt set", t.SubjectID)
	}
	return nil
}

// Clone returns a deep copy so transition functions never alias stored state.
func (t *TimerRecord) Clone() *TimerRecord {
	if t == nil {
		return nil
	}
	clone := *t
	if t.PausedAt != nil {
		pausedAt := *t.PausedAt
		clone.PausedAt = &pausedAt
	}
	return &clone
}
