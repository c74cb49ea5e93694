package scheduler

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/shiftlog/internal/interfaces"
)

// AutoPauseJobName is the scheduler name of the stale timer job
const AutoPauseJobName = "auto_pause"

// NewAutoPauseJob returns a job handler that pauses timers left working for
// longer than maxWorking.
func NewAutoPauseJob(timers interfaces.TimerService, maxWorking time.Duration, logger arbor.ILogger) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		paused, err := timers.AutoPauseStale(ctx, maxWorking)
		if err != nil {
			return err
		}
		logger.Debug().Int("paused_count", len(paused)).Msg("Auto-pause sweep finished")
		return nil
	}
}
