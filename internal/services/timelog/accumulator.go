package timelog

import (
	"time"

	"github.com/ternarybob/shiftlog/internal/models"
)

// TotalElapsed returns the closed interval durations plus the running time of
// the open interval, if any. The result is never negative.
func TotalElapsed(intervals []models.Interval, now time.Time) time.Duration {
	return ClosedElapsed(intervals) + OpenContribution(intervals, now)
}

// ClosedElapsed sums the durations of the closed intervals. An interval whose
// end precedes its start contributes nothing.
func ClosedElapsed(intervals []models.Interval) time.Duration {
	var total time.Duration
	for _, interval := range intervals {
		if interval.IsOpen() {
			continue
		}
		total += span(interval.StartTime, *interval.EndTime)
	}
	return total
}

// OpenContribution is now minus the open interval's start, or zero when there
// is no open interval or the clock reads earlier than the start.
func OpenContribution(intervals []models.Interval, now time.Time) time.Duration {
	for _, interval := range intervals {
		if interval.IsOpen() {
			return span(interval.StartTime, now)
		}
	}
	return 0
}

// CurrentSessionDuration is the running time of the open interval while the
// log is ongoing and zero otherwise.
func CurrentSessionDuration(log *models.TimeLog, now time.Time) time.Duration {
	if log == nil || log.Status != models.TimeLogStatusOngoing {
		return 0
	}
	return OpenContribution(log.Intervals, now)
}

func span(start, end time.Time) time.Duration {
	if end.Before(start) {
		return 0
	}
	return end.Sub(start)
}
