package models

import (
	"fmt"
	"time"
)

// TimeLogStatus is the lifecycle state of an interval-based time log.
type TimeLogStatus string

const (
	TimeLogStatusOngoing   TimeLogStatus = "ongoing"
	TimeLogStatusPaused    TimeLogStatus = "paused"
	TimeLogStatusCompleted TimeLogStatus = "completed"
)

// Interval is one contiguous span of work. A nil EndTime marks the open interval.
type Interval struct {
	StartTime  time.Time  `json:"startTime" validate:"required"`
	EndTime    *time.Time `json:"endTime"`
	DurationMs int64      `json:"durationMs"`
}

// IsOpen reports whether the interval is still accruing time.
func (i Interval) IsOpen() bool {
	return i.EndTime == nil
}

// TimeLog accumulates work time for a project or task across many intervals.
// TotalElapsedMs only covers closed intervals; the open interval is added at read time.
type TimeLog struct {
	ID             string        `json:"id" validate:"required"`
	MemberID       string        `json:"memberId" validate:"required" badgerhold:"index"`
	Task           string        `json:"task"`
	Status         TimeLogStatus `json:"status" validate:"oneof=ongoing paused completed"`
	Intervals      []Interval    `json:"intervals" validate:"dive"`
	TotalElapsedMs int64         `json:"totalElapsedMs" validate:"gte=0"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
	CompletedAt    *time.Time    `json:"completedAt,omitempty"`
}

// OpenInterval returns the index of the open interval, or -1.
func (l *TimeLog) OpenInterval() int {
	for i := range l.Intervals {
		if l.Intervals[i].IsOpen() {
			return i
		}
	}
	return -1
}

// IsCompleted reports whether the log reached its terminal state.
func (l *TimeLog) IsCompleted() bool {
	return l.Status == TimeLogStatusCompleted
}

// Validate enforces the interval invariants: at most one open interval, an open
// interval exactly while ongoing, ordered closed intervals and a consistent total.
func (l *TimeLog) Validate() error {
	if err := validate.Struct(l); err != nil {
		return err
	}

	open := 0
	var closedSum int64
	for i, interval := range l.Intervals {
		if interval.IsOpen() {
			open++
			continue
		}
		if interval.EndTime.Before(interval.StartTime) {
			return fmt.Errorf("interval %d of time log %s ends before it starts", i, l.ID)
		}
		closedSum += interval.DurationMs
	}

	if open > 1 {
		return fmt.Errorf("time log %s has %d open intervals", l.ID, open)
	}
	if (l.Status == TimeLogStatusOngoing) != (open == 1) {
		return fmt.Errorf("time log %s is %s with %d open intervals", l.ID, l.Status, open)
	}
	if closedSum != l.TotalElapsedMs {
		return fmt.Errorf("time log %s total %dms does not match closed intervals %dms", l.ID, l.TotalElapsedMs, closedSum)
	}
	return nil
}

// Clone returns a deep copy of the log, including interval end times.
func (l *TimeLog) Clone() *TimeLog {
	if l == nil {
		return nil
	}
	clone := *l
	clone.Intervals = make([]Interval, len(l.Intervals))
	for i, interval := range l.Intervals {
		if interval.EndTime != nil {
			end := *interval.EndTime
			interval.EndTime = &end
		}
		clone.Intervals[i] = interval
	}
	if l.CompletedAt != nil {
		completedAt := *l.CompletedAt
		clone.CompletedAt = &completedAt
	}
	return &clone
}
