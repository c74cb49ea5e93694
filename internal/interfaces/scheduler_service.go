package interfaces

import (
	"context"
	"time"
)

// JobStatus is a point-in-time snapshot of a registered job
type JobStatus struct {
	Name           string     `json:"name"`
	Schedule       string     `json:"schedule"`
	Description    string     `json:"description"`
	LastRun        *time.Time `json:"lastRun,omitempty"`
	NextRun        *time.Time `json:"nextRun,omitempty"`
	IsRunning      bool       `json:"isRunning"`
	RunCount       int        `json:"runCount"`
	LastDurationMs int64      `json:"lastDurationMs"`
	LastError      string     `json:"lastError,omitempty"`
}

// SchedulerService runs named background jobs on cron schedules
type SchedulerService interface {
	Start() error
	// Stop cancels running jobs and waits for them
	Stop() error
	IsRunning() bool

	RegisterJob(name string, schedule string, description string, handler func(ctx context.Context) error) error
	// TriggerJob runs a job on the calling goroutine and returns its error
	TriggerJob(name string) error

	GetJobStatus(name string) (*JobStatus, error)
	GetAllJobStatuses() map[string]*JobStatus
}
