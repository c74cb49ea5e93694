package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/shiftlog/internal/common"
	"github.com/ternarybob/shiftlog/internal/interfaces"
)

// ErrJobNotFound is returned for names that were never registered
var ErrJobNotFound = errors.New("job not found")

type job struct {
	name        string
	schedule    string
	description string
	run         func(ctx context.Context) error
	id          cron.EntryID

	// guarded by Service.mu
	active  bool
	runs    int
	lastRun *time.Time
	lastDur time.Duration
	lastErr error
}

// cronLogger routes robfig/cron's internal logging through arbor
type cronLogger struct {
	logger arbor.ILogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Trace().Str("cron", fmt.Sprint(keysAndValues...)).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Str("cron", fmt.Sprint(keysAndValues...)).Msg(msg)
}

// Service runs named jobs on 5-field cron schedules. A job never overlaps
// itself: a tick that finds the previous run still active is skipped.
type Service struct {
	cron    *cron.Cron
	logger  arbor.ILogger
	timeout time.Duration

	// base is cancelled by Stop so running jobs see shutdown
	base   context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	jobs    map[string]*job
	started bool
}

// NewService creates a stopped scheduler. timeout bounds one job run; zero means no bound.
func NewService(logger arbor.ILogger, timeout time.Duration) *Service {
	base, cancel := context.WithCancel(context.Background())
	return &Service{
		cron:    cron.New(cron.WithLogger(cronLogger{logger: logger})),
		logger:  logger,
		timeout: timeout,
		base:    base,
		cancel:  cancel,
		jobs:    make(map[string]*job),
	}
}

func (s *Service) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return errors.New("scheduler already running")
	}
	s.cron.Start()
	s.started = true

	s.logger.Info().Int("jobs", len(s.jobs)).Msg("Scheduler started")
	return nil
}

// Stop cancels running jobs and waits for them to return. It is idempotent.
func (s *Service) Stop() error {
	s.mu.Lock()
	wasStarted := s.started
	s.started = false
	s.mu.Unlock()

	if !wasStarted {
		return nil
	}

	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info().Msg("Scheduler stopped")
	return nil
}

func (s *Service) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

func (s *Service) RegisterJob(name, schedule, description string, run func(ctx context.Context) error) error {
	if run == nil {
		return fmt.Errorf("register %s: nil handler", name)
	}
	if err := common.ValidateSchedule(schedule); err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[name]; exists {
		return fmt.Errorf("register %s: already registered", name)
	}

	j := &job{name: name, schedule: schedule, description: description, run: run}
	id, err := s.cron.AddFunc(schedule, func() { s.execute(j) })
	if err != nil {
		return fmt.Errorf("register %s: %w", name, err)
	}
	j.id = id
	s.jobs[name] = j

	s.logger.Info().Str("job", name).Str("schedule", schedule).Msg("Job registered")
	return nil
}

// TriggerJob runs name on the calling goroutine and returns its error
func (s *Service) TriggerJob(name string) error {
	s.mu.Lock()
	j, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	s.logger.Info().Str("job", name).Msg("Job triggered manually")
	if err := s.execute(j); err != nil {
		return fmt.Errorf("job %s failed: %w", name, err)
	}
	return nil
}

func (s *Service) GetJobStatus(name string) (*interfaces.JobStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	j, ok := s.jobs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	return s.snapshot(j), nil
}

func (s *Service) GetAllJobStatuses() map[string]*interfaces.JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]*interfaces.JobStatus, len(s.jobs))
	for name, j := range s.jobs {
		out[name] = s.snapshot(j)
	}
	return out
}

// snapshot requires s.mu
func (s *Service) snapshot(j *job) *interfaces.JobStatus {
	status := &interfaces.JobStatus{
		Name:           j.name,
		Schedule:       j.schedule,
		Description:    j.description,
		LastRun:        j.lastRun,
		IsRunning:      j.active,
		RunCount:       j.runs,
		LastDurationMs: j.lastDur.Milliseconds(),
	}
	if j.lastErr != nil {
		status.LastError = j.lastErr.Error()
	}
	if s.started {
		if next := s.cron.Entry(j.id).Next; !next.IsZero() {
			status.NextRun = &next
		}
	}
	return status
}

// execute runs j once unless it is already active. Panics become errors.
func (s *Service) execute(j *job) (err error) {
	s.mu.Lock()
	if j.active {
		s.mu.Unlock()
		s.logger.Warn().Str("job", j.name).Msg("Previous run still active, skipping")
		return nil
	}
	j.active = true
	s.mu.Unlock()

	ctx := s.base
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		finished := time.Now()
		dur := finished.Sub(started)

		s.mu.Lock()
		j.active = false
		j.runs++
		j.lastRun = &finished
		j.lastDur = dur
		j.lastErr = err
		s.mu.Unlock()

		if err != nil {
			s.logger.Error().Err(err).Str("job", j.name).Dur("duration", dur).Msg("Job failed")
			return
		}
		s.logger.Debug().Str("job", j.name).Dur("duration", dur).Msg("Job completed")
	}()

	return j.run(ctx)
}
