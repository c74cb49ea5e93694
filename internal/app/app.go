package app

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/shiftlog/internal/common"
	"github.com/ternarybob/shiftlog/internal/handlers"
	"github.com/ternarybob/shiftlog/internal/interfaces"
	"github.com/ternarybob/shiftlog/internal/services/auth"
	"github.com/ternarybob/shiftlog/internal/services/events"
	"github.com/ternarybob/shiftlog/internal/services/scheduler"
	"github.com/ternarybob/shiftlog/internal/services/timelog"
	"github.com/ternarybob/shiftlog/internal/services/timer"
	"github.com/ternarybob/shiftlog/internal/services/tracking"
	"github.com/ternarybob/shiftlog/internal/storage"
)

// jobTimeout bounds one run of a background job
const jobTimeout = 5 * time.Minute

// App holds all application components and dependencies
type App struct {
	Config         *common.Config
	Logger         arbor.ILogger
	StorageManager interfaces.StorageManager

	// Event-driven services
	EventService     interfaces.EventService
	SchedulerService interfaces.SchedulerService

	// Domain services
	Authorizer      *auth.Authorizer
	TrackingService *tracking.Service
	TimerService    *timer.Service
	TimeLogService  *timelog.Service

	// HTTP handlers
	APIHandler       *handlers.APIHandler
	TimerHandler     *handlers.TimerHandler
	TimeLogHandler   *handlers.TimeLogHandler
	TrackingHandler  *handlers.TrackingHandler
	SchedulerHandler *handlers.SchedulerHandler
	WSHandler        *handlers.WebSocketHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	if err := app.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := app.initServices(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	app.initHandlers()

	if err := app.initScheduler(); err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize scheduler: %w", err)
	}

	logger.Info().
		Str("storage", cfg.Storage.Type).
		Bool("auto_pause_enabled", cfg.AutoPause.Enabled).
		Msg("Application initialization complete")

	return app, nil
}

// initDatabase initializes the storage layer
func (a *App) initDatabase() error {
	storageManager, err := storage.NewStorageManager(a.Logger, a.Config)
	if err != nil {
		return fmt.Errorf("failed to create storage manager: %w", err)
	}

	a.StorageManager = storageManager
	return nil
}

// initServices initializes all business services in dependency order.
// Tracking comes first because both state machines record into it.
func (a *App) initServices() error {
	var err error
	timeout := common.ParseDuration(a.Config.Store.Timeout, 5*time.Second)

	a.EventService = events.NewService(a.Logger)
	if a.Config.Logging.Level == "debug" {
		if err := events.SubscribeLoggerToAllEvents(a.EventService, a.Logger); err != nil {
			return fmt.Errorf("failed to subscribe event logger: %w", err)
		}
	}

	a.Authorizer = auth.NewAuthorizer(a.Config.Auth.ElevatedRoles, a.Logger)

	a.TrackingService, err = tracking.NewService(
		a.StorageManager.TrackingEventStorage(),
		a.Authorizer,
		a.EventService,
		a.Config.Tracking,
		a.Logger,
	)
	if err != nil {
		return fmt.Errorf("failed to create tracking service: %w", err)
	}

	a.TimerService = timer.NewService(
		a.StorageManager.TimerStorage(),
		a.TrackingService,
		a.EventService,
		a.Logger,
		timeout,
	)

	a.TimeLogService = timelog.NewService(
		a.StorageManager.TimeLogStorage(),
		a.TrackingService,
		a.Logger,
		timeout,
	)

	a.Logger.Debug().Dur("transition_timeout", timeout).Msg("Services initialized")
	return nil
}

// initHandlers initializes all HTTP handlers
func (a *App) initHandlers() {
	a.APIHandler = handlers.NewAPIHandler(a.StorageManager, a.Logger)
	a.TimerHandler = handlers.NewTimerHandler(a.TimerService, a.Logger)
	a.TimeLogHandler = handlers.NewTimeLogHandler(a.TimeLogService, a.Logger)
	a.TrackingHandler = handlers.NewTrackingHandler(a.TrackingService, a.Logger)
	a.WSHandler = handlers.NewWebSocketHandler(
		a.EventService,
		a.Authorizer,
		common.ParseDuration(a.Config.WebSocket.ThrottleInterval, 0),
		a.Logger,
	)

	a.SchedulerService = scheduler.NewService(a.Logger, jobTimeout)
	a.SchedulerHandler = handlers.NewSchedulerHandler(a.SchedulerService)
}

// initScheduler registers background jobs and starts the cron loop
func (a *App) initScheduler() error {
	if a.Config.AutoPause.Enabled {
		maxWorking := common.ParseDuration(a.Config.AutoPause.MaxWorking, 12*time.Hour)
		if err := a.SchedulerService.RegisterJob(
			scheduler.AutoPauseJobName,
			a.Config.AutoPause.Schedule,
			fmt.Sprintf("Pause timers working for more than %s", maxWorking),
			scheduler.NewAutoPauseJob(a.TimerService, maxWorking, a.Logger),
		); err != nil {
			return err
		}
	}

	return a.SchedulerService.Start()
}

// Close releases resources in reverse dependency order. Events drain before
// the stores their handlers may touch are closed.
func (a *App) Close() error {
	if a.SchedulerService != nil {
		if err := a.SchedulerService.Stop(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to stop scheduler service")
		}
	}

	if a.EventService != nil {
		if err := a.EventService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close event service")
		}
	}

	if a.TrackingService != nil {
		if err := a.TrackingService.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("Failed to close tracking service")
		}
	}

	if a.StorageManager != nil {
		if err := a.StorageManager.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
		a.Logger.Info().Msg("Storage closed")
	}

	return nil
}
