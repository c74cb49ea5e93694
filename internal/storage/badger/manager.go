package badger

import (
	"context"
	"errors"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/shiftlog/internal/common"
	"github.com/ternarybob/shiftlog/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db       *BadgerDB
	timer    interfaces.TimerStorage
	timeLog  interfaces.TimeLogStorage
	tracking interfaces.TrackingEventStorage
	logger   arbor.ILogger
}

// NewManager creates a new Badger storage manager
func NewManager(logger arbor.ILogger, config *common.BadgerConfig, retry common.RetryConfig) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config, retry)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:       db,
		timer:    NewTimerStorage(db, logger),
		timeLog:  NewTimeLogStorage(db, logger),
		tracking: NewTrackingEventStorage(db, logger),
		logger:   logger,
	}

	logger.Info().Msg("Badger storage manager initialized")

	return manager, nil
}

// TimerStorage returns the Timer storage interface
func (m *Manager) TimerStorage() interfaces.TimerStorage {
	return m.timer
}

// TimeLogStorage returns the TimeLog storage interface
func (m *Manager) TimeLogStorage() interfaces.TimeLogStorage {
	return m.timeLog
}

// TrackingEventStorage returns the TrackingEvent storage interface
func (m *Manager) TrackingEventStorage() interfaces.TrackingEventStorage {
	return m.tracking
}

// Backend returns the storage engine name
func (m *Manager) Backend() string {
	return "badger"
}

// Ping fails once the database has been closed
func (m *Manager) Ping(ctx context.Context) error {
	if m.db == nil || m.db.Store().Badger().IsClosed() {
		return errors.New("badger database is closed")
	}
	return ctx.Err()
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
