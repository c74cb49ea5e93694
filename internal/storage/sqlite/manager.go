package sqlite

import (
	"context"
	"errors"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/shiftlog/internal/common"
	"github.com/ternarybob/shiftlog/internal/interfaces"
)

// Manager implements the StorageManager interface for SQLite
type Manager struct {
	db       *SQLiteDB
	timer    interfaces.TimerStorage
	timeLog  interfaces.TimeLogStorage
	tracking interfaces.TrackingEventStorage
	logger   arbor.ILogger
}

// NewManager creates a new SQLite storage manager
func NewManager(logger arbor.ILogger, config *common.SQLiteConfig, retry common.RetryConfig) (interfaces.StorageManager, error) {
	db, err := NewSQLiteDB(logger, config, retry)
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

	logger.Info().Msg("SQLite storage manager initialized")

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
	return "sqlite"
}

// Ping checks the connection with a round trip
func (m *Manager) Ping(ctx context.Context) error {
	if m.db == nil {
		return errors.New("sqlite database is not open")
	}
	return m.db.Ping(ctx)
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
