package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/shiftlog/internal/common"
	_ "modernc.org/sqlite"
)

const (
	driverName         = "sqlite"
	defaultBusyTimeout = 5000
)

// SQLiteDB is a single-connection handle with migrations applied
type SQLiteDB struct {
	db     *sql.DB
	logger arbor.ILogger
	retry  common.RetryConfig
}

// buildDSN encodes the connection pragmas. _txlock=immediate takes the write
// lock at BEGIN, so competing read-modify-write transactions queue on
// busy_timeout instead of failing at commit.
func buildDSN(config *common.SQLiteConfig) string {
	busyTimeout := config.BusyTimeoutMS
	if busyTimeout <= 0 {
		busyTimeout = defaultBusyTimeout
	}

	query := url.Values{}
	query.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", busyTimeout))
	query.Add("_pragma", "journal_mode(WAL)")
	query.Add("_pragma", "synchronous(NORMAL)")
	query.Set("_txlock", "immediate")

	return config.Path + "?" + query.Encode()
}

// NewSQLiteDB opens config.Path, creating its directory, and migrates the schema
func NewSQLiteDB(logger arbor.ILogger, config *common.SQLiteConfig, retry common.RetryConfig) (*SQLiteDB, error) {
	if err := os.MkdirAll(filepath.Dir(config.Path), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open(driverName, buildDSN(config))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", config.Path, err)
	}
	// One writer; WAL still serves readers from the same connection
	db.SetMaxOpenConns(1)

	s := &SQLiteDB{db: db, logger: logger, retry: retry}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", config.Path, err)
	}

	logger.Info().Str("path", config.Path).Msg("SQLite database initialized")
	return s, nil
}

// DB exposes the pool to the storages of this package
func (s *SQLiteDB) DB() *sql.DB {
	return s.db
}

func (s *SQLiteDB) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteDB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}
