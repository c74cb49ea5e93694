package badger

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/shiftlog/internal/common"
	"github.com/timshannon/badgerhold/v4"
)

// BadgerDB wraps a badgerhold store together with the retry policy used for
// conflicting read-modify-write transactions.
type BadgerDB struct {
	store  *badgerhold.Store
	logger arbor.ILogger
	retry  common.RetryConfig
}

// openOptions maps the config onto badgerhold options, preparing the data
// directory for on-disk stores.
func openOptions(logger arbor.ILogger, config *common.BadgerConfig) (badgerhold.Options, error) {
	options := badgerhold.DefaultOptions
	// Badger's own logger writes to stderr; arbor covers what we need
	options.Logger = nil

	if config.InMemory {
		options.InMemory = true
		options.Dir = ""
		options.ValueDir = ""
		return options, nil
	}

	if config.ResetOnStartup {
		logger.Warn().Str("path", config.Path).Msg("Removing Badger data directory (reset_on_startup)")
		if err := os.RemoveAll(config.Path); err != nil {
			return options, fmt.Errorf("reset %s: %w", config.Path, err)
		}
	}
	if err := os.MkdirAll(filepath.Dir(config.Path), 0o755); err != nil {
		return options, fmt.Errorf("create database directory: %w", err)
	}

	options.Dir = config.Path
	options.ValueDir = config.Path
	return options, nil
}

// NewBadgerDB opens the store described by config
func NewBadgerDB(logger arbor.ILogger, config *common.BadgerConfig, retry common.RetryConfig) (*BadgerDB, error) {
	options, err := openOptions(logger, config)
	if err != nil {
		return nil, err
	}

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", config.Path, err)
	}

	logger.Info().
		Str("path", config.Path).
		Bool("in_memory", config.InMemory).
		Msg("Badger database initialized")

	return &BadgerDB{store: store, logger: logger, retry: retry}, nil
}

func (b *BadgerDB) Store() *badgerhold.Store {
	return b.store
}

func (b *BadgerDB) Close() error {
	if b.store == nil {
		return nil
	}
	return b.store.Close()
}
