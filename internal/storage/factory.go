package storage

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/shiftlog/internal/common"
	"github.com/ternarybob/shiftlog/internal/interfaces"
	"github.com/ternarybob/shiftlog/internal/storage/badger"
	"github.com/ternarybob/shiftlog/internal/storage/sqlite"
)

// NewStorageManager creates a new storage manager based on config
func NewStorageManager(logger arbor.ILogger, config *common.Config) (interfaces.StorageManager, error) {
	retry := common.NewRetryConfig(config.Store)

	switch config.Storage.Type {
	case "", "badger":
		return badger.NewManager(logger, &config.Storage.Badger, retry)
	case "sqlite":
		return sqlite.NewManager(logger, &config.Storage.SQLite, retry)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s (expected 'badger' or 'sqlite')", config.Storage.Type)
	}
}
