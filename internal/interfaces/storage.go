package interfaces

import "context"

// StorageManager - composite interface for all storage operations
type StorageManager interface {
	TimerStorage() TimerStorage
	TimeLogStorage() TimeLogStorage
	TrackingEventStorage() TrackingEventStorage

	// Backend names the storage engine ("badger" or "sqlite")
	Backend() string

	// Ping reports whether the store can still serve requests
	Ping(ctx context.Context) error

	Close() error
}
