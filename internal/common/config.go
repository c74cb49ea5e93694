package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Store       StoreConfig     `toml:"store"`
	Logging     LoggingConfig   `toml:"logging"`
	Tracking    TrackingConfig  `toml:"tracking"`
	Auth        AuthConfig      `toml:"auth"`
	AutoPause   AutoPauseConfig `toml:"auto_pause"`
	WebSocket   WebSocketConfig `toml:"websocket"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Type   string       `toml:"type"` // "badger" (default) or "sqlite"
	Badger BadgerConfig `toml:"badger"`
	SQLite SQLiteConfig `toml:"sqlite"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
	InMemory       bool   `toml:"in_memory"`        // Keep everything in memory (tests, demos)
}

// SQLiteConfig represents SQLite-specific configuration
type SQLiteConfig struct {
	Path          string `toml:"path"`
	BusyTimeoutMS int    `toml:"busy_timeout_ms"`
}

// StoreConfig controls the retry and timeout policy of atomic transitions.
type StoreConfig struct {
	MaxRetries int    `toml:"max_retries"` // Retries after a write conflict
	BaseDelay  string `toml:"base_delay"`  // First backoff delay, doubled per attempt
	MaxDelay   string `toml:"max_delay"`   // Backoff cap
	Timeout    string `toml:"timeout"`     // Deadline for one transition, "0s" disables
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Format     string   `toml:"format"`      // "json" or "text"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05")
	Dir        string   `toml:"dir"`         // Log file directory, defaults to logs/ beside the binary
}

// TrackingConfig controls the tracking event history endpoint.
type TrackingConfig struct {
	HistoryLimit    int    `toml:"history_limit"`     // Events returned per subject (default: 100)
	CacheTTL        string `toml:"cache_ttl"`         // Lifetime of cached histories, "0s" disables caching
	CacheMaxEntries int64  `toml:"cache_max_entries"` // Subjects kept in the cache
}

// AuthConfig lists the roles allowed to read any subject's tracking history.
type AuthConfig struct {
	ElevatedRoles []string `toml:"elevated_roles"`
}

// AutoPauseConfig controls the job that pauses timers left running.
type AutoPauseConfig struct {
	Enabled    bool   `toml:"enabled"`
	Schedule   string `toml:"schedule"`    // Cron expression (5 fields)
	MaxWorking string `toml:"max_working"` // Timers working longer than this are paused
}

// WebSocketConfig contains configuration for the live tracking feed
type WebSocketConfig struct {
	ThrottleInterval string `toml:"throttle_interval"` // Minimum gap between messages per client, "0s" disables
}

// NewDefaultConfig creates a configuration with default values
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Type: "badger",
			Badger: BadgerConfig{
				Path: "./data/badger",
			},
			SQLite: SQLiteConfig{
				Path:          "./data/shiftlog.db",
				BusyTimeoutMS: 5000,
			},
		},
		Store: StoreConfig{
			MaxRetries: 5,
			BaseDelay:  "10ms",
			MaxDelay:   "250ms",
			Timeout:    "5s",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     []string{"stdout"},
			TimeFormat: "15:04:05",
		},
		Tracking: TrackingConfig{
			HistoryLimit:    100,
			CacheTTL:        "30s",
			CacheMaxEntries: 10000,
		},
		Auth: AuthConfig{
			ElevatedRoles: []string{"Owner", "Administrator"},
		},
		AutoPause: AutoPauseConfig{
			Enabled:    false,
			Schedule:   "*/5 * * * *",
			MaxWorking: "12h",
		},
		WebSocket: WebSocketConfig{
			ThrottleInterval: "100ms",
		},
	}
}

// LoadFromFiles loads configuration from multiple files with priority: default -> file1 -> file2 -> ... -> env -> CLI
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal merges into the existing values
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("SHIFTLOG_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("SHIFTLOG_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("SHIFTLOG_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if storageType := os.Getenv("SHIFTLOG_STORAGE_TYPE"); storageType != "" {
		config.Storage.Type = storageType
	}
	if badgerPath := os.Getenv("SHIFTLOG_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if sqlitePath := os.Getenv("SHIFTLOG_SQLITE_PATH"); sqlitePath != "" {
		config.Storage.SQLite.Path = sqlitePath
	}

	// Store configuration
	if maxRetries := os.Getenv("SHIFTLOG_STORE_MAX_RETRIES"); maxRetries != "" {
		if mr, err := strconv.Atoi(maxRetries); err == nil {
			config.Store.MaxRetries = mr
		}
	}
	if timeout := os.Getenv("SHIFTLOG_STORE_TIMEOUT"); timeout != "" {
		config.Store.Timeout = timeout
	}

	// Logging configuration
	if level := os.Getenv("SHIFTLOG_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("SHIFTLOG_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("SHIFTLOG_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			if trimmed := strings.TrimSpace(o); trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Tracking configuration
	if limit := os.Getenv("SHIFTLOG_TRACKING_HISTORY_LIMIT"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil {
			config.Tracking.HistoryLimit = l
		}
	}
	if ttl := os.Getenv("SHIFTLOG_TRACKING_CACHE_TTL"); ttl != "" {
		config.Tracking.CacheTTL = ttl
	}

	// Auto-pause configuration
	if enabled := os.Getenv("SHIFTLOG_AUTO_PAUSE_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.AutoPause.Enabled = e
		}
	}
	if schedule := os.Getenv("SHIFTLOG_AUTO_PAUSE_SCHEDULE"); schedule != "" {
		config.AutoPause.Schedule = schedule
	}
	if maxWorking := os.Getenv("SHIFTLOG_AUTO_PAUSE_MAX_WORKING"); maxWorking != "" {
		config.AutoPause.MaxWorking = maxWorking
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Type {
	case "", "badger", "sqlite":
	default:
		return fmt.Errorf("unsupported storage type: %s (expected 'badger' or 'sqlite')", c.Storage.Type)
	}

	if c.IsProduction() && c.Storage.Badger.ResetOnStartup {
		return fmt.Errorf("storage.badger.reset_on_startup is not allowed in production")
	}

	for name, value := range map[string]string{
		"store.base_delay":            c.Store.BaseDelay,
		"store.max_delay":             c.Store.MaxDelay,
		"store.timeout":               c.Store.Timeout,
		"tracking.cache_ttl":          c.Tracking.CacheTTL,
		"auto_pause.max_working":      c.AutoPause.MaxWorking,
		"websocket.throttle_interval": c.WebSocket.ThrottleInterval,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration for %s: %w", name, err)
		}
	}

	if c.AutoPause.Enabled {
		if err := ValidateSchedule(c.AutoPause.Schedule); err != nil {
			return fmt.Errorf("invalid auto_pause.schedule: %w", err)
		}
	}

	return nil
}

// ValidateSchedule validates a standard 5-field cron expression
func ValidateSchedule(schedule string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// ParseDuration parses a config duration, falling back when empty or malformed.
func ParseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
