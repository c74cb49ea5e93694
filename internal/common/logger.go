package common

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/arbor/models"
)

const (
	defaultTimeFormat = "15:04:05"
	logFileName       = "shiftlog.log"
	logFileMaxSize    = 100 * 1024 * 1024
	logFileBackups    = 3
)

var (
	globalLogger arbor.ILogger
	loggerOnce   sync.Once
	loggerMutex  sync.RWMutex
)

// GetLogger returns the process logger, falling back to a plain console logger before InitLogger runs
func GetLogger() arbor.ILogger {
	loggerOnce.Do(func() {
		loggerMutex.Lock()
		defer loggerMutex.Unlock()
		if globalLogger == nil {
			globalLogger = arbor.NewLogger().WithConsoleWriter(consoleWriter(defaultTimeFormat, true))
		}
	})

	loggerMutex.RLock()
	defer loggerMutex.RUnlock()
	return globalLogger
}

// InitLogger builds the logger described by config.Logging and installs it as the process logger
func InitLogger(config *Config) arbor.ILogger {
	cfg := config.Logging
	timeFormat := cfg.TimeFormat
	if timeFormat == "" {
		timeFormat = defaultTimeFormat
	}
	text := cfg.Format != "json"

	logger := arbor.NewLogger()
	for _, output := range cfg.Output {
		switch output {
		case "stdout", "console":
			logger = logger.WithConsoleWriter(consoleWriter(timeFormat, text))
		case "file":
			dir, err := ensureLogDir(cfg.Dir)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: file logging disabled: %v\n", err)
				continue
			}
			logger = logger.WithFileWriter(fileWriter(filepath.Join(dir, logFileName), timeFormat, text))
		}
	}
	logger = logger.WithLevelFromString(cfg.Level)

	loggerOnce.Do(func() {})
	loggerMutex.Lock()
	globalLogger = logger
	loggerMutex.Unlock()

	return logger
}

func consoleWriter(timeFormat string, text bool) models.WriterConfiguration {
	return models.WriterConfiguration{
		Type:       models.LogWriterTypeConsole,
		TimeFormat: timeFormat,
		TextOutput: text,
	}
}

func fileWriter(path, timeFormat string, text bool) models.WriterConfiguration {
	return models.WriterConfiguration{
		Type:       models.LogWriterTypeFile,
		FileName:   path,
		TimeFormat: timeFormat,
		MaxSize:    logFileMaxSize,
		MaxBackups: logFileBackups,
		TextOutput: text,
	}
}

// ensureLogDir resolves the log directory and creates it
func ensureLogDir(dir string) (string, error) {
	if dir == "" {
		dir = "logs"
		if execPath, err := os.Executable(); err == nil {
			dir = filepath.Join(filepath.Dir(execPath), "logs")
		}
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create log directory %s: %w", dir, err)
	}
	return dir, nil
}
