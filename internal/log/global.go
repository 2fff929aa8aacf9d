package log

import (
	"log/slog"
	"sync"
)

var (
	defaultLogger *Logger
	loggerMu      sync.RWMutex
)

// SetDefaultLogger sets the process-wide default logger and routes the
// slog package default through it.
func SetDefaultLogger(logger *Logger) {
	loggerMu.Lock()
	defer loggerMu.Unlock()
	defaultLogger = logger
	if logger != nil {
		slog.SetDefault(logger.slog)
	}
}

// DefaultLogger returns the process-wide default logger.
// If none was configured, it falls back to a basic logger.
func DefaultLogger() *Logger {
	loggerMu.RLock()
	if defaultLogger != nil {
		defer loggerMu.RUnlock()
		return defaultLogger
	}
	loggerMu.RUnlock()

	logger := Default()
	SetDefaultLogger(logger)
	return logger
}

// OrDefault returns l, or the process default when l is nil.
func OrDefault(l *Logger) *Logger {
	if l != nil {
		return l
	}
	return DefaultLogger()
}
