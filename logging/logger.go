package logging

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"sync/atomic"
)

// LogLevel represents the logging level
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

// LoggerInterface abstracts the leveled logger so components can accept
// an injected logger (a silent one in tests)
type LoggerInterface interface {
	Debug(msg string)
	Debugf(format string, args ...interface{})
	Info(msg string)
	Infof(format string, args ...interface{})
	Warn(msg string)
	Warnf(format string, args ...interface{})
	Error(msg string)
	Errorf(format string, args ...interface{})
}

// Logger provides leveled logging functionality
type Logger struct {
	level  atomic.Int32
	logger *log.Logger
}

// SetLevel changes the minimum level at runtime; safe for concurrent use
func (l *Logger) SetLevel(levelStr string) {
	l.level.Store(int32(parseLogLevel(levelStr)))
}

func (l *Logger) enabled(min LogLevel) bool {
	return LogLevel(l.level.Load()) <= min
}

var (
	globalLogger *Logger
	globalMu     sync.RWMutex
)

// NewLogger creates a new logger writing to the given file, or stderr when
// logFile is empty
func NewLogger(levelStr string, logFile string) (*Logger, error) {
	level := parseLogLevel(levelStr)

	var sink io.Writer = os.Stderr
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", logFile, err)
		}
		sink = file
	}

	l := &Logger{logger: log.New(sink, "", log.LstdFlags|log.Lshortfile)}
	l.level.Store(int32(level))
	return l, nil
}

// NewNopLogger returns a logger that discards everything; used in tests
func NewNopLogger() *Logger {
	l := &Logger{logger: log.New(io.Discard, "", 0)}
	l.level.Store(int32(LevelError + 1))
	return l
}

func parseLogLevel(levelStr string) LogLevel {
	switch strings.ToLower(levelStr) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Debug logs a debug message
func (l *Logger) Debug(msg string) {
	if l.enabled(LevelDebug) {
		l.logger.Printf("[DEBUG] %s", msg)
	}
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.enabled(LevelDebug) {
		l.logger.Printf("[DEBUG] "+format, args...)
	}
}

// Info logs an info message
func (l *Logger) Info(msg string) {
	if l.enabled(LevelInfo) {
		l.logger.Printf("[INFO] %s", msg)
	}
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	if l.enabled(LevelInfo) {
		l.logger.Printf("[INFO] "+format, args...)
	}
}

// Warn logs a warning message
func (l *Logger) Warn(msg string) {
	if l.enabled(LevelWarn) {
		l.logger.Printf("[WARN] %s", msg)
	}
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...interface{}) {
	if l.enabled(LevelWarn) {
		l.logger.Printf("[WARN] "+format, args...)
	}
}

// Error logs an error message
func (l *Logger) Error(msg string) {
	if l.enabled(LevelError) {
		l.logger.Printf("[ERROR] %s", msg)
	}
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	if l.enabled(LevelError) {
		l.logger.Printf("[ERROR] "+format, args...)
	}
}

// InitGlobalLogger initializes the process-wide logger
func InitGlobalLogger(logLevel, logFile string) error {
	logger, err := NewLogger(logLevel, logFile)
	if err != nil {
		return err
	}
	globalMu.Lock()
	globalLogger = logger
	globalMu.Unlock()
	return nil
}

// GetLogger returns the global logger, creating a stderr-backed default on
// first use
func GetLogger() *Logger {
	globalMu.RLock()
	l := globalLogger
	globalMu.RUnlock()
	if l != nil {
		return l
	}

	globalMu.Lock()
	defer globalMu.Unlock()
	if globalLogger == nil {
		globalLogger, _ = NewLogger("info", "")
	}
	return globalLogger
}
