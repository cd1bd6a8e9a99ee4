package logging

import (
	"fmt"
	"log"
	"strings"
)

// Logger interface for logging operations, injectable into the simulation packages.
type Logger interface {
	Debugf(format string, v ...any)
	Infof(format string, v ...any)
	Warnf(format string, v ...any)
	Errorf(format string, v ...any)
}

// NoOpLogger is a logger that does nothing (useful for testing or when logging is disabled)
type NoOpLogger struct{}

func (n *NoOpLogger) Debugf(format string, v ...any) {}
func (n *NoOpLogger) Infof(format string, v ...any)  {}
func (n *NoOpLogger) Warnf(format string, v ...any)  {}
func (n *NoOpLogger) Errorf(format string, v ...any) {}

// NewNoOpLogger creates a no-op logger
func NewNoOpLogger() Logger {
	return &NoOpLogger{}
}

// OrNoOp returns l, or a no-op logger when l is nil.
func OrNoOp(l Logger) Logger {
	if l == nil {
		return NewNoOpLogger()
	}
	return l
}

// Level represents the logging level
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

// String returns the string representation of the log level
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelInfo:
		return "info"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// ParseLevel parses a string log level (case-insensitive) into a Level
func ParseLevel(level string) Level {
	switch strings.ToLower(level) {
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

// StdLogger provides leveled logging on top of the standard log package.
type StdLogger struct {
	level  Level
	logger *log.Logger
}

// NewLogger creates a new logger with the specified log level
func NewLogger(level string) *StdLogger {
	return &StdLogger{
		level:  ParseLevel(level),
		logger: log.Default(),
	}
}

// NewLoggerTo creates a leveled logger writing to the given *log.Logger.
func NewLoggerTo(level string, l *log.Logger) *StdLogger {
	return &StdLogger{level: ParseLevel(level), logger: l}
}

// Level returns the configured threshold.
func (l *StdLogger) Level() Level {
	return l.level
}

func (l *StdLogger) shouldLog(level Level) bool {
	return level >= l.level
}

func (l *StdLogger) output(level Level, format string, v ...any) {
	if !l.shouldLog(level) {
		return
	}
	_ = l.logger.Output(3, "["+strings.ToUpper(level.String())+"] "+fmt.Sprintf(format, v...))
}

// Debugf logs a debug message
func (l *StdLogger) Debugf(format string, v ...any) {
	l.output(LevelDebug, format, v...)
}

// Infof logs an info message
func (l *StdLogger) Infof(format string, v ...any) {
	l.output(LevelInfo, format, v...)
}

// Warnf logs a warning message
func (l *StdLogger) Warnf(format string, v ...any) {
	l.output(LevelWarn, format, v...)
}

// Errorf logs an error message
func (l *StdLogger) Errorf(format string, v ...any) {
	l.output(LevelError, format, v...)
}

// Fatalf logs an error message and exits
func (l *StdLogger) Fatalf(format string, v ...any) {
	l.logger.Fatalf("[FATAL] "+format, v...)
}
