package log

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
)

// LogLevel represents logging severity
type LogLevel int

const (
	// LogLevelDebug for detailed debugging information
	LogLevelDebug LogLevel = iota
	// LogLevelInfo for general informational messages
	LogLevelInfo
	// LogLevelWarn for warning messages
	LogLevelWarn
	// LogLevelError for error messages
	LogLevelError
	// LogLevelNone disables all logging
	LogLevelNone
)

// Logger is the diagnostic logger used by the pipeline, the stores and the
// collaborator clients.
type Logger interface {
	Debug(format string, v ...any)
	Info(format string, v ...any)
	Warn(format string, v ...any)
	Error(format string, v ...any)
}

// String returns the string representation of LogLevel
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	case LogLevelNone:
		return "NONE"
	default:
		return fmt.Sprintf("UNKNOWN(%d)", l)
	}
}

// ParseLevel converts a level name such as "debug" or "WARN" into a LogLevel.
func ParseLevel(name string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LogLevelDebug, nil
	case "", "info":
		return LogLevelInfo, nil
	case "warn", "warning":
		return LogLevelWarn, nil
	case "error":
		return LogLevelError, nil
	case "none", "off", "disable":
		return LogLevelNone, nil
	default:
		return LogLevelInfo, fmt.Errorf("unknown log level %q", name)
	}
}

// DefaultLogger implements Logger using Go's standard log package
type DefaultLogger struct {
	logger *log.Logger
	level  LogLevel
}

// NewDefaultLogger creates a logger writing to stderr.
func NewDefaultLogger(level LogLevel) *DefaultLogger {
	return NewCustomLogger(os.Stderr, level)
}

// NewCustomLogger creates a logger with custom output
func NewCustomLogger(out io.Writer, level LogLevel) *DefaultLogger {
	return &DefaultLogger{
		logger: log.New(out, "[researchgraph] ", log.LstdFlags),
		level:  level,
	}
}

func (l *DefaultLogger) printf(level LogLevel, format string, v ...any) {
	if l.level <= level {
		l.logger.Printf("["+level.String()+"] "+format, v...)
	}
}

// Debug logs debug messages
func (l *DefaultLogger) Debug(format string, v ...any) { l.printf(LogLevelDebug, format, v...) }

// Info logs informational messages
func (l *DefaultLogger) Info(format string, v ...any) { l.printf(LogLevelInfo, format, v...) }

// Warn logs warning messages
func (l *DefaultLogger) Warn(format string, v ...any) { l.printf(LogLevelWarn, format, v...) }

// Error logs error messages
func (l *DefaultLogger) Error(format string, v ...any) { l.printf(LogLevelError, format, v...) }

// NoOpLogger discards everything.
type NoOpLogger struct{}

func (NoOpLogger) Debug(string, ...any) {}
func (NoOpLogger) Info(string, ...any)  {}
func (NoOpLogger) Warn(string, ...any)  {}
func (NoOpLogger) Error(string, ...any) {}

// componentLogger prefixes every message with a component name.
type componentLogger struct {
	next   Logger
	prefix string
}

// WithComponent returns a Logger that tags messages with "[name] ".
func WithComponent(logger Logger, name string) Logger {
	if logger == nil {
		logger = GetDefaultLogger()
	}
	return &componentLogger{next: logger, prefix: "[" + name + "] "}
}

func (c *componentLogger) Debug(format string, v ...any) { c.next.Debug(c.prefix+format, v...) }
func (c *componentLogger) Info(format string, v ...any)  { c.next.Info(c.prefix+format, v...) }
func (c *componentLogger) Warn(format string, v ...any)  { c.next.Warn(c.prefix+format, v...) }
func (c *componentLogger) Error(format string, v ...any) { c.next.Error(c.prefix+format, v...) }

// Package-level logger (default is DefaultLogger with info level)
var defaultLogger Logger = NewDefaultLogger(LogLevelInfo)

// SetDefaultLogger sets the package-level logger
func SetDefaultLogger(logger Logger) {
	defaultLogger = logger
}

// GetDefaultLogger returns the current package-level logger
func GetDefaultLogger() Logger {
	return defaultLogger
}

// SetLogLevel replaces the package-level logger with a DefaultLogger at level.
func SetLogLevel(level LogLevel) {
	defaultLogger = NewDefaultLogger(level)
}

// Debug logs a debug message using the package-level logger
func Debug(format string, v ...any) { defaultLogger.Debug(format, v...) }

// Info logs an informational message using the package-level logger
func Info(format string, v ...any) { defaultLogger.Info(format, v...) }

// Warn logs a warning message using the package-level logger
func Warn(format string, v ...any) { defaultLogger.Warn(format, v...) }

// Error logs an error message using the package-level logger
func Error(format string, v ...any) { defaultLogger.Error(format, v...) }
