// Package logger provides structured logging for the reconciliation engine,
// backed by logrus. Components obtain a named logger via WithComponent and
// attach run-scoped fields with WithFields.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Logger is the logging contract used throughout the engine
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	WithField(key string, value interface{}) Logger
	WithFields(fields Fields) Logger
	WithError(err error) Logger
	WithComponent(component string) Logger
}

// Fields is a map of structured log fields
type Fields map[string]interface{}

// Config holds logger options
type Config struct {
	Level  string `json:"level"`
	Format string `json:"format"` // "text" or "json"
	Output io.Writer
}

// DefaultConfig returns the default logger configuration: info-level text
// output on stderr.
func DefaultConfig() *Config {
	return &Config{
		Level:  "info",
		Format: "text",
		Output: os.Stderr,
	}
}

// New creates a Logger from the given configuration
func New(config *Config) (Logger, error) {
	if config == nil {
		config = DefaultConfig()
	}

	base := logrus.New()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", config.Level, err)
	}
	base.SetLevel(level)

	if config.Output != nil {
		base.SetOutput(config.Output)
	} else {
		base.SetOutput(os.Stderr)
	}

	switch strings.ToLower(config.Format) {
	case "json":
		base.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339})
	case "text", "":
		base.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	default:
		return nil, fmt.Errorf("invalid log format %q", config.Format)
	}

	return &entryLogger{entry: logrus.NewEntry(base)}, nil
}

// entryLogger wraps a logrus entry so that attached fields survive chaining
type entryLogger struct {
	entry *logrus.Entry
}

func (l *entryLogger) Debug(args ...interface{})                 { l.entry.Debug(args...) }
func (l *entryLogger) Debugf(format string, args ...interface{}) { l.entry.Debugf(format, args...) }
func (l *entryLogger) Info(args ...interface{})                  { l.entry.Info(args...) }
func (l *entryLogger) Infof(format string, args ...interface{})  { l.entry.Infof(format, args...) }
func (l *entryLogger) Warn(args ...interface{})                  { l.entry.Warn(args...) }
func (l *entryLogger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l *entryLogger) Error(args ...interface{})                 { l.entry.Error(args...) }
func (l *entryLogger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }

func (l *entryLogger) WithField(key string, value interface{}) Logger {
	return &entryLogger{entry: l.entry.WithField(key, value)}
}

func (l *entryLogger) WithFields(fields Fields) Logger {
	return &entryLogger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

func (l *entryLogger) WithError(err error) Logger {
	return &entryLogger{entry: l.entry.WithError(err)}
}

func (l *entryLogger) WithComponent(component string) Logger {
	return l.WithField("component", component)
}

var globalLogger Logger

func init() {
	var err error
	globalLogger, err = New(DefaultConfig())
	if err != nil {
		logrus.WithError(err).Fatal("failed to initialize logger")
	}
}

// SetGlobal replaces the global logger instance
func SetGlobal(logger Logger) {
	globalLogger = logger
}

// Global returns the global logger instance
func Global() Logger {
	return globalLogger
}

// WithComponent returns the global logger scoped to a component name
func WithComponent(component string) Logger {
	return globalLogger.WithComponent(component)
}
