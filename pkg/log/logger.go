package log

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Level represents the severity of a log message.
type Level int

// Log levels.
const (
	DebugLevel Level = iota
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	case FatalLevel:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel maps a config string to a Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "info", "":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	case "fatal":
		return FatalLevel, nil
	default:
		return InfoLevel, errors.New("log: unknown level " + s)
	}
}

// Logger is the structured logging interface passed between components.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	// Fatal logs at error severity and exits the process.
	Fatal(msg string, fields ...Field)

	// With returns a logger carrying additional fields.
	With(fields ...Field) Logger

	SetLevel(level Level)
	GetLevel() Level
}

// core holds the mutable state shared by a logger and all its With
// derivatives.
type core struct {
	mu        sync.Mutex
	level     Level
	formatter Formatter
	outputs   []Output
}

func (c *core) enabled(l Level) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.level <= l
}

// BaseLogger implements Logger on top of a slog bridge.
type BaseLogger struct {
	core       *core
	slogLogger *slog.Logger
}

// Option configures a logger at construction.
type Option func(*core)

// WithLevel sets the minimum level.
func WithLevel(level Level) Option {
	return func(c *core) { c.level = level }
}

// WithFormatter sets the entry formatter.
func WithFormatter(f Formatter) Option {
	return func(c *core) { c.formatter = f }
}

// WithOutput adds an output.
func WithOutput(o Output) Option {
	return func(c *core) { c.outputs = append(c.outputs, o) }
}

// NewLogger creates a logger. Defaults: info level, text formatter,
// console output.
func NewLogger(options ...Option) Logger {
	c := &core{level: InfoLevel}
	for _, opt := range options {
		opt(c)
	}
	if c.formatter == nil {
		c.formatter = &TextFormatter{}
	}
	if len(c.outputs) == 0 {
		c.outputs = []Output{NewConsoleOutput()}
	}
	return &BaseLogger{core: c, slogLogger: slog.New(newBridgeHandler(c))}
}

// Debug logs at debug level.
func (l *BaseLogger) Debug(msg string, fields ...Field) { l.log(DebugLevel, msg, fields) }

// Info logs at info level.
func (l *BaseLogger) Info(msg string, fields ...Field) { l.log(InfoLevel, msg, fields) }

// Warn logs at warn level.
func (l *BaseLogger) Warn(msg string, fields ...Field) { l.log(WarnLevel, msg, fields) }

// Error logs at error level.
func (l *BaseLogger) Error(msg string, fields ...Field) { l.log(ErrorLevel, msg, fields) }

// Fatal logs at fatal level and exits.
func (l *BaseLogger) Fatal(msg string, fields ...Field) {
	l.log(FatalLevel, msg, fields)
	osExit(1)
}

// osExit is swapped in tests.
var osExit = os.Exit

func (l *BaseLogger) log(level Level, msg string, fields []Field) {
	if !l.core.enabled(level) {
		return
	}
	l.slogLogger.LogAttrs(context.Background(), toSlogLevel(level), msg, attrsFromFields(fields)...)
}

// With returns a logger carrying the extra fields on every record.
func (l *BaseLogger) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return l
	}
	args := make([]any, 0, len(fields))
	for _, a := range attrsFromFields(fields) {
		args = append(args, a)
	}
	return &BaseLogger{core: l.core, slogLogger: l.slogLogger.With(args...)}
}

// SetLevel adjusts the minimum level for this logger and all derivatives.
func (l *BaseLogger) SetLevel(level Level) {
	l.core.mu.Lock()
	l.core.level = level
	l.core.mu.Unlock()
}

// GetLevel returns the current minimum level.
func (l *BaseLogger) GetLevel() Level {
	l.core.mu.Lock()
	defer l.core.mu.Unlock()
	return l.core.level
}
