package logger

import (
	"context"
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
)

type ctxKey struct{}

var defaultLogger = newCharm(DefaultConfig())

type (
	LogLevel string

	// Logger is the structured logging interface used across the engine.
	Logger interface {
		Debug(msg string, keyvals ...any)
		Info(msg string, keyvals ...any)
		Warn(msg string, keyvals ...any)
		Error(msg string, keyvals ...any)
		With(keyvals ...any) Logger
	}

	charmLogger struct {
		log *charmlog.Logger
	}
)

const (
	DebugLevel LogLevel = "debug"
	InfoLevel  LogLevel = "info"
	WarnLevel  LogLevel = "warn"
	ErrorLevel LogLevel = "error"
)

func (l LogLevel) toCharm() charmlog.Level {
	switch l {
	case DebugLevel:
		return charmlog.DebugLevel
	case WarnLevel:
		return charmlog.WarnLevel
	case ErrorLevel:
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}

type Config struct {
	Level      LogLevel
	Output     io.Writer
	JSON       bool
	TimeFormat string
}

func DefaultConfig() *Config {
	return &Config{
		Level:      InfoLevel,
		Output:     os.Stderr,
		TimeFormat: "15:04:05",
	}
}

func newCharm(cfg *Config) *charmLogger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	log := charmlog.NewWithOptions(out, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      cfg.TimeFormat,
		Level:           cfg.Level.toCharm(),
	})
	if cfg.JSON {
		log.SetFormatter(charmlog.JSONFormatter)
	}
	return &charmLogger{log: log}
}

func NewLogger(cfg *Config) Logger {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return newCharm(cfg)
}

// Init replaces the process default logger used when a context carries none.
func Init(cfg *Config) {
	defaultLogger = newCharm(cfg)
}

func (l *charmLogger) Debug(msg string, keyvals ...any) { l.log.Debug(msg, keyvals...) }
func (l *charmLogger) Info(msg string, keyvals ...any)  { l.log.Info(msg, keyvals...) }
func (l *charmLogger) Warn(msg string, keyvals ...any)  { l.log.Warn(msg, keyvals...) }
func (l *charmLogger) Error(msg string, keyvals ...any) { l.log.Error(msg, keyvals...) }

func (l *charmLogger) With(keyvals ...any) Logger {
	return &charmLogger{log: l.log.With(keyvals...)}
}

// ContextWithLogger attaches a logger to the context so downstream code can
// retrieve it with FromContext.
func ContextWithLogger(ctx context.Context, log Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, log)
}

// FromContext returns the logger attached to ctx, or the process default.
func FromContext(ctx context.Context) Logger {
	if ctx != nil {
		if log, ok := ctx.Value(ctxKey{}).(Logger); ok && log != nil {
			return log
		}
	}
	return defaultLogger
}
