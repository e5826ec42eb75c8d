// Package logger provides structured logging for the SQL engine
package logger

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog with engine-specific helpers.
type Logger struct {
	zlog zerolog.Logger
}

// Config holds logger configuration.
type Config struct {
	Level      string // debug, info, warn, error
	Pretty     bool   // pretty-print for development
	Output     io.Writer
	WithCaller bool
}

// New creates a structured logger per cfg.
func New(cfg Config) *Logger {
	level := zerolog.InfoLevel
	switch cfg.Level {
	case "debug":
		level = zerolog.DebugLevel
	case "info":
		level = zerolog.InfoLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}
	}

	zlog := zerolog.New(output).
		With().
		Timestamp().
		Str("service", "sqlengine").
		Logger()

	if cfg.WithCaller {
		zlog = zlog.With().Caller().Logger()
	}

	return &Logger{zlog: zlog}
}

// GetZerolog returns the underlying zerolog logger.
func (l *Logger) GetZerolog() *zerolog.Logger { return &l.zlog }

// Info logs an info message.
func (l *Logger) Info(msg string) *zerolog.Event { return l.zlog.Info().Str("msg", msg) }

// Debug logs a debug message.
func (l *Logger) Debug(msg string) *zerolog.Event { return l.zlog.Debug().Str("msg", msg) }

// Warn logs a warning message.
func (l *Logger) Warn(msg string) *zerolog.Event { return l.zlog.Warn().Str("msg", msg) }

// Error logs an error message.
func (l *Logger) Error(msg string) *zerolog.Event { return l.zlog.Error().Str("msg", msg) }

// Fatal logs a fatal message and exits.
func (l *Logger) Fatal(msg string) *zerolog.Event { return l.zlog.Fatal().Str("msg", msg) }

// WithFields returns a logger with additional fields attached.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	ctx := l.zlog.With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	return &Logger{zlog: ctx.Logger()}
}

// StorageLogger returns a logger scoped to page/buffer-pool I/O.
func (l *Logger) StorageLogger(table string) *Logger {
	return &Logger{
		zlog: l.zlog.With().
			Str("component", "storage").
			Str("table", table).
			Logger(),
	}
}

// StatementLogger returns a logger scoped to one executed statement.
func (l *Logger) StatementLogger(kind string) *Logger {
	return &Logger{
		zlog: l.zlog.With().
			Str("component", "executor").
			Str("statement", kind).
			Logger(),
	}
}

// LogStatement logs a completed statement with its row count and error.
func (l *Logger) LogStatement(kind string, duration time.Duration, rows int, err error) {
	event := l.zlog.Info().
		Str("component", "executor").
		Str("statement", kind).
		Dur("duration_ms", duration).
		Int("rows", rows)

	if err != nil {
		event = l.zlog.Error().
			Str("component", "executor").
			Str("statement", kind).
			Dur("duration_ms", duration).
			Err(err)
	}

	event.Msg("statement executed")
}

// LogIndexRebuild logs the result of rebuilding one index at catalog open.
func (l *Logger) LogIndexRebuild(name, table string, duration time.Duration, rows int) {
	l.zlog.Info().
		Str("component", "catalog").
		Str("index", name).
		Str("table", table).
		Dur("duration_ms", duration).
		Int("rows", rows).
		Msg("index rebuilt")
}

// LogFlush logs a flush_all boundary, the only persistence checkpoint.
func (l *Logger) LogFlush(duration time.Duration, err error) {
	event := l.zlog.Info().
		Str("component", "catalog").
		Dur("duration_ms", duration)
	if err != nil {
		event = l.zlog.Error().
			Str("component", "catalog").
			Dur("duration_ms", duration).
			Err(err)
	}
	event.Msg("flush_all completed")
}
