/*
Package logx provides a structured logging wrapper based on zerolog.

It configures the global logger (level, console or JSON output, service tag), bridges the
standard library logger into it, and offers key-value helpers for the common levels plus
per-component and per-request child loggers.
*/
package logx

import (
	"context"
	"io"
	stdlog "log"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds logger configuration.
type Config struct {
	// Level is one of trace, debug, info, warn, error or fatal. Unknown values select info.
	Level string

	// Pretty switches to the human-readable console writer.
	Pretty bool

	// ServiceName, when set, is attached to every entry.
	ServiceName string
}

// New builds a logger from cfg writing to w.
func New(w io.Writer, cfg Config) zerolog.Logger {
	if cfg.Pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	ctx := zerolog.New(w).Level(ParseLevel(cfg.Level)).With().Timestamp()
	if cfg.ServiceName != "" {
		ctx = ctx.Str("service", cfg.ServiceName)
	}

	return ctx.Logger()
}

// Init replaces the global logger. Entries carry caller information and output of the
// standard library logger is routed through it.
func Init(cfg Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	out := io.Writer(os.Stdout)
	if cfg.Pretty {
		out = os.Stderr
	}

	log.Logger = New(out, cfg).With().Caller().Logger()

	stdlog.SetFlags(0)
	stdlog.SetOutput(log.Logger.With().Str("source", "stdlog").Logger())
}

// ParseLevel maps a level name to a zerolog level.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Logger returns a pointer to the global zerolog.Logger instance.
func Logger() *zerolog.Logger {
	return &log.Logger
}

// Component returns a child of the global logger tagged with the given component name.
func Component(name string) zerolog.Logger {
	return Logger().With().Str("component", name).Logger()
}

// FromContext returns the request logger injected by RequestLogger, or the global logger.
func FromContext(ctx context.Context) *zerolog.Logger {
	if l := zerolog.Ctx(ctx); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return Logger()
}

// emit attaches key-value fields to e and sends it. An odd number of fields is reported
// instead of being passed to zerolog, which would misalign keys and values.
func emit(e *zerolog.Event, msg string, fields []any) {
	if len(fields)%2 != 0 {
		e.Int("fields_count", len(fields)).Str("fields_error", "odd number of key-value fields")
		fields = nil
	}

	e.Fields(fields).CallerSkipFrame(2).Msg(msg)
}

// Debug logs msg at debug level with optional key-value fields.
func Debug(msg string, fields ...any) {
	emit(Logger().Debug(), msg, fields)
}

// Info logs msg at info level with optional key-value fields.
func Info(msg string, fields ...any) {
	emit(Logger().Info(), msg, fields)
}

// Warn logs msg at warn level with optional key-value fields.
func Warn(msg string, fields ...any) {
	emit(Logger().Warn(), msg, fields)
}

// Error logs err and msg at error level with optional key-value fields.
func Error(err error, msg string, fields ...any) {
	emit(Logger().Error().Err(err), msg, fields)
}

// Fatal logs like Error and then exits the process.
func Fatal(err error, msg string, fields ...any) {
	emit(Logger().Fatal().Err(err), msg, fields)
}
