package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ContextKey is the type for context keys used by the logger
type ContextKey string

const (
	// LoggerKey is the context key for the logger instance
	LoggerKey ContextKey = "logger"
)

// Output formats.
const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// New creates a console logger at info level.
func New() zerolog.Logger {
	return NewWithLevel("info")
}

// NewWithLevel creates a console logger writing to stderr at the given level.
// Unknown levels fall back to info.
func NewWithLevel(level string) zerolog.Logger {
	return NewWithConfig(level, FormatConsole)
}

// NewWithConfig creates a logger writing to stderr. The json format emits one object per
// line for log collectors; anything else is human readable.
func NewWithConfig(level, format string) zerolog.Logger {
	var out io.Writer = os.Stderr
	if format != FormatJSON {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	return NewWithWriter(out).Level(ParseLevel(level))
}

// NewWithWriter creates a new structured logger with a custom writer
func NewWithWriter(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Caller().Logger()
}

// ParseLevel maps a level name to a zerolog level.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// WithContext adds the logger to the context
func WithContext(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, LoggerKey, logger)
}

// FromContext retrieves the logger from the context or returns a default logger
func FromContext(ctx context.Context) zerolog.Logger {
	if logger, ok := ctx.Value(LoggerKey).(zerolog.Logger); ok {
		return logger
	}
	return New()
}

// Mask hides all but the last four characters of a login or account number.
func Mask(s string) string {
	const visible = 4
	r := []rune(s)
	if len(r) <= visible {
		return strings.Repeat("*", len(r))
	}
	return strings.Repeat("*", len(r)-visible) + string(r[len(r)-visible:])
}

// WithAccount returns a context whose logger tags every event with the masked account number.
func WithAccount(ctx context.Context, number string) (context.Context, zerolog.Logger) {
	log := FromContext(ctx).With().Str("account", Mask(number)).Logger()
	return WithContext(ctx, log), log
}

// Nop returns a context carrying a disabled logger.
func Nop(ctx context.Context) context.Context {
	return WithContext(ctx, zerolog.Nop())
}
