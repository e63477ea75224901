// Package log is a thin layer over log/slog that tags every record with the
// component that wrote it and carries a request-scoped logger in the context.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is a slog.Logger bound to one component. The component attribute is
// attached exactly once; WithComponent swaps it instead of stacking another.
type Logger struct {
	*slog.Logger
	// base carries every attribute except the component.
	base      *slog.Logger
	component string
}

type Config struct {
	Level     slog.Level
	Component string
	// Handler overrides the stdout text handler built from Level.
	Handler slog.Handler
}

func DefaultConfig() Config {
	return Config{
		Level:     slog.LevelInfo,
		Component: ComponentApp,
	}
}

// ParseLevel maps a LOG_LEVEL value onto a slog level. Unknown values mean info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewHandler returns a JSON handler for format "json" and a text handler otherwise.
func NewHandler(w io.Writer, format string, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(format, "json") {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func New(config Config) *Logger {
	handler := config.Handler
	if handler == nil {
		handler = NewHandler(os.Stdout, "text", config.Level)
	}
	component := config.Component
	if component == "" {
		component = ComponentApp
	}
	return bind(slog.New(handler), component)
}

func bind(base *slog.Logger, component string) *Logger {
	return &Logger{
		Logger:    base.With(FieldComponent, component),
		base:      base,
		component: component,
	}
}

// With returns a logger carrying args on every record.
func (l *Logger) With(args ...any) *Logger {
	return bind(l.base.With(args...), l.component)
}

// WithComponent returns the same logger reporting as component.
func (l *Logger) WithComponent(component string) *Logger {
	if component == l.component {
		return l
	}
	return bind(l.base, component)
}

// ForUser scopes the logger to an authenticated user.
func (l *Logger) ForUser(userID string) *Logger {
	if userID == "" {
		return l
	}
	return l.With(FieldUserID, userID)
}

func (l *Logger) Component() string {
	return l.component
}

// SetDefault makes logger the process-wide slog default.
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}

type contextKey struct{}

// NewContext returns ctx carrying logger.
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext returns the logger stored in ctx, or one over slog.Default
// reporting as "unknown".
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(contextKey{}).(*Logger); ok {
		return logger
	}
	return bind(slog.Default(), "unknown")
}
