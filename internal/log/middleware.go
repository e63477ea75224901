package log

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"dompet/internal/core"
)

// Middleware puts logger into every request context.
func Middleware(logger *Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), logger)))
		})
	}
}

// AttrMiddleware adds key=extract(r) to the request logger. Empty values are
// skipped, so it can sit in front of handlers that may not set them.
func AttrMiddleware(key string, extract func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if v := extract(r); v != "" {
				ctx := r.Context()
				r = r.WithContext(NewContext(ctx, FromContext(ctx).With(key, v)))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequestIDMiddleware tags the request logger with the request id.
func RequestIDMiddleware(extractRequestID func(*http.Request) string) func(http.Handler) http.Handler {
	return AttrMiddleware(FieldRequestID, extractRequestID)
}

// UserMiddleware tags the request logger with the authenticated user.
func UserMiddleware(extractUserID func(*http.Request) string) func(http.Handler) http.Handler {
	return AttrMiddleware(FieldUserID, extractUserID)
}

// StructuredLogger writes the recurring log lines of the ledger and the
// HTTP layer with a fixed set of fields.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(logger *Logger) *StructuredLogger {
	return &StructuredLogger{logger: logger}
}

func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent"), r.Header.Get("Referer")).
		WithClientIP(clientIP)

	sl.logger.WithComponent(ComponentHTTP).DebugContext(ctx, "HTTP request started", fields.ToSlice()...)
}

// LogHTTPEnd logs the finished request at a level chosen by the status:
// info below 400, warn for client errors, error for server errors.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	fields := NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", "").
		WithHTTPResponse(statusCode, durationMs, statusCode < 400).
		WithClientIP(clientIP)

	sl.logger.WithComponent(ComponentHTTP).Log(ctx, levelForStatus(statusCode), "HTTP request completed", fields.ToSlice()...)
}

func levelForStatus(status int) slog.Level {
	switch {
	case status >= 500:
		return slog.LevelError
	case status >= 400:
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}

// LogTransaction records a committed ledger mutation and the balance delta
// it applied.
func (sl *StructuredLogger) LogTransaction(ctx context.Context, op string, t core.Transaction, delta core.Money) {
	fields := NewFields().
		WithUser(t.UserID).
		WithTransaction(t.ID, t.AccountID, string(t.Kind), t.Amount.Cents).
		WithOperation(op)
	fields[FieldDeltaCents] = delta.Cents

	sl.logger.WithComponent(ComponentLedger).InfoContext(ctx, "Transaction "+op+"d", fields.ToSlice()...)
}

// LogError logs err under component. The error type is derived from err
// unless fields already carry one.
func (sl *StructuredLogger) LogError(ctx context.Context, msg string, err error, component string, operation string, fields LogFields) {
	if fields == nil {
		fields = NewFields()
	}
	if _, ok := fields[FieldErrorType]; !ok {
		fields.WithErrorType(ErrorTypeOf(err))
	}
	fields.WithError(err).WithOperation(operation)

	sl.logger.WithComponent(component).ErrorContext(ctx, msg, fields.ToSlice()...)
}

// ErrorTypeOf classifies err by the domain sentinel it wraps.
func ErrorTypeOf(err error) string {
	switch {
	case errors.Is(err, core.ErrValidation), errors.Is(err, core.ErrInvalidAmount), errors.Is(err, core.ErrInvalidPeriod):
		return ErrorTypeValidation
	case errors.Is(err, core.ErrUnauthorized):
		return ErrorTypeAuth
	case errors.Is(err, core.ErrNotFound):
		return ErrorTypeNotFound
	case errors.Is(err, core.ErrConflict):
		return ErrorTypeConflict
	case errors.Is(err, context.DeadlineExceeded):
		return ErrorTypeTimeout
	default:
		return ErrorTypeInternal
	}
}
