// Package trace tags each request with an id and keeps request counters for
// the metrics endpoint.
package trace

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"dompet/internal/log"
)

// HeaderRequestID carries the request id in both directions.
const HeaderRequestID = "X-Request-ID"

const (
	maxRequestIDLength = 64
	slowRequest        = time.Second
)

type requestIDKey struct{}

// Middleware assigns request ids, logs each request and counts outcomes.
type Middleware struct {
	clientIP func(*http.Request) string
	logger   *log.Logger

	requests   atomic.Int64
	clientErrs atomic.Int64
	serverErrs atomic.Int64
	slow       atomic.Int64
	totalUs    atomic.Int64
}

// Metrics is a snapshot of the counters.
type Metrics struct {
	TotalRequests int64
	ClientErrors  int64
	ServerErrors  int64
	SlowRequests  int64
	// AverageResponseTime is in microseconds.
	AverageResponseTime int64
}

// NewMiddleware logs with logger; clientIP may be nil.
func NewMiddleware(clientIP func(*http.Request) string, logger *log.Logger) *Middleware {
	return &Middleware{clientIP: clientIP, logger: logger.WithComponent(log.ComponentTrace)}
}

func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		id := r.Header.Get(HeaderRequestID)
		if !validRequestID(id) {
			id = NewRequestID()
		}
		w.Header().Set(HeaderRequestID, id)
		r = r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id))

		var ip string
		if m.clientIP != nil {
			ip = m.clientIP(r)
		}
		sl := log.NewStructuredLogger(m.logger.With(log.FieldRequestID, id))
		sl.LogHTTPStart(r.Context(), r, ip)

		sw := &statusWriter{ResponseWriter: w}
		next.ServeHTTP(sw, r)

		elapsed := time.Since(start)
		m.count(sw.status(), elapsed)
		sl.LogHTTPEnd(r.Context(), r, sw.status(), elapsed.Milliseconds(), ip)
		if elapsed >= slowRequest {
			m.logger.WarnContext(r.Context(), "Slow request",
				log.FieldRequestID, id,
				log.FieldPath, r.URL.Path,
				log.FieldDuration, elapsed.Milliseconds())
		}
	})
}

func (m *Middleware) count(status int, elapsed time.Duration) {
	m.requests.Add(1)
	m.totalUs.Add(elapsed.Microseconds())
	if elapsed >= slowRequest {
		m.slow.Add(1)
	}
	if status >= 500 {
		m.serverErrs.Add(1)
	} else if status >= 400 {
		m.clientErrs.Add(1)
	}
}

// statusWriter remembers the first status written.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.code == 0 {
		w.code = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.code == 0 {
		w.code = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

func (w *statusWriter) status() int {
	if w.code == 0 {
		return http.StatusOK
	}
	return w.code
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *statusWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// NewRequestID returns a random UUID.
func NewRequestID() string {
	return uuid.NewString()
}

// validRequestID accepts ids of up to 64 letters, digits, '-' or '_' so a
// caller's own id can be echoed back into logs safely.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for _, c := range id {
		ok := c == '-' || c == '_' ||
			('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')
		if !ok {
			return false
		}
	}
	return true
}

// GetRequestID returns the id the middleware stored in ctx, or "".
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func (m *Middleware) GetMetrics() Metrics {
	out := Metrics{
		TotalRequests: m.requests.Load(),
		ClientErrors:  m.clientErrs.Load(),
		ServerErrors:  m.serverErrs.Load(),
		SlowRequests:  m.slow.Load(),
	}
	if out.TotalRequests > 0 {
		out.AverageResponseTime = m.totalUs.Load() / out.TotalRequests
	}
	return out
}
