package trace

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"dompet/internal/log"
)

func newTestMiddleware() *Middleware {
	logger := log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
	return NewMiddleware(func(r *http.Request) string { return "203.0.113.9" }, logger)
}

func TestMiddleware_RequestID(t *testing.T) {
	m := newTestMiddleware()
	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"generated", "", false},
		{"accepted", "abc-123_DEF", true},
		{"rejected chars", "abc 123<script>", false},
		{"too long", strings.Repeat("a", maxRequestIDLength+1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(HeaderRequestID, tt.incoming)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			got := rr.Header().Get(HeaderRequestID)
			if got == "" || got != seen {
				t.Fatalf("header %q, context %q", got, seen)
			}
			if tt.keep && got != tt.incoming {
				t.Errorf("id = %q, want %q", got, tt.incoming)
			}
			if _, err := uuid.Parse(got); !tt.keep && err != nil {
				t.Errorf("id = %q, want a generated uuid", got)
			}
		})
	}
}

func TestMiddleware_Metrics(t *testing.T) {
	m := newTestMiddleware()
	statuses := []int{http.StatusOK, http.StatusNotFound, http.StatusUnauthorized, http.StatusInternalServerError}
	for _, code := range statuses {
		h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
			w.WriteHeader(http.StatusTeapot)
		}))
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}

	got := m.GetMetrics()
	if got.TotalRequests != 4 || got.ClientErrors != 2 || got.ServerErrors != 1 || got.SlowRequests != 0 {
		t.Fatalf("metrics = %+v", got)
	}
	if got.AverageResponseTime < 0 {
		t.Errorf("average = %d", got.AverageResponseTime)
	}
}

func TestNewRequestID(t *testing.T) {
	a, b := NewRequestID(), NewRequestID()
	if a == b {
		t.Fatal("ids repeat")
	}
	if !validRequestID(a) {
		t.Fatalf("generated id %q fails validation", a)
	}
}

func TestMiddleware_StatusWithoutWriteHeader(t *testing.T) {
	m := newTestMiddleware()
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
		w.WriteHeader(http.StatusInternalServerError)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if got := m.GetMetrics(); got.ServerErrors != 0 || got.TotalRequests != 1 {
		t.Fatalf("a body written first fixes the status at 200, got %+v", got)
	}
}
