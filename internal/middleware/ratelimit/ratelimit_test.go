package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestLimiter(t *testing.T, perMinute int) (*Limiter, *time.Time) {
	t.Helper()
	rl := NewLimiter(Config{Name: "test", RequestsPerMinute: perMinute, CleanupInterval: time.Hour})
	t.Cleanup(rl.Stop)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }
	return rl, &now
}

func TestLimiter_Allow(t *testing.T) {
	rl, now := newTestLimiter(t, 3)

	for i := 0; i < 3; i++ {
		if !rl.Allow("10.0.0.1") {
			t.Fatalf("request %d rejected", i+1)
		}
	}
	if rl.Allow("10.0.0.1") {
		t.Fatal("fourth request allowed")
	}
	if !rl.Allow("10.0.0.2") {
		t.Fatal("other client rejected")
	}

	*now = now.Add(window)
	if !rl.Allow("10.0.0.1") {
		t.Fatal("request in new window rejected")
	}

	m := rl.GetMetrics()
	if m.TotalHits != 1 || m.ClientCount != 2 {
		t.Fatalf("metrics = %+v", m)
	}
}

func TestLimiter_Cleanup(t *testing.T) {
	rl, now := newTestLimiter(t, 10)
	rl.Allow("a")
	*now = now.Add(5 * time.Minute)
	rl.Allow("b")
	*now = now.Add(6 * time.Minute)

	if n := rl.cleanupStaleEntries(); n != 1 {
		t.Fatalf("removed = %d, want 1", n)
	}
	if m := rl.GetMetrics(); m.ClientCount != 1 {
		t.Fatalf("clients = %d, want 1", m.ClientCount)
	}
}

func TestMutating(t *testing.T) {
	tests := map[string]bool{
		http.MethodGet:     false,
		http.MethodHead:    false,
		http.MethodOptions: false,
		http.MethodPost:    true,
		http.MethodPut:     true,
		http.MethodPatch:   true,
		http.MethodDelete:  true,
	}
	for method, want := range tests {
		if got := Mutating(httptest.NewRequest(method, "/", nil)); got != want {
			t.Errorf("Mutating(%s) = %v, want %v", method, got, want)
		}
	}
}

func TestMiddleware(t *testing.T) {
	rl, _ := newTestLimiter(t, 1)
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := rl.Middleware(func(*http.Request) string { return "1.2.3.4" }, Mutating, nil)(ok)

	send := func(method string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(method, "/api/transactions", nil))
		return rr
	}

	if rr := send(http.MethodPost); rr.Code != http.StatusNoContent {
		t.Fatalf("first POST = %d", rr.Code)
	}
	rr := send(http.MethodPost)
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second POST = %d, want 429", rr.Code)
	}
	if rr.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q", rr.Header().Get("Retry-After"))
	}
	if rr := send(http.MethodGet); rr.Code != http.StatusNoContent {
		t.Fatalf("GET = %d, reads are not limited", rr.Code)
	}
}

func TestMiddleware_RetryAfterCountsDown(t *testing.T) {
	rl, now := newTestLimiter(t, 1)
	h := rl.Middleware(func(*http.Request) string { return "1.2.3.4" }, PathPrefix("/api/auth/"), nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	send := func(path string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, path, nil))
		return rr
	}

	send("/api/auth/login")
	*now = now.Add(45 * time.Second)
	rr := send("/api/auth/login")
	if rr.Code != http.StatusTooManyRequests || rr.Header().Get("Retry-After") != "15" {
		t.Fatalf("status %d, Retry-After %q", rr.Code, rr.Header().Get("Retry-After"))
	}
	if rr := send("/api/transactions"); rr.Code != http.StatusOK {
		t.Fatalf("path outside prefix limited: %d", rr.Code)
	}
	if m := rl.GetMetrics(); m.Name != "test" || m.TotalHits != 1 {
		t.Fatalf("metrics = %+v", m)
	}
}
