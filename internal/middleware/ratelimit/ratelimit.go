// Package ratelimit is a fixed-window limiter keyed by client address.
package ratelimit

import (
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"dompet/internal/log"
)

const (
	window   = time.Minute
	staleTTL = 10 * time.Minute
	minRetry = time.Second
)

type Limiter struct {
	name              string
	requestsPerMinute int
	cleanupInterval   time.Duration
	now               func() time.Time

	mu      sync.Mutex
	clients map[string]*clientWindow

	hits         atomic.Int64
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientWindow struct {
	start    time.Time
	last     time.Time
	requests int
}

type Config struct {
	// Name labels the limiter in logs and metrics.
	Name              string
	RequestsPerMinute int
	CleanupInterval   time.Duration
}

func DefaultConfig() Config {
	return Config{
		Name:              "default",
		RequestsPerMinute: 60,
		CleanupInterval:   5 * time.Minute,
	}
}

// NewLimiter starts a limiter and its cleanup loop. Call Stop to end it.
func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.Name == "" {
		config.Name = def.Name
	}
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}

	rl := &Limiter{
		name:              config.Name,
		requestsPerMinute: config.RequestsPerMinute,
		cleanupInterval:   config.CleanupInterval,
		now:               time.Now,
		clients:           make(map[string]*clientWindow),
		stopCleanup:       make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *Limiter) Name() string { return rl.name }

// Allow reports whether another request from key fits the current window.
func (rl *Limiter) Allow(key string) bool {
	ok, _ := rl.take(key)
	return ok
}

// take counts a request for key. When it does not fit, the returned duration
// is the time left until the window resets.
func (rl *Limiter) take(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	cw, ok := rl.clients[key]
	if !ok || now.Sub(cw.start) >= window {
		rl.clients[key] = &clientWindow{start: now, last: now, requests: 1}
		return true, 0
	}

	cw.requests++
	cw.last = now
	if cw.requests > rl.requestsPerMinute {
		rl.hits.Add(1)
		return false, max(window-now.Sub(cw.start), minRetry)
	}
	return true, 0
}

func (rl *Limiter) startCleanup() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries forgets clients idle for longer than staleTTL.
func (rl *Limiter) cleanupStaleEntries() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	cutoff := rl.now().Add(-staleTTL)
	for key, cw := range rl.clients {
		if cw.last.Before(cutoff) {
			delete(rl.clients, key)
			removed++
		}
	}
	if removed > 0 {
		slog.Debug("Rate limiter cleanup completed",
			log.FieldComponent, log.ComponentRateLimit,
			"limiter", rl.name,
			"removed", removed)
	}
	return removed
}

// Stop ends the cleanup loop. Safe to call more than once.
func (rl *Limiter) Stop() {
	rl.shutdownOnce.Do(func() {
		close(rl.stopCleanup)
	})
}

type Metrics struct {
	Name        string
	TotalHits   int64
	ClientCount int64
}

func (rl *Limiter) GetMetrics() Metrics {
	rl.mu.Lock()
	clients := int64(len(rl.clients))
	rl.mu.Unlock()

	return Metrics{
		Name:        rl.name,
		TotalHits:   rl.hits.Load(),
		ClientCount: clients,
	}
}

// Middleware limits the requests selected by limited, keyed by extractIP. A
// nil limited applies the limit to every request; a nil onLimit answers with
// a plain-text 429.
func (rl *Limiter) Middleware(extractIP func(*http.Request) string, limited func(*http.Request) bool, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limited != nil && !limited(r) {
				next.ServeHTTP(w, r)
				return
			}

			clientIP := extractIP(r)
			ok, retry := rl.take(clientIP)
			if ok {
				next.ServeHTTP(w, r)
				return
			}

			slog.WarnContext(r.Context(), "Rate limit exceeded",
				log.FieldComponent, log.ComponentRateLimit,
				"limiter", rl.name,
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retry.Seconds()))))
			if onLimit != nil {
				onLimit(w, r)
				return
			}
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
		})
	}
}

// Mutating reports whether r changes state.
func Mutating(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

// PathPrefix selects requests under prefix.
func PathPrefix(prefix string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		return strings.HasPrefix(r.URL.Path, prefix)
	}
}
