package http

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"slices"
	"time"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks that the store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ready", http.StatusOK
	checks := map[string]string{}
	switch {
	case s.store == nil:
		checks["store"] = "not_configured"
		status, code = "not_ready", http.StatusServiceUnavailable
	default:
		if err := s.store.Ping(ctx); err != nil {
			checks["store"] = fmt.Sprintf("failed: %v", err)
			status, code = "not_ready", http.StatusServiceUnavailable
		} else {
			checks["store"] = "ok"
		}
	}

	writeJSON(w, code, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes request, security and cache counters in plain text.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	req := s.tracer.GetMetrics()
	sec := s.detector.GetMetrics()

	fmt.Fprintf(w, "# HELP http_requests_total Total HTTP requests served\n")
	fmt.Fprintf(w, "# TYPE http_requests_total counter\n")
	fmt.Fprintf(w, "http_requests_total %d\n\n", req.TotalRequests)

	fmt.Fprintf(w, "# HELP http_errors_total HTTP responses by error class\n")
	fmt.Fprintf(w, "# TYPE http_errors_total counter\n")
	fmt.Fprintf(w, "http_errors_total{class=\"4xx\"} %d\n", req.ClientErrors)
	fmt.Fprintf(w, "http_errors_total{class=\"5xx\"} %d\n\n", req.ServerErrors)

	fmt.Fprintf(w, "# HELP http_response_time_avg_us Average response time in microseconds\n")
	fmt.Fprintf(w, "# TYPE http_response_time_avg_us gauge\n")
	fmt.Fprintf(w, "http_response_time_avg_us %d\n\n", req.AverageResponseTime)

	fmt.Fprintf(w, "# HELP http_slow_requests_total Requests that took a second or more\n")
	fmt.Fprintf(w, "# TYPE http_slow_requests_total counter\n")
	fmt.Fprintf(w, "http_slow_requests_total %d\n\n", req.SlowRequests)

	fmt.Fprintf(w, "# HELP rate_limit_hits_total Requests rejected by each rate limiter\n")
	fmt.Fprintf(w, "# TYPE rate_limit_hits_total counter\n")
	for _, l := range s.limiters {
		m := l.GetMetrics()
		fmt.Fprintf(w, "rate_limit_hits_total{limiter=%q} %d\n", m.Name, m.TotalHits)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "# HELP active_rate_limit_clients Currently tracked rate limit clients\n")
	fmt.Fprintf(w, "# TYPE active_rate_limit_clients gauge\n")
	for _, l := range s.limiters {
		m := l.GetMetrics()
		fmt.Fprintf(w, "active_rate_limit_clients{limiter=%q} %d\n", m.Name, m.ClientCount)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "# HELP suspicious_requests_total Total suspicious requests detected\n")
	fmt.Fprintf(w, "# TYPE suspicious_requests_total counter\n")
	fmt.Fprintf(w, "suspicious_requests_total %d\n\n", sec.SuspiciousRequests)
	if len(sec.ByReason) > 0 {
		fmt.Fprintf(w, "# HELP suspicious_requests_by_reason Suspicious requests by detection rule\n")
		fmt.Fprintf(w, "# TYPE suspicious_requests_by_reason counter\n")
		for _, reason := range slices.Sorted(maps.Keys(sec.ByReason)) {
			fmt.Fprintf(w, "suspicious_requests_by_reason{reason=%q} %d\n", reason, sec.ByReason[reason])
		}
		fmt.Fprintln(w)
	}

	if s.cache != nil {
		st := s.cache.Stats()
		fmt.Fprintf(w, "# HELP cache_entries Cached dashboards\n")
		fmt.Fprintf(w, "# TYPE cache_entries gauge\n")
		fmt.Fprintf(w, "cache_entries{type=\"dashboard\"} %d\n\n", st.Entries)

		fmt.Fprintf(w, "# HELP cache_lookups_total Dashboard cache lookups by result\n")
		fmt.Fprintf(w, "# TYPE cache_lookups_total counter\n")
		fmt.Fprintf(w, "cache_lookups_total{result=\"hit\"} %d\n", st.Hits)
		fmt.Fprintf(w, "cache_lookups_total{result=\"miss\"} %d\n\n", st.Misses)

		fmt.Fprintf(w, "# HELP cache_evictions_total Dashboards evicted to stay within CACHE_SIZE\n")
		fmt.Fprintf(w, "# TYPE cache_evictions_total counter\n")
		fmt.Fprintf(w, "cache_evictions_total %d\n\n", st.Evictions)
	}

	fmt.Fprintf(w, "# HELP uptime_seconds Application uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE uptime_seconds gauge\n")
	fmt.Fprintf(w, "uptime_seconds %.0f\n", time.Since(s.started).Seconds())
}
