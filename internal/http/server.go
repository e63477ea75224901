// Package http serves the JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"dompet/internal/analytics"
	"dompet/internal/auth"
	"dompet/internal/cache"
	"dompet/internal/insight"
	"dompet/internal/log"
	"dompet/internal/middleware/ratelimit"
	"dompet/internal/middleware/security"
	"dompet/internal/middleware/trace"
	"dompet/internal/reports"
	"dompet/internal/services"
)

// Services are the operations behind the routes.
type Services struct {
	Users        *services.UserService
	Accounts     *services.AccountService
	Categories   *services.CategoryService
	Transactions *services.TransactionService
	Analytics    *analytics.Aggregator
	Insights     *insight.Service
	Statements   *reports.Builder
}

// Pinger reports whether the backing store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CacheStats is a cache whose counters show up in /metrics.
type CacheStats interface {
	Stats() cache.Stats
}

type Options struct {
	Addr               string
	Tokens             auth.Parser
	Store              Pinger
	Logger             *log.Logger
	RateLimitPerMinute int
	// AuthRateLimitPerMinute bounds register and login attempts per client.
	AuthRateLimitPerMinute int
	// TrustedProxies are CIDRs whose X-Forwarded-For is believed.
	TrustedProxies []string
	// Cache is optional.
	Cache CacheStats
}

const defaultAuthRateLimit = 10

type Server struct {
	http.Server
	svc    Services
	store  Pinger
	cache  CacheStats
	logger *log.Logger

	tracer   *trace.Middleware
	limiters []*ratelimit.Limiter
	detector *security.Detector
	started  time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run http.Server.
func NewServer(opts Options, svc Services) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	mutations := ratelimit.NewLimiter(ratelimit.Config{Name: "mutations", RequestsPerMinute: opts.RateLimitPerMinute})
	authPerMinute := opts.AuthRateLimitPerMinute
	if authPerMinute <= 0 {
		authPerMinute = defaultAuthRateLimit
	}
	logins := ratelimit.NewLimiter(ratelimit.Config{Name: "auth", RequestsPerMinute: authPerMinute})

	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", "cidr", cidr, "error", err)
		}
	}

	s := &Server{
		svc:      svc,
		store:    opts.Store,
		cache:    opts.Cache,
		logger:   logger,
		limiters: []*ratelimit.Limiter{mutations, logins},
		detector: detector,
		started:  time.Now(),
	}
	s.tracer = trace.NewMiddleware(detector.ExtractClientIP, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /metrics", s.handleMetrics)
	mux.HandleFunc("POST /api/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/auth/login", s.handleLogin)

	api := http.NewServeMux()
	api.HandleFunc("GET /api/me", s.handleMe)

	api.HandleFunc("GET /api/accounts", s.handleListAccounts)
	api.HandleFunc("POST /api/accounts", s.handleCreateAccount)
	api.HandleFunc("GET /api/accounts/{id}", s.handleGetAccount)
	api.HandleFunc("PATCH /api/accounts/{id}", s.handleUpdateAccount)
	api.HandleFunc("DELETE /api/accounts/{id}", s.handleDeleteAccount)
	api.HandleFunc("GET /api/accounts/{id}/impact", s.handleAccountImpact)

	api.HandleFunc("GET /api/categories", s.handleListCategories)
	api.HandleFunc("POST /api/categories", s.handleCreateCategory)
	api.HandleFunc("PATCH /api/categories/{id}", s.handleUpdateCategory)
	api.HandleFunc("DELETE /api/categories/{id}", s.handleDeleteCategory)

	api.HandleFunc("GET /api/transactions", s.handleListTransactions)
	api.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	api.HandleFunc("GET /api/transactions/{id}", s.handleGetTransaction)
	api.HandleFunc("PATCH /api/transactions/{id}", s.handleUpdateTransaction)
	api.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	api.HandleFunc("GET /api/dashboard", s.handleDashboard)
	api.HandleFunc("GET /api/analytics/trend", s.handleTrend)
	api.HandleFunc("GET /api/reports/statement", s.handleStatement)

	api.HandleFunc("GET /api/insights", s.handleListInsights)
	api.HandleFunc("POST /api/insights/generate", s.handleGenerateInsight)
	api.HandleFunc("PATCH /api/insights/{id}", s.handleMarkInsightRead)
	api.HandleFunc("DELETE /api/insights/{id}", s.handleDeleteInsight)

	userScoped := log.UserMiddleware(func(r *http.Request) string {
		id, _ := auth.UserIDFromContext(r.Context())
		return id
	})(api)
	mux.Handle("/api/", auth.Middleware(opts.Tokens, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	})(userScoped))

	// Outermost first: trace, headers, detection, rate limit, logger.
	var h http.Handler = mux
	h = log.RequestIDMiddleware(func(r *http.Request) string {
		return trace.GetRequestID(r.Context())
	})(h)
	h = log.Middleware(logger)(h)
	tooMany := func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusTooManyRequests, "Terlalu banyak permintaan, coba lagi nanti")
	}
	h = mutations.Middleware(detector.ExtractClientIP, ratelimit.Mutating, tooMany)(h)
	h = logins.Middleware(detector.ExtractClientIP, ratelimit.PathPrefix("/api/auth/"), tooMany)(h)
	h = detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Shutdown stops the rate limiters and drains the HTTP server. Safe to call twice.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		for _, l := range s.limiters {
			l.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
