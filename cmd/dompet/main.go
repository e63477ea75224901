package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"dompet/internal/amqp"
	"dompet/internal/analytics"
	"dompet/internal/auth"
	"dompet/internal/backend"
	"dompet/internal/cache"
	"dompet/internal/categorize"
	"dompet/internal/cli"
	"dompet/internal/config"
	"dompet/internal/core"
	apphttp "dompet/internal/http"
	"dompet/internal/insight"
	"dompet/internal/insight/gemini"
	"dompet/internal/log"
	"dompet/internal/reports"
	"dompet/internal/services"
)

func main() {
	envErr := cli.LoadEnvFile()

	bootCfg := config.Load()
	logger := cli.SetupLogger(bootCfg.LogLevel, bootCfg.LogFormat)
	if envErr != nil {
		logger.Warn("Failed to load .env file", "error", envErr)
	}
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	ctx := context.Background()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to open storage backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	store := result.Store

	tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		logger.Error("Failed to configure tokens", "error", err)
		os.Exit(1)
	}

	// Dashboard cache
	var (
		dashboards   *cache.LRUCache[core.Dashboard]
		cacheManager *cache.Manager
		dashCache    cache.Cache[core.Dashboard]
		cacheStats   apphttp.CacheStats
	)
	if cfg.CacheSize > 0 {
		dashboards = cache.NewLRUCache[core.Dashboard](cfg.CacheSize, cfg.CacheTTL)
		cacheManager = cache.NewManager()
		cacheManager.Register("dashboard", dashboards)
		cacheManager.StartCleanup(cfg.CacheTTL)
		dashCache, cacheStats = dashboards, dashboards
	}
	aggregator := analytics.NewAggregator(store, analytics.Options{Locale: cfg.AppLocale, Cache: dashCache})

	// AMQP is optional for the API server. Interfaces stay nil when it is
	// not configured so the services can tell.
	var (
		amqpClient *amqp.Client
		events     services.EventPublisher
		requests   insight.Requester
	)
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, events disabled", "error", err)
		} else {
			events, requests = amqpClient, amqpClient
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	var generator insight.TextGenerator
	if cfg.GeminiAPIKey != "" {
		g, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Warn("Gemini unavailable, synchronous insights disabled", "error", err)
		} else {
			generator = g
			logger.Info("Gemini client initialized", "model", g.Model())
		}
	}

	categories := services.NewCategoryService(store, aggregator)
	defaults, err := loadCategoryDefaults(cfg.CategoriesFile)
	if err != nil {
		logger.Error("Failed to load default categories", "error", err, "file", cfg.CategoriesFile)
		os.Exit(1)
	}
	seeded, err := categories.SeedDefaults(ctx, defaults)
	if err != nil {
		logger.Error("Failed to seed default categories", "error", err)
		os.Exit(1)
	}
	logger.Info("Default categories ready", log.FieldOperation, log.OpSeed, "created", seeded)

	svc := apphttp.Services{
		Users:        services.NewUserService(store, tokens),
		Accounts:     services.NewAccountService(store, aggregator),
		Categories:   categories,
		Transactions: services.NewTransactionService(store, events, aggregator),
		Analytics:    aggregator,
		Insights:     insight.NewService(store, generator, requests),
		Statements:   reports.NewBuilder(store),
	}

	srv := apphttp.NewServer(apphttp.Options{
		Addr:                   ":" + cfg.Port,
		Tokens:                 tokens,
		Store:                  store,
		Logger:                 logger,
		RateLimitPerMinute:     cfg.RateLimitPerMinute,
		AuthRateLimitPerMinute: cfg.AuthRateLimitPerMinute,
		TrustedProxies:         cfg.TrustedProxies,
		Cache:                  cacheStats,
	}, svc)

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	runCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if cacheManager != nil {
			cacheManager.Stop()
		}
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", "error", err)
			}
		}
		if err := result.Cleanup(); err != nil {
			logger.Warn("Storage close error", "error", err)
		}
	})

	logger.Info("Starting dompet server",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"insights", generator != nil,
		"events", events != nil)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server error", "error", err, "port", cfg.Port)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(runCtx, done)
	logger.Info("Server stopped gracefully")
}

func loadCategoryDefaults(path string) ([]core.Category, error) {
	if path != "" {
		return categorize.LoadDefaults(path)
	}
	return categorize.Defaults()
}
