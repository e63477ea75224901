package main

import (
	"context"
	"errors"
	"os"
	"time"

	"dompet/internal/amqp"
	"dompet/internal/backend"
	"dompet/internal/cli"
	"dompet/internal/config"
	"dompet/internal/insight"
	"dompet/internal/insight/gemini"
	"dompet/internal/log"
	"dompet/internal/sheets"
	gsheet "dompet/internal/sheets/google"
	"dompet/internal/worker"
)

func main() {
	envErr := cli.LoadEnvFile()

	bootCfg := config.Load()
	logger := cli.SetupLogger(bootCfg.LogLevel, bootCfg.LogFormat).WithComponent(log.ComponentWorker)
	if envErr != nil {
		logger.Warn("Failed to load .env file", "error", envErr)
	}

	logger.Info("Starting dompet-worker")

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)
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

	// Google Sheets export is optional
	var exporter sheets.TransactionExporter
	if cfg.SheetsEnabled() {
		client, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		exporter = client
		logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.Info("Google Sheets disabled - no GOOGLE_SPREADSHEET_ID provided")
	}

	var generator worker.InsightGenerator
	if cfg.GeminiAPIKey != "" {
		g, err := gemini.New(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Error("Failed to initialize Gemini client", "error", err)
			os.Exit(1)
		}
		// The worker generates directly, so it never queues requests.
		generator = insight.NewService(result.Store, g, nil)
		logger.Info("Gemini client initialized", "model", g.Model())
	} else {
		logger.Info("Insight generation disabled - no GEMINI_API_KEY provided")
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}

	var scheduler *worker.Scheduler
	if generator != nil && cfg.InsightScheduleEnabled {
		scheduler = worker.NewScheduler(result.Store, generator, cfg.InsightScheduleInterval)
	}

	runCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if scheduler != nil {
			if err := scheduler.Stop(ctx); err != nil {
				logger.Warn("Scheduler stop error", "error", err)
			}
		}
		if err := amqpClient.Close(); err != nil {
			logger.Warn("AMQP close error", "error", err)
		}
		if err := result.Cleanup(); err != nil {
			logger.Warn("Storage close error", "error", err)
		}
	})

	if scheduler != nil {
		if err := scheduler.Start(runCtx); err != nil {
			logger.Error("Failed to start insight scheduler", "error", err)
		} else {
			logger.Info("Insight scheduler started", "interval", cfg.InsightScheduleInterval.String())
		}
	}

	handlers := worker.New(exporter, generator).Handlers()
	go func() {
		err := amqpClient.Consume(runCtx, handlers)
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err, log.FieldOperation, log.OpConsume)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(runCtx, done)
	logger.Info("Worker shutdown complete")
}
