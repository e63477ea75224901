package backend

import (
	"context"
	"fmt"
	"time"

	"dompet/internal/log"
	"dompet/internal/storage"
	"dompet/internal/storage/memory"
	"dompet/internal/storage/postgres"
	"dompet/internal/storage/sqlite"
)

type opener func(ctx context.Context, cfg Config, logger *log.Logger) (storage.Store, error)

type defaultFactory struct {
	logger  *log.Logger
	openers map[Kind]opener
}

// NewFactory returns a Factory for every kind in Kinds. A nil logger logs to
// stdout at info.
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &defaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
		openers: map[Kind]opener{
			MemoryBackend:   openMemory,
			SQLiteBackend:   openSQLite,
			PostgresBackend: openPostgres,
		},
	}
}

func (f *defaultFactory) CreateBackend(ctx context.Context, cfg Config) (*BackendResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	open, ok := f.openers[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("no opener for backend %q", cfg.Type)
	}

	start := time.Now()
	store, err := open(ctx, cfg, f.logger)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.Type, err)
	}

	f.logger.InfoContext(ctx, "Storage backend ready",
		log.FieldOperation, log.OpStartup,
		"backend", cfg.Type.String(),
		log.FieldDuration, time.Since(start).Milliseconds())
	return &BackendResult{Store: store, Cleanup: store.Close}, nil
}

func openMemory(ctx context.Context, _ Config, logger *log.Logger) (storage.Store, error) {
	logger.WarnContext(ctx, "In-memory store: accounts and transactions vanish on restart")
	return memory.New(), nil
}

func openSQLite(ctx context.Context, cfg Config, logger *log.Logger) (storage.Store, error) {
	store, err := sqlite.Open(cfg.SQLiteDBPath)
	if err != nil {
		return nil, err
	}
	logger.DebugContext(ctx, "SQLite store opened", "db_path", cfg.SQLiteDBPath)
	return store, nil
}

func openPostgres(ctx context.Context, cfg Config, _ *log.Logger) (storage.Store, error) {
	return postgres.Open(ctx, cfg.DatabaseURL)
}
