package backend

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"dompet/internal/config"
	"dompet/internal/log"
)

func quietLogger() *log.Logger {
	return log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("nil config accepted")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil || !strings.Contains(err.Error(), "[memory sqlite postgres]") {
		t.Fatalf("unknown backend: %v", err)
	}

	cfg, err := FromAppConfig(&config.Config{DataBackend: "postgres", DatabaseURL: "postgres://localhost/dompet"})
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != PostgresBackend || cfg.DatabaseURL != "postgres://localhost/dompet" {
		t.Fatalf("config = %+v", cfg)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		cfg     Config
		wantErr string
	}{
		{Config{Type: MemoryBackend}, ""},
		{Config{Type: SQLiteBackend}, "SQLite database path is required"},
		{Config{Type: PostgresBackend}, "database URL is required"},
		{Config{Type: "redis"}, "invalid backend type"},
	}
	for _, tt := range tests {
		err := tt.cfg.Validate()
		if tt.wantErr == "" {
			if err != nil {
				t.Errorf("%s: %v", tt.cfg.Type, err)
			}
			continue
		}
		if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
			t.Errorf("%s: err = %v, want %q", tt.cfg.Type, err, tt.wantErr)
		}
	}
}

func TestCreateBackend(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(quietLogger())

	for _, cfg := range []Config{
		{Type: MemoryBackend},
		{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "nested", "dompet.db")},
	} {
		t.Run(cfg.Type.String(), func(t *testing.T) {
			res, err := f.CreateBackend(ctx, cfg)
			if err != nil {
				t.Fatalf("CreateBackend: %v", err)
			}
			if err := res.Store.Ping(ctx); err != nil {
				t.Fatalf("Ping: %v", err)
			}
			if err := res.Cleanup(); err != nil {
				t.Fatalf("Cleanup: %v", err)
			}
		})
	}

	if _, err := f.CreateBackend(ctx, Config{Type: SQLiteBackend}); err == nil {
		t.Fatal("sqlite without path accepted")
	}
}

func TestKindNames(t *testing.T) {
	got := strings.Join(KindNames(), ",")
	if got != "memory,sqlite,postgres" {
		t.Fatalf("types = %s", got)
	}
}
