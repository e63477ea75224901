// Package backend opens the storage backend selected by DATA_BACKEND.
package backend

import (
	"context"
	"errors"
	"fmt"

	"dompet/internal/config"
	"dompet/internal/storage"
)

// Kind names a storage implementation.
type Kind string

const (
	MemoryBackend   Kind = "memory"
	SQLiteBackend   Kind = "sqlite"
	PostgresBackend Kind = "postgres"
)

// Kinds lists the backends in the order they are documented.
var Kinds = []Kind{MemoryBackend, SQLiteBackend, PostgresBackend}

func (k Kind) String() string { return string(k) }

func (k Kind) IsValid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// KindNames returns Kinds as strings for flag and error messages.
func KindNames() []string {
	out := make([]string, len(Kinds))
	for i, k := range Kinds {
		out[i] = k.String()
	}
	return out
}

// Config selects a backend and carries the one setting it needs.
type Config struct {
	Type         Kind
	SQLiteDBPath string
	DatabaseURL  string
}

// FromAppConfig picks the storage settings out of the application config.
func FromAppConfig(app *config.Config) (Config, error) {
	if app == nil {
		return Config{}, errors.New("no application config")
	}
	cfg := Config{
		Type:         Kind(app.DataBackend),
		SQLiteDBPath: app.SQLiteDBPath,
		DatabaseURL:  app.DatabaseURL,
	}
	if !cfg.Type.IsValid() {
		return Config{}, fmt.Errorf("DATA_BACKEND %q is not one of %v", app.DataBackend, KindNames())
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Type {
	case MemoryBackend:
		return nil
	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return errors.New("sqlite backend: SQLite database path is required")
		}
		return nil
	case PostgresBackend:
		if c.DatabaseURL == "" {
			return errors.New("postgres backend: database URL is required")
		}
		return nil
	default:
		return fmt.Errorf("invalid backend type %q", c.Type)
	}
}

// BackendResult is an open store plus the function that releases it.
type BackendResult struct {
	Store   storage.Store
	Cleanup func() error
}

// Factory opens stores. Migrations run as part of opening.
type Factory interface {
	CreateBackend(ctx context.Context, cfg Config) (*BackendResult, error)
}
