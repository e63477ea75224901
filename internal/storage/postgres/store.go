// Package postgres is the PostgreSQL storage backend built on pgxpool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"dompet/internal/core"
	"dompet/internal/log"
	"dompet/internal/storage"
)

// DBTX is satisfied by *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Queries implements storage.Repository on top of a DBTX.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

type Store struct {
	*Queries
	pool *pgxpool.Pool
}

var _ storage.Store = (*Store)(nil)

// Open migrates the database at url and connects a pool.
func Open(ctx context.Context, url string) (*Store, error) {
	migrated, err := migrateSchema(url)
	if err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	slog.Info(migrated.String(), log.FieldComponent, log.ComponentBackend, "backend", "postgres")

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{Queries: New(pool), pool: pool}, nil
}

func (s *Store) InTx(ctx context.Context, fn func(storage.Repository) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if err := fn(s.WithTx(tx)); err != nil {
			return err
		}
		return ctx.Err()
	})
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return core.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", core.ErrConflict, pgErr.ConstraintName)
		case codeForeignKeyViolation:
			return fmt.Errorf("%w: %s", core.ErrNotFound, pgErr.ConstraintName)
		}
	}
	return err
}

func affected(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// noLimit stands in for an unbounded LIMIT.
const noLimit = 1<<31 - 1

func rangeBounds(r core.DateRange) (interface{}, interface{}) {
	var from, to interface{}
	if !r.From.IsZero() {
		from = r.From.Time
	}
	if !r.To.IsZero() {
		to = r.To.Time
	}
	return from, to
}
