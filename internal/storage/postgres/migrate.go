package postgres

import (
	"database/sql"
	"embed"
	"fmt"

	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib"

	"dompet/internal/storage/schema"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrateSchema runs the migrations through database/sql; the pool used for
// queries is opened afterwards.
func migrateSchema(url string) (schema.Result, error) {
	db, err := sql.Open("pgx", url)
	if err != nil {
		return schema.Result{}, fmt.Errorf("open migration connection: %w", err)
	}
	driver, err := pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	if err != nil {
		db.Close()
		return schema.Result{}, err
	}
	return schema.Up(migrationsFS, "migrations", "pgx5", driver)
}
