package sqlite

import (
	"database/sql"
	"embed"
	"fmt"

	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"

	"dompet/internal/storage/schema"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// migrateSchema brings the database at dsn up to the latest schema over its
// own connection, which the migrator closes.
func migrateSchema(dsn string) (schema.Result, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return schema.Result{}, fmt.Errorf("open migration connection: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		db.Close()
		return schema.Result{}, err
	}
	return schema.Up(migrationsFS, "migrations", "sqlite", driver)
}
