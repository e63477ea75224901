// Package schema applies the embedded SQL migrations of a storage backend.
package schema

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// Result is the schema version before and after a run. Zero means empty.
type Result struct {
	From, To uint
}

func (r Result) Changed() bool { return r.From != r.To }

func (r Result) String() string {
	if !r.Changed() {
		return fmt.Sprintf("schema at version %d", r.To)
	}
	return fmt.Sprintf("schema migrated from version %d to %d", r.From, r.To)
}

// Up applies every migration under dir in files through driver. The driver is
// closed when Up returns. A database left dirty by an interrupted run is an
// error that needs manual repair.
func Up(files fs.FS, dir, dbName string, driver database.Driver) (Result, error) {
	src, err := iofs.New(files, dir)
	if err != nil {
		driver.Close()
		return Result{}, fmt.Errorf("read %s migrations: %w", dbName, err)
	}
	m, err := migrate.NewWithInstance("iofs", src, dbName, driver)
	if err != nil {
		src.Close()
		driver.Close()
		return Result{}, fmt.Errorf("prepare %s migrations: %w", dbName, err)
	}
	defer m.Close()

	var res Result
	if res.From, err = version(m); err != nil {
		return res, err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return res, fmt.Errorf("migrate %s from version %d: %w", dbName, res.From, err)
	}
	if res.To, err = version(m); err != nil {
		return res, err
	}
	return res, nil
}

func version(m *migrate.Migrate) (uint, error) {
	v, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("read schema version: %w", err)
	case dirty:
		return v, fmt.Errorf("schema version %d is dirty", v)
	}
	return v, nil
}
