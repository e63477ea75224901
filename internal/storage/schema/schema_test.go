package schema

import (
	"database/sql"
	"path/filepath"
	"testing"
	"testing/fstest"

	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "modernc.org/sqlite"
)

var files = fstest.MapFS{
	"m/000001_accounts.up.sql":       {Data: []byte("CREATE TABLE accounts (id TEXT PRIMARY KEY);")},
	"m/000001_accounts.down.sql":     {Data: []byte("DROP TABLE accounts;")},
	"m/000002_transactions.up.sql":   {Data: []byte("CREATE TABLE transactions (id TEXT PRIMARY KEY, account_id TEXT);")},
	"m/000002_transactions.down.sql": {Data: []byte("DROP TABLE transactions;")},
}

func run(t *testing.T, path string) Result {
	t.Helper()
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		t.Fatalf("driver: %v", err)
	}
	res, err := Up(files, "m", "sqlite", driver)
	if err != nil {
		t.Fatalf("Up: %v", err)
	}
	return res
}

func TestUp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.db")

	first := run(t, path)
	if first != (Result{From: 0, To: 2}) || !first.Changed() {
		t.Fatalf("first run = %+v", first)
	}
	if first.String() != "schema migrated from version 0 to 2" {
		t.Errorf("String() = %q", first.String())
	}

	second := run(t, path)
	if second != (Result{From: 2, To: 2}) || second.Changed() {
		t.Fatalf("second run = %+v", second)
	}
}

func TestUpMissingDir(t *testing.T) {
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "x.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	driver, err := migratesqlite.WithInstance(db, &migratesqlite.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Up(files, "nope", "sqlite", driver); err == nil {
		t.Fatal("Up with a missing directory succeeded")
	}
}
