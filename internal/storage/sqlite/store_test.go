package sqlite

import (
	"path/filepath"
	"testing"

	"dompet/internal/storage"
	"dompet/internal/storage/storagetest"
)

func TestStoreContract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Store {
		s, err := Open(filepath.Join(t.TempDir(), "dompet.db"))
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dompet.db")
	for i := 0; i < 2; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open #%d: %v", i+1, err)
		}
		s.Close()
	}
}

func TestDSN(t *testing.T) {
	if got := DSN("data/x.db"); got != "data/x.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)" {
		t.Fatalf("DSN = %q", got)
	}
	if got := DSN("file:x.db?mode=rwc"); got[:20] != "file:x.db?mode=rwc&_" {
		t.Fatalf("DSN with query = %q", got)
	}
}
