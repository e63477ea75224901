package postgres

import (
	"context"
	"os"
	"testing"

	"dompet/internal/core"
	"dompet/internal/storage"
	"dompet/internal/storage/storagetest"
)

// Runs against a disposable database named by DOMPET_TEST_DATABASE_URL.
func TestStoreContract(t *testing.T) {
	url := os.Getenv("DOMPET_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("DOMPET_TEST_DATABASE_URL not set")
	}

	storagetest.Run(t, func(t *testing.T) storage.Store {
		ctx := context.Background()
		s, err := Open(ctx, url)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		if _, err := s.pool.Exec(ctx, `TRUNCATE insights, transactions, categories, accounts, users`); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		t.Cleanup(func() { s.Close() })
		return s
	})
}

func TestTransactionWhere(t *testing.T) {
	where, args := transactionWhere("u1", storageFilter())
	want := " WHERE user_id = $1 AND account_id = $2 AND type = $3 AND (LOWER(description) LIKE $4 OR LOWER(merchant) LIKE $5)"
	if where != want {
		t.Fatalf("where = %q", where)
	}
	if len(args) != 5 || args[3] != "%kopi%" {
		t.Fatalf("args = %v", args)
	}
}

func storageFilter() core.TransactionFilter {
	return core.TransactionFilter{AccountID: "a1", Kind: core.KindExpense, Search: "Kopi"}
}
