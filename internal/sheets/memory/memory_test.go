package memory

import (
	"context"
	"testing"
	"time"

	"dompet/internal/core"
)

func TestStore_UpsertRemove(t *testing.T) {
	s := New()
	ctx := context.Background()
	tx := core.Transaction{
		ID: "t1", Kind: core.KindExpense, Amount: core.Cents(2500000),
		Date: core.NewDate(2025, 3, 10), UpdatedAt: time.Date(2025, 3, 10, 8, 30, 0, 0, time.UTC),
	}

	if ref, err := s.Upsert(ctx, tx); err != nil || ref != "mem:1" {
		t.Fatalf("Upsert = %q, %v", ref, err)
	}
	if _, err := s.Upsert(ctx, core.Transaction{ID: "t2"}); err != nil {
		t.Fatalf("Upsert t2: %v", err)
	}
	tx.Amount = core.Cents(100)
	if ref, _ := s.Upsert(ctx, tx); ref != "mem:1" {
		t.Errorf("re-upsert ref = %q, want mem:1", ref)
	}

	rows := s.Rows()
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0][1] != "2025-03-10" || rows[0][3] != "1.00" || rows[0][8] != "2025-03-10 08:30:00" {
		t.Errorf("row = %v", rows[0])
	}

	if err := s.Remove(ctx, "t1"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := s.Remove(ctx, "t1"); err != nil {
		t.Fatalf("Remove twice: %v", err)
	}
	if rows := s.Rows(); len(rows) != 1 || rows[0][0] != "t2" {
		t.Errorf("rows after remove = %v", rows)
	}

	if _, err := s.Upsert(ctx, core.Transaction{}); err == nil {
		t.Error("expected error for empty id")
	}
}
