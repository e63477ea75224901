package reports

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"dompet/internal/core"
	"dompet/internal/storage/memory"
)

func newBuilder(t *testing.T) (*Builder, *memory.Store) {
	t.Helper()
	store := memory.New()
	ctx := context.Background()
	if err := store.CreateAccount(ctx, core.Account{ID: "a1", UserID: "u1", Name: "Cash", Kind: core.AccountCash}); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if err := store.CreateCategory(ctx, core.Category{ID: "food", Name: "Makanan & Minuman", Kind: core.KindExpense, IsDefault: true}); err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	b := NewBuilder(store)
	b.now = func() time.Time { return time.Date(2025, 3, 31, 12, 0, 0, 0, time.UTC) }
	return b, store
}

func TestBuilder_ParseRange(t *testing.T) {
	b, _ := newBuilder(t)

	r, err := b.ParseRange("", "2025-03-10")
	if err != nil {
		t.Fatalf("ParseRange default: %v", err)
	}
	if r.From.String() != "2025-03-02" || r.To.String() != "2025-03-31" {
		t.Errorf("default range = %s..%s", r.From, r.To)
	}

	tests := []struct {
		from, to string
		field    string
	}{
		{"2025/03/01", "2025-03-31", "from"},
		{"2025-03-01", "31-03-2025", "to"},
		{"2025-03-31", "2025-03-01", "to"},
	}
	for _, tt := range tests {
		_, err := b.ParseRange(tt.from, tt.to)
		var ve *core.ValidationError
		if !errors.As(err, &ve) || ve.Fields[tt.field] == "" {
			t.Errorf("ParseRange(%q, %q) = %v, want error on %s", tt.from, tt.to, err, tt.field)
		}
	}
}

func TestBuilder_Build(t *testing.T) {
	b, store := newBuilder(t)
	ctx := context.Background()
	add := func(id string, kind core.Kind, cents int64, cat string, d core.Date) {
		t.Helper()
		err := store.CreateTransaction(ctx, core.Transaction{
			ID: id, UserID: "u1", AccountID: "a1", CategoryID: cat, Kind: kind,
			Amount: core.Cents(cents), Merchant: "Starbucks", Date: d,
		})
		if err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
	}
	add("t1", core.KindIncome, 500000000, "", core.NewDate(2025, 3, 1))
	add("t2", core.KindExpense, 2500000, "food", core.NewDate(2025, 3, 10))
	add("t3", core.KindExpense, 100, "", core.NewDate(2025, 4, 1))

	r := core.DateRange{From: core.NewDate(2025, 3, 1), To: core.NewDate(2025, 3, 31)}
	s, err := b.Build(ctx, "u1", r)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if s.Income != core.Cents(500000000) || s.Expense != core.Cents(2500000) || s.Net() != core.Cents(497500000) {
		t.Errorf("totals = %s / %s", s.Income, s.Expense)
	}
	if len(s.Items) != 2 || s.Items[0].ID != "t2" {
		t.Fatalf("items = %+v", s.Items)
	}
	if s.Items[0].Category != "Makanan & Minuman" || s.Items[1].Category != core.UncategorizedLabel || s.Items[0].Account != "Cash" {
		t.Errorf("names = %+v", s.Items)
	}

	var buf bytes.Buffer
	if err := RenderPDF(&buf, s); err != nil {
		t.Fatalf("RenderPDF: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("output is not a PDF: %q", buf.Bytes()[:min(16, buf.Len())])
	}
	if got := Filename(s); got != "dompet-statement-2025-03-01-to-2025-03-31.pdf" {
		t.Errorf("Filename = %q", got)
	}
}

func TestBuilder_BuildPagesAndTruncates(t *testing.T) {
	b, store := newBuilder(t)
	ctx := context.Background()
	for i := range MaxItems + 5 {
		err := store.CreateTransaction(ctx, core.Transaction{
			ID: fmt.Sprintf("t%04d", i), UserID: "u1", AccountID: "a1", Kind: core.KindExpense,
			Amount: core.Cents(1), Date: core.NewDate(2025, 3, 1+i%28),
		})
		if err != nil {
			t.Fatalf("CreateTransaction: %v", err)
		}
	}

	s, err := b.Build(ctx, "u1", core.DateRange{From: core.NewDate(2025, 3, 1), To: core.NewDate(2025, 3, 31)})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(s.Items) != MaxItems || !s.Truncated {
		t.Fatalf("items = %d, truncated = %v", len(s.Items), s.Truncated)
	}
	if s.Expense != core.Cents(MaxItems+5) {
		t.Errorf("expense = %s, want full range total", s.Expense)
	}

	var buf bytes.Buffer
	if err := RenderPDF(&buf, s); err != nil {
		t.Fatalf("RenderPDF: %v", err)
	}
}

func TestTrimTo(t *testing.T) {
	if got := trimTo("  Kopi Kenangan  ", 40); got != "Kopi Kenangan" {
		t.Errorf("trimTo = %q", got)
	}
	if got := trimTo("Warung Makan Sederhana", 10); got != "Warung ..." {
		t.Errorf("trimTo = %q", got)
	}
}
