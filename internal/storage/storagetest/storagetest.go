// Package storagetest holds the behaviour every storage backend must share.
package storagetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"dompet/internal/core"
	"dompet/internal/storage"
)

// Run exercises a fresh store returned by open.
func Run(t *testing.T, open func(t *testing.T) storage.Store) {
	t.Helper()
	tests := []struct {
		name string
		fn   func(t *testing.T, s storage.Store)
	}{
		{"users", testUsers},
		{"accounts", testAccounts},
		{"categories", testCategories},
		{"transactions", testTransactions},
		{"aggregates", testAggregates},
		{"insights", testInsights},
		{"rollback", testRollback},
		{"rollback keeps outside writes", testRollbackKeepsOutsideWrites},
		{"cancelled tx", testCancelledTx},
		{"search literal wildcards", testSearchLiteralWildcards},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, open(t))
		})
	}
}

var base = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func seedUser(t *testing.T, s storage.Store, id string) core.User {
	t.Helper()
	u := core.User{ID: id, Name: "User " + id, Email: id + "@example.com", PasswordHash: "hash", CreatedAt: base}
	if err := s.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("CreateUser(%s): %v", id, err)
	}
	return u
}

func seedAccount(t *testing.T, s storage.Store, userID, id string, balance int64) core.Account {
	t.Helper()
	a := core.Account{
		ID: id, UserID: userID, Name: "Account " + id, Kind: core.AccountBank,
		Balance: core.Cents(balance), CreatedAt: base, UpdatedAt: base,
	}
	if err := s.CreateAccount(context.Background(), a); err != nil {
		t.Fatalf("CreateAccount(%s): %v", id, err)
	}
	return a
}

func seedTransaction(t *testing.T, s storage.Store, tx core.Transaction) core.Transaction {
	t.Helper()
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = base
	}
	tx.UpdatedAt = tx.CreatedAt
	if err := s.CreateTransaction(context.Background(), tx); err != nil {
		t.Fatalf("CreateTransaction(%s): %v", tx.ID, err)
	}
	return tx
}

func testUsers(t *testing.T, s storage.Store) {
	ctx := context.Background()
	u := seedUser(t, s, "u1")

	got, err := s.GetUserByEmail(ctx, u.Email)
	if err != nil || got.ID != u.ID || got.PasswordHash != "hash" {
		t.Fatalf("GetUserByEmail = %+v, %v", got, err)
	}
	if _, err := s.GetUser(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	dup := u
	dup.ID = "u2"
	if err := s.CreateUser(ctx, dup); !errors.Is(err, core.ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate email, got %v", err)
	}
}

func testAccounts(t *testing.T, s storage.Store) {
	ctx := context.Background()
	seedUser(t, s, "u1")
	seedUser(t, s, "u2")
	seedAccount(t, s, "u1", "a1", 10000)

	if err := s.AdjustBalance(ctx, "u1", "a1", core.Cents(-2500)); err != nil {
		t.Fatalf("AdjustBalance: %v", err)
	}
	a, err := s.GetAccount(ctx, "u1", "a1")
	if err != nil || a.Balance.Cents != 7500 {
		t.Fatalf("balance = %d, err = %v", a.Balance.Cents, err)
	}

	if _, err := s.GetAccount(ctx, "u2", "a1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign account should be not found, got %v", err)
	}
	if err := s.AdjustBalance(ctx, "u2", "a1", core.Cents(1)); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign adjust should be not found, got %v", err)
	}

	a.Name = "Renamed"
	if err := s.UpdateAccount(ctx, a); err != nil {
		t.Fatalf("UpdateAccount: %v", err)
	}
	list, err := s.ListAccounts(ctx, "u1")
	if err != nil || len(list) != 1 || list[0].Name != "Renamed" {
		t.Fatalf("ListAccounts = %+v, %v", list, err)
	}

	seedTransaction(t, s, core.Transaction{ID: "t1", UserID: "u1", AccountID: "a1", Kind: core.KindExpense, Amount: core.Cents(100), Date: core.NewDate(2025, 3, 1)})
	if n, err := s.CountAccountTransactions(ctx, "u1", "a1"); err != nil || n != 1 {
		t.Fatalf("CountAccountTransactions = %d, %v", n, err)
	}
	if err := s.DeleteAccount(ctx, "u1", "a1"); err != nil {
		t.Fatalf("DeleteAccount: %v", err)
	}
	if _, err := s.GetTransaction(ctx, "u1", "t1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("transactions should cascade, got %v", err)
	}
	if err := s.DeleteAccount(ctx, "u1", "a1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete should be not found, got %v", err)
	}
}

func testCategories(t *testing.T, s storage.Store) {
	ctx := context.Background()
	seedUser(t, s, "u1")
	seedUser(t, s, "u2")

	global := core.Category{ID: "g1", Name: "Makanan", Kind: core.KindExpense, Keywords: "kopi", IsDefault: true, CreatedAt: base}
	inserted, err := s.EnsureCategory(ctx, global)
	if err != nil || !inserted {
		t.Fatalf("EnsureCategory = %v, %v", inserted, err)
	}
	again := global
	again.ID = "g1-dup"
	if inserted, err := s.EnsureCategory(ctx, again); err != nil || inserted {
		t.Fatalf("EnsureCategory should be idempotent, got %v, %v", inserted, err)
	}

	own := core.Category{ID: "c1", UserID: "u1", Name: "Kopi", Kind: core.KindExpense, Color: "#333", CreatedAt: base}
	if err := s.CreateCategory(ctx, own); err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	other := core.Category{ID: "c2", UserID: "u2", Name: "Gaji", Kind: core.KindIncome, CreatedAt: base}
	if err := s.CreateCategory(ctx, other); err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}

	list, err := s.ListCategories(ctx, "u1", "")
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if len(list) != 2 || list[0].ID != "g1" || list[1].ID != "c1" {
		t.Fatalf("expected globals then own in insertion order, got %+v", list)
	}
	if income, _ := s.ListCategories(ctx, "u1", core.KindIncome); len(income) != 0 {
		t.Fatalf("kind filter leaked %+v", income)
	}
	if _, err := s.GetCategory(ctx, "u1", "c2"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign category should be not found, got %v", err)
	}
	if g, err := s.GetCategory(ctx, "u1", "g1"); err != nil || g.UserID != "" || !g.IsDefault {
		t.Fatalf("global category = %+v, %v", g, err)
	}

	seedAccount(t, s, "u1", "a1", 0)
	seedTransaction(t, s, core.Transaction{ID: "t1", UserID: "u1", AccountID: "a1", CategoryID: "c1", Kind: core.KindExpense, Amount: core.Cents(500), Date: core.NewDate(2025, 3, 2)})

	own.Keywords = "kopi,latte"
	if err := s.UpdateCategory(ctx, own); err != nil {
		t.Fatalf("UpdateCategory: %v", err)
	}
	if err := s.DeleteCategory(ctx, "u1", "c1"); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}
	tx, err := s.GetTransaction(ctx, "u1", "t1")
	if err != nil || tx.CategoryID != "" {
		t.Fatalf("transaction category should be cleared, got %+v, %v", tx, err)
	}
	if err := s.DeleteCategory(ctx, "u1", "g1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("globals are not owned, got %v", err)
	}
}

func testTransactions(t *testing.T, s storage.Store) {
	ctx := context.Background()
	seedUser(t, s, "u1")
	seedAccount(t, s, "u1", "a1", 0)
	seedAccount(t, s, "u1", "a2", 0)

	seedTransaction(t, s, core.Transaction{ID: "t1", UserID: "u1", AccountID: "a1", Kind: core.KindExpense, Amount: core.Cents(100), Merchant: "Starbucks", Date: core.NewDate(2025, 3, 1)})
	seedTransaction(t, s, core.Transaction{ID: "t2", UserID: "u1", AccountID: "a1", Kind: core.KindIncome, Amount: core.Cents(900), Description: "Gaji Maret", Date: core.NewDate(2025, 3, 5)})
	seedTransaction(t, s, core.Transaction{ID: "t3", UserID: "u1", AccountID: "a2", Kind: core.KindExpense, Amount: core.Cents(300), Description: "grab", Date: core.NewDate(2025, 3, 5), CreatedAt: base.Add(time.Minute)})
	seedTransaction(t, s, core.Transaction{ID: "t4", UserID: "u1", AccountID: "a2", Kind: core.KindExpense, Amount: core.Cents(50), Date: core.NewDate(2025, 2, 28)})

	page, total, err := s.ListTransactions(ctx, "u1", core.TransactionFilter{Limit: 2})
	if err != nil || total != 4 || len(page) != 2 {
		t.Fatalf("page = %d items, total %d, err %v", len(page), total, err)
	}
	if page[0].ID != "t3" || page[1].ID != "t2" {
		t.Fatalf("expected newest first by date then creation, got %s, %s", page[0].ID, page[1].ID)
	}
	page, _, _ = s.ListTransactions(ctx, "u1", core.TransactionFilter{Limit: 2, Offset: 2})
	if len(page) != 2 || page[0].ID != "t1" || page[1].ID != "t4" {
		t.Fatalf("second page = %+v", page)
	}

	filters := []struct {
		name string
		f    core.TransactionFilter
		want int
	}{
		{"account", core.TransactionFilter{AccountID: "a2"}, 2},
		{"kind", core.TransactionFilter{Kind: core.KindIncome}, 1},
		{"range", core.TransactionFilter{Range: core.DateRange{From: core.NewDate(2025, 3, 1), To: core.NewDate(2025, 3, 1)}}, 1},
		{"search merchant", core.TransactionFilter{Search: "STARB"}, 1},
		{"search description", core.TransactionFilter{Search: "gaji"}, 1},
	}
	for _, tc := range filters {
		_, total, err := s.ListTransactions(ctx, "u1", tc.f)
		if err != nil || total != tc.want {
			t.Fatalf("%s: total = %d, err = %v, want %d", tc.name, total, err, tc.want)
		}
	}

	tx, err := s.GetTransaction(ctx, "u1", "t1")
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if tx.Date != core.NewDate(2025, 3, 1) || tx.Amount.Cents != 100 || tx.Merchant != "Starbucks" {
		t.Fatalf("round trip mismatch %+v", tx)
	}
	tx.Amount = core.Cents(150)
	if err := s.UpdateTransaction(ctx, tx); err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	if err := s.DeleteTransaction(ctx, "u1", "t1"); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if err := s.DeleteTransaction(ctx, "u1", "t1"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.CreateTransaction(ctx, core.Transaction{ID: "t9", UserID: "u1", AccountID: "nope", Kind: core.KindExpense, Amount: core.Cents(1), Date: core.NewDate(2025, 3, 1), CreatedAt: base, UpdatedAt: base}); err == nil {
		t.Fatalf("expected error for unknown account")
	}
}

func testAggregates(t *testing.T, s storage.Store) {
	ctx := context.Background()
	seedUser(t, s, "u1")
	seedUser(t, s, "u2")
	seedAccount(t, s, "u1", "a1", 0)
	seedAccount(t, s, "u2", "b1", 0)
	if err := s.CreateCategory(ctx, core.Category{ID: "food", UserID: "u1", Name: "Food", Kind: core.KindExpense, Color: "#f00", CreatedAt: base}); err != nil {
		t.Fatal(err)
	}

	seedTransaction(t, s, core.Transaction{ID: "t1", UserID: "u1", AccountID: "a1", CategoryID: "food", Kind: core.KindExpense, Amount: core.Cents(300), Date: core.NewDate(2025, 3, 1)})
	seedTransaction(t, s, core.Transaction{ID: "t2", UserID: "u1", AccountID: "a1", CategoryID: "food", Kind: core.KindExpense, Amount: core.Cents(200), Date: core.NewDate(2025, 3, 31)})
	seedTransaction(t, s, core.Transaction{ID: "t3", UserID: "u1", AccountID: "a1", Kind: core.KindExpense, Amount: core.Cents(500), Date: core.NewDate(2025, 3, 15)})
	seedTransaction(t, s, core.Transaction{ID: "t4", UserID: "u1", AccountID: "a1", Kind: core.KindIncome, Amount: core.Cents(2000), Date: core.NewDate(2025, 3, 15)})
	seedTransaction(t, s, core.Transaction{ID: "t5", UserID: "u1", AccountID: "a1", Kind: core.KindExpense, Amount: core.Cents(999), Date: core.NewDate(2025, 4, 1)})
	seedTransaction(t, s, core.Transaction{ID: "t6", UserID: "u2", AccountID: "b1", Kind: core.KindExpense, Amount: core.Cents(777), Date: core.NewDate(2025, 3, 2)})

	march := core.Period{Year: 2025, Month: 3}.Range()
	income, expense, err := s.SumByKind(ctx, "u1", march)
	if err != nil || income.Cents != 2000 || expense.Cents != 1000 {
		t.Fatalf("SumByKind = %d/%d, %v", income.Cents, expense.Cents, err)
	}

	totals, err := s.ExpenseByCategory(ctx, "u1", march)
	if err != nil || len(totals) != 2 {
		t.Fatalf("ExpenseByCategory = %+v, %v", totals, err)
	}
	byID := map[string]storage.CategoryTotal{}
	for _, ct := range totals {
		byID[ct.CategoryID] = ct
	}
	if byID["food"].Amount.Cents != 500 || byID["food"].Name != "Food" || byID["food"].Color != "#f00" {
		t.Fatalf("food bucket = %+v", byID["food"])
	}
	if byID[""].Amount.Cents != 500 || byID[""].Name != "" {
		t.Fatalf("uncategorized bucket = %+v", byID[""])
	}

	if n, err := s.CountTransactions(ctx, "u1", march); err != nil || n != 4 {
		t.Fatalf("CountTransactions = %d, %v", n, err)
	}
	ids, err := s.ListActiveUserIDs(ctx, march)
	if err != nil || len(ids) != 2 {
		t.Fatalf("ListActiveUserIDs = %v, %v", ids, err)
	}
	ids, _ = s.ListActiveUserIDs(ctx, core.Period{Year: 2025, Month: 4}.Range())
	if len(ids) != 1 || ids[0] != "u1" {
		t.Fatalf("april active = %v", ids)
	}
}

func testInsights(t *testing.T, s storage.Store) {
	ctx := context.Background()
	seedUser(t, s, "u1")
	seedUser(t, s, "u2")

	first, err := s.UpsertInsight(ctx, core.Insight{ID: "i1", UserID: "u1", Type: core.InsightMonthlySummary, Title: "A", Content: "a", Period: "2025-03", IsRead: true, CreatedAt: base})
	if err != nil {
		t.Fatalf("UpsertInsight: %v", err)
	}
	second, err := s.UpsertInsight(ctx, core.Insight{ID: "i2", UserID: "u1", Type: core.InsightMonthlySummary, Title: "B", Content: "b", Period: "2025-03", CreatedAt: base.Add(time.Hour)})
	if err != nil {
		t.Fatalf("UpsertInsight: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("upsert should keep id %s, got %s", first.ID, second.ID)
	}
	if _, err := s.UpsertInsight(ctx, core.Insight{ID: "i3", UserID: "u1", Type: core.InsightSavingTip, Title: "C", Content: "c", Period: "2025-03", CreatedAt: base.Add(2 * time.Hour)}); err != nil {
		t.Fatal(err)
	}

	list, err := s.ListInsights(ctx, "u1", core.InsightFilter{Limit: 20})
	if err != nil || len(list) != 2 {
		t.Fatalf("ListInsights = %+v, %v", list, err)
	}
	if list[0].ID != "i3" || list[1].Title != "B" || list[1].IsRead {
		t.Fatalf("unexpected order or content %+v", list)
	}

	if err := s.MarkInsightRead(ctx, "u2", "i3"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign mark read should be not found, got %v", err)
	}
	if err := s.MarkInsightRead(ctx, "u1", "i3"); err != nil {
		t.Fatalf("MarkInsightRead: %v", err)
	}
	unread, _ := s.ListInsights(ctx, "u1", core.InsightFilter{UnreadOnly: true, Limit: 20})
	if len(unread) != 1 || unread[0].ID != first.ID {
		t.Fatalf("unread = %+v", unread)
	}
	tips, _ := s.ListInsights(ctx, "u1", core.InsightFilter{Type: core.InsightSavingTip, Limit: 20})
	if len(tips) != 1 {
		t.Fatalf("type filter = %+v", tips)
	}
	if err := s.DeleteInsight(ctx, "u1", "i3"); err != nil {
		t.Fatalf("DeleteInsight: %v", err)
	}
	if err := s.DeleteInsight(ctx, "u1", "i3"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func testRollback(t *testing.T, s storage.Store) {
	ctx := context.Background()
	seedUser(t, s, "u1")
	seedAccount(t, s, "u1", "a1", 1000)

	boom := errors.New("boom")
	err := s.InTx(ctx, func(r storage.Repository) error {
		if err := r.AdjustBalance(ctx, "u1", "a1", core.Cents(500)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	a, _ := s.GetAccount(ctx, "u1", "a1")
	if a.Balance.Cents != 1000 {
		t.Fatalf("rollback failed, balance = %d", a.Balance.Cents)
	}

	err = s.InTx(ctx, func(r storage.Repository) error {
		return r.AdjustBalance(ctx, "u1", "a1", core.Cents(-250))
	})
	if err != nil {
		t.Fatalf("InTx: %v", err)
	}
	a, _ = s.GetAccount(ctx, "u1", "a1")
	if a.Balance.Cents != 750 {
		t.Fatalf("commit failed, balance = %d", a.Balance.Cents)
	}
}

func testRollbackKeepsOutsideWrites(t *testing.T, s storage.Store) {
	ctx := context.Background()
	seedUser(t, s, "u1")
	seedUser(t, s, "u2")
	seedAccount(t, s, "u1", "a1", 1000)

	done := make(chan error, 1)
	boom := errors.New("boom")
	err := s.InTx(ctx, func(r storage.Repository) error {
		if err := r.AdjustBalance(ctx, "u1", "a1", core.Cents(500)); err != nil {
			return err
		}
		go func() {
			done <- s.CreateAccount(ctx, core.Account{
				ID: "a2", UserID: "u2", Name: "Outside", Kind: core.AccountCash,
				Balance: core.Cents(42), CreatedAt: base, UpdatedAt: base,
			})
		}()
		// Let the outside write land first where the backend allows it.
		select {
		case err := <-done:
			done <- err
		case <-time.After(20 * time.Millisecond):
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if err := <-done; err != nil {
		t.Fatalf("outside CreateAccount: %v", err)
	}

	a, err := s.GetAccount(ctx, "u2", "a2")
	if err != nil {
		t.Fatalf("outside write lost: %v", err)
	}
	if a.Balance.Cents != 42 {
		t.Fatalf("outside balance = %d, want 42", a.Balance.Cents)
	}
	a, _ = s.GetAccount(ctx, "u1", "a1")
	if a.Balance.Cents != 1000 {
		t.Fatalf("rollback failed, balance = %d", a.Balance.Cents)
	}
}

func testCancelledTx(t *testing.T, s storage.Store) {
	seedUser(t, s, "u1")
	seedAccount(t, s, "u1", "a1", 1000)

	ctx, cancel := context.WithCancel(context.Background())
	err := s.InTx(ctx, func(r storage.Repository) error {
		if err := r.AdjustBalance(ctx, "u1", "a1", core.Cents(500)); err != nil {
			return err
		}
		cancel()
		return nil
	})
	if err == nil {
		t.Fatal("expected an error from a cancelled transaction")
	}
	a, _ := s.GetAccount(context.Background(), "u1", "a1")
	if a.Balance.Cents != 1000 {
		t.Fatalf("cancelled tx committed, balance = %d", a.Balance.Cents)
	}

	if err := s.InTx(ctx, func(storage.Repository) error {
		t.Fatal("fn ran on a dead context")
		return nil
	}); err == nil {
		t.Fatal("expected an error for an already cancelled context")
	}
}

func testSearchLiteralWildcards(t *testing.T, s storage.Store) {
	ctx := context.Background()
	seedUser(t, s, "u1")
	seedAccount(t, s, "u1", "a1", 0)

	seedTransaction(t, s, core.Transaction{ID: "t1", UserID: "u1", AccountID: "a1", Kind: core.KindExpense, Amount: core.Cents(100), Description: "diskon 50% kopi", Date: core.NewDate(2025, 3, 1)})
	seedTransaction(t, s, core.Transaction{ID: "t2", UserID: "u1", AccountID: "a1", Kind: core.KindExpense, Amount: core.Cents(100), Description: "diskon 500 kopi", Date: core.NewDate(2025, 3, 2)})
	seedTransaction(t, s, core.Transaction{ID: "t3", UserID: "u1", AccountID: "a1", Kind: core.KindExpense, Amount: core.Cents(100), Merchant: "toko_baju", Date: core.NewDate(2025, 3, 3)})
	seedTransaction(t, s, core.Transaction{ID: "t4", UserID: "u1", AccountID: "a1", Kind: core.KindExpense, Amount: core.Cents(100), Merchant: "tokoXbaju", Date: core.NewDate(2025, 3, 4)})

	tests := []struct {
		search string
		want   string
	}{
		{"50%", "t1"},
		{"o_b", "t3"},
		{"_", "t3"},
		{"%", "t1"},
	}
	for _, tt := range tests {
		page, total, err := s.ListTransactions(ctx, "u1", core.TransactionFilter{Search: tt.search, Limit: 20})
		if err != nil {
			t.Fatalf("search %q: %v", tt.search, err)
		}
		if total != 1 || len(page) != 1 || page[0].ID != tt.want {
			t.Fatalf("search %q: total = %d, page = %+v, want only %s", tt.search, total, page, tt.want)
		}
	}
}
