package analytics

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"dompet/internal/cache"
	"dompet/internal/core"
	"dompet/internal/storage"
	"dompet/internal/storage/memory"
)

func TestMonthRange(t *testing.T) {
	tests := []struct {
		year, month int
		from, to    string
	}{
		{2024, 2, "2024-02-01", "2024-02-29"},
		{2025, 2, "2025-02-01", "2025-02-28"},
		{2025, 12, "2025-12-01", "2025-12-31"},
		{2025, 4, "2025-04-01", "2025-04-30"},
	}
	for _, tt := range tests {
		r, err := MonthRange(tt.year, tt.month)
		if err != nil {
			t.Fatalf("MonthRange(%d, %d): %v", tt.year, tt.month, err)
		}
		if r.From.String() != tt.from || r.To.String() != tt.to {
			t.Errorf("MonthRange(%d, %d) = %s..%s, want %s..%s", tt.year, tt.month, r.From, r.To, tt.from, tt.to)
		}
	}

	if _, err := MonthRange(2025, 13); err == nil {
		t.Error("expected error for month 13")
	}
}

func TestBuildBreakdown(t *testing.T) {
	got := BuildBreakdown([]storage.CategoryTotal{
		{CategoryID: "food", Name: "Makanan & Minuman", Color: "#f97316", Amount: core.Cents(30000)},
		{CategoryID: "", Amount: core.Cents(10000)},
		{CategoryID: "trans", Name: "Transportasi", Color: "#ef4444", Amount: core.Cents(60000)},
	})

	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].Name != "Transportasi" || got[1].Name != "Makanan & Minuman" || got[2].Name != core.UncategorizedLabel {
		t.Fatalf("order = %s, %s, %s", got[0].Name, got[1].Name, got[2].Name)
	}
	if got[2].Color != nil {
		t.Errorf("uncategorized color = %v, want nil", *got[2].Color)
	}
	if got[0].Color == nil || *got[0].Color != "#ef4444" {
		t.Errorf("color = %v, want #ef4444", got[0].Color)
	}

	sum := 0.0
	for _, b := range got {
		sum += b.Percentage
	}
	if math.Abs(sum-100) > 0.05 {
		t.Errorf("percentages sum to %.2f, want ~100", sum)
	}
	if got[0].Percentage != 60 {
		t.Errorf("Transportasi = %.2f%%, want 60", got[0].Percentage)
	}
}

func TestBuildBreakdown_ThirdsAndEmpty(t *testing.T) {
	got := BuildBreakdown([]storage.CategoryTotal{
		{CategoryID: "a", Name: "A", Amount: core.Cents(100)},
		{CategoryID: "b", Name: "B", Amount: core.Cents(100)},
		{CategoryID: "c", Name: "C", Amount: core.Cents(100)},
	})
	for _, b := range got {
		if b.Percentage != 33.33 {
			t.Errorf("%s = %.2f, want 33.33", b.Name, b.Percentage)
		}
	}

	zero := BuildBreakdown([]storage.CategoryTotal{{CategoryID: "a", Name: "A"}})
	if len(zero) != 1 || zero[0].Percentage != 0 {
		t.Errorf("zero expense breakdown = %+v", zero)
	}
	if empty := BuildBreakdown(nil); empty == nil || len(empty) != 0 {
		t.Errorf("empty breakdown = %#v, want empty slice", empty)
	}
}

func TestMonthLabels(t *testing.T) {
	tests := []struct {
		locale string
		month  int
		want   string
	}{
		{"id", 5, "Mei"},
		{"id-ID", 8, "Agu"},
		{"", 12, "Des"},
		{"en", 5, "May"},
		{"en-US", 10, "Oct"},
		{"fr", 5, "Mei"},
	}
	for _, tt := range tests {
		if got := NewMonthLabels(tt.locale).Short(tt.month); got != tt.want {
			t.Errorf("NewMonthLabels(%q).Short(%d) = %q, want %q", tt.locale, tt.month, got, tt.want)
		}
	}
}

type fixture struct {
	store *memory.Store
	agg   *Aggregator
}

func newFixture(t *testing.T, c cache.Cache[core.Dashboard]) *fixture {
	t.Helper()
	store := memory.New()
	agg := NewAggregator(store, Options{Locale: "id", Cache: c})
	agg.now = func() time.Time { return time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC) }

	ctx := context.Background()
	if err := store.CreateAccount(ctx, core.Account{ID: "cash", UserID: "u1", Name: "Cash", Kind: core.AccountCash, Balance: core.Cents(100000)}); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if err := store.CreateCategory(ctx, core.Category{ID: "food", Name: "Makanan & Minuman", Kind: core.KindExpense, Color: "#f97316", IsDefault: true}); err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	return &fixture{store: store, agg: agg}
}

func (f *fixture) add(t *testing.T, id string, kind core.Kind, cents int64, categoryID string, d core.Date) {
	t.Helper()
	err := f.store.CreateTransaction(context.Background(), core.Transaction{
		ID: id, UserID: "u1", AccountID: "cash", CategoryID: categoryID,
		Kind: kind, Amount: core.Cents(cents), Date: d,
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
}

func TestAggregator_Dashboard(t *testing.T) {
	f := newFixture(t, nil)
	f.add(t, "t1", core.KindIncome, 500000, "", core.NewDate(2025, 3, 1))
	f.add(t, "t2", core.KindExpense, 30000, "food", core.NewDate(2025, 3, 2))
	f.add(t, "t3", core.KindExpense, 10000, "", core.NewDate(2025, 3, 31))
	f.add(t, "t4", core.KindExpense, 99999, "food", core.NewDate(2025, 4, 1))
	f.add(t, "t5", core.KindIncome, 20000, "", core.NewDate(2024, 10, 5))

	d, err := f.agg.Dashboard(context.Background(), "u1", core.Period{Year: 2025, Month: 3})
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}

	s := d.Summary
	if s.TotalIncome != core.Cents(500000) || s.TotalExpense != core.Cents(40000) || s.NetCashFlow != core.Cents(460000) {
		t.Errorf("summary = %+v", s)
	}
	if s.TotalBalance != core.Cents(100000) || s.Period != "2025-03" {
		t.Errorf("balance/period = %s %s", s.TotalBalance, s.Period)
	}
	if d.TransactionCount != 3 {
		t.Errorf("TransactionCount = %d, want 3", d.TransactionCount)
	}
	if len(d.CategoryBreakdown) != 2 || d.CategoryBreakdown[0].Percentage != 75 {
		t.Errorf("breakdown = %+v", d.CategoryBreakdown)
	}
	if len(d.Accounts) != 1 {
		t.Errorf("accounts = %d, want 1", len(d.Accounts))
	}

	if len(d.MonthlyTrend) != DashboardTrendMonths {
		t.Fatalf("trend has %d points, want %d", len(d.MonthlyTrend), DashboardTrendMonths)
	}
	first, last := d.MonthlyTrend[0], d.MonthlyTrend[len(d.MonthlyTrend)-1]
	if first.Period != "2024-10" || first.Month != "Okt" || first.Income != core.Cents(20000) {
		t.Errorf("first trend point = %+v", first)
	}
	if last.Period != "2025-03" || last.Month != "Mar" || last.Expense != core.Cents(40000) {
		t.Errorf("last trend point = %+v", last)
	}
}

func TestAggregator_EmptyPeriod(t *testing.T) {
	f := newFixture(t, nil)
	d, err := f.agg.Dashboard(context.Background(), "u1", core.Period{Year: 2020, Month: 1})
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if !d.Summary.TotalExpense.IsZero() || len(d.CategoryBreakdown) != 0 || d.TransactionCount != 0 {
		t.Fatalf("empty dashboard = %+v", d)
	}
}

func TestAggregator_Trend(t *testing.T) {
	f := newFixture(t, nil)
	f.add(t, "t1", core.KindExpense, 100, "", core.NewDate(2025, 1, 31))

	points, err := f.agg.Trend(context.Background(), "u1", 3)
	if err != nil {
		t.Fatalf("Trend: %v", err)
	}
	want := []string{"2025-01", "2025-02", "2025-03"}
	for i, p := range points {
		if p.Period != want[i] {
			t.Errorf("point %d = %s, want %s", i, p.Period, want[i])
		}
	}
	if points[0].Expense != core.Cents(100) {
		t.Errorf("January expense = %s", points[0].Expense)
	}

	for _, n := range []int{0, MaxTrendMonths + 1} {
		if _, err := f.agg.Trend(context.Background(), "u1", n); err == nil {
			t.Errorf("Trend(%d) should fail", n)
		}
	}
}

func TestAggregator_CacheInvalidation(t *testing.T) {
	c := cache.NewLRUCache[core.Dashboard](10, time.Hour)
	f := newFixture(t, c)
	ctx := context.Background()
	p := core.Period{Year: 2025, Month: 3}

	f.add(t, "t1", core.KindExpense, 100, "", core.NewDate(2025, 3, 1))
	first, err := f.agg.Dashboard(ctx, "u1", p)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if c.Size() != 1 {
		t.Fatalf("cache size = %d, want 1", c.Size())
	}

	f.add(t, "t2", core.KindExpense, 100, "", core.NewDate(2025, 3, 2))
	cached, _ := f.agg.Dashboard(ctx, "u1", p)
	if cached.TransactionCount != first.TransactionCount {
		t.Fatalf("expected cached dashboard, got count %d", cached.TransactionCount)
	}

	f.agg.Invalidate("u1")
	fresh, err := f.agg.Dashboard(ctx, "u1", p)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if fresh.TransactionCount != 2 {
		t.Fatalf("count after invalidation = %d, want 2", fresh.TransactionCount)
	}
}

func TestAggregator_CacheFollowsCurrentMonth(t *testing.T) {
	c := cache.NewLRUCache[core.Dashboard](10, time.Hour)
	f := newFixture(t, c)
	ctx := context.Background()
	p := core.Period{Year: 2025, Month: 3}

	march, err := f.agg.Dashboard(ctx, "u1", p)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if last := march.MonthlyTrend[len(march.MonthlyTrend)-1]; last.Period != "2025-03" {
		t.Fatalf("trend ends at %s, want 2025-03", last.Period)
	}

	f.add(t, "t1", core.KindExpense, 700, "", core.NewDate(2025, 4, 1))
	f.agg.now = func() time.Time { return time.Date(2025, 4, 1, 0, 5, 0, 0, time.UTC) }

	april, err := f.agg.Dashboard(ctx, "u1", p)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	last := april.MonthlyTrend[len(april.MonthlyTrend)-1]
	if last.Period != "2025-04" || last.Expense != core.Cents(700) {
		t.Fatalf("trend after month change ends at %+v, want 2025-04 with 7.00 expense", last)
	}
	if april.MonthlyTrend[0].Period != "2024-11" {
		t.Errorf("trend starts at %s, want 2024-11", april.MonthlyTrend[0].Period)
	}
}

// gatedStore holds ListAccounts until release is closed, giving up early when
// its context ends.
type gatedStore struct {
	*memory.Store
	loads   atomic.Int32
	entered chan struct{}
	release chan struct{}
}

func (g *gatedStore) ListAccounts(ctx context.Context, userID string) ([]core.Account, error) {
	g.loads.Add(1)
	g.entered <- struct{}{}
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.Store.ListAccounts(ctx, userID)
}

func TestAggregator_CancelledCallerKeepsSharedLoad(t *testing.T) {
	store := memory.New()
	if err := store.CreateAccount(context.Background(), core.Account{ID: "cash", UserID: "u1", Name: "Cash", Kind: core.AccountCash, Balance: core.Cents(100000)}); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	gated := &gatedStore{Store: store, entered: make(chan struct{}, 4), release: make(chan struct{})}
	c := cache.NewLRUCache[core.Dashboard](10, time.Hour)
	agg := NewAggregator(gated, Options{Locale: "id", Cache: c})
	agg.now = func() time.Time { return time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC) }
	p := core.Period{Year: 2025, Month: 3}

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := agg.Dashboard(ctx, "u1", p)
		first <- err
	}()
	<-gated.entered
	cancel()
	if err := <-first; !errors.Is(err, context.Canceled) {
		t.Fatalf("cancelled caller err = %v, want context.Canceled", err)
	}

	second := make(chan error, 1)
	go func() {
		d, err := agg.Dashboard(context.Background(), "u1", p)
		if err == nil && d.Summary.TotalBalance != core.Cents(100000) {
			err = errors.New("unexpected balance " + d.Summary.TotalBalance.String())
		}
		second <- err
	}()
	close(gated.release)
	if err := <-second; err != nil {
		t.Fatalf("second caller: %v", err)
	}
	if n := gated.loads.Load(); n != 1 {
		t.Fatalf("dashboard loaded %d times, want 1", n)
	}
	if c.Size() != 1 {
		t.Fatalf("cache size = %d, want 1", c.Size())
	}
}

func TestTopCategories(t *testing.T) {
	b := []core.CategoryBreakdown{{Name: "A"}, {Name: "B"}}
	if got := TopCategories(b, 5); len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
	if got := TopCategories(b, 1); len(got) != 1 || got[0].Name != "A" {
		t.Errorf("TopCategories(1) = %+v", got)
	}
}
