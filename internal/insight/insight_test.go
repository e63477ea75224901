package insight

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"dompet/internal/amqp"
	"dompet/internal/core"
	"dompet/internal/storage/memory"
)

type stubGenerator struct {
	text    string
	err     error
	prompts []string
}

func (g *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	return g.text, g.err
}

type stubRequester struct {
	got []*amqp.InsightRequest
}

func (r *stubRequester) PublishInsightRequest(_ context.Context, req *amqp.InsightRequest) error {
	r.got = append(r.got, req)
	return nil
}

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantTitle   string
		wantContent string
	}{
		{
			name:        "markdown heading",
			text:        "## Bulan Hemat\n\nPengeluaranmu turun.\nPertahankan!",
			wantTitle:   "Bulan Hemat",
			wantContent: "Pengeluaranmu turun.\nPertahankan!",
		},
		{
			name:        "leading blank lines",
			text:        "\n\n  Judul  \nIsi",
			wantTitle:   "Judul",
			wantContent: "Isi",
		},
		{
			name:        "single line",
			text:        "Hanya satu baris",
			wantTitle:   "Hanya satu baris",
			wantContent: "Hanya satu baris",
		},
		{
			name:        "hashes only",
			text:        "###\nIsi saja",
			wantTitle:   DefaultTitle,
			wantContent: "Isi saja",
		},
		{
			name:        "empty",
			text:        "",
			wantTitle:   DefaultTitle,
			wantContent: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			title, content := ParseResponse(tt.text)
			if title != tt.wantTitle {
				t.Errorf("title = %q, want %q", title, tt.wantTitle)
			}
			if content != tt.wantContent {
				t.Errorf("content = %q, want %q", content, tt.wantContent)
			}
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	s := core.FinancialSummary{
		Period:       "2025-03",
		TotalIncome:  core.Cents(100000),
		TotalExpense: core.Cents(50000),
		Balance:      core.Cents(50000),
		TopExpenseCategories: []core.CategoryAmount{
			{Name: "Makanan & Minuman", Amount: core.Cents(30000)},
		},
		MonthlyComparison: core.MonthlyComparison{PercentageChange: -12.5},
	}

	alert := BuildPrompt(s, core.InsightSpendingAlert)
	if !strings.Contains(alert, "turun 12.5%") {
		t.Errorf("spending alert prompt lacks comparison:\n%s", alert)
	}
	if !strings.Contains(alert, "Makanan & Minuman (Rp 300)") {
		t.Errorf("prompt lacks top category:\n%s", alert)
	}
	for _, typ := range []core.InsightType{core.InsightMonthlySummary, core.InsightSavingTip} {
		p := BuildPrompt(s, typ)
		if p == alert || !strings.Contains(p, "Tugas:") {
			t.Errorf("%s prompt not specific:\n%s", typ, p)
		}
	}
}

type fixture struct {
	store *memory.Store
	gen   *stubGenerator
	svc   *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	ctx := context.Background()
	if err := store.CreateAccount(ctx, core.Account{ID: "a1", UserID: "u1", Name: "Cash", Kind: core.AccountCash}); err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	gen := &stubGenerator{text: "# Ringkasan Maret\nKeuanganmu sehat."}
	svc := NewService(store, gen, nil)
	svc.now = func() time.Time { return time.Date(2025, 4, 2, 8, 0, 0, 0, time.UTC) }
	return &fixture{store: store, gen: gen, svc: svc}
}

func (f *fixture) add(t *testing.T, id string, kind core.Kind, cents int64, d core.Date) {
	t.Helper()
	err := f.store.CreateTransaction(context.Background(), core.Transaction{
		ID: id, UserID: "u1", AccountID: "a1", Kind: kind, Amount: core.Cents(cents), Date: d,
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
}

func TestService_BuildSummary(t *testing.T) {
	f := newFixture(t)
	f.add(t, "t1", core.KindIncome, 1000000, core.NewDate(2025, 3, 1))
	f.add(t, "t2", core.KindExpense, 150000, core.NewDate(2025, 3, 5))
	f.add(t, "t3", core.KindExpense, 100000, core.NewDate(2025, 2, 5))

	s, err := f.svc.BuildSummary(context.Background(), "u1", core.Period{Year: 2025, Month: 3})
	if err != nil {
		t.Fatalf("BuildSummary: %v", err)
	}
	if s.Balance != core.Cents(850000) {
		t.Errorf("Balance = %s, want 8500.00", s.Balance)
	}
	c := s.MonthlyComparison
	if c.CurrentMonth != core.Cents(150000) || c.PreviousMonth != core.Cents(100000) || c.PercentageChange != 50 {
		t.Errorf("comparison = %+v", c)
	}
	if len(s.TopExpenseCategories) != 1 || s.TopExpenseCategories[0].Name != core.UncategorizedLabel {
		t.Errorf("top categories = %+v", s.TopExpenseCategories)
	}
}

func TestService_GenerateUpserts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := core.Period{Year: 2025, Month: 3}
	f.add(t, "t1", core.KindExpense, 5000, core.NewDate(2025, 3, 10))

	first, err := f.svc.Generate(ctx, "u1", core.InsightMonthlySummary, p)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if first.Title != "Ringkasan Maret" || first.Content != "Keuanganmu sehat." || first.Period != "2025-03" {
		t.Fatalf("insight = %+v", first)
	}
	if err := f.svc.MarkRead(ctx, "u1", first.ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}

	f.gen.text = "Judul Baru\nIsi baru"
	second, err := f.svc.Generate(ctx, "u1", core.InsightMonthlySummary, p)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("upsert changed id: %s -> %s", first.ID, second.ID)
	}

	list, err := f.svc.List(ctx, "u1", core.InsightFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("List = %d insights, want 1", len(list))
	}
	if list[0].Title != "Judul Baru" || list[0].IsRead {
		t.Errorf("stored insight = %+v", list[0])
	}
}

func TestService_GenerateErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := core.Period{Year: 2025, Month: 3}

	if _, err := f.svc.Generate(ctx, "u1", core.InsightSavingTip, p); !errors.Is(err, core.ErrInsufficientData) {
		t.Fatalf("Generate without data = %v, want ErrInsufficientData", err)
	}
	if len(f.gen.prompts) != 0 {
		t.Fatal("generator called without data")
	}

	if _, err := f.svc.Generate(ctx, "u1", core.InsightType("weekly"), p); !errors.Is(err, core.ErrValidation) {
		t.Fatalf("Generate with bad type = %v, want ErrValidation", err)
	}

	f.add(t, "t1", core.KindIncome, 100, core.NewDate(2025, 3, 1))
	f.gen.err = errors.New("quota exceeded")
	if _, err := f.svc.Generate(ctx, "u1", core.InsightSavingTip, p); err == nil || errors.Is(err, core.ErrInsufficientData) {
		t.Fatalf("Generate with failing generator = %v", err)
	}

	bare := NewService(f.store, nil, nil)
	if _, err := bare.Generate(ctx, "u1", core.InsightSavingTip, p); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Generate without generator = %v, want ErrUnavailable", err)
	}
	if err := bare.Request(ctx, "u1", core.InsightSavingTip, p); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("Request without broker = %v, want ErrUnavailable", err)
	}
}

func TestService_Request(t *testing.T) {
	req := &stubRequester{}
	svc := NewService(memory.New(), nil, req)
	p := core.Period{Year: 2025, Month: 3}
	if err := svc.Request(context.Background(), "u1", core.InsightSpendingAlert, p); err != nil {
		t.Fatalf("Request: %v", err)
	}
	if len(req.got) != 1 || req.got[0].UserID != "u1" || req.got[0].Period != "2025-03" {
		t.Fatalf("published = %+v", req.got)
	}
}

func TestService_Ownership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.add(t, "t1", core.KindExpense, 5000, core.NewDate(2025, 3, 10))
	in, err := f.svc.Generate(ctx, "u1", core.InsightMonthlySummary, core.Period{Year: 2025, Month: 3})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	if err := f.svc.MarkRead(ctx, "u2", in.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("MarkRead by other user = %v, want ErrNotFound", err)
	}
	if err := f.svc.Delete(ctx, "u2", in.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("Delete by other user = %v, want ErrNotFound", err)
	}
	if err := f.svc.Delete(ctx, "u1", in.ID); err != nil {
		t.Errorf("Delete: %v", err)
	}
}
