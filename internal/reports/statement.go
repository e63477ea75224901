// Package reports renders account statements.
package reports

import (
	"context"
	"fmt"
	"strings"
	"time"

	"dompet/internal/core"
	"dompet/internal/storage"
)

const (
	// DefaultDays is the statement window when no dates are given.
	DefaultDays = 30
	// MaxItems caps the listed transactions; totals always cover the full range.
	MaxItems = 2000
)

type StatementItem struct {
	ID       string
	Date     core.Date
	Kind     core.Kind
	Title    string
	Account  string
	Category string
	Amount   core.Money
}

type Statement struct {
	UserID      string
	Range       core.DateRange
	Income      core.Money
	Expense     core.Money
	Items       []StatementItem
	Truncated   bool
	GeneratedAt time.Time
}

// Net is income minus expense over the statement range.
func (s Statement) Net() core.Money {
	return s.Income.Sub(s.Expense)
}

type Builder struct {
	store storage.Repository
	now   func() time.Time
}

func NewBuilder(store storage.Repository) *Builder {
	return &Builder{store: store, now: time.Now}
}

// ParseRange reads YYYY-MM-DD bounds. With either bound missing the range is
// the DefaultDays days ending today.
func (b *Builder) ParseRange(from, to string) (core.DateRange, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" || to == "" {
		end := core.DateOf(b.now())
		return core.DateRange{From: core.DateOf(end.AddDate(0, 0, -(DefaultDays - 1))), To: end}, nil
	}

	v := core.NewValidationError()
	f, err := time.Parse(time.DateOnly, from)
	if err != nil {
		v.Add("from", "must be YYYY-MM-DD")
	}
	t, err := time.Parse(time.DateOnly, to)
	if err != nil {
		v.Add("to", "must be YYYY-MM-DD")
	}
	if err := v.OrNil(); err != nil {
		return core.DateRange{}, err
	}
	if t.Before(f) {
		return core.DateRange{}, core.FieldError("to", "must not be before from")
	}
	return core.DateRange{From: core.DateOf(f), To: core.DateOf(t)}, nil
}

// Build collects the user's transactions in r, newest first.
func (b *Builder) Build(ctx context.Context, userID string, r core.DateRange) (Statement, error) {
	income, expense, err := b.store.SumByKind(ctx, userID, r)
	if err != nil {
		return Statement{}, fmt.Errorf("sum statement range: %w", err)
	}
	accounts, err := b.store.ListAccounts(ctx, userID)
	if err != nil {
		return Statement{}, fmt.Errorf("list accounts: %w", err)
	}
	categories, err := b.store.ListCategories(ctx, userID, "")
	if err != nil {
		return Statement{}, fmt.Errorf("list categories: %w", err)
	}
	accountNames := make(map[string]string, len(accounts))
	for _, a := range accounts {
		accountNames[a.ID] = a.Name
	}
	categoryNames := make(map[string]string, len(categories))
	for _, c := range categories {
		categoryNames[c.ID] = c.Name
	}

	s := Statement{UserID: userID, Range: r, Income: income, Expense: expense, GeneratedAt: b.now().UTC()}
	f := core.TransactionFilter{Range: r, Limit: core.MaxListLimit}
	for {
		page, total, err := b.store.ListTransactions(ctx, userID, f)
		if err != nil {
			return Statement{}, fmt.Errorf("list transactions: %w", err)
		}
		for _, t := range page {
			if len(s.Items) == MaxItems {
				s.Truncated = true
				return s, nil
			}
			category := categoryNames[t.CategoryID]
			if category == "" {
				category = core.UncategorizedLabel
			}
			s.Items = append(s.Items, StatementItem{
				ID:       t.ID,
				Date:     t.Date,
				Kind:     t.Kind,
				Title:    title(t),
				Account:  accountNames[t.AccountID],
				Category: category,
				Amount:   t.Amount,
			})
		}
		f.Offset += len(page)
		if len(page) == 0 || f.Offset >= total {
			return s, nil
		}
	}
}

func title(t core.Transaction) string {
	merchant := strings.TrimSpace(t.Merchant)
	desc := strings.TrimSpace(t.Description)
	switch {
	case merchant != "" && desc != "":
		return merchant + " - " + desc
	case merchant != "":
		return merchant
	case desc != "":
		return desc
	default:
		return "-"
	}
}
