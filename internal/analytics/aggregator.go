// Package analytics derives period totals, category breakdowns, multi-month
// trends and the dashboard from stored transactions.
package analytics

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"dompet/internal/cache"
	"dompet/internal/core"
	"dompet/internal/log"
	"dompet/internal/storage"
)

const (
	DashboardTrendMonths = 6
	MaxTrendMonths       = 24
)

// Aggregator computes read-only views. It never writes.
type Aggregator struct {
	store  storage.Repository
	labels MonthLabels
	now    func() time.Time

	cache      cache.Cache[core.Dashboard]
	group      singleflight.Group
	generation atomic.Uint64
}

type Options struct {
	// Locale selects month labels, e.g. "id" or "en".
	Locale string
	// Cache keeps dashboards per user and period. Nil disables caching.
	Cache cache.Cache[core.Dashboard]
}

func NewAggregator(store storage.Repository, opts Options) *Aggregator {
	return &Aggregator{
		store:  store,
		labels: NewMonthLabels(opts.Locale),
		now:    time.Now,
		cache:  opts.Cache,
	}
}

// Totals returns income, expense and net cash flow of period p next to the
// current balance over all accounts.
func (a *Aggregator) Totals(ctx context.Context, userID string, p core.Period) (core.PeriodSummary, error) {
	accounts, err := a.store.ListAccounts(ctx, userID)
	if err != nil {
		return core.PeriodSummary{}, fmt.Errorf("list accounts: %w", err)
	}
	income, expense, err := a.store.SumByKind(ctx, userID, p.Range())
	if err != nil {
		return core.PeriodSummary{}, fmt.Errorf("sum by kind: %w", err)
	}
	return summarize(accounts, income, expense, p), nil
}

func summarize(accounts []core.Account, income, expense core.Money, p core.Period) core.PeriodSummary {
	var balance core.Money
	for _, acc := range accounts {
		balance = balance.Add(acc.Balance)
	}
	return core.PeriodSummary{
		TotalBalance: balance,
		TotalIncome:  income,
		TotalExpense: expense,
		NetCashFlow:  income.Sub(expense),
		Period:       p.String(),
	}
}

// Breakdown returns the expense of period p grouped by category.
func (a *Aggregator) Breakdown(ctx context.Context, userID string, p core.Period) ([]core.CategoryBreakdown, error) {
	totals, err := a.store.ExpenseByCategory(ctx, userID, p.Range())
	if err != nil {
		return nil, fmt.Errorf("expense by category: %w", err)
	}
	return BuildBreakdown(totals), nil
}

// Trend returns income and expense for the last months calendar months,
// oldest first, ending with the current month.
func (a *Aggregator) Trend(ctx context.Context, userID string, months int) ([]core.TrendPoint, error) {
	if months < 1 || months > MaxTrendMonths {
		return nil, core.FieldError("months", fmt.Sprintf("must be between 1 and %d", MaxTrendMonths))
	}

	return a.trendEnding(ctx, userID, months, core.PeriodOf(a.now()))
}

func (a *Aggregator) trendEnding(ctx context.Context, userID string, months int, current core.Period) ([]core.TrendPoint, error) {
	points := make([]core.TrendPoint, months)

	g, gctx := errgroup.WithContext(ctx)
	for i := range points {
		p := current.AddMonths(i - months + 1)
		g.Go(func() error {
			income, expense, err := a.store.SumByKind(gctx, userID, p.Range())
			if err != nil {
				return fmt.Errorf("sum %s: %w", p, err)
			}
			points[i] = core.TrendPoint{
				Month:   a.labels.Short(p.Month),
				Period:  p.String(),
				Income:  income,
				Expense: expense,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return points, nil
}

// Dashboard assembles the dashboard for period p. Results are cached per user,
// period and current month until the user's ledger changes or the entry
// expires. A caller that gives up does not cancel a load other callers share.
func (a *Aggregator) Dashboard(ctx context.Context, userID string, p core.Period) (core.Dashboard, error) {
	gen := a.generation.Load()
	current := core.PeriodOf(a.now())
	key := cacheKey(userID, p, current)

	if a.cache != nil {
		if d, ok := a.cache.Get(key); ok {
			return d, nil
		}
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := a.group.DoChan(fmt.Sprintf("%s#%d", key, gen), func() (any, error) {
		d, err := a.loadDashboard(loadCtx, userID, p, current)
		if err != nil {
			return core.Dashboard{}, err
		}
		if a.cache != nil && a.generation.Load() == gen {
			a.cache.Set(key, d)
		}
		return d, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return core.Dashboard{}, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return core.Dashboard{}, res.Err
	}
	if res.Shared {
		log.FromContext(ctx).WithComponent(log.ComponentAnalytics).DebugContext(ctx, "Dashboard load shared",
			log.FieldUserID, userID,
			log.FieldPeriod, p.String())
	}
	return res.Val.(core.Dashboard), nil
}

func (a *Aggregator) loadDashboard(ctx context.Context, userID string, p, current core.Period) (core.Dashboard, error) {
	var (
		accounts        []core.Account
		income, expense core.Money
		breakdown       []core.CategoryBreakdown
		count           int
		trend           []core.TrendPoint
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		accounts, err = a.store.ListAccounts(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		income, expense, err = a.store.SumByKind(gctx, userID, p.Range())
		return err
	})
	g.Go(func() error {
		var err error
		breakdown, err = a.Breakdown(gctx, userID, p)
		return err
	})
	g.Go(func() error {
		var err error
		count, err = a.store.CountTransactions(gctx, userID, p.Range())
		return err
	})
	g.Go(func() error {
		var err error
		trend, err = a.trendEnding(gctx, userID, DashboardTrendMonths, current)
		return err
	})
	if err := g.Wait(); err != nil {
		return core.Dashboard{}, fmt.Errorf("load dashboard: %w", err)
	}

	return core.Dashboard{
		Summary:           summarize(accounts, income, expense, p),
		Accounts:          accounts,
		CategoryBreakdown: breakdown,
		MonthlyTrend:      trend,
		TransactionCount:  count,
	}, nil
}

// Invalidate drops the cached dashboards of userID.
func (a *Aggregator) Invalidate(userID string) {
	a.generation.Add(1)
	if a.cache == nil {
		return
	}
	a.cache.DeleteGroup(userID)
}

// cacheKey includes the current month since the trend ends there.
func cacheKey(userID string, p, current core.Period) string {
	return cache.Key(userID, p.String()+"@"+current.String())
}
