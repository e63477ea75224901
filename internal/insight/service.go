// Package insight builds financial summaries and turns them into stored,
// AI-written insights.
package insight

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"dompet/internal/amqp"
	"dompet/internal/analytics"
	"dompet/internal/core"
	"dompet/internal/log"
	"dompet/internal/storage"
)

const topCategories = 5

// ErrUnavailable means a collaborator needed for the request is not configured.
var ErrUnavailable = errors.New("insight generation unavailable")

// TextGenerator produces free text for a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Requester queues generation for a background worker. *amqp.Client
// satisfies it.
type Requester interface {
	PublishInsightRequest(ctx context.Context, req *amqp.InsightRequest) error
}

type Service struct {
	store     storage.Repository
	generator TextGenerator
	requests  Requester
	now       func() time.Time
}

// NewService wires the summarizer. generator and requests may be nil; the
// operations needing them then fail with ErrUnavailable.
func NewService(store storage.Repository, generator TextGenerator, requests Requester) *Service {
	return &Service{store: store, generator: generator, requests: requests, now: time.Now}
}

// BuildSummary collects the figures of period p that a prompt is built from.
func (s *Service) BuildSummary(ctx context.Context, userID string, p core.Period) (core.FinancialSummary, error) {
	income, expense, err := s.store.SumByKind(ctx, userID, p.Range())
	if err != nil {
		return core.FinancialSummary{}, fmt.Errorf("sum current period: %w", err)
	}
	totals, err := s.store.ExpenseByCategory(ctx, userID, p.Range())
	if err != nil {
		return core.FinancialSummary{}, fmt.Errorf("expense by category: %w", err)
	}
	_, previous, err := s.store.SumByKind(ctx, userID, p.Previous().Range())
	if err != nil {
		return core.FinancialSummary{}, fmt.Errorf("sum previous period: %w", err)
	}

	return core.FinancialSummary{
		Period:               p.String(),
		TotalIncome:          income,
		TotalExpense:         expense,
		Balance:              income.Sub(expense),
		TopExpenseCategories: analytics.TopCategories(analytics.BuildBreakdown(totals), topCategories),
		MonthlyComparison: core.MonthlyComparison{
			CurrentMonth:     expense,
			PreviousMonth:    previous,
			PercentageChange: core.PercentChange(expense, previous),
		},
	}, nil
}

// Generate writes a new insight of type t for period p, replacing an earlier
// one for the same user, type and period.
func (s *Service) Generate(ctx context.Context, userID string, t core.InsightType, p core.Period) (core.Insight, error) {
	if !t.IsValid() {
		return core.Insight{}, core.FieldError("type", "must be one of monthly_summary, spending_alert, saving_tip")
	}
	if s.generator == nil {
		return core.Insight{}, fmt.Errorf("%w: no text generator configured", ErrUnavailable)
	}

	summary, err := s.BuildSummary(ctx, userID, p)
	if err != nil {
		return core.Insight{}, err
	}
	if summary.IsEmpty() {
		return core.Insight{}, fmt.Errorf("%w: no transactions in %s", core.ErrInsufficientData, p)
	}

	logger := log.FromContext(ctx).WithComponent(log.ComponentInsight)
	start := s.now()
	text, err := s.generator.Generate(ctx, BuildPrompt(summary, t))
	if err != nil {
		return core.Insight{}, fmt.Errorf("generate text: %w", err)
	}
	title, content := ParseResponse(text)

	saved, err := s.store.UpsertInsight(ctx, core.Insight{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      t,
		Title:     title,
		Content:   content,
		Period:    p.String(),
		IsRead:    false,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		return core.Insight{}, fmt.Errorf("save insight: %w", err)
	}

	logger.InfoContext(ctx, "Insight generated",
		log.FieldOperation, log.OpGenerate,
		log.FieldUserID, userID,
		log.FieldInsightType, string(t),
		log.FieldPeriod, p.String(),
		log.FieldDuration, s.now().Sub(start).Milliseconds())
	return saved, nil
}

// Request queues generation instead of running it inline.
func (s *Service) Request(ctx context.Context, userID string, t core.InsightType, p core.Period) error {
	if !t.IsValid() {
		return core.FieldError("type", "must be one of monthly_summary, spending_alert, saving_tip")
	}
	if s.requests == nil {
		return fmt.Errorf("%w: no message broker configured", ErrUnavailable)
	}
	if err := s.requests.PublishInsightRequest(ctx, amqp.NewInsightRequest(userID, t, p)); err != nil {
		return fmt.Errorf("queue insight request: %w", err)
	}
	return nil
}

// List returns the newest insights first, at most core.InsightListLimit.
func (s *Service) List(ctx context.Context, userID string, f core.InsightFilter) ([]core.Insight, error) {
	f.Type = core.InsightType(strings.TrimSpace(string(f.Type)))
	if f.Type != "" && !f.Type.IsValid() {
		return nil, core.FieldError("type", "must be one of monthly_summary, spending_alert, saving_tip")
	}
	if f.Limit <= 0 || f.Limit > core.InsightListLimit {
		f.Limit = core.InsightListLimit
	}
	out, err := s.store.ListInsights(ctx, userID, f)
	if err != nil {
		return nil, fmt.Errorf("list insights: %w", err)
	}
	return out, nil
}

func (s *Service) MarkRead(ctx context.Context, userID, id string) error {
	if err := s.store.MarkInsightRead(ctx, userID, id); err != nil {
		return fmt.Errorf("mark insight read: %w", err)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteInsight(ctx, userID, id); err != nil {
		return fmt.Errorf("delete insight: %w", err)
	}
	return nil
}
