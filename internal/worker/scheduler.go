package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"dompet/internal/core"
	"dompet/internal/log"
)

// ActiveUsers lists users with transactions in a date range.
type ActiveUsers interface {
	ListActiveUserIDs(ctx context.Context, r core.DateRange) ([]string, error)
}

// Scheduler writes a monthly_summary insight for the previous month of every
// active user, once per user and month for the life of the process.
type Scheduler struct {
	users    ActiveUsers
	insights InsightGenerator
	interval time.Duration
	now      func() time.Time

	// runMu guards done; done remembers the last period summarized per user.
	runMu sync.Mutex
	done  map[string]core.Period

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewScheduler(users ActiveUsers, insights InsightGenerator, interval time.Duration) *Scheduler {
	return &Scheduler{
		users:    users,
		insights: insights,
		interval: interval,
		now:      time.Now,
		done:     make(map[string]core.Period),
	}
}

// Start begins the schedule loop. Returns an error if already running.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.interval <= 0 {
		return fmt.Errorf("invalid schedule interval %s", s.interval)
	}
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("insight scheduler is already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.runLoop(ctx)

	slog.InfoContext(ctx, "Insight scheduler started",
		log.FieldComponent, log.ComponentWorker,
		"interval", s.interval)
	return nil
}

// Stop signals the loop and waits for the current run to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	doneCh := s.doneCh
	s.mu.Unlock()

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Insight scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		slog.WarnContext(ctx, "Insight scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) runLoop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil {
		slog.ErrorContext(ctx, "Insight schedule run failed",
			log.FieldComponent, log.ComponentWorker,
			"error", err)
	}
}

// RunOnce summarizes the previous month for users not yet handled and
// returns how many insights were written. Per-user failures are logged and
// retried on the next run.
func (s *Scheduler) RunOnce(ctx context.Context) (int, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	p := core.PeriodOf(s.now()).Previous()
	ids, err := s.users.ListActiveUserIDs(ctx, p.Range())
	if err != nil {
		return 0, fmt.Errorf("list active users: %w", err)
	}

	generated := 0
	for _, userID := range ids {
		if ctx.Err() != nil {
			return generated, ctx.Err()
		}
		if s.done[userID] == p {
			continue
		}
		_, err := s.insights.Generate(ctx, userID, core.InsightMonthlySummary, p)
		switch {
		case err == nil:
			generated++
			s.done[userID] = p
		case errors.Is(err, core.ErrInsufficientData):
			s.done[userID] = p
		default:
			slog.ErrorContext(ctx, "Scheduled insight failed",
				log.FieldComponent, log.ComponentWorker,
				log.FieldUserID, userID,
				log.FieldPeriod, p.String(),
				"error", err)
		}
	}

	slog.InfoContext(ctx, "Insight schedule run completed",
		log.FieldComponent, log.ComponentWorker,
		log.FieldPeriod, p.String(),
		"active_users", len(ids),
		"generated", generated)
	return generated, nil
}
