// Package worker handles messages from the event queue and runs the periodic
// insight job.
package worker

import (
	"context"
	"errors"
	"fmt"

	"dompet/internal/amqp"
	"dompet/internal/core"
	"dompet/internal/insight"
	"dompet/internal/log"
	"dompet/internal/sheets"
)

// InsightGenerator produces and stores one insight. *insight.Service
// satisfies it.
type InsightGenerator interface {
	Generate(ctx context.Context, userID string, t core.InsightType, p core.Period) (core.Insight, error)
}

type Worker struct {
	exporter sheets.TransactionExporter
	insights InsightGenerator
}

// New builds a worker. A nil exporter skips transaction events; a nil
// generator drops insight requests.
func New(exporter sheets.TransactionExporter, insights InsightGenerator) *Worker {
	return &Worker{exporter: exporter, insights: insights}
}

// Handlers binds the worker to an amqp consumer.
func (w *Worker) Handlers() amqp.Handlers {
	return amqp.Handlers{
		Transaction: w.HandleTransaction,
		Insight:     w.HandleInsight,
	}
}

// HandleTransaction mirrors a ledger change into the spreadsheet.
func (w *Worker) HandleTransaction(ctx context.Context, ev *amqp.TransactionEvent) error {
	logger := log.FromContext(ctx).WithComponent(log.ComponentWorker)
	if w.exporter == nil {
		logger.DebugContext(ctx, "No exporter configured, skipping transaction event",
			log.FieldEvent, ev.Event)
		return nil
	}

	switch ev.Event {
	case amqp.RoutingTransactionCreated, amqp.RoutingTransactionUpdated:
		ref, err := w.exporter.Upsert(ctx, ev.Transaction)
		if err != nil {
			return fmt.Errorf("export transaction %s: %w", ev.TransactionID, err)
		}
		logger.InfoContext(ctx, "Transaction exported",
			log.FieldOperation, log.OpExport,
			log.FieldEvent, ev.Event,
			log.FieldUserID, ev.UserID,
			log.FieldTransactionID, ev.TransactionID,
			"sheets_ref", ref)
	case amqp.RoutingTransactionDeleted:
		if err := w.exporter.Remove(ctx, ev.TransactionID); err != nil {
			return fmt.Errorf("remove exported transaction %s: %w", ev.TransactionID, err)
		}
		logger.InfoContext(ctx, "Exported transaction removed",
			log.FieldOperation, log.OpDelete,
			log.FieldUserID, ev.UserID,
			log.FieldTransactionID, ev.TransactionID)
	default:
		return fmt.Errorf("%w: unknown transaction event %q", amqp.ErrDrop, ev.Event)
	}
	return nil
}

// HandleInsight generates a requested insight. Requests that can never
// succeed are dropped; a month without transactions is acknowledged.
func (w *Worker) HandleInsight(ctx context.Context, req *amqp.InsightRequest) error {
	if w.insights == nil {
		return fmt.Errorf("%w: %w", amqp.ErrDrop, insight.ErrUnavailable)
	}
	p, err := core.ParsePeriod(req.Period)
	if err != nil {
		return fmt.Errorf("%w: %v", amqp.ErrDrop, err)
	}

	logger := log.FromContext(ctx).WithComponent(log.ComponentWorker)
	in, err := w.insights.Generate(ctx, req.UserID, req.Type, p)
	switch {
	case err == nil:
		logger.InfoContext(ctx, "Insight request handled",
			log.FieldUserID, req.UserID,
			log.FieldInsightType, string(req.Type),
			log.FieldPeriod, p.String(),
			"insight_id", in.ID)
		return nil
	case errors.Is(err, core.ErrInsufficientData):
		logger.InfoContext(ctx, "Skipping insight request without data",
			log.FieldUserID, req.UserID,
			log.FieldPeriod, p.String())
		return nil
	case errors.Is(err, core.ErrValidation), errors.Is(err, insight.ErrUnavailable):
		return fmt.Errorf("%w: %w", amqp.ErrDrop, err)
	default:
		return fmt.Errorf("generate insight: %w", err)
	}
}
