package services

import (
	"context"
	"log/slog"

	"dompet/internal/amqp"
	"dompet/internal/core"
	"dompet/internal/log"
)

// EventPublisher announces committed changes. *amqp.Client satisfies it.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, ev *amqp.TransactionEvent) error
	PublishInsightRequest(ctx context.Context, req *amqp.InsightRequest) error
}

// ChangeNotifier is told when a user's ledger changed so derived views can be
// dropped.
type ChangeNotifier interface {
	Invalidate(userID string)
}

// changed runs the post-commit side effects of a ledger mutation. None of
// them can fail the request: the data is already committed.
func changed(ctx context.Context, events EventPublisher, notifier ChangeNotifier, event string, t core.Transaction) {
	if notifier != nil {
		notifier.Invalidate(t.UserID)
	}

	if events == nil {
		slog.DebugContext(ctx, "AMQP client not available, skipping transaction event",
			log.FieldEvent, event)
		return
	}

	if err := events.PublishTransactionEvent(ctx, amqp.NewTransactionEvent(event, t)); err != nil {
		log.NewStructuredLogger(log.FromContext(ctx)).LogError(ctx,
			"Failed to publish transaction event", err, log.ComponentAMQP, log.OpPublish,
			log.NewFields().WithUser(t.UserID).WithTransaction(t.ID, t.AccountID, string(t.Kind), t.Amount.Cents))
	}
}
