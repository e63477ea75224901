package amqp

import (
	"encoding/json"
	"time"

	"dompet/internal/core"
)

// Routing keys; each one is also carried in Publishing.Type for dispatch.
const (
	RoutingTransactionCreated = "transaction.created"
	RoutingTransactionUpdated = "transaction.updated"
	RoutingTransactionDeleted = "transaction.deleted"
	RoutingInsightRequested   = "insight.requested"
)

// RoutingKeys lists every key the work queue is bound to.
var RoutingKeys = []string{
	RoutingTransactionCreated,
	RoutingTransactionUpdated,
	RoutingTransactionDeleted,
	RoutingInsightRequested,
}

// TransactionEvent announces a committed ledger mutation. Transaction holds
// the state after the change, or the removed row for deletions.
type TransactionEvent struct {
	Event         string           `json:"event"`
	UserID        string           `json:"userId"`
	TransactionID string           `json:"transactionId"`
	AccountID     string           `json:"accountId"`
	Transaction   core.Transaction `json:"transaction"`
	Timestamp     time.Time        `json:"timestamp"`
}

func NewTransactionEvent(event string, t core.Transaction) *TransactionEvent {
	return &TransactionEvent{
		Event:         event,
		UserID:        t.UserID,
		TransactionID: t.ID,
		AccountID:     t.AccountID,
		Transaction:   t,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var msg TransactionEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// InsightRequest asks the worker to generate one insight.
type InsightRequest struct {
	UserID    string           `json:"userId"`
	Type      core.InsightType `json:"type"`
	Period    string           `json:"period"`
	Timestamp time.Time        `json:"timestamp"`
}

func NewInsightRequest(userID string, typ core.InsightType, period core.Period) *InsightRequest {
	return &InsightRequest{
		UserID:    userID,
		Type:      typ,
		Period:    period.String(),
		Timestamp: time.Now(),
	}
}

func (m *InsightRequest) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func InsightRequestFromJSON(data []byte) (*InsightRequest, error) {
	var msg InsightRequest
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
