package domain

import "time"

// Event types
const (
	EventTypeSettlementCreated   = "settlement.created"
	EventTypeSettlementCompleted = "settlement.completed"
	EventTypeSettlementCancelled = "settlement.cancelled"
	EventTypeExpenseRecorded     = "expense.recorded"
	EventTypeGroupCreated        = "group.created"
)

// Aggregate types
const (
	AggregateTypeSettlement = "settlement"
	AggregateTypeExpense    = "expense"
	AggregateTypeGroup      = "group"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// SettlementEventPayload builds the payload shared by all settlement events.
func SettlementEventPayload(s *Settlement) map[string]any {
	payload := map[string]any{
		"settlement_id": s.ID,
		"group_id":      s.GroupID,
		"payer_id":      s.PayerID,
		"payee_id":      s.PayeeID,
		"amount":        s.Amount.String(),
		"currency":      s.Currency,
		"status":        string(s.Status),
	}
	if s.SettledAt != nil {
		payload["settled_at"] = s.SettledAt.UTC().Format(time.RFC3339)
	}
	return payload
}
