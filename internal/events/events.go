// Package events defines the enveloped domain events published after a
// mutation commits. Publishing is best-effort and never rolls anything back.
package events

import (
	"encoding/json"
	"strconv"
	"time"
)

const (
	EventOrderCreated   = "OrderCreated"
	EventOrderAssigned  = "OrderAssigned"
	EventOrderCompleted = "OrderCompleted"
	EventLedgerEntry    = "LedgerEntry"
)

const (
	TopicOrderCreated   = "order.created"
	TopicOrderAssigned  = "order.assigned"
	TopicOrderCompleted = "order.completed"
	TopicLedgerEntry    = "ledger.entry"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type OrderCreatedPayload struct {
	OrderID    int64  `json:"order_id"`
	CreatedBy  int64  `json:"created_by"`
	AssignedTo *int64 `json:"assigned_to,omitempty"`
	Status     string `json:"status"`
	ItemCount  int    `json:"item_count"`
}

type OrderAssignedPayload struct {
	OrderID    int64 `json:"order_id"`
	AssignedTo int64 `json:"assigned_to"`
	AssignedBy int64 `json:"assigned_by"`
}

type OrderCompletedPayload struct {
	OrderID     int64 `json:"order_id"`
	CompletedBy int64 `json:"completed_by"`
}

// LedgerEntryPayload mirrors one wallet adjustment plus its transaction row.
// Source is "payment" or "order_item" depending on what drove the entry.
type LedgerEntryPayload struct {
	UserID int64   `json:"user_id"`
	Amount float64 `json:"amount"`
	Type   string  `json:"type"`
	Source string  `json:"source"`
	RefID  int64   `json:"ref_id"`
}

// PartitionKey keeps every event for one entity on one partition.
func PartitionKey(id int64) []byte { return []byte(strconv.FormatInt(id, 10)) }
