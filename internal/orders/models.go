package orders

import "time"

// Status is free-text on the wire; these three values carry lifecycle
// meaning.
const (
	StatusPending   = "pending"
	StatusAssigned  = "assigned"
	StatusCompleted = "completed"
)

type Order struct {
	ID          int64      `json:"id"`
	CreatedBy   int64      `json:"created_by"`
	AssignedTo  *int64     `json:"assigned_to"`
	Status      string     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at"`
}

type Item struct {
	ID            int64    `json:"id"`
	OrderID       int64    `json:"order_id"`
	ProductName   string   `json:"product_name"`
	Quantity      float64  `json:"quantity"`
	Unit          string   `json:"unit"`
	EstimatedCost *float64 `json:"estimated_cost"`
	ActualCost    *float64 `json:"actual_cost"`
	Status        string   `json:"status"`
}

type ItemInput struct {
	ProductName   string   `json:"product_name"`
	Quantity      float64  `json:"quantity"`
	Unit          string   `json:"unit"`
	EstimatedCost *float64 `json:"estimated_cost,omitempty"`
	ActualCost    *float64 `json:"actual_cost,omitempty"`
	Status        string   `json:"status"`
}

type CreateInput struct {
	Status     string      `json:"status"`
	AssignedTo *int64      `json:"assigned_to,omitempty"`
	Items      []ItemInput `json:"items,omitempty"`
}

type UpdateInput struct {
	Status     string `json:"status"`
	AssignedTo *int64 `json:"assigned_to,omitempty"`
}

type ListFilter struct {
	Status     string
	AssignedTo *int64
}
