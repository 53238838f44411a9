package httpx

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/errandops/fulfillment/internal/auth"
	"github.com/errandops/fulfillment/internal/events"
	"github.com/errandops/fulfillment/internal/ledger"
	"github.com/errandops/fulfillment/internal/orders"
)

type ItemStore interface {
	Create(ctx context.Context, actor auth.Identity, orderID int64, in orders.ItemInput) (*orders.Item, error)
	Update(ctx context.Context, actor auth.Identity, itemID int64, in orders.ItemInput) (*orders.ItemResult, error)
	Delete(ctx context.Context, actor auth.Identity, itemID int64) error
	Get(ctx context.Context, itemID int64) (*orders.Item, error)
	List(ctx context.Context, limit int, cursor *int64) ([]orders.Item, error)
}

type ItemsHandler struct {
	Items    ItemStore
	Producer EventPublisher
	Service  string
	Validate *validator.Validate
}

type itemReq struct {
	ProductName   string   `json:"product_name" validate:"required"`
	Quantity      float64  `json:"quantity" validate:"required,gt=0"`
	Unit          string   `json:"unit"`
	EstimatedCost *float64 `json:"estimated_cost"`
	ActualCost    *float64 `json:"actual_cost"`
	Status        string   `json:"status" validate:"required"`
}

func (in itemReq) input() orders.ItemInput {
	return orders.ItemInput{
		ProductName:   in.ProductName,
		Quantity:      in.Quantity,
		Unit:          in.Unit,
		EstimatedCost: in.EstimatedCost,
		ActualCost:    in.ActualCost,
		Status:        in.Status,
	}
}

func (h *ItemsHandler) Register(r chi.Router) {
	r.Route("/items", func(r chi.Router) {
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Put("/{id}", h.update)
		r.Delete("/{id}", h.delete)
	})
}

// CreateUnderOrder is mounted by OrdersHandler at POST /orders/{id}/items.
func (h *ItemsHandler) CreateUnderOrder(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	orderID, err := parseID(chi.URLParam(r, "id"), "order id")
	if err != nil {
		writeErr(w, err)
		return
	}
	var req itemReq
	if err := decode(r, h.Validate, &req); err != nil {
		writeErr(w, err)
		return
	}
	item, err := h.Items.Create(r.Context(), actor, orderID, req.input())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusCreated, "Item created successfully", map[string]any{"item": item})
}

// update rewrites the item; when the update carried an actual cost the repo
// debited the actor's wallet and we announce the ledger entry downstream.
func (h *ItemsHandler) update(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	itemID, err := parseID(chi.URLParam(r, "id"), "item id")
	if err != nil {
		writeErr(w, err)
		return
	}
	var req itemReq
	if err := decode(r, h.Validate, &req); err != nil {
		writeErr(w, err)
		return
	}
	res, err := h.Items.Update(r.Context(), actor, itemID, req.input())
	if err != nil {
		writeErr(w, err)
		return
	}

	if res.LedgerTx != 0 {
		publish(h.Producer, h.Service, events.TopicLedgerEntry, events.EventLedgerEntry,
			middleware.GetReqID(r.Context()), actor.UserID, events.LedgerEntryPayload{
				UserID: actor.UserID,
				Amount: -*req.ActualCost,
				Type:   ledger.TypeDebit,
				Source: "order_item",
				RefID:  itemID,
			})
	}
	writeData(w, http.StatusOK, "Item updated successfully", map[string]any{"item": res.Item})
}

func (h *ItemsHandler) delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	itemID, err := parseID(chi.URLParam(r, "id"), "item id")
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := h.Items.Delete(r.Context(), actor, itemID); err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, "Item deleted successfully", nil)
}

func (h *ItemsHandler) get(w http.ResponseWriter, r *http.Request) {
	if _, ok := identity(w, r); !ok {
		return
	}
	itemID, err := parseID(chi.URLParam(r, "id"), "item id")
	if err != nil {
		writeErr(w, err)
		return
	}
	item, err := h.Items.Get(r.Context(), itemID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, "Item retrieved", map[string]any{"item": item})
}

func (h *ItemsHandler) list(w http.ResponseWriter, r *http.Request) {
	if _, ok := identity(w, r); !ok {
		return
	}
	limit, cursor := pageParams(r)
	items, err := h.Items.List(r.Context(), limit, cursor)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, "Items retrieved", map[string]any{"items": items})
}
