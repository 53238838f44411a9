package httpx

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/errandops/fulfillment/internal/auth"
	"github.com/errandops/fulfillment/internal/events"
	"github.com/errandops/fulfillment/internal/orders"
)

type OrderStore interface {
	Create(ctx context.Context, actor auth.Identity, in orders.CreateInput) (*orders.Order, []orders.Item, error)
	Assign(ctx context.Context, actor auth.Identity, orderID int64, requested *int64) (*orders.Order, error)
	Complete(ctx context.Context, actor auth.Identity, orderID int64) (*orders.Order, error)
	Update(ctx context.Context, actor auth.Identity, orderID int64, in orders.UpdateInput) (*orders.Order, error)
	Delete(ctx context.Context, actor auth.Identity, orderID int64) error
	Get(ctx context.Context, orderID int64) (*orders.Order, error)
	List(ctx context.Context, f orders.ListFilter, limit int, cursor *int64) ([]orders.Order, error)
}

type OrderItemLister interface {
	ByOrder(ctx context.Context, orderID int64) ([]orders.Item, error)
}

type OrdersHandler struct {
	Orders   OrderStore
	Items    OrderItemLister
	Producer EventPublisher
	Service  string
	Validate *validator.Validate

	// CreateItem handles POST /orders/{id}/items; it lives on ItemsHandler
	// but is mounted here so the orders subtree owns the whole path.
	CreateItem http.HandlerFunc
}

type createOrderReq struct {
	Status     string             `json:"status" validate:"required"`
	AssignedTo *int64             `json:"assigned_to"`
	Items      []orders.ItemInput `json:"items"`
}

type updateOrderReq struct {
	Status     string `json:"status" validate:"required"`
	AssignedTo *int64 `json:"assigned_to"`
}

type assignReq struct {
	UserID *int64 `json:"user_id"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.get)
			r.Put("/", h.update)
			r.Delete("/", h.delete)
			r.Post("/assign", h.assign)
			r.Post("/complete", h.complete)
			r.Get("/items", h.items)
			if h.CreateItem != nil {
				r.Post("/items", h.CreateItem)
			}
		})
	})
}

func (h *OrdersHandler) create(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	var req createOrderReq
	if err := decode(r, h.Validate, &req); err != nil {
		writeErr(w, err)
		return
	}

	order, items, err := h.Orders.Create(r.Context(), actor, orders.CreateInput{
		Status:     req.Status,
		AssignedTo: req.AssignedTo,
		Items:      req.Items,
	})
	if err != nil {
		writeErr(w, err)
		return
	}

	publish(h.Producer, h.Service, events.TopicOrderCreated, events.EventOrderCreated,
		middleware.GetReqID(r.Context()), order.ID, events.OrderCreatedPayload{
			OrderID:    order.ID,
			CreatedBy:  order.CreatedBy,
			AssignedTo: order.AssignedTo,
			Status:     order.Status,
			ItemCount:  len(items),
		})
	writeData(w, http.StatusCreated, "Order created successfully", map[string]any{
		"order": order,
		"items": items,
	})
}

func (h *OrdersHandler) list(w http.ResponseWriter, r *http.Request) {
	if _, ok := identity(w, r); !ok {
		return
	}
	limit, cursor := pageParams(r)
	f := orders.ListFilter{Status: r.URL.Query().Get("status")}
	if s := r.URL.Query().Get("assigned_to"); s != "" {
		id, err := parseID(s, "assigned_to")
		if err != nil {
			writeErr(w, err)
			return
		}
		f.AssignedTo = &id
	}
	out, err := h.Orders.List(r.Context(), f, limit, cursor)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, "Orders retrieved", map[string]any{"orders": out})
}

func (h *OrdersHandler) get(w http.ResponseWriter, r *http.Request) {
	if _, ok := identity(w, r); !ok {
		return
	}
	id, err := parseID(chi.URLParam(r, "id"), "order id")
	if err != nil {
		writeErr(w, err)
		return
	}
	order, err := h.Orders.Get(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	items, err := h.Items.ByOrder(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, "Order retrieved", map[string]any{
		"order": order,
		"items": items,
	})
}

func (h *OrdersHandler) update(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	id, err := parseID(chi.URLParam(r, "id"), "order id")
	if err != nil {
		writeErr(w, err)
		return
	}
	var req updateOrderReq
	if err := decode(r, h.Validate, &req); err != nil {
		writeErr(w, err)
		return
	}
	order, err := h.Orders.Update(r.Context(), actor, id, orders.UpdateInput{
		Status:     req.Status,
		AssignedTo: req.AssignedTo,
	})
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, "Order updated successfully", map[string]any{"order": order})
}

func (h *OrdersHandler) delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	id, err := parseID(chi.URLParam(r, "id"), "order id")
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := h.Orders.Delete(r.Context(), actor, id); err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, "Order deleted successfully", nil)
}

func (h *OrdersHandler) assign(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	id, err := parseID(chi.URLParam(r, "id"), "order id")
	if err != nil {
		writeErr(w, err)
		return
	}
	var req assignReq
	if err := decode(r, h.Validate, &req); err != nil {
		writeErr(w, err)
		return
	}
	order, err := h.Orders.Assign(r.Context(), actor, id, req.UserID)
	if err != nil {
		writeErr(w, err)
		return
	}

	if order.AssignedTo != nil {
		publish(h.Producer, h.Service, events.TopicOrderAssigned, events.EventOrderAssigned,
			middleware.GetReqID(r.Context()), order.ID, events.OrderAssignedPayload{
				OrderID:    order.ID,
				AssignedTo: *order.AssignedTo,
				AssignedBy: actor.UserID,
			})
	}
	writeData(w, http.StatusOK, "Order assigned successfully", map[string]any{"order": order})
}

func (h *OrdersHandler) complete(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	id, err := parseID(chi.URLParam(r, "id"), "order id")
	if err != nil {
		writeErr(w, err)
		return
	}
	order, err := h.Orders.Complete(r.Context(), actor, id)
	if err != nil {
		writeErr(w, err)
		return
	}

	publish(h.Producer, h.Service, events.TopicOrderCompleted, events.EventOrderCompleted,
		middleware.GetReqID(r.Context()), order.ID, events.OrderCompletedPayload{
			OrderID:     order.ID,
			CompletedBy: actor.UserID,
		})
	writeData(w, http.StatusOK, "Order completed successfully", map[string]any{"order": order})
}

func (h *OrdersHandler) items(w http.ResponseWriter, r *http.Request) {
	if _, ok := identity(w, r); !ok {
		return
	}
	id, err := parseID(chi.URLParam(r, "id"), "order id")
	if err != nil {
		writeErr(w, err)
		return
	}
	items, err := h.Items.ByOrder(r.Context(), id)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, "Order items retrieved", map[string]any{"items": items})
}
