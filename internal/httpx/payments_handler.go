package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"

	"github.com/errandops/fulfillment/internal/auth"
	"github.com/errandops/fulfillment/internal/errs"
	"github.com/errandops/fulfillment/internal/events"
	"github.com/errandops/fulfillment/internal/payments"
)

type PaymentStore interface {
	Create(ctx context.Context, actor auth.Identity, in payments.CreateInput) (*payments.Result, error)
	List(ctx context.Context, f payments.Filter, limit int, cursor *int64) ([]payments.Payment, error)
}

type PaymentsHandler struct {
	Payments PaymentStore
	Producer EventPublisher
	Service  string
	Validate *validator.Validate
}

type createPaymentReq struct {
	UserID  int64   `json:"user_id" validate:"required"`
	OwnerID *int64  `json:"owner_id"`
	Amount  float64 `json:"amount" validate:"required"`
	Type    string  `json:"type" validate:"required"`
}

func (h *PaymentsHandler) Register(r chi.Router) {
	r.Route("/payments", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
	})
}

func (h *PaymentsHandler) create(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	var req createPaymentReq
	if err := decode(r, h.Validate, &req); err != nil {
		writeErr(w, err)
		return
	}

	res, err := h.Payments.Create(r.Context(), actor, payments.CreateInput{
		UserID:  req.UserID,
		OwnerID: req.OwnerID,
		Amount:  req.Amount,
		Kind:    payments.Kind(req.Type),
	})
	if err != nil {
		writeErr(w, err)
		return
	}

	publish(h.Producer, h.Service, events.TopicLedgerEntry, events.EventLedgerEntry,
		middleware.GetReqID(r.Context()), res.Payment.UserID, events.LedgerEntryPayload{
			UserID: res.Payment.UserID,
			Amount: res.Payment.Amount,
			Type:   res.Payment.Type,
			Source: "payment",
			RefID:  res.Payment.ID,
		})
	writeData(w, http.StatusCreated, "Payment created successfully", map[string]any{
		"payment":        res.Payment,
		"transaction_id": res.LedgerTx,
	})
}

func (h *PaymentsHandler) list(w http.ResponseWriter, r *http.Request) {
	if _, ok := identity(w, r); !ok {
		return
	}
	limit, cursor := pageParams(r)

	f := payments.Filter{Type: r.URL.Query().Get("type")}
	if s := r.URL.Query().Get("user_id"); s != "" {
		id, err := parseID(s, "user_id")
		if err != nil {
			writeErr(w, err)
			return
		}
		f.UserID = &id
	}
	if s := r.URL.Query().Get("owner_id"); s != "" {
		id, err := parseID(s, "owner_id")
		if err != nil {
			writeErr(w, err)
			return
		}
		f.OwnerID = &id
	}
	var err error
	if f.From, err = parseDate(r.URL.Query().Get("from"), "from"); err != nil {
		writeErr(w, err)
		return
	}
	if f.To, err = parseDate(r.URL.Query().Get("to"), "to"); err != nil {
		writeErr(w, err)
		return
	}

	out, err := h.Payments.List(r.Context(), f, limit, cursor)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, "Payments retrieved", map[string]any{"payments": out})
}

// parseDate accepts YYYY-MM-DD or RFC 3339; empty means no bound.
func parseDate(s, name string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, errs.Validation("invalid %s date", name)
}
