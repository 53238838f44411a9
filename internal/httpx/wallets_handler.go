package httpx

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/errandops/fulfillment/internal/auth"
	"github.com/errandops/fulfillment/internal/errs"
	"github.com/errandops/fulfillment/internal/ledger"
)

type WalletStore interface {
	Balance(ctx context.Context, userID int64) (float64, error)
	Transactions(ctx context.Context, userID int64, f ledger.Filter, limit int, cursor *int64) ([]ledger.Transaction, error)
}

type WalletsHandler struct {
	Wallets WalletStore
}

func (h *WalletsHandler) Register(r chi.Router) {
	r.Route("/wallets/{userID}", func(r chi.Router) {
		r.Get("/", h.balance)
		r.Get("/transactions", h.transactions)
	})
}

// Owners may read any wallet; assistants only their own.
func walletAccess(actor auth.Identity, userID int64) error {
	if actor.Role == auth.RoleOwner || actor.UserID == userID {
		return nil
	}
	return errs.Forbidden("cannot access another user's wallet")
}

func (h *WalletsHandler) balance(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	userID, err := parseID(chi.URLParam(r, "userID"), "user id")
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := walletAccess(actor, userID); err != nil {
		writeErr(w, err)
		return
	}
	balance, err := h.Wallets.Balance(r.Context(), userID)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, "Wallet retrieved", map[string]any{
		"user_id": userID,
		"balance": balance,
	})
}

func (h *WalletsHandler) transactions(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	userID, err := parseID(chi.URLParam(r, "userID"), "user id")
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := walletAccess(actor, userID); err != nil {
		writeErr(w, err)
		return
	}
	limit, cursor := pageParams(r)

	f := ledger.Filter{Type: r.URL.Query().Get("type")}
	if f.From, err = parseDate(r.URL.Query().Get("from"), "from"); err != nil {
		writeErr(w, err)
		return
	}
	if f.To, err = parseDate(r.URL.Query().Get("to"), "to"); err != nil {
		writeErr(w, err)
		return
	}

	out, err := h.Wallets.Transactions(r.Context(), userID, f, limit, cursor)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, "Transactions retrieved", map[string]any{"transactions": out})
}
