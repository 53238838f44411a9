package httpx

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/errandops/fulfillment/internal/analytics"
	"github.com/errandops/fulfillment/internal/auth"
	"github.com/errandops/fulfillment/internal/errs"
)

type AnalyticsStore interface {
	Dashboard(ctx context.Context) (*analytics.Dashboard, error)
	Report(ctx context.Context) (*analytics.Report, error)
}

type AnalyticsHandler struct {
	Analytics AnalyticsStore
}

func (h *AnalyticsHandler) Register(r chi.Router) {
	r.Route("/analytics", func(r chi.Router) {
		r.Get("/dashboard", h.dashboard)
		r.Get("/reports", h.reports)
	})
}

func (h *AnalyticsHandler) dashboard(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	if !auth.Allow(actor.Role, auth.RoleOwner) {
		writeErr(w, errs.Forbidden("only owners can view analytics"))
		return
	}
	d, err := h.Analytics.Dashboard(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, "Dashboard retrieved", d)
}

func (h *AnalyticsHandler) reports(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity(w, r)
	if !ok {
		return
	}
	if !auth.Allow(actor.Role, auth.RoleOwner) {
		writeErr(w, errs.Forbidden("only owners can view analytics"))
		return
	}
	rep, err := h.Analytics.Report(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, "Reports retrieved", rep)
}
