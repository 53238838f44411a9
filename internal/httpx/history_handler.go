package httpx

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/errandops/fulfillment/internal/history"
)

type HistoryStore interface {
	List(ctx context.Context, f history.Filter, limit int, cursor *int64) ([]history.Entry, error)
}

type HistoryHandler struct {
	History HistoryStore
}

func (h *HistoryHandler) Register(r chi.Router) {
	r.Route("/history", func(r chi.Router) {
		r.Get("/", h.list)
		r.Get("/{entityType}/{entityID}", h.byEntity)
	})
}

func (h *HistoryHandler) list(w http.ResponseWriter, r *http.Request) {
	if _, ok := identity(w, r); !ok {
		return
	}
	limit, cursor := pageParams(r)

	f := history.Filter{EntityType: r.URL.Query().Get("entity_type")}
	if s := r.URL.Query().Get("entity_id"); s != "" {
		id, err := parseID(s, "entity_id")
		if err != nil {
			writeErr(w, err)
			return
		}
		f.EntityID = &id
	}
	if s := r.URL.Query().Get("changed_by"); s != "" {
		id, err := parseID(s, "changed_by")
		if err != nil {
			writeErr(w, err)
			return
		}
		f.ChangedBy = &id
	}

	out, err := h.History.List(r.Context(), f, limit, cursor)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, "History retrieved", map[string]any{"history": out})
}

func (h *HistoryHandler) byEntity(w http.ResponseWriter, r *http.Request) {
	if _, ok := identity(w, r); !ok {
		return
	}
	entityID, err := parseID(chi.URLParam(r, "entityID"), "entity id")
	if err != nil {
		writeErr(w, err)
		return
	}
	limit, cursor := pageParams(r)

	out, err := h.History.List(r.Context(), history.Filter{
		EntityType: chi.URLParam(r, "entityType"),
		EntityID:   &entityID,
	}, limit, cursor)
	if err != nil {
		writeErr(w, err)
		return
	}
	writeData(w, http.StatusOK, "History retrieved", map[string]any{"history": out})
}
