package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"github.com/errandops/fulfillment/internal/analytics"
	"github.com/errandops/fulfillment/internal/auth"
)

type stubAnalyticsStore struct{}

func (stubAnalyticsStore) Dashboard(context.Context) (*analytics.Dashboard, error) {
	return &analytics.Dashboard{TotalOrders: 12}, nil
}

func (stubAnalyticsStore) Report(context.Context) (*analytics.Report, error) {
	return &analytics.Report{}, nil
}

func TestAnalyticsOwnerOnly(t *testing.T) {
	newServer := func(actor auth.Identity) *chi.Mux {
		r := chi.NewRouter()
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				next.ServeHTTP(w, req.WithContext(auth.WithIdentity(req.Context(), actor)))
			})
		})
		(&AnalyticsHandler{Analytics: stubAnalyticsStore{}}).Register(r)
		return r
	}

	for _, path := range []string{"/analytics/dashboard", "/analytics/reports"} {
		rec := httptest.NewRecorder()
		newServer(auth.Identity{UserID: 1, Role: auth.RoleOwner}).
			ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)

		rec = httptest.NewRecorder()
		newServer(auth.Identity{UserID: 5, Role: auth.RoleAssistant}).
			ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusForbidden, rec.Code, path)
	}
}
