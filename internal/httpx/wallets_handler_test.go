package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/errandops/fulfillment/internal/auth"
	"github.com/errandops/fulfillment/internal/errs"
	"github.com/errandops/fulfillment/internal/ledger"
)

type stubWalletStore struct {
	balance float64
	err     error
	gotF    ledger.Filter
}

func (s *stubWalletStore) Balance(_ context.Context, _ int64) (float64, error) {
	return s.balance, s.err
}

func (s *stubWalletStore) Transactions(_ context.Context, _ int64, f ledger.Filter, _ int, _ *int64) ([]ledger.Transaction, error) {
	s.gotF = f
	return []ledger.Transaction{}, s.err
}

func newWalletsTestServer(store *stubWalletStore, actor auth.Identity) *chi.Mux {
	h := &WalletsHandler{Wallets: store}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(auth.WithIdentity(req.Context(), actor)))
		})
	})
	h.Register(r)
	return r
}

func TestWalletAccess(t *testing.T) {
	owner := auth.Identity{UserID: 1, Role: auth.RoleOwner}
	assistant := auth.Identity{UserID: 5, Role: auth.RoleAssistant}

	assert.NoError(t, walletAccess(owner, 5))
	assert.NoError(t, walletAccess(assistant, 5))

	err := walletAccess(assistant, 6)
	assert.True(t, errs.IsKind(err, errs.KindForbidden))
}

func TestWalletBalanceOwnerReadsAny(t *testing.T) {
	store := &stubWalletStore{balance: 150.5}
	r := newWalletsTestServer(store, auth.Identity{UserID: 1, Role: auth.RoleOwner})

	req := httptest.NewRequest(http.MethodGet, "/wallets/5/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "150.5")
}

func TestWalletBalanceAssistantBlocked(t *testing.T) {
	store := &stubWalletStore{balance: 150.5}
	r := newWalletsTestServer(store, auth.Identity{UserID: 5, Role: auth.RoleAssistant})

	req := httptest.NewRequest(http.MethodGet, "/wallets/6/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestWalletBalanceNotFound(t *testing.T) {
	store := &stubWalletStore{err: errs.NotFound("wallet for user 9 not found")}
	r := newWalletsTestServer(store, auth.Identity{UserID: 1, Role: auth.RoleOwner})

	req := httptest.NewRequest(http.MethodGet, "/wallets/9/", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWalletTransactionsFilters(t *testing.T) {
	store := &stubWalletStore{}
	r := newWalletsTestServer(store, auth.Identity{UserID: 5, Role: auth.RoleAssistant})

	req := httptest.NewRequest(http.MethodGet,
		"/wallets/5/transactions?type=debit&from=2025-01-01", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "debit", store.gotF.Type)
	require.NotNil(t, store.gotF.From)
}
