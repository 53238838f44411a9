package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/errandops/fulfillment/internal/auth"
	"github.com/errandops/fulfillment/internal/errs"
	"github.com/errandops/fulfillment/internal/events"
	"github.com/errandops/fulfillment/internal/ledger"
	"github.com/errandops/fulfillment/internal/payments"
)

type stubPaymentStore struct {
	result *payments.Result
	err    error
	gotIn  payments.CreateInput
	gotF   payments.Filter
}

func (s *stubPaymentStore) Create(_ context.Context, _ auth.Identity, in payments.CreateInput) (*payments.Result, error) {
	s.gotIn = in
	return s.result, s.err
}

func (s *stubPaymentStore) List(_ context.Context, f payments.Filter, _ int, _ *int64) ([]payments.Payment, error) {
	s.gotF = f
	return []payments.Payment{}, s.err
}

func newPaymentsTestServer(store *stubPaymentStore, prod *capturingProducer, actor auth.Identity) *chi.Mux {
	h := &PaymentsHandler{Payments: store, Producer: prod, Service: "test-api", Validate: validator.New()}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(auth.WithIdentity(req.Context(), actor)))
		})
	})
	h.Register(r)
	return r
}

func TestPaymentsCreatePublishesLedgerEntry(t *testing.T) {
	store := &stubPaymentStore{
		result: &payments.Result{
			Payment:  payments.Payment{ID: 3, UserID: 5, OwnerID: 1, Amount: 100, Type: ledger.TypeCredit},
			LedgerTx: 77,
		},
	}
	prod := &capturingProducer{}
	r := newPaymentsTestServer(store, prod, auth.Identity{UserID: 1, Role: auth.RoleOwner})

	body := `{"user_id":5,"amount":100,"type":"credit"}`
	req := httptest.NewRequest(http.MethodPost, "/payments/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, payments.KindCredit, store.gotIn.Kind)
	assert.Equal(t, int64(5), store.gotIn.UserID)

	require.Len(t, prod.published, 1)
	ev := prod.published[0]
	assert.Equal(t, events.TopicLedgerEntry, ev.topic)

	var p events.LedgerEntryPayload
	require.NoError(t, json.Unmarshal(ev.env.Payload, &p))
	assert.Equal(t, int64(5), p.UserID)
	assert.Equal(t, "payment", p.Source)
	assert.Equal(t, int64(3), p.RefID)

	var resp struct {
		Data struct {
			TransactionID int64 `json:"transaction_id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(77), resp.Data.TransactionID)
}

func TestPaymentsCreateMissingFields(t *testing.T) {
	store := &stubPaymentStore{}
	prod := &capturingProducer{}
	r := newPaymentsTestServer(store, prod, auth.Identity{UserID: 1, Role: auth.RoleOwner})

	req := httptest.NewRequest(http.MethodPost, "/payments/", strings.NewReader(`{"user_id":5}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, prod.published)
}

func TestPaymentsCreateForbidden(t *testing.T) {
	store := &stubPaymentStore{err: errs.Forbidden("only owners can credit wallets")}
	prod := &capturingProducer{}
	r := newPaymentsTestServer(store, prod, auth.Identity{UserID: 5, Role: auth.RoleAssistant})

	body := `{"user_id":5,"amount":100,"type":"credit"}`
	req := httptest.NewRequest(http.MethodPost, "/payments/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, prod.published)
}

func TestPaymentsListFilters(t *testing.T) {
	store := &stubPaymentStore{}
	r := newPaymentsTestServer(store, &capturingProducer{}, auth.Identity{UserID: 1, Role: auth.RoleOwner})

	req := httptest.NewRequest(http.MethodGet,
		"/payments/?user_id=5&type=debit&from=2025-01-01&to=2025-06-30", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, store.gotF.UserID)
	assert.Equal(t, int64(5), *store.gotF.UserID)
	assert.Equal(t, "debit", store.gotF.Type)
	require.NotNil(t, store.gotF.From)
	assert.Equal(t, 2025, store.gotF.From.Year())
}

func TestPaymentsListBadDate(t *testing.T) {
	store := &stubPaymentStore{}
	r := newPaymentsTestServer(store, &capturingProducer{}, auth.Identity{UserID: 1, Role: auth.RoleOwner})

	req := httptest.NewRequest(http.MethodGet, "/payments/?from=yesterday", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestParseDate(t *testing.T) {
	d, err := parseDate("2025-03-15", "from")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, time.March, d.Month())

	d, err = parseDate("2025-03-15T10:30:00Z", "from")
	require.NoError(t, err)
	require.NotNil(t, d)

	d, err = parseDate("", "from")
	require.NoError(t, err)
	assert.Nil(t, d)

	_, err = parseDate("15/03/2025", "from")
	assert.True(t, errs.IsKind(err, errs.KindValidation))
}
