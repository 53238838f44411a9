package httpx

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/errandops/fulfillment/internal/auth"
	"github.com/errandops/fulfillment/internal/errs"
)

type stubResolver struct {
	identities map[string]auth.Identity
}

func (s *stubResolver) Resolve(_ context.Context, token string) (auth.Identity, error) {
	id, ok := s.identities[token]
	if !ok {
		return auth.Identity{}, errs.Unauthenticated("invalid token")
	}
	return id, nil
}

func TestBearerToken(t *testing.T) {
	newReq := func(header string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		return r
	}

	token, ok := bearerToken(newReq("Bearer abc123"))
	require.True(t, ok)
	assert.Equal(t, "abc123", token)

	token, ok = bearerToken(newReq("bearer abc123"))
	require.True(t, ok)
	assert.Equal(t, "abc123", token)

	for _, h := range []string{"", "Bearer", "Bearer ", "Basic abc123", "abc123"} {
		_, ok := bearerToken(newReq(h))
		assert.False(t, ok, h)
	}
}

func TestRequireAuth(t *testing.T) {
	resolver := &stubResolver{identities: map[string]auth.Identity{
		"good": {UserID: 7, Role: auth.RoleOwner},
	}}

	var seen auth.Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.IdentityFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := RequireAuth(resolver)(next)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer good")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, auth.Identity{UserID: 7, Role: auth.RoleOwner}, seen)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bad")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, statusOf(errs.Unauthenticated("x")))
	assert.Equal(t, http.StatusForbidden, statusOf(errs.Forbidden("x")))
	assert.Equal(t, http.StatusBadRequest, statusOf(errs.Validation("x")))
	assert.Equal(t, http.StatusNotFound, statusOf(errs.NotFound("x")))
	assert.Equal(t, http.StatusConflict, statusOf(errs.Conflict("x")))
	assert.Equal(t, http.StatusInternalServerError, statusOf(errs.Internal(nil, "x")))
	assert.Equal(t, http.StatusInternalServerError, statusOf(errors.New("plain")))
}
