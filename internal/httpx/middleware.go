package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/errandops/fulfillment/internal/auth"
	"github.com/errandops/fulfillment/internal/errs"
)

// TokenResolver maps a bearer token to an identity; satisfied by
// auth.Service.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (auth.Identity, error)
}

// RequireAuth resolves the Authorization header and stores the identity in
// the request context. Every mutating route sits behind it.
func RequireAuth(resolver TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeErr(w, errs.Unauthenticated("missing bearer token"))
				return
			}
			id, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				writeErr(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	if h == "" {
		return "", false
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func identity(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	id, ok := auth.IdentityFrom(r.Context())
	if !ok {
		writeErr(w, errs.Unauthenticated("missing identity"))
	}
	return id, ok
}
