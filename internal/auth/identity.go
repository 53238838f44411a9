package auth

import "context"

// Identity is the resolved actor of a request. It is passed explicitly into
// every domain operation; nothing process-wide caches it.
type Identity struct {
	UserID int64
	Role   Role
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(Identity)
	return id, ok
}
