package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseRole(t *testing.T) {
	for _, s := range []string{"owner", "assistant"} {
		role, ok := ParseRole(s)
		assert.True(t, ok)
		assert.Equal(t, Role(s), role)
	}
	for _, s := range []string{"", "admin", "Owner", "ASSISTANT"} {
		_, ok := ParseRole(s)
		assert.False(t, ok, s)
	}
}

func TestAllow(t *testing.T) {
	assert.True(t, Allow(RoleOwner, RoleOwner))
	assert.True(t, Allow(RoleAssistant, RoleOwner, RoleAssistant))
	assert.False(t, Allow(RoleAssistant, RoleOwner))
	assert.False(t, Allow(RoleOwner))
}

func TestExpired(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ttl := 24 * time.Hour

	assert.False(t, Expired(now.Add(-time.Hour), ttl, now))
	assert.False(t, Expired(now.Add(-ttl), ttl, now), "exactly at ttl is still valid")
	assert.True(t, Expired(now.Add(-ttl-time.Second), ttl, now))
}

func TestParseCachedIdentity(t *testing.T) {
	id, ok := parseCachedIdentity("42:assistant")
	assert.True(t, ok)
	assert.Equal(t, Identity{UserID: 42, Role: RoleAssistant}, id)

	for _, v := range []string{"", "42", "abc:owner", "42:ghost", ":owner"} {
		_, ok := parseCachedIdentity(v)
		assert.False(t, ok, v)
	}
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	_, ok := IdentityFrom(ctx)
	assert.False(t, ok)

	want := Identity{UserID: 7, Role: RoleOwner}
	got, ok := IdentityFrom(WithIdentity(ctx, want))
	assert.True(t, ok)
	assert.Equal(t, want, got)
}

func TestNewTokenShape(t *testing.T) {
	a, b := newToken(), newToken()
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
	assert.NotContains(t, a, "-")
}
