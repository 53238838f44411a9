package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindUnauthenticated, KindOf(Unauthenticated("no token")))
	assert.Equal(t, KindForbidden, KindOf(Forbidden("nope")))
	assert.Equal(t, KindValidation, KindOf(Validation("bad %s", "field")))
	assert.Equal(t, KindNotFound, KindOf(NotFound("order %d not found", 7)))
	assert.Equal(t, KindConflict, KindOf(Conflict("duplicate")))
	assert.Equal(t, KindInternal, KindOf(Internal(errors.New("boom"), "query failed")))
}

func TestKindOfUnknownError(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestKindOfWrapped(t *testing.T) {
	err := fmt.Errorf("outer: %w", NotFound("user %d not found", 3))
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.True(t, IsKind(err, KindNotFound))
	assert.False(t, IsKind(nil, KindNotFound))
}

func TestInternalHidesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Internal(cause, "payment create failed")
	assert.Equal(t, "payment create failed", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestMessageFormatting(t *testing.T) {
	assert.Equal(t, "order 42 not found", NotFound("order %d not found", 42).Error())
	assert.Equal(t, `invalid role "ghost"`, Validation("invalid role %q", "ghost").Error())
}
