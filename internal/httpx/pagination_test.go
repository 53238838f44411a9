package httpx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePageDefaults(t *testing.T) {
	limit, cursor := parsePage("", "")
	assert.Equal(t, 30, limit)
	assert.Nil(t, cursor)
}

func TestParsePageClamp(t *testing.T) {
	limit, _ := parsePage("100", "")
	assert.Equal(t, 30, limit)

	limit, _ = parsePage("10", "")
	assert.Equal(t, 10, limit)
}

func TestParsePageGarbageFallsBack(t *testing.T) {
	limit, cursor := parsePage("abc", "xyz")
	assert.Equal(t, 30, limit)
	assert.Nil(t, cursor)

	limit, _ = parsePage("-5", "")
	assert.Equal(t, 30, limit)

	limit, _ = parsePage("0", "")
	assert.Equal(t, 30, limit)
}

func TestParsePageCursor(t *testing.T) {
	_, cursor := parsePage("", "250")
	require.NotNil(t, cursor)
	assert.Equal(t, int64(250), *cursor)
}
