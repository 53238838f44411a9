package httpx

import (
	"net/http"
	"strconv"
)

const (
	defaultLimit = 30
	maxLimit     = 30
)

// pageParams parses limit (default 30, clamped to 30) and cursor (opaque
// last-seen id). Garbage values fall back to defaults rather than erroring,
// matching the listing contract.
func pageParams(r *http.Request) (int, *int64) {
	return parsePage(r.URL.Query().Get("limit"), r.URL.Query().Get("cursor"))
}

func parsePage(limitStr, cursorStr string) (int, *int64) {
	limit := defaultLimit
	if limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	var cursor *int64
	if cursorStr != "" {
		if c, err := strconv.ParseInt(cursorStr, 10, 64); err == nil {
			cursor = &c
		}
	}
	return limit, cursor
}
