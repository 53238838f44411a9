package redisx

import "time"

const (
	// Resolved identity per bearer token: auth:token:{token} -> "{user_id}:{role}"
	KeyAuthToken = "auth:token:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	// Identity entries stay short-lived so role changes and revocations
	// propagate; the tokens table is the source of truth.
	TTLIdentity = 5 * time.Minute
	TTLDedup    = 48 * time.Hour
)
