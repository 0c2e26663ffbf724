package redisx

import "time"

const (
	// Cache availability per product: product:{id}:available -> int
	KeyProductAvailable = "product:%s:available"

	// Dedup event processing: dedup:{service}:{id} (id = event_id / idempotency_key)
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLDedup = 48 * time.Hour
)
