package checkout

import (
	"context"
	"time"
)

// TTL pendek: nilai available boleh basi maksimal segini.
const AvailabilityTTL = 3 * time.Second

// AvailabilityCache: cache get/set/forget untuk nilai available per product.
// Non-otoritatif, TTL pendek; setiap write path yang mengubah availability
// wajib panggil Forget secara eksplisit (bukan andalkan TTL).
type AvailabilityCache interface {
	Get(ctx context.Context, productID string) (available int, ok bool, err error)
	Set(ctx context.Context, productID string, available int, ttl time.Duration) error
	Forget(ctx context.Context, productID string) error
}

// NopCache buat binary yang nggak butuh cache (mis. worker).
type NopCache struct{}

func (NopCache) Get(ctx context.Context, productID string) (int, bool, error) { return 0, false, nil }
func (NopCache) Set(ctx context.Context, productID string, available int, ttl time.Duration) error {
	return nil
}
func (NopCache) Forget(ctx context.Context, productID string) error { return nil }
