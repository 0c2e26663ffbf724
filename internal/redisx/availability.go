package redisx

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// AvailabilityCache: implementasi Redis untuk cache availability per product.
// Memenuhi checkout.AvailabilityCache.
type AvailabilityCache struct {
	R *redis.Client
}

func (c *AvailabilityCache) key(productID string) string {
	return fmt.Sprintf(KeyProductAvailable, productID)
}

func (c *AvailabilityCache) Get(ctx context.Context, productID string) (int, bool, error) {
	s, err := c.R.Get(ctx, c.key(productID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		// nilai rusak, anggap miss
		return 0, false, nil
	}
	return v, true, nil
}

func (c *AvailabilityCache) Set(ctx context.Context, productID string, available int, ttl time.Duration) error {
	return c.R.Set(ctx, c.key(productID), available, ttl).Err()
}

func (c *AvailabilityCache) Forget(ctx context.Context, productID string) error {
	return c.R.Del(ctx, c.key(productID)).Err()
}
