package testutil

import (
	"context"
	"sync"
	"time"
)

// MemCache: checkout.AvailabilityCache in-memory untuk test; catat key yang
// di-Forget biar invalidasi bisa di-assert.
type MemCache struct {
	mu        sync.Mutex
	values    map[string]int
	Forgotten []string
}

func NewMemCache() *MemCache {
	return &MemCache{values: map[string]int{}}
}

func (c *MemCache) Get(ctx context.Context, productID string) (int, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[productID]
	return v, ok, nil
}

func (c *MemCache) Set(ctx context.Context, productID string, available int, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[productID] = available
	return nil
}

func (c *MemCache) Forget(ctx context.Context, productID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, productID)
	c.Forgotten = append(c.Forgotten, productID)
	return nil
}

func (c *MemCache) ForgetCount(productID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, id := range c.Forgotten {
		if id == productID {
			n++
		}
	}
	return n
}
