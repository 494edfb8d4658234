package variant

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps Redis helpers for cached variant prices. A nil client degrades
// to a no-op so the service keeps working without Redis.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func cacheKey(variantID string) string {
	return "promo:variant-price:" + variantID
}

// Get unmarshals a cached price into dst. It reports whether the key existed.
func (c *Cache) Get(ctx context.Context, variantID string, dst *Price) (bool, error) {
	if c == nil || c.client == nil || variantID == "" {
		return false, nil
	}
	data, err := c.client.Get(ctx, cacheKey(variantID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// Set stores the price with the configured TTL.
func (c *Cache) Set(ctx context.Context, variantID string, price Price) error {
	if c == nil || c.client == nil || variantID == "" {
		return nil
	}
	data, err := json.Marshal(price)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, cacheKey(variantID), data, c.ttl).Err()
}

// Invalidate drops the cached price, typically after an admin pricing change.
func (c *Cache) Invalidate(ctx context.Context, variantID string) error {
	if c == nil || c.client == nil || variantID == "" {
		return nil
	}
	return c.client.Del(ctx, cacheKey(variantID)).Err()
}
