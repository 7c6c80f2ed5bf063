package catalog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache wraps Redis helpers for JSON payloads.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// GetJSON unmarshals a cached JSON payload into dst. It reports whether the key existed.
func (c *Cache) GetJSON(ctx context.Context, key string, dst any) (bool, error) {
	if c == nil || c.client == nil || key == "" {
		return false, nil
	}
	data, err := c.client.Get(ctx, key).Bytes()
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

// SetJSON serialises v as JSON and stores it with the configured TTL.
func (c *Cache) SetJSON(ctx context.Context, key string, v any) error {
	if c == nil || c.client == nil || key == "" {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, data, c.ttl).Err()
}

// Delete removes a cached entry.
func (c *Cache) Delete(ctx context.Context, key string) error {
	if c == nil || c.client == nil || key == "" {
		return nil
	}
	return c.client.Del(ctx, key).Err()
}

func productKey(id string) string {
	return "catalog:product:" + id
}

// CachedLookup fronts a Lookup with a Redis JSON cache.
type CachedLookup struct {
	Next  Lookup
	Cache *Cache
}

// Product resolves a product, serving cached copies when present. Misses fall
// through to the underlying lookup; not-found results are never cached.
func (l *CachedLookup) Product(ctx context.Context, id string) (Product, error) {
	if l == nil || l.Next == nil {
		return Product{}, ErrNotFound
	}
	var cached Product
	if ok, err := l.Cache.GetJSON(ctx, productKey(id), &cached); err == nil && ok {
		return cached, nil
	}
	p, err := l.Next.Product(ctx, id)
	if err != nil {
		return Product{}, err
	}
	_ = l.Cache.SetJSON(ctx, productKey(id), p)
	return p, nil
}

// Invalidate drops the cached copy of a product, e.g. after a price change.
func (l *CachedLookup) Invalidate(ctx context.Context, id string) error {
	if l == nil {
		return nil
	}
	return l.Cache.Delete(ctx, productKey(id))
}
