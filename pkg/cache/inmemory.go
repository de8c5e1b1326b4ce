package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
)

type goCache struct {
	internal *cache.Cache
}

// NewCache returns an in-process Cache with default expiration and cleanup interval
func NewCache(defaultExpiration, cleanupInterval time.Duration) Cache {
	return &goCache{
		internal: cache.New(defaultExpiration, cleanupInterval),
	}
}

func (c *goCache) Set(_ context.Context, key string, value interface{}, duration time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache value %s: %w", key, err)
	}
	c.internal.Set(key, raw, duration)
	return nil
}

func (c *goCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	val, found := c.internal.Get(key)
	if !found {
		return false, nil
	}
	raw, ok := val.([]byte)
	if !ok {
		return false, fmt.Errorf("unexpected cache value type %T for %s", val, key)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("failed to decode cache value %s: %w", key, err)
	}
	return true, nil
}

func (c *goCache) Delete(_ context.Context, keys ...string) error {
	for _, key := range keys {
		c.internal.Delete(key)
	}
	return nil
}

func (c *goCache) Flush(_ context.Context) error {
	c.internal.Flush()
	return nil
}
