package cache

import (
	"context"
	"time"
)

// Cache stores JSON-encodable values. Get decodes into dest and reports
// whether the key was present.
type Cache interface {
	Set(ctx context.Context, key string, value interface{}, duration time.Duration) error
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Delete(ctx context.Context, keys ...string) error
	Flush(ctx context.Context) error
}

// GetFromCache is a typed wrapper around Cache.Get.
func GetFromCache[T any](ctx context.Context, c Cache, key string) (T, bool) {
	var val T
	found, err := c.Get(ctx, key, &val)
	if err != nil || !found {
		var zero T
		return zero, false
	}
	return val, true
}
