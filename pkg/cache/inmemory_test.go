package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cachedReport struct {
	Trend string   `json:"trend"`
	Items []string `json:"items"`
}

func TestGoCache_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	c := NewCache(time.Minute, time.Minute)

	require.NoError(t, c.Set(ctx, "report", cachedReport{Trend: "Bullish", Items: []string{"Rice"}}, time.Minute))

	got, found := GetFromCache[cachedReport](ctx, c, "report")
	require.True(t, found)
	assert.Equal(t, "Bullish", got.Trend)
	assert.Equal(t, []string{"Rice"}, got.Items)

	require.NoError(t, c.Delete(ctx, "report", "missing"))
	_, found = GetFromCache[cachedReport](ctx, c, "report")
	assert.False(t, found)
}

func TestGoCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewCache(time.Minute, time.Minute)

	require.NoError(t, c.Set(ctx, "short", 1, 10*time.Millisecond))
	time.Sleep(30 * time.Millisecond)

	_, found := GetFromCache[int](ctx, c, "short")
	assert.False(t, found)
}

func TestGoCache_Flush(t *testing.T) {
	ctx := context.Background()
	c := NewCache(time.Minute, time.Minute)
	require.NoError(t, c.Set(ctx, "a", 1, time.Minute))
	require.NoError(t, c.Set(ctx, "b", 2, time.Minute))

	require.NoError(t, c.Flush(ctx))

	_, foundA := GetFromCache[int](ctx, c, "a")
	_, foundB := GetFromCache[int](ctx, c, "b")
	assert.False(t, foundA)
	assert.False(t, foundB)
}

func TestGoCache_DecodeMismatch(t *testing.T) {
	ctx := context.Background()
	c := NewCache(time.Minute, time.Minute)
	require.NoError(t, c.Set(ctx, "k", "not-a-number", time.Minute))

	var n int
	found, err := c.Get(ctx, "k", &n)
	assert.False(t, found)
	assert.Error(t, err)
}
