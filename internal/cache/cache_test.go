package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCache_SetGet(t *testing.T) {
	ctx := context.Background()
	c := New[string, int](4, time.Minute)
	defer c.Close()

	c.Set(ctx, "gas", 42)

	v, ok := c.Get(ctx, "gas")
	assert.True(t, ok)
	assert.Equal(t, 42, v)

	c.Delete(ctx, "gas")
	_, ok = c.Get(ctx, "gas")
	assert.False(t, ok)
}

func TestCache_Expires(t *testing.T) {
	ctx := context.Background()
	c := New[string, int](4, 20*time.Millisecond)

	c.Set(ctx, "gas", 1)
	assert.Eventually(t, func() bool {
		_, ok := c.Get(ctx, "gas")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestCache_EvictsOldestBeyondSize(t *testing.T) {
	ctx := context.Background()
	c := New[int, int](2, time.Minute)

	c.Set(ctx, 1, 1)
	c.Set(ctx, 2, 2)
	c.Set(ctx, 3, 3)

	_, ok := c.Get(ctx, 1)
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())
}
