package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledCacheIsNoop(t *testing.T) {
	ctx := context.Background()
	c, err := New(ctx, "", time.Minute)
	require.NoError(t, err)
	assert.False(t, c.Enabled())

	require.NoError(t, c.SetJSON(ctx, "k", map[string]int{"a": 1}))

	var dst map[string]int
	hit, err := c.GetJSON(ctx, "k", &dst)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Nil(t, dst)

	assert.NoError(t, c.InvalidateCup(ctx, uuid.New()))
	assert.NoError(t, c.Close())

	var nilCache *Cache
	assert.False(t, nilCache.Enabled())
	assert.NoError(t, nilCache.SetJSON(ctx, "k", 1))
}

func TestNewRejectsBadURL(t *testing.T) {
	_, err := New(context.Background(), "not a url", time.Minute)
	assert.Error(t, err)
}

func TestCupKey(t *testing.T) {
	id := uuid.MustParse("6f1c1c4e-8a7a-4b1e-9a55-2f0a3d1c9e01")
	assert.Equal(t, "cup:6f1c1c4e-8a7a-4b1e-9a55-2f0a3d1c9e01", CupKey(id))
}
