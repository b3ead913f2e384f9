package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyDeterministicOverFlags(t *testing.T) {
	k1 := Key("laptop probleem", 5, true, false, true)
	k2 := Key("laptop probleem", 5, true, false, true)
	k3 := Key("laptop probleem", 5, false, false, true)
	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
}

func TestMemoryCacheGetSet(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(2)
	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	v, ok, err := c.Get(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("1"), v)
}

func TestMemoryCacheEvictsLRU(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(2)
	require.NoError(t, c.Set(ctx, "a", []byte("1"), time.Minute))
	require.NoError(t, c.Set(ctx, "b", []byte("2"), time.Minute))
	_, _, _ = c.Get(ctx, "a") // touch a, making b the LRU victim
	require.NoError(t, c.Set(ctx, "c", []byte("3"), time.Minute))

	_, ok, _ := c.Get(ctx, "b")
	assert.False(t, ok)
	_, okA, _ := c.Get(ctx, "a")
	assert.True(t, okA)
}

func TestMemoryCacheExpires(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(2)
	require.NoError(t, c.Set(ctx, "a", []byte("1"), -time.Second))
	_, ok, _ := c.Get(ctx, "a")
	assert.False(t, ok)
}
