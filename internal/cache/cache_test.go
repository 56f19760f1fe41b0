package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryClient_SetGet(t *testing.T) {
	c := NewMemoryClient(10)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key1", []byte("value1"), time.Minute))

	val, err := c.Get(ctx, "key1")
	require.NoError(t, err)
	assert.Equal(t, []byte("value1"), val)
}

func TestMemoryClient_Miss(t *testing.T) {
	c := NewMemoryClient(10)

	_, err := c.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClient_Expiry(t *testing.T) {
	c := NewMemoryClient(10)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key1", []byte("value1"), 10*time.Millisecond))
	time.Sleep(20 * time.Millisecond)

	_, err := c.Get(ctx, "key1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClient_Delete(t *testing.T) {
	c := NewMemoryClient(10)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key1", []byte("value1"), time.Minute))
	require.NoError(t, c.Delete(ctx, "key1"))

	_, err := c.Get(ctx, "key1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryClient_EvictsWhenFull(t *testing.T) {
	c := NewMemoryClient(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		key := fmt.Sprintf("key%d", i)
		require.NoError(t, c.Set(ctx, key, []byte("v"), time.Minute))
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	assert.LessOrEqual(t, len(c.data), 3)
}

func TestMemoryClient_CloseStopsCleanup(t *testing.T) {
	c := NewMemoryClient(10)

	require.NoError(t, c.Close())

	select {
	case <-c.done:
	default:
		t.Fatal("done channel not closed")
	}

	// Close is idempotent.
	require.NoError(t, c.Close())
}

func TestAnalysisKey(t *testing.T) {
	assert.Equal(t, "analysis:abc123", AnalysisKey("abc123"))
}
