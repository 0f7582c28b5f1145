package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestMemory_RoundTrip(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	_, gen, ok := c.Get(ctx, "product:1")
	require.False(t, ok)

	require.True(t, c.Set(ctx, "product:1", "v1", time.Minute, gen))

	value, _, ok := c.Get(ctx, "product:1")
	require.True(t, ok)
	require.Equal(t, "v1", value)
}

func TestMemory_TTLExpiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	_, gen, _ := c.Get(ctx, "k")
	require.True(t, c.Set(ctx, "k", "v", 10*time.Millisecond, gen))

	time.Sleep(20 * time.Millisecond)

	_, _, ok := c.Get(ctx, "k")
	require.False(t, ok)
}

func TestMemory_InvalidateRemovesEntry(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	_, gen, _ := c.Get(ctx, "k")
	require.True(t, c.Set(ctx, "k", "v", time.Minute, gen))

	require.NoError(t, c.Invalidate(ctx, "k"))

	_, _, ok := c.Get(ctx, "k")
	require.False(t, ok)
}

// A populate that read before an invalidate must not resurrect the stale
// value afterwards.
func TestMemory_StaleSetLosesToInvalidate(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	_, gen, ok := c.Get(ctx, "product:7")
	require.False(t, ok)

	// Stock changes while the loader is in flight.
	require.NoError(t, c.Invalidate(ctx, "product:7"))

	require.False(t, c.Set(ctx, "product:7", "stale", time.Minute, gen))

	_, _, ok = c.Get(ctx, "product:7")
	require.False(t, ok)
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	c := NewMemory()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_, gen, _ := c.Get(ctx, "k")
				c.Set(ctx, "k", "v", time.Minute, gen)
				_ = c.Invalidate(ctx, "k")
			}
		}()
	}
	wg.Wait()
}
