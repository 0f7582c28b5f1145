package cache

import (
	"context"
	"time"
)

// Cache is a read-through key/value store with explicit invalidation.
//
// Get returns the key's generation token together with the value, on hits
// and misses alike. Set only stores when the generation is unchanged since
// the Get that preceded the load, so a populate that raced with an
// Invalidate cannot resurrect a stale value. Invalidate is immediate and
// unconditional regardless of TTL.
type Cache interface {
	Get(ctx context.Context, key string) (value string, gen uint64, ok bool)
	Set(ctx context.Context, key, value string, ttl time.Duration, gen uint64) bool
	Invalidate(ctx context.Context, key string) error
}

type noop struct{}

// NewNoop returns a cache that never stores anything. Substituting it
// must not change caller behavior beyond latency.
func NewNoop() Cache {
	return noop{}
}

func (noop) Get(ctx context.Context, key string) (string, uint64, bool) {
	return "", 0, false
}

func (noop) Set(ctx context.Context, key, value string, ttl time.Duration, gen uint64) bool {
	return false
}

func (noop) Invalidate(ctx context.Context, key string) error {
	return nil
}
