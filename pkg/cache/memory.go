package cache

import (
	"context"
	"sync"
	"time"
)

type entry struct {
	value     string
	expiresAt time.Time
}

type memory struct {
	mu      sync.Mutex
	entries map[string]entry
	gens    map[string]uint64
}

// NewMemory returns an in-process Cache. Generations survive entry
// deletion: Invalidate bumps the key's counter, so a Set carrying a
// pre-invalidation token is dropped.
func NewMemory() Cache {
	return &memory{
		entries: make(map[string]entry),
		gens:    make(map[string]uint64),
	}
}

func (m *memory) Get(ctx context.Context, key string) (string, uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	gen := m.gens[key]

	e, ok := m.entries[key]
	if !ok {
		return "", gen, false
	}

	if !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		delete(m.entries, key)
		return "", gen, false
	}

	return e.value, gen, true
}

func (m *memory) Set(ctx context.Context, key, value string, ttl time.Duration, gen uint64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.gens[key] != gen {
		return false
	}

	e := entry{value: value}
	if ttl > 0 {
		e.expiresAt = time.Now().Add(ttl)
	}

	m.entries[key] = e
	return true
}

func (m *memory) Invalidate(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gens[key]++
	delete(m.entries, key)
	return nil
}
