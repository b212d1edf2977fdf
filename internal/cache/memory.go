package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultMemoryEntries = 10000

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// MemoryCache is a process-local LRU with a TTL per entry. Values are stored
// JSON encoded so callers never share mutable state through it.
type MemoryCache struct {
	entries *lru.Cache[string, memoryEntry]
	maxSize int
}

func NewMemoryCache(maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = defaultMemoryEntries
	}
	// lru.New only fails for a non-positive size.
	entries, _ := lru.New[string, memoryEntry](maxSize)
	return &MemoryCache{entries: entries, maxSize: maxSize}
}

func (m *MemoryCache) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	entry := memoryEntry{data: data}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	m.entries.Add(key, entry)
	return nil
}

func (m *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	entry, ok := m.entries.Get(key)
	if !ok {
		return ErrCacheMiss
	}
	if entry.expired(time.Now()) {
		m.entries.Remove(key)
		return ErrCacheMiss
	}

	if err := json.Unmarshal(entry.data, dest); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.entries.Remove(key)
	return nil
}

func (m *MemoryCache) Exists(_ context.Context, key string) (bool, error) {
	entry, ok := m.entries.Peek(key)
	return ok && !entry.expired(time.Now()), nil
}

func (m *MemoryCache) Health(context.Context) error {
	return nil
}

func (m *MemoryCache) Stats() map[string]interface{} {
	return map[string]interface{}{
		"entries":  m.entries.Len(),
		"max_size": m.maxSize,
	}
}

func (m *MemoryCache) Close() error {
	m.entries.Purge()
	return nil
}
