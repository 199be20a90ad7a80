package cache

import (
	"context"
	"sync"
	"time"

	"tg-ext-bot/internal/domain"
)

type memoryItem struct {
	value     []byte
	expiresAt time.Time
}

// MemoryCache: кэш в памяти процесса для запуска без Redis.
type MemoryCache struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

var _ domain.Cache = (*MemoryCache)(nil)

// NewMemory создаёт кэш в памяти.
func NewMemory() *MemoryCache {
	return &MemoryCache{items: make(map[string]memoryItem), now: time.Now}
}

// Set задаёт значение. При ttl <= 0 срок жизни не ограничен.
func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	item := memoryItem{value: append([]byte(nil), value...)}
	if ttl > 0 {
		item.expiresAt = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.items[key] = item
	c.mu.Unlock()
	return nil
}

// Get возвращает значение или domain.ErrCacheMiss.
func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	item, ok := c.items[key]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	if !item.expiresAt.IsZero() && !c.now().Before(item.expiresAt) {
		delete(c.items, key)
		return nil, domain.ErrCacheMiss
	}
	return append([]byte(nil), item.value...), nil
}
