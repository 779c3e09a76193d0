package cache

import (
	"context"
	"sync"
	"time"

	"salesjournal/internal/domain"
)

type memoryEntry struct {
	value     domain.AggregationResult
	expiresAt time.Time
}

// MemoryReportCache is an in-process ReportCache with per-entry expiry.
type MemoryReportCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryReportCache() *MemoryReportCache {
	return &MemoryReportCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryReportCache) Get(_ context.Context, key string) (*domain.AggregationResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false, nil
	}
	value := entry.value
	return &value, true, nil
}

func (c *MemoryReportCache) Set(_ context.Context, key string, value *domain.AggregationResult, ttl time.Duration) error {
	if value == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, entry := range c.entries {
		if !now.Before(entry.expiresAt) {
			delete(c.entries, k)
		}
	}
	c.entries[key] = memoryEntry{value: *value, expiresAt: now.Add(ttl)}
	return nil
}
