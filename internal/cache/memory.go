package cache

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/avaroute/internal/config"
	"github.com/vyrodovalexey/avaroute/internal/observability"
)

// cleanupInterval is how often expired entries are swept.
const cleanupInterval = time.Minute

// memoryCache implements an in-memory LRU cache with per-entry TTL.
type memoryCache struct {
	logger     observability.Logger
	maxEntries int
	defaultTTL time.Duration
	now        func() time.Time

	mu       sync.Mutex
	items    map[string]*list.Element
	eviction *list.List

	hits   atomic.Int64
	misses atomic.Int64

	stopCh    chan struct{}
	closeOnce sync.Once
}

// memoryCacheEntry represents an entry in the memory cache.
type memoryCacheEntry struct {
	key       string
	value     []byte
	expiresAt time.Time
}

func (e *memoryCacheEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// newMemoryCache creates a new in-memory cache and starts its cleanup loop.
func newMemoryCache(cfg *config.CacheConfig, logger observability.Logger) *memoryCache {
	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = config.DefaultCacheMaxEntries
	}

	c := &memoryCache{
		logger:     logger,
		maxEntries: maxEntries,
		defaultTTL: cfg.TTL.Duration(),
		now:        time.Now,
		items:      make(map[string]*list.Element),
		eviction:   list.New(),
		stopCh:     make(chan struct{}),
	}

	go c.cleanupLoop(cleanupInterval)

	logger.Info("memory cache initialized",
		observability.Int("maxEntries", maxEntries),
		observability.Duration("defaultTTL", c.defaultTTL))

	return c
}

// Get retrieves a value from the cache.
func (c *memoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	_, span := startSpan(ctx, "Get", backendMemory, key, trace.SpanKindInternal)
	defer span.End()
	defer observeDuration(backendMemory, "get", time.Now())

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.items[key]
	if exists && elem.Value.(*memoryCacheEntry).expired(c.now()) {
		c.removeElement(elem)
		exists = false
	}
	if !exists {
		c.misses.Add(1)
		GetCacheMetrics().missesTotal.WithLabelValues(backendMemory).Inc()
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return nil, ErrCacheMiss
	}

	c.eviction.MoveToFront(elem)
	entry := elem.Value.(*memoryCacheEntry)

	c.hits.Add(1)
	GetCacheMetrics().hitsTotal.WithLabelValues(backendMemory).Inc()
	span.SetAttributes(
		attribute.Bool("cache.hit", true),
		attribute.Int("cache.value_size", len(entry.value)),
	)

	return entry.value, nil
}

// Set stores a value in the cache, evicting the least recently used entries
// beyond capacity.
func (c *memoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, span := startSpan(ctx, "Set", backendMemory, key, trace.SpanKindInternal,
		attribute.Int("cache.value_size", len(value)))
	defer span.End()
	defer observeDuration(backendMemory, "set", time.Now())

	if ttl == 0 {
		ttl = c.defaultTTL
	}

	entry := &memoryCacheEntry{key: key, value: value}
	if ttl > 0 {
		entry.expiresAt = c.now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.items[key]; exists {
		c.eviction.MoveToFront(elem)
		elem.Value = entry
		return nil
	}

	c.items[key] = c.eviction.PushFront(entry)
	for c.eviction.Len() > c.maxEntries {
		c.evictOldest()
	}

	GetCacheMetrics().sizeGauge.WithLabelValues(backendMemory).Set(float64(c.eviction.Len()))

	c.logger.Debug("cache set",
		observability.String("key", key),
		observability.Duration("ttl", ttl),
		observability.Int("size", c.eviction.Len()))

	return nil
}

// Delete removes a value from the cache.
func (c *memoryCache) Delete(ctx context.Context, key string) error {
	_, span := startSpan(ctx, "Delete", backendMemory, key, trace.SpanKindInternal)
	defer span.End()
	defer observeDuration(backendMemory, "delete", time.Now())

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.items[key]; exists {
		c.removeElement(elem)
	}
	return nil
}

// Exists checks if an unexpired key exists in the cache. It does not
// update recency.
func (c *memoryCache) Exists(ctx context.Context, key string) (bool, error) {
	_, span := startSpan(ctx, "Exists", backendMemory, key, trace.SpanKindInternal)
	defer span.End()

	c.mu.Lock()
	defer c.mu.Unlock()

	elem, exists := c.items[key]
	if exists && elem.Value.(*memoryCacheEntry).expired(c.now()) {
		c.removeElement(elem)
		exists = false
	}

	span.SetAttributes(attribute.Bool("cache.exists", exists))
	return exists, nil
}

// Close stops the cleanup loop and drops every entry. It is safe to call
// more than once.
func (c *memoryCache) Close() error {
	c.closeOnce.Do(func() {
		close(c.stopCh)

		c.mu.Lock()
		c.items = make(map[string]*list.Element)
		c.eviction.Init()
		c.mu.Unlock()

		c.logger.Info("memory cache closed")
	})
	return nil
}

// Stats returns cache statistics.
func (c *memoryCache) Stats() CacheStats {
	c.mu.Lock()
	size := int64(c.eviction.Len())
	c.mu.Unlock()

	return CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Size:   size,
	}
}

// evictOldest removes the least recently used entry.
// Must be called with lock held.
func (c *memoryCache) evictOldest() {
	elem := c.eviction.Back()
	if elem == nil {
		return
	}
	c.removeElement(elem)
	GetCacheMetrics().evictionsTotal.WithLabelValues(backendMemory).Inc()
}

// removeElement removes an element from the cache.
// Must be called with lock held.
func (c *memoryCache) removeElement(elem *list.Element) {
	c.eviction.Remove(elem)
	delete(c.items, elem.Value.(*memoryCacheEntry).key)
}

func (c *memoryCache) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanup()
		case <-c.stopCh:
			return
		}
	}
}

// cleanup removes expired entries.
func (c *memoryCache) cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for elem := c.eviction.Back(); elem != nil; {
		prev := elem.Prev()
		if elem.Value.(*memoryCacheEntry).expired(now) {
			c.removeElement(elem)
			removed++
		}
		elem = prev
	}

	if removed > 0 {
		GetCacheMetrics().sizeGauge.WithLabelValues(backendMemory).Set(float64(c.eviction.Len()))
		c.logger.Debug("cache cleanup completed",
			observability.Int("removed", removed))
	}
}
