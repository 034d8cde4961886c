package cache

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/avaroute/internal/config"
	"github.com/vyrodovalexey/avaroute/internal/observability"
)

// Common cache errors.
var (
	// ErrCacheMiss indicates that the key was not found in the cache.
	ErrCacheMiss = errors.New("cache miss")

	// ErrCacheDisabled indicates that caching is disabled.
	ErrCacheDisabled = errors.New("cache disabled")

	// ErrInvalidConfig indicates that the cache configuration is invalid.
	ErrInvalidConfig = errors.New("invalid cache configuration")

	// ErrConnectionFailed indicates that the cache connection failed.
	ErrConnectionFailed = errors.New("cache connection failed")

	// ErrCircuitOpen indicates that the redis circuit breaker rejected the call.
	ErrCircuitOpen = errors.New("cache circuit breaker open")
)

// cacheTracerName is the OpenTelemetry tracer name for cache operations.
const cacheTracerName = "avaroute/cache"

// Cache is the main interface for caching.
type Cache interface {
	// Get retrieves a value from the cache.
	// Returns ErrCacheMiss if the key is not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value in the cache with the given TTL.
	// A TTL of 0 uses the configured default TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value from the cache.
	Delete(ctx context.Context, key string) error

	// Exists checks if a key exists in the cache.
	Exists(ctx context.Context, key string) (bool, error)

	// Close closes the cache connection.
	Close() error
}

// CacheWithStats extends Cache with statistics.
type CacheWithStats interface {
	Cache

	// Stats returns cache statistics.
	Stats() CacheStats
}

// CacheStats contains cache statistics.
type CacheStats struct {
	Hits   int64
	Misses int64
	Size   int64
}

// HitRate returns the cache hit rate as a percentage.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// New creates a new cache based on the configuration. A nil or disabled
// configuration yields a cache that rejects every operation with
// ErrCacheDisabled.
func New(cfg *config.CacheConfig, logger observability.Logger) (Cache, error) {
	if cfg.IsEmpty() {
		return newDisabledCache(), nil
	}

	if logger == nil {
		logger = observability.NopLogger()
	}

	switch cfg.Type {
	case config.CacheTypeMemory, "":
		return newMemoryCache(cfg, logger), nil
	case config.CacheTypeRedis:
		return newRedisCache(cfg, logger)
	default:
		return nil, errors.Join(ErrInvalidConfig, errors.New("unknown cache type: "+cfg.Type))
	}
}

// disabledCache is a cache that always returns ErrCacheDisabled.
type disabledCache struct{}

func newDisabledCache() Cache {
	return &disabledCache{}
}

func (c *disabledCache) Get(_ context.Context, _ string) ([]byte, error) {
	return nil, ErrCacheDisabled
}

func (c *disabledCache) Set(_ context.Context, _ string, _ []byte, _ time.Duration) error {
	return ErrCacheDisabled
}

func (c *disabledCache) Delete(_ context.Context, _ string) error {
	return ErrCacheDisabled
}

func (c *disabledCache) Exists(_ context.Context, _ string) (bool, error) {
	return false, ErrCacheDisabled
}

func (c *disabledCache) Close() error {
	return nil
}

// startSpan starts a cache operation span.
func startSpan(
	ctx context.Context,
	operation, backend, key string,
	kind trace.SpanKind,
	attrs ...attribute.KeyValue,
) (context.Context, trace.Span) {
	attrs = append(attrs,
		attribute.String("cache.backend", backend),
		attribute.String("cache.key", key),
	)
	return otel.Tracer(cacheTracerName).Start(ctx, "cache."+operation,
		trace.WithSpanKind(kind),
		trace.WithAttributes(attrs...),
	)
}

// observeDuration records the duration of an operation started at start.
func observeDuration(backend, operation string, start time.Time) {
	GetCacheMetrics().operationDuration.WithLabelValues(
		backend, operation,
	).Observe(time.Since(start).Seconds())
}
