package cache

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/avaroute/internal/config"
	"github.com/vyrodovalexey/avaroute/internal/observability"
	"github.com/vyrodovalexey/avaroute/internal/retry"
)

// redisCache implements a Redis-based cache. Every call goes through a
// circuit breaker so that an unreachable server fails fast.
type redisCache struct {
	logger     observability.Logger
	client     *redis.Client
	breaker    *gobreaker.CircuitBreaker
	keyPrefix  string
	defaultTTL time.Duration
	ttlJitter  float64

	hits   atomic.Int64
	misses atomic.Int64
}

// applyTTLJitter adds random jitter to a TTL value to prevent thundering herd.
// The jitterFactor controls the maximum percentage of variation (0.0 to 1.0).
// For example, a jitterFactor of 0.1 means the TTL will vary by ±10%.
func applyTTLJitter(ttl time.Duration, jitterFactor float64) time.Duration {
	if jitterFactor <= 0 || ttl <= 0 {
		return ttl
	}
	if jitterFactor > 1.0 {
		jitterFactor = 1.0
	}
	//nolint:gosec // G404: TTL jitter does not require cryptographic randomness
	jitter := time.Duration(float64(ttl) * jitterFactor * (2*rand.Float64() - 1))
	result := ttl + jitter
	if result <= 0 {
		return ttl
	}
	return result
}

// newRedisCache connects to a standalone Redis server.
func newRedisCache(cfg *config.CacheConfig, logger observability.Logger) (*redisCache, error) {
	if cfg.Redis == nil || cfg.Redis.URL == "" {
		return nil, fmt.Errorf("%w: redis URL is required", ErrInvalidConfig)
	}

	opts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid redis URL: %w", ErrInvalidConfig, err)
	}
	applyRedisPoolOptions(opts, cfg.Redis)

	client := redis.NewClient(opts)

	connectTimeout := cfg.Redis.ConnectTimeout.Duration()
	if connectTimeout <= 0 {
		connectTimeout = config.DefaultRedisConnectTimeout
	}
	retryCfg := retry.DefaultConfig()
	retryCfg.MaxRetries = cfg.Redis.ConnectRetries
	err = retry.Do(context.Background(), retryCfg, func(ctx context.Context) error {
		return pingRedis(ctx, client, connectTimeout)
	}, &retry.Options{
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			logger.Warn("redis ping failed, retrying",
				observability.Int("attempt", attempt),
				observability.Duration("backoff", backoff),
				observability.Error(err))
		},
	})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	keyPrefix := cfg.Redis.KeyPrefix
	if keyPrefix == "" {
		keyPrefix = config.DefaultRedisKeyPrefix
	}

	c := &redisCache{
		logger:     logger,
		client:     client,
		breaker:    newRedisBreaker("redis-cache", cfg.Redis.Breaker, logger),
		keyPrefix:  keyPrefix,
		defaultTTL: cfg.TTL.Duration(),
		ttlJitter:  cfg.Redis.TTLJitter,
	}

	logger.Info("redis cache initialized",
		observability.String("addr", opts.Addr),
		observability.String("keyPrefix", keyPrefix),
		observability.Duration("defaultTTL", c.defaultTTL),
		observability.Float64("ttlJitter", c.ttlJitter))

	return c, nil
}

// applyRedisPoolOptions applies pool and timeout configuration overrides to Redis options.
func applyRedisPoolOptions(opts *redis.Options, redisCfg *config.RedisCacheConfig) {
	if redisCfg.PoolSize > 0 {
		opts.PoolSize = redisCfg.PoolSize
	}
	if redisCfg.ConnectTimeout > 0 {
		opts.DialTimeout = redisCfg.ConnectTimeout.Duration()
	}
	if redisCfg.ReadTimeout > 0 {
		opts.ReadTimeout = redisCfg.ReadTimeout.Duration()
	}
	if redisCfg.WriteTimeout > 0 {
		opts.WriteTimeout = redisCfg.WriteTimeout.Duration()
	}
}

// pingRedis tests the Redis connection with a timeout.
func pingRedis(ctx context.Context, client *redis.Client, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return client.Ping(ctx).Err()
}

func (c *redisCache) resolveKey(key string) string {
	return c.keyPrefix + key
}

// execute runs fn through the circuit breaker.
func (c *redisCache) execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := c.breaker.Execute(fn)
	return result, breakerError(err)
}

// fail records a failed operation.
func (c *redisCache) fail(span trace.Span, operation, key string, err error) {
	GetCacheMetrics().errorsTotal.WithLabelValues(backendRedis, operation).Inc()
	observability.RecordError(span, err)
	c.logger.Warn("redis "+operation+" failed",
		observability.String("key", key),
		observability.Error(err))
}

// Get retrieves a value from the cache.
func (c *redisCache) Get(ctx context.Context, key string) ([]byte, error) {
	ctx, span := startSpan(ctx, "Get", backendRedis, key, trace.SpanKindClient)
	defer span.End()
	defer observeDuration(backendRedis, "get", time.Now())

	result, err := c.execute(func() (interface{}, error) {
		return c.client.Get(ctx, c.resolveKey(key)).Bytes()
	})

	switch {
	case err == nil:
		value := result.([]byte)
		c.hits.Add(1)
		GetCacheMetrics().hitsTotal.WithLabelValues(backendRedis).Inc()
		span.SetAttributes(
			attribute.Bool("cache.hit", true),
			attribute.Int("cache.value_size", len(value)),
		)
		return value, nil
	case errors.Is(err, redis.Nil):
		c.misses.Add(1)
		GetCacheMetrics().missesTotal.WithLabelValues(backendRedis).Inc()
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return nil, ErrCacheMiss
	default:
		c.fail(span, "get", key, err)
		return nil, err
	}
}

// Set stores a value in the cache. The TTL is jittered.
func (c *redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ctx, span := startSpan(ctx, "Set", backendRedis, key, trace.SpanKindClient,
		attribute.Int("cache.value_size", len(value)))
	defer span.End()
	defer observeDuration(backendRedis, "set", time.Now())

	if ttl == 0 {
		ttl = c.defaultTTL
	}
	ttl = applyTTLJitter(ttl, c.ttlJitter)

	_, err := c.execute(func() (interface{}, error) {
		return nil, c.client.Set(ctx, c.resolveKey(key), value, ttl).Err()
	})
	if err != nil {
		c.fail(span, "set", key, err)
		return err
	}

	c.logger.Debug("cache set",
		observability.String("key", key),
		observability.Duration("ttl", ttl),
		observability.Int("size", len(value)))
	return nil
}

// Delete removes a value from the cache.
func (c *redisCache) Delete(ctx context.Context, key string) error {
	ctx, span := startSpan(ctx, "Delete", backendRedis, key, trace.SpanKindClient)
	defer span.End()
	defer observeDuration(backendRedis, "delete", time.Now())

	_, err := c.execute(func() (interface{}, error) {
		return nil, c.client.Del(ctx, c.resolveKey(key)).Err()
	})
	if err != nil {
		c.fail(span, "delete", key, err)
		return err
	}
	return nil
}

// Exists checks if a key exists in the cache.
func (c *redisCache) Exists(ctx context.Context, key string) (bool, error) {
	ctx, span := startSpan(ctx, "Exists", backendRedis, key, trace.SpanKindClient)
	defer span.End()
	defer observeDuration(backendRedis, "exists", time.Now())

	result, err := c.execute(func() (interface{}, error) {
		return c.client.Exists(ctx, c.resolveKey(key)).Result()
	})
	if err != nil {
		c.fail(span, "exists", key, err)
		return false, err
	}

	exists := result.(int64) > 0
	span.SetAttributes(attribute.Bool("cache.exists", exists))
	return exists, nil
}

// Close closes the Redis connection.
func (c *redisCache) Close() error {
	c.logger.Info("redis cache closing")
	return c.client.Close()
}

// Stats returns cache statistics.
func (c *redisCache) Stats() CacheStats {
	return CacheStats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
	}
}
