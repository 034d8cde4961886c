package config

import "time"

// CacheConfig configures the compiled tree cache.
type CacheConfig struct {
	// Enabled indicates whether compiled trees are cached.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Type is the cache backend type: "memory" or "redis".
	Type string `yaml:"type" json:"type"`

	// TTL is the time-to-live of a cached tree. Zero means no expiry.
	TTL Duration `yaml:"ttl,omitempty" json:"ttl,omitempty"`

	// MaxEntries is the maximum number of entries for the memory cache.
	MaxEntries int `yaml:"maxEntries,omitempty" json:"maxEntries,omitempty"`

	// Redis contains Redis-specific configuration.
	Redis *RedisCacheConfig `yaml:"redis,omitempty" json:"redis,omitempty"`
}

// RedisCacheConfig contains Redis-specific cache configuration.
type RedisCacheConfig struct {
	// URL is the Redis connection URL.
	// Format: redis://[user:password@]host:port[/db]
	URL string `yaml:"url" json:"url"`

	// PoolSize is the maximum number of connections in the pool.
	PoolSize int `yaml:"poolSize,omitempty" json:"poolSize,omitempty"`

	// ConnectTimeout is the timeout for establishing connections.
	ConnectTimeout Duration `yaml:"connectTimeout,omitempty" json:"connectTimeout,omitempty"`

	// ConnectRetries is how many times the initial ping is retried with
	// exponential backoff. Zero fails on the first error.
	ConnectRetries int `yaml:"connectRetries,omitempty" json:"connectRetries,omitempty"`

	// ReadTimeout is the timeout for read operations.
	ReadTimeout Duration `yaml:"readTimeout,omitempty" json:"readTimeout,omitempty"`

	// WriteTimeout is the timeout for write operations.
	WriteTimeout Duration `yaml:"writeTimeout,omitempty" json:"writeTimeout,omitempty"`

	// KeyPrefix is a prefix added to all cache keys.
	KeyPrefix string `yaml:"keyPrefix,omitempty" json:"keyPrefix,omitempty"`

	// TTLJitter is the maximum fraction of jitter applied to TTL values (0.0 to 1.0).
	TTLJitter float64 `yaml:"ttlJitter,omitempty" json:"ttlJitter,omitempty"`

	// Breaker configures the circuit breaker guarding Redis calls.
	Breaker *BreakerConfig `yaml:"breaker,omitempty" json:"breaker,omitempty"`
}

// BreakerConfig configures a circuit breaker.
type BreakerConfig struct {
	// Threshold is the number of requests observed before the breaker may
	// trip on a failure ratio of one half or more.
	Threshold int `yaml:"threshold" json:"threshold"`

	// Timeout is how long the breaker stays open before probing again.
	Timeout Duration `yaml:"timeout" json:"timeout"`
}

// CacheType constants for cache backend types.
const (
	// CacheTypeMemory uses in-memory caching.
	CacheTypeMemory = "memory"

	// CacheTypeRedis uses Redis for caching.
	CacheTypeRedis = "redis"
)

// Cache defaults.
const (
	DefaultCacheTTL            = 10 * time.Minute
	DefaultCacheMaxEntries     = 64
	DefaultRedisPoolSize       = 10
	DefaultRedisConnectTimeout = 5 * time.Second
	DefaultRedisReadTimeout    = 3 * time.Second
	DefaultRedisWriteTimeout   = 3 * time.Second
	DefaultRedisKeyPrefix      = "avaroute:"
	DefaultBreakerThreshold    = 5
	DefaultBreakerTimeout      = 30 * time.Second
)

// DefaultCacheConfig returns default cache configuration.
func DefaultCacheConfig() *CacheConfig {
	return &CacheConfig{
		Enabled:    false,
		Type:       CacheTypeMemory,
		TTL:        Duration(DefaultCacheTTL),
		MaxEntries: DefaultCacheMaxEntries,
	}
}

// DefaultRedisCacheConfig returns default Redis cache configuration.
func DefaultRedisCacheConfig() *RedisCacheConfig {
	return &RedisCacheConfig{
		PoolSize:       DefaultRedisPoolSize,
		ConnectTimeout: Duration(DefaultRedisConnectTimeout),
		ReadTimeout:    Duration(DefaultRedisReadTimeout),
		WriteTimeout:   Duration(DefaultRedisWriteTimeout),
		KeyPrefix:      DefaultRedisKeyPrefix,
		Breaker: &BreakerConfig{
			Threshold: DefaultBreakerThreshold,
			Timeout:   Duration(DefaultBreakerTimeout),
		},
	}
}

// IsEmpty returns true if the CacheConfig has no meaningful configuration.
func (cc *CacheConfig) IsEmpty() bool {
	if cc == nil {
		return true
	}
	return !cc.Enabled
}

// applyDefaults fills in unset optional fields.
func (cc *CacheConfig) applyDefaults() {
	if cc.Type == "" {
		cc.Type = CacheTypeMemory
	}
	if cc.MaxEntries <= 0 {
		cc.MaxEntries = DefaultCacheMaxEntries
	}
	if cc.Redis == nil {
		return
	}

	defaults := DefaultRedisCacheConfig()
	r := cc.Redis
	if r.PoolSize <= 0 {
		r.PoolSize = defaults.PoolSize
	}
	if r.ConnectTimeout <= 0 {
		r.ConnectTimeout = defaults.ConnectTimeout
	}
	if r.ReadTimeout <= 0 {
		r.ReadTimeout = defaults.ReadTimeout
	}
	if r.WriteTimeout <= 0 {
		r.WriteTimeout = defaults.WriteTimeout
	}
	if r.KeyPrefix == "" {
		r.KeyPrefix = defaults.KeyPrefix
	}
	if r.Breaker == nil {
		r.Breaker = defaults.Breaker
	}
}
