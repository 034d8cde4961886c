// Package cache provides the compiled route tree cache.
//
// Two backends implement the Cache interface:
//
//   - an in-memory LRU cache with per-entry TTL
//   - a Redis cache guarded by a circuit breaker, with TTL jitter
//
// TreeStore layers compiled tree storage on top of a Cache. Trees are keyed
// by the SHA-256 digest of a route table fingerprint and stored in their
// JSON document form. Cache failures are logged and reported as misses.
//
// # Example Usage
//
//	c, err := cache.New(&config.CacheConfig{
//	    Enabled:    true,
//	    Type:       config.CacheTypeMemory,
//	    TTL:        config.Duration(10 * time.Minute),
//	    MaxEntries: 64,
//	}, logger)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer c.Close()
//
//	store := cache.NewTreeStore(c, cache.WithTreeStoreLogger(logger))
//	r := router.New(router.WithTreeCache(store))
//
// All cache implementations are safe for concurrent use.
package cache
