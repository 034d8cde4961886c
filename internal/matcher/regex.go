package matcher

import (
	"regexp"
	"sync"
)

// regexCacheMaxSize is the maximum number of entries in the regex cache.
const regexCacheMaxSize = 1000

// regexCacheEntry holds a compiled regex and its access order for LRU eviction.
type regexCacheEntry struct {
	regex       *regexp.Regexp
	accessOrder int64
}

// regexCache is a bounded LRU cache for compiled segment regular expressions.
// Route tables reuse a handful of constraints, so recompilations on reload
// mostly hit.
var (
	regexCache         = make(map[string]*regexCacheEntry)
	regexCacheMu       sync.Mutex
	regexAccessCounter int64
)

// compileRegex returns the compiled pattern, using the cache when possible.
func compileRegex(pattern string) (*regexp.Regexp, error) {
	metrics := getMatcherMetrics()

	regexCacheMu.Lock()
	if entry, ok := regexCache[pattern]; ok {
		regexAccessCounter++
		entry.accessOrder = regexAccessCounter
		regexCacheMu.Unlock()

		metrics.regexCacheHits.Inc()
		return entry.regex, nil
	}
	regexCacheMu.Unlock()

	metrics.regexCacheMisses.Inc()

	// Compile outside the lock
	regex, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}

	regexCacheMu.Lock()
	defer regexCacheMu.Unlock()

	if existing, ok := regexCache[pattern]; ok {
		regexAccessCounter++
		existing.accessOrder = regexAccessCounter
		return existing.regex, nil
	}

	if len(regexCache) >= regexCacheMaxSize {
		evictLRURegexEntry()
		metrics.regexCacheEvictions.Inc()
	}

	regexAccessCounter++
	regexCache[pattern] = &regexCacheEntry{regex: regex, accessOrder: regexAccessCounter}
	metrics.regexCacheSize.Set(float64(len(regexCache)))

	return regex, nil
}

// evictLRURegexEntry removes the least recently used entry from the cache.
// Must be called with regexCacheMu held.
func evictLRURegexEntry() {
	var lruKey string
	var lruOrder int64 = -1

	for key, entry := range regexCache {
		if lruOrder == -1 || entry.accessOrder < lruOrder {
			lruOrder = entry.accessOrder
			lruKey = key
		}
	}

	if lruKey != "" {
		delete(regexCache, lruKey)
	}
}
