package cache

import (
	"context"
	"errors"
	"time"

	"github.com/vyrodovalexey/avaroute/internal/observability"
	"github.com/vyrodovalexey/avaroute/internal/tree"
)

// treeKeyPrefix namespaces compiled tree entries.
const treeKeyPrefix = "tree:"

// TreeStore caches compiled route trees keyed by a fingerprint of the
// route table. Failures are logged and reported as misses so that a broken
// cache never fails compilation.
type TreeStore struct {
	cache  Cache
	ttl    time.Duration
	logger observability.Logger
}

// TreeStoreOption is a functional option for the tree store.
type TreeStoreOption func(*TreeStore)

// WithTreeStoreLogger sets the logger.
func WithTreeStoreLogger(logger observability.Logger) TreeStoreOption {
	return func(s *TreeStore) {
		s.logger = logger
	}
}

// WithTreeTTL sets the TTL of stored trees. Zero uses the cache default.
func WithTreeTTL(ttl time.Duration) TreeStoreOption {
	return func(s *TreeStore) {
		s.ttl = ttl
	}
}

// NewTreeStore creates a tree store backed by c.
func NewTreeStore(c Cache, opts ...TreeStoreOption) *TreeStore {
	s := &TreeStore{
		cache:  c,
		logger: observability.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the cache key for a fingerprint.
func (s *TreeStore) Key(fingerprint string) string {
	return treeKeyPrefix + HashKey(fingerprint)
}

// Get returns the tree stored for fingerprint.
func (s *TreeStore) Get(ctx context.Context, fingerprint string) (*tree.Tree, bool) {
	key := s.Key(fingerprint)
	metrics := GetCacheMetrics()

	data, err := s.cache.Get(ctx, key)
	if err != nil {
		metrics.missesTotal.WithLabelValues(backendTree).Inc()
		if !errors.Is(err, ErrCacheMiss) && !errors.Is(err, ErrCacheDisabled) {
			metrics.errorsTotal.WithLabelValues(backendTree, "get").Inc()
			s.logger.Warn("compiled tree lookup failed",
				observability.String("key", key),
				observability.Error(err))
		}
		return nil, false
	}

	t, err := tree.UnmarshalJSON(data)
	if err != nil {
		metrics.missesTotal.WithLabelValues(backendTree).Inc()
		metrics.errorsTotal.WithLabelValues(backendTree, "get").Inc()
		s.logger.Warn("discarding undecodable compiled tree",
			observability.String("key", key),
			observability.Error(err))
		_ = s.cache.Delete(ctx, key)
		return nil, false
	}

	metrics.hitsTotal.WithLabelValues(backendTree).Inc()
	s.logger.Debug("compiled tree loaded from cache",
		observability.String("key", key),
		observability.Int("nodes", t.NodeCount()))
	return t, true
}

// Put stores t for fingerprint.
func (s *TreeStore) Put(ctx context.Context, fingerprint string, t *tree.Tree) {
	key := s.Key(fingerprint)

	data, err := tree.MarshalJSON(t)
	if err != nil {
		GetCacheMetrics().errorsTotal.WithLabelValues(backendTree, "set").Inc()
		s.logger.Warn("compiled tree cannot be encoded",
			observability.String("key", key),
			observability.Error(err))
		return
	}

	if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
		if errors.Is(err, ErrCacheDisabled) {
			return
		}
		GetCacheMetrics().errorsTotal.WithLabelValues(backendTree, "set").Inc()
		s.logger.Warn("compiled tree store failed",
			observability.String("key", key),
			observability.Error(err))
	}
}
