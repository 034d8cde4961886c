package matcher

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// matcherMetrics contains Prometheus metrics for matcher construction and
// rewriting.
type matcherMetrics struct {
	regexCacheHits      prometheus.Counter
	regexCacheMisses    prometheus.Counter
	regexCacheEvictions prometheus.Counter
	regexCacheSize      prometheus.Gauge
	programCacheHits    prometheus.Counter
	programCacheMisses  prometheus.Counter
	rewrites            *prometheus.CounterVec
}

var (
	matcherMetricsInstance *matcherMetrics
	matcherMetricsOnce     sync.Once
)

// getMatcherMetrics returns the singleton matcher metrics instance.
func getMatcherMetrics() *matcherMetrics {
	matcherMetricsOnce.Do(func() {
		matcherMetricsInstance = &matcherMetrics{
			regexCacheHits: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "avaroute",
					Subsystem: "matcher",
					Name:      "regex_cache_hits_total",
					Help:      "Total number of regex cache hits",
				},
			),
			regexCacheMisses: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "avaroute",
					Subsystem: "matcher",
					Name:      "regex_cache_misses_total",
					Help:      "Total number of regex cache misses",
				},
			),
			regexCacheEvictions: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "avaroute",
					Subsystem: "matcher",
					Name:      "regex_cache_evictions_total",
					Help:      "Total number of regex cache evictions",
				},
			),
			regexCacheSize: promauto.NewGauge(
				prometheus.GaugeOpts{
					Namespace: "avaroute",
					Subsystem: "matcher",
					Name:      "regex_cache_size",
					Help:      "Current number of entries in the regex cache",
				},
			),
			programCacheHits: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "avaroute",
					Subsystem: "matcher",
					Name:      "expression_cache_hits_total",
					Help:      "Total number of compiled expression cache hits",
				},
			),
			programCacheMisses: promauto.NewCounter(
				prometheus.CounterOpts{
					Namespace: "avaroute",
					Subsystem: "matcher",
					Name:      "expression_cache_misses_total",
					Help:      "Total number of compiled expression cache misses",
				},
			),
			rewrites: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "avaroute",
					Subsystem: "matcher",
					Name:      "rewrites_total",
					Help:      "Total number of regex matchers rewritten to cheaper matchers",
				},
				[]string{"rule"},
			),
		}
	})
	return matcherMetricsInstance
}
