package cache

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Cache backends used as metric labels.
const (
	backendMemory = "memory"
	backendRedis  = "redis"
	backendTree   = "tree"
)

// CacheMetrics holds Prometheus metrics for cache operations.
type CacheMetrics struct {
	hitsTotal          *prometheus.CounterVec
	missesTotal        *prometheus.CounterVec
	evictionsTotal     *prometheus.CounterVec
	sizeGauge          *prometheus.GaugeVec
	operationDuration  *prometheus.HistogramVec
	errorsTotal        *prometheus.CounterVec
	breakerTransitions *prometheus.CounterVec
}

var (
	cacheMetricsInstance *CacheMetrics
	cacheMetricsOnce     sync.Once
)

// GetCacheMetrics returns the singleton cache metrics instance. The
// metrics live in the default Prometheus registry.
func GetCacheMetrics() *CacheMetrics {
	cacheMetricsOnce.Do(func() {
		cacheMetricsInstance = newCacheMetrics()
	})
	return cacheMetricsInstance
}

// Init pre-initializes common label combinations with zero values so that
// metrics appear in /metrics output immediately after startup.
func (m *CacheMetrics) Init() {
	for _, backend := range []string{backendMemory, backendRedis, backendTree} {
		m.hitsTotal.WithLabelValues(backend)
		m.missesTotal.WithLabelValues(backend)
		m.errorsTotal.WithLabelValues(backend, "get")
		m.errorsTotal.WithLabelValues(backend, "set")
	}
	m.evictionsTotal.WithLabelValues(backendMemory)
	m.sizeGauge.WithLabelValues(backendMemory)
}

func newCacheMetrics() *CacheMetrics {
	return &CacheMetrics{
		hitsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "avaroute",
				Subsystem: "cache",
				Name:      "hits_total",
				Help:      "Total number of cache hits",
			},
			[]string{"backend"},
		),
		missesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "avaroute",
				Subsystem: "cache",
				Name:      "misses_total",
				Help:      "Total number of cache misses",
			},
			[]string{"backend"},
		),
		evictionsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "avaroute",
				Subsystem: "cache",
				Name:      "evictions_total",
				Help:      "Total number of cache evictions",
			},
			[]string{"backend"},
		),
		sizeGauge: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "avaroute",
				Subsystem: "cache",
				Name:      "size",
				Help:      "Current number of items in cache",
			},
			[]string{"backend"},
		),
		operationDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "avaroute",
				Subsystem: "cache",
				Name:      "operation_duration_seconds",
				Help:      "Duration of cache operations",
				Buckets: []float64{
					.0001, .0005, .001, .005,
					.01, .025, .05, .1,
				},
			},
			[]string{"backend", "operation"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "avaroute",
				Subsystem: "cache",
				Name:      "errors_total",
				Help:      "Total number of cache errors",
			},
			[]string{"backend", "operation"},
		),
		breakerTransitions: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "avaroute",
				Subsystem: "cache",
				Name:      "breaker_transitions_total",
				Help:      "Total number of redis circuit breaker state transitions",
			},
			[]string{"from", "to"},
		),
	}
}
