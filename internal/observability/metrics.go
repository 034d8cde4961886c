package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultNamespace is the metrics namespace used when none is given.
const DefaultNamespace = "avaroute"

// Match results recorded by RecordMatch.
const (
	MatchResultMatched          = "matched"
	MatchResultNotFound         = "not_found"
	MatchResultMethodNotAllowed = "method_not_allowed"
)

// Metrics holds the Prometheus metrics of the route compiler, the
// dispatcher and the inspector server.
type Metrics struct {
	compilesTotal   *prometheus.CounterVec
	compileDuration prometheus.Histogram
	routes          prometheus.Gauge
	treeNodes       *prometheus.GaugeVec
	optimizerMerges prometheus.Counter
	matchesTotal    *prometheus.CounterVec
	matchDuration   prometheus.Histogram
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
	rateLimitHits   prometheus.Counter
	buildInfo       *prometheus.GaugeVec
	startTime       prometheus.Gauge
	registry        *prometheus.Registry
}

// NewMetrics creates a new Metrics instance backed by its own registry.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.compilesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "compiler",
			Name:      "compiles_total",
			Help:      "Total number of route table compilations",
		},
		[]string{"result", "source"},
	)

	m.compileDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "compiler",
			Name:      "compile_duration_seconds",
			Help:      "Route table compilation duration in seconds",
			Buckets: []float64{
				.0001, .0005, .001, .005, .01,
				.05, .1, .5, 1, 5,
			},
		},
	)

	m.routes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "compiler",
			Name:      "routes",
			Help:      "Number of routes in the active tree",
		},
	)

	m.treeNodes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "compiler",
			Name:      "tree_nodes",
			Help: "Number of nodes in the active tree " +
				"before and after optimization",
		},
		[]string{"stage"},
	)

	m.optimizerMerges = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "compiler",
			Name:      "optimizer_merges_total",
			Help: "Total number of sibling groups merged " +
				"under a common parent",
		},
	)

	m.matchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "matches_total",
			Help:      "Total number of path match attempts",
		},
		[]string{"result"},
	)

	m.matchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "dispatcher",
			Name:      "match_duration_seconds",
			Help:      "Path match duration in seconds",
			Buckets: prometheus.ExponentialBuckets(
				1e-6, 4, 10,
			),
		},
	)

	m.httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inspector",
			Name:      "requests_total",
			Help:      "Total number of inspector HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	m.httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "inspector",
			Name:      "request_duration_seconds",
			Help:      "Inspector HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	m.rateLimitHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "inspector",
			Name:      "rate_limit_hits_total",
			Help:      "Total number of rate limited inspector requests",
		},
	)

	m.buildInfo = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "build_info",
			Help:      "Build information",
		},
		[]string{"version", "commit", "build_time"},
	)

	m.startTime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "start_time_seconds",
			Help:      "Start time of the process in unix seconds",
		},
	)

	m.registerCollectors()

	m.startTime.SetToCurrentTime()

	return m
}

// registerCollectors registers all metric collectors with the
// Prometheus registry.
func (m *Metrics) registerCollectors() {
	m.registry.MustRegister(
		m.compilesTotal,
		m.compileDuration,
		m.routes,
		m.treeNodes,
		m.optimizerMerges,
		m.matchesTotal,
		m.matchDuration,
		m.httpRequests,
		m.httpDuration,
		m.rateLimitHits,
		m.buildInfo,
		m.startTime,
	)
}

// InitVecMetrics pre-populates the match result labels with zero values
// so that they appear in /metrics output immediately after startup.
func (m *Metrics) InitVecMetrics() {
	for _, result := range []string{
		MatchResultMatched,
		MatchResultNotFound,
		MatchResultMethodNotAllowed,
	} {
		m.matchesTotal.WithLabelValues(result)
	}
}

// RecordCompile records a route table compilation. Source is "build"
// for a fresh compilation and "cache" when the tree came from the cache.
func (m *Metrics) RecordCompile(
	source string,
	err error,
	duration time.Duration,
) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.compilesTotal.WithLabelValues(result, source).Inc()
	m.compileDuration.Observe(duration.Seconds())
}

// SetTreeStats records the size of the active tree.
func (m *Metrics) SetTreeStats(
	routes, nodesBefore, nodesAfter, merges int,
) {
	m.routes.Set(float64(routes))
	m.treeNodes.WithLabelValues("built").Set(float64(nodesBefore))
	m.treeNodes.WithLabelValues("optimized").Set(float64(nodesAfter))
	m.optimizerMerges.Add(float64(merges))
}

// RecordMatch records a path match attempt.
func (m *Metrics) RecordMatch(result string, duration time.Duration) {
	m.matchesTotal.WithLabelValues(result).Inc()
	m.matchDuration.Observe(duration.Seconds())
}

// RecordRequest records a completed inspector HTTP request.
// The route parameter should be the registered route template,
// not the raw request path, to prevent cardinality explosion.
func (m *Metrics) RecordRequest(
	method, route string,
	status int,
	duration time.Duration,
) {
	m.httpRequests.WithLabelValues(
		method, route, strconv.Itoa(status),
	).Inc()
	m.httpDuration.WithLabelValues(
		method, route,
	).Observe(duration.Seconds())
}

// RecordRateLimitHit records a rate limited inspector request.
func (m *Metrics) RecordRateLimitHit() {
	m.rateLimitHits.Inc()
}

// SetBuildInfo sets the build information metric.
func (m *Metrics) SetBuildInfo(
	version, commit, buildTime string,
) {
	m.buildInfo.WithLabelValues(
		version, commit, buildTime,
	).Set(1)
}

// Handler returns an HTTP handler serving both the custom registry and
// the default registry. The default registry holds the package-level
// matcher, cache and health metrics and the Go runtime and process
// collectors.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(
		prometheus.Gatherers{m.registry, prometheus.DefaultGatherer},
		promhttp.HandlerOpts{EnableOpenMetrics: true},
	)
}

// Registry returns the Prometheus registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterCollector registers an additional collector with the custom
// registry.
func (m *Metrics) RegisterCollector(c prometheus.Collector) error {
	return m.registry.Register(c)
}
