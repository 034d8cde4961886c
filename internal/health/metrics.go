package health

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HealthMetrics holds Prometheus metrics for health checks.
type HealthMetrics struct {
	checksTotal *prometheus.CounterVec
	checkStatus *prometheus.GaugeVec
}

var (
	healthMetricsInstance *HealthMetrics
	healthMetricsOnce     sync.Once
)

// GetHealthMetrics returns the singleton health metrics instance.
func GetHealthMetrics() *HealthMetrics {
	healthMetricsOnce.Do(func() {
		healthMetricsInstance = &HealthMetrics{
			checksTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "avaroute",
					Subsystem: "health",
					Name:      "checks_total",
					Help:      "Total number of health checks performed",
				},
				[]string{"type"},
			),
			checkStatus: promauto.NewGaugeVec(
				prometheus.GaugeOpts{
					Namespace: "avaroute",
					Subsystem: "health",
					Name:      "check_status",
					Help:      "Current health check status (1=healthy, 0=unhealthy)",
				},
				[]string{"check"},
			),
		}
	})
	return healthMetricsInstance
}

// Init pre-initializes common label combinations with zero values so
// that metrics appear immediately after startup. It is idempotent.
func (m *HealthMetrics) Init() {
	for _, checkType := range []string{"liveness", "readiness"} {
		m.checksTotal.WithLabelValues(checkType)
	}
	for _, check := range []string{"overall", "tree"} {
		m.checkStatus.WithLabelValues(check)
	}
}
