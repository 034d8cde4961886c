package observability

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	io_prometheus_client "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		namespace string
		expected  string
	}{
		{name: "custom namespace", namespace: "custom", expected: "custom_compiler_routes"},
		{name: "empty namespace uses default", namespace: "", expected: "avaroute_compiler_routes"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			m := NewMetrics(tt.namespace)
			m.SetTreeStats(1, 2, 1, 0)

			families, err := m.Registry().Gather()
			require.NoError(t, err)

			var names []string
			for _, f := range families {
				names = append(names, f.GetName())
			}
			assert.Contains(t, names, tt.expected)
		})
	}
}

func TestMetrics_RecordCompile(t *testing.T) {
	t.Parallel()

	m := NewMetrics("test")

	m.RecordCompile("build", nil, time.Millisecond)
	m.RecordCompile("build", errors.New("bad pattern"), time.Millisecond)
	m.RecordCompile("cache", nil, time.Microsecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.compilesTotal.WithLabelValues("success", "build")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.compilesTotal.WithLabelValues("error", "build")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.compilesTotal.WithLabelValues("success", "cache")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.compileDuration))
}

func TestMetrics_SetTreeStats(t *testing.T) {
	t.Parallel()

	m := NewMetrics("test")
	m.SetTreeStats(4, 9, 6, 2)
	m.SetTreeStats(4, 9, 6, 1)

	assert.Equal(t, 4.0, testutil.ToFloat64(m.routes))
	assert.Equal(t, 9.0, testutil.ToFloat64(m.treeNodes.WithLabelValues("built")))
	assert.Equal(t, 6.0, testutil.ToFloat64(m.treeNodes.WithLabelValues("optimized")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.optimizerMerges))
}

func TestMetrics_RecordMatch(t *testing.T) {
	t.Parallel()

	m := NewMetrics("test")
	m.InitVecMetrics()

	assert.Equal(t, 3, testutil.CollectAndCount(m.matchesTotal))

	m.RecordMatch(MatchResultMatched, time.Microsecond)
	m.RecordMatch(MatchResultMatched, time.Microsecond)
	m.RecordMatch(MatchResultNotFound, time.Microsecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.matchesTotal.WithLabelValues(MatchResultMatched)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.matchesTotal.WithLabelValues(MatchResultNotFound)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.matchesTotal.WithLabelValues(MatchResultMethodNotAllowed)))
}

func TestMetrics_RecordRequest(t *testing.T) {
	t.Parallel()

	m := NewMetrics("test")
	m.RecordRequest(http.MethodGet, "/match", http.StatusOK, time.Millisecond)
	m.RecordRateLimitHit()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/match", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimitHits))
}

func TestMetrics_Handler(t *testing.T) {
	t.Parallel()

	m := NewMetrics("handlertest")
	m.SetBuildInfo("v1.0.0", "abc123", "2026-01-01")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `handlertest_build_info{build_time="2026-01-01",commit="abc123",version="v1.0.0"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestMetrics_RegisterCollector(t *testing.T) {
	t.Parallel()

	m := NewMetrics("test")
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "extra_total", Help: "extra"})

	require.NoError(t, m.RegisterCollector(c))
	assert.Error(t, m.RegisterCollector(c))
}

func TestMetrics_MatchDurationHistogram(t *testing.T) {
	t.Parallel()

	m := NewMetrics("test")
	m.RecordMatch(MatchResultMatched, 2*time.Millisecond)
	m.RecordMatch(MatchResultNotFound, 4*time.Millisecond)

	ch := make(chan prometheus.Metric, 1)
	m.matchDuration.Collect(ch)
	metric := <-ch

	dto := &io_prometheus_client.Metric{}
	require.NoError(t, metric.Write(dto))
	assert.Equal(t, uint64(2), dto.GetHistogram().GetSampleCount())
	assert.InDelta(t, 0.006, dto.GetHistogram().GetSampleSum(), 1e-9)
}
