package health

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTree int

func (f fakeTree) RouteCount() int { return int(f) }

type fakeProber struct{ err error }

func (f fakeProber) Exists(context.Context, string) (bool, error) { return false, f.err }

func TestChecker_Health(t *testing.T) {
	t.Parallel()

	c := NewChecker("v1.2.3")
	resp := c.Health()

	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Equal(t, "v1.2.3", resp.Version)
	assert.NotEmpty(t, resp.Uptime)
	assert.False(t, resp.Timestamp.IsZero())
}

func TestChecker_Readiness(t *testing.T) {
	t.Parallel()

	probeErr := errors.New("connection refused")

	tests := []struct {
		name     string
		checks   []*DependencyCheck
		expected Status
		results  map[string]Status
	}{
		{
			name:     "no checks",
			expected: StatusHealthy,
			results:  map[string]Status{},
		},
		{
			name:     "all healthy",
			checks:   []*DependencyCheck{TreeCheck(fakeTree(3), nil), CacheCheck(fakeProber{})},
			expected: StatusHealthy,
			results:  map[string]Status{"tree": StatusHealthy, "cache": StatusHealthy},
		},
		{
			name:     "cache down degrades",
			checks:   []*DependencyCheck{TreeCheck(fakeTree(3), nil), CacheCheck(fakeProber{err: probeErr})},
			expected: StatusDegraded,
			results:  map[string]Status{"tree": StatusHealthy, "cache": StatusDegraded},
		},
		{
			name:     "empty tree is unhealthy",
			checks:   []*DependencyCheck{TreeCheck(fakeTree(0), nil), CacheCheck(fakeProber{err: probeErr})},
			expected: StatusUnhealthy,
			results:  map[string]Status{"tree": StatusUnhealthy, "cache": StatusDegraded},
		},
		{
			name:     "empty tree allowed",
			checks:   []*DependencyCheck{TreeCheck(fakeTree(0), func() bool { return true })},
			expected: StatusHealthy,
			results:  map[string]Status{"tree": StatusHealthy},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := NewChecker("test")
			for _, check := range tt.checks {
				c.Register(check)
			}

			resp := c.Readiness(context.Background())
			assert.Equal(t, tt.expected, resp.Status)

			got := make(map[string]Status, len(resp.Checks))
			for name, check := range resp.Checks {
				got[name] = check.Status
				if check.Status != StatusHealthy {
					assert.NotEmpty(t, check.Message)
				}
			}
			assert.Equal(t, tt.results, got)
		})
	}
}

func TestTreeCheck_AllowEmptyFollowsTable(t *testing.T) {
	t.Parallel()

	var empty atomic.Bool
	c := NewChecker("test")
	c.Register(TreeCheck(fakeTree(0), empty.Load))
	require.Equal(t, StatusUnhealthy, c.Readiness(context.Background()).Status)

	empty.Store(true)
	assert.Equal(t, StatusHealthy, c.Readiness(context.Background()).Status)

	empty.Store(false)
	assert.Equal(t, StatusUnhealthy, c.Readiness(context.Background()).Status)
}

func TestDependencyCheck_Timeout(t *testing.T) {
	t.Parallel()

	check := NewDependencyCheck("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, WithTimeout(10*time.Millisecond))

	assert.Equal(t, "slow", check.Name())
	assert.ErrorIs(t, check.Check(context.Background()), context.DeadlineExceeded)
}

func TestHealthMetrics_Init(t *testing.T) {
	t.Parallel()

	m := GetHealthMetrics()
	assert.Same(t, m, GetHealthMetrics())
	assert.NotPanics(t, m.Init)
}
