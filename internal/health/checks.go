package health

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// defaultCheckTimeout bounds a single check.
const defaultCheckTimeout = 2 * time.Second

// DependencyCheck is a named readiness check.
type DependencyCheck struct {
	name     string
	checkFn  func(ctx context.Context) error
	critical bool
	timeout  time.Duration
}

// DependencyCheckOption configures a DependencyCheck.
type DependencyCheckOption func(*DependencyCheck)

// WithCritical marks whether a failing check makes the service unhealthy.
func WithCritical(critical bool) DependencyCheckOption {
	return func(d *DependencyCheck) {
		d.critical = critical
	}
}

// WithTimeout sets the check timeout.
func WithTimeout(timeout time.Duration) DependencyCheckOption {
	return func(d *DependencyCheck) {
		d.timeout = timeout
	}
}

// NewDependencyCheck creates a critical check.
func NewDependencyCheck(
	name string,
	checkFn func(ctx context.Context) error,
	opts ...DependencyCheckOption,
) *DependencyCheck {
	d := &DependencyCheck{
		name:     name,
		checkFn:  checkFn,
		critical: true,
		timeout:  defaultCheckTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Name returns the name of the check.
func (d *DependencyCheck) Name() string {
	return d.name
}

// Check runs the check under its timeout.
func (d *DependencyCheck) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	err := d.checkFn(ctx)
	GetHealthMetrics().checkStatus.WithLabelValues(d.name).Set(statusValue(err == nil))
	return err
}

// TreeSource exposes the route count of the active tree.
type TreeSource interface {
	RouteCount() int
}

// TreeCheck reports whether a route tree has been compiled. An empty route
// set fails the check unless allowEmpty reports that the active route table
// is configured empty. A nil allowEmpty never allows an empty tree.
func TreeCheck(source TreeSource, allowEmpty func() bool) *DependencyCheck {
	return NewDependencyCheck("tree", func(context.Context) error {
		if source.RouteCount() == 0 && (allowEmpty == nil || !allowEmpty()) {
			return errors.New("no routes compiled")
		}
		return nil
	})
}

// Prober checks reachability of a backing store.
type Prober interface {
	Exists(ctx context.Context, key string) (bool, error)
}

// CacheCheck probes the tree cache. Cache failures only degrade the
// service because compilation does not depend on the cache.
func CacheCheck(prober Prober) *DependencyCheck {
	return NewDependencyCheck("cache", func(ctx context.Context) error {
		if _, err := prober.Exists(ctx, "health:probe"); err != nil {
			return fmt.Errorf("cache probe failed: %w", err)
		}
		return nil
	}, WithCritical(false))
}
