package health

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"
)

// Status represents the health status.
type Status string

const (
	// StatusHealthy indicates the service is healthy.
	StatusHealthy Status = "healthy"
	// StatusUnhealthy indicates the service is unhealthy.
	StatusUnhealthy Status = "unhealthy"
	// StatusDegraded indicates the service is degraded but operational.
	StatusDegraded Status = "degraded"
)

// HealthResponse represents the liveness response.
type HealthResponse struct {
	Status    Status    `json:"status"`
	Version   string    `json:"version,omitempty"`
	Uptime    string    `json:"uptime,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ReadinessResponse represents the readiness response.
type ReadinessResponse struct {
	Status    Status           `json:"status"`
	Checks    map[string]Check `json:"checks,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// Check represents an individual check result.
type Check struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
}

// Checker provides health and readiness checking.
type Checker struct {
	version   string
	startTime time.Time
	checks    map[string]*DependencyCheck
	mu        sync.RWMutex
}

// NewChecker creates a new health checker.
func NewChecker(version string) *Checker {
	return &Checker{
		version:   version,
		startTime: time.Now(),
		checks:    make(map[string]*DependencyCheck),
	}
}

// Register adds a check, replacing any check with the same name.
func (c *Checker) Register(check *DependencyCheck) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[check.name] = check
}

// Health returns the liveness status. It never runs checks.
func (c *Checker) Health() HealthResponse {
	GetHealthMetrics().checksTotal.WithLabelValues("liveness").Inc()
	return HealthResponse{
		Status:    StatusHealthy,
		Version:   c.version,
		Uptime:    time.Since(c.startTime).Round(time.Second).String(),
		Timestamp: time.Now(),
	}
}

// Readiness runs every registered check in name order.
func (c *Checker) Readiness(ctx context.Context) ReadinessResponse {
	c.mu.RLock()
	checks := make([]*DependencyCheck, 0, len(c.checks))
	for _, name := range slices.Sorted(maps.Keys(c.checks)) {
		checks = append(checks, c.checks[name])
	}
	c.mu.RUnlock()

	metrics := GetHealthMetrics()
	metrics.checksTotal.WithLabelValues("readiness").Inc()

	response := ReadinessResponse{
		Status:    StatusHealthy,
		Checks:    make(map[string]Check, len(checks)),
		Timestamp: time.Now(),
	}

	for _, dc := range checks {
		check := Check{Status: StatusHealthy}
		if err := dc.Check(ctx); err != nil {
			check = Check{Status: StatusDegraded, Message: err.Error()}
			if dc.critical {
				check.Status = StatusUnhealthy
			}
		}
		response.Checks[dc.name] = check

		switch {
		case check.Status == StatusUnhealthy:
			response.Status = StatusUnhealthy
		case check.Status == StatusDegraded && response.Status != StatusUnhealthy:
			response.Status = StatusDegraded
		}
	}

	metrics.checkStatus.WithLabelValues("overall").Set(statusValue(response.Status != StatusUnhealthy))

	return response
}

func statusValue(healthy bool) float64 {
	if healthy {
		return 1
	}
	return 0
}
