package cache

import (
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/vyrodovalexey/avaroute/internal/config"
	"github.com/vyrodovalexey/avaroute/internal/observability"
)

// breakerMinRequests is the floor for the number of requests observed in an
// interval before the breaker may trip.
const breakerMinRequests = 1

// newRedisBreaker creates the circuit breaker guarding redis calls. It
// trips when at least threshold requests were seen in the interval and at
// least half of them failed. Misses do not count as failures.
func newRedisBreaker(name string, cfg *config.BreakerConfig, logger observability.Logger) *gobreaker.CircuitBreaker {
	threshold := config.DefaultBreakerThreshold
	timeout := config.DefaultBreakerTimeout
	if cfg != nil {
		if cfg.Threshold > 0 {
			threshold = cfg.Threshold
		}
		if cfg.Timeout > 0 {
			timeout = cfg.Timeout.Duration()
		}
	}
	thresholdU32 := safeIntToUint32(max(threshold, breakerMinRequests))

	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: thresholdU32,
		Interval:    timeout,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= thresholdU32 && failureRatio >= 0.5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, redis.Nil)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("cache circuit breaker state change",
				observability.String("name", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()),
			)
			GetCacheMetrics().breakerTransitions.WithLabelValues(from.String(), to.String()).Inc()
		},
	})
}

// breakerError maps breaker rejections to ErrCircuitOpen.
func breakerError(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.Join(ErrCircuitOpen, err)
	}
	return err
}

// safeIntToUint32 safely converts int to uint32.
func safeIntToUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	if n > int(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(n) //nolint:gosec // bounds checked above
}
