package retry

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// Default retry configuration constants.
const (
	// DefaultMaxRetries is the default maximum number of retry attempts.
	DefaultMaxRetries = 3

	// DefaultInitialBackoff is the default initial backoff duration.
	DefaultInitialBackoff = 100 * time.Millisecond

	// DefaultMaxBackoff is the default maximum backoff duration.
	DefaultMaxBackoff = 5 * time.Second

	// DefaultJitterFactor is the default jitter factor (25%).
	DefaultJitterFactor = 0.25
)

// Config contains retry configuration parameters.
type Config struct {
	// MaxRetries is the number of attempts after the first. Zero disables
	// retrying.
	MaxRetries int

	// InitialBackoff is the backoff before the first retry.
	InitialBackoff time.Duration

	// MaxBackoff caps the backoff between attempts.
	MaxBackoff time.Duration

	// JitterFactor is the fraction (0.0 to 1.0) of random backoff added.
	JitterFactor float64
}

// DefaultConfig returns the default retry configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxRetries:     DefaultMaxRetries,
		InitialBackoff: DefaultInitialBackoff,
		MaxBackoff:     DefaultMaxBackoff,
		JitterFactor:   DefaultJitterFactor,
	}
}

func (c *Config) initialBackoff() time.Duration {
	if c.InitialBackoff <= 0 {
		return DefaultInitialBackoff
	}
	return c.InitialBackoff
}

func (c *Config) maxBackoff() time.Duration {
	if c.MaxBackoff <= 0 {
		return DefaultMaxBackoff
	}
	return c.MaxBackoff
}

func (c *Config) jitterFactor() float64 {
	return min(max(c.JitterFactor, 0), 1)
}

// ShouldRetryFunc determines if an error should trigger a retry.
type ShouldRetryFunc func(error) bool

// OnRetryFunc is called before each retry attempt.
type OnRetryFunc func(attempt int, err error, backoff time.Duration)

// Options contains optional retry behavior.
type Options struct {
	// ShouldRetry filters retryable errors. If nil, all errors are retried.
	ShouldRetry ShouldRetryFunc

	// OnRetry is called before each retry attempt.
	OnRetry OnRetryFunc
}

// Do calls fn until it succeeds, a non-retryable error is returned, the
// retries are exhausted or ctx is done. It returns the last error.
func Do(ctx context.Context, cfg *Config, fn func(ctx context.Context) error, opts *Options) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	var lastErr error
	for attempt := 0; attempt <= max(cfg.MaxRetries, 0); attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if opts != nil && opts.ShouldRetry != nil && !opts.ShouldRetry(lastErr) {
			return lastErr
		}

		if attempt == cfg.MaxRetries {
			break
		}

		backoff := CalculateBackoff(attempt, cfg.initialBackoff(), cfg.maxBackoff(), cfg.jitterFactor())
		if opts != nil && opts.OnRetry != nil {
			opts.OnRetry(attempt+1, lastErr, backoff)
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}

// CalculateBackoff returns initial*2^attempt plus jitter, capped at
// maxBackoff.
func CalculateBackoff(attempt int, initialBackoff, maxBackoff time.Duration, jitterFactor float64) time.Duration {
	backoff := float64(initialBackoff) * math.Pow(2, float64(attempt))

	//nolint:gosec // G404: jitter for retry timing is not security-sensitive
	backoff += backoff * jitterFactor * rand.Float64()

	if backoff > float64(maxBackoff) {
		backoff = float64(maxBackoff)
	}
	return time.Duration(backoff)
}
