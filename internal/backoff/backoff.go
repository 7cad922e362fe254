// Package backoff wraps retry-go with the exponential-delay policy used for
// every external AI call in the pipeline.
package backoff

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = 1 * time.Second
	DefaultMaxDelay    = 30 * time.Second

	// jitterFraction is the maximum uniform jitter added to each delay,
	// as a fraction of the computed exponential delay.
	jitterFraction = 0.25
)

// Config tunes a retried operation. The zero value is usable and applies
// the package defaults.
type Config struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts uint

	// BaseDelay is the delay before the second attempt. Each subsequent
	// delay doubles, capped at MaxDelay.
	BaseDelay time.Duration

	// MaxDelay caps the exponential delay before jitter is applied.
	MaxDelay time.Duration

	// RetryIf classifies errors as retryable. Nil retries every error.
	// Non-retryable errors propagate immediately without sleeping.
	RetryIf func(error) bool

	// OnRetry is invoked after each failed attempt that will be retried.
	// Attempt numbers are 1-based.
	OnRetry func(attempt uint, err error)

	Logger *slog.Logger
}

func (c Config) withDefaults() Config {
	if c.MaxAttempts == 0 {
		c.MaxAttempts = DefaultMaxAttempts
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = DefaultBaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultMaxDelay
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Delay returns the sleep interval after the given failed attempt (1-based),
// before jitter: min(base * 2^(attempt-1), max).
func (c Config) Delay(attempt uint) time.Duration {
	c = c.withDefaults()
	if attempt == 0 {
		attempt = 1
	}
	d := c.BaseDelay
	for i := uint(1); i < attempt; i++ {
		d *= 2
		if d >= c.MaxDelay {
			return c.MaxDelay
		}
	}
	if d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}

// Do executes op, retrying retryable failures with exponential delay plus
// up to 25% uniform jitter. The final attempt's error is returned unchanged.
func Do(ctx context.Context, cfg Config, op func(ctx context.Context) error) error {
	_, err := DoValue(ctx, cfg, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, op(ctx)
	})
	return err
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, cfg Config, op func(ctx context.Context) (T, error)) (T, error) {
	cfg = cfg.withDefaults()

	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(cfg.MaxAttempts),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, _ error, _ *retry.Config) time.Duration {
			// retry-go hands DelayType the 1-based number of the
			// attempt that just failed.
			d := cfg.Delay(n)
			return d + time.Duration(rand.Float64()*jitterFraction*float64(d))
		}),
		retry.OnRetry(func(n uint, err error) {
			// retry-go fires this after every failure, the final
			// attempt included. The callback contract is retried
			// failures only.
			attempt := n + 1
			if attempt >= cfg.MaxAttempts {
				return
			}
			cfg.Logger.Warn("retrying after failure",
				"attempt", attempt,
				"max_attempts", cfg.MaxAttempts,
				"error", err,
			)
			if cfg.OnRetry != nil {
				cfg.OnRetry(attempt, err)
			}
		}),
	}
	if cfg.RetryIf != nil {
		opts = append(opts, retry.RetryIf(cfg.RetryIf))
	}

	return retry.DoWithData(func() (T, error) {
		return op(ctx)
	}, opts...)
}
