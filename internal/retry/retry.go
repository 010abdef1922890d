// Package retry implements the exponential-backoff-with-jitter executor
// (spec §4.A) that wraps AI Client calls.
package retry

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// Config mirrors spec §4.A's RetryConfig.
type Config struct {
	MaxRetries          int
	MaxTotalDuration    time.Duration
	InitialBackoff      time.Duration
	MaxBackoff          time.Duration
	Multiplier          float64
	JitterFactor        float64
	RequestTimeout      time.Duration
	RetryOnRateLimit    bool
	RetryOnServerError  bool
	RetryOnNetworkError bool
}

// DefaultConfig returns the spec-documented defaults (§5 "Timeouts").
func DefaultConfig() Config {
	return Config{
		MaxRetries:          3,
		MaxTotalDuration:    300 * time.Second,
		InitialBackoff:      time.Second,
		MaxBackoff:          30 * time.Second,
		Multiplier:          2.0,
		JitterFactor:        0.1,
		RequestTimeout:      120 * time.Second,
		RetryOnRateLimit:    true,
		RetryOnServerError:  true,
		RetryOnNetworkError: true,
	}
}

// ErrorType enumerates the retryable-failure shapes an ErrorClassifier can
// report, per spec §4.A.
type ErrorType string

const (
	ErrorRateLimit    ErrorType = "rate_limit"
	ErrorServerError  ErrorType = "server_error"
	ErrorTimeout      ErrorType = "timeout"
	ErrorNetworkError ErrorType = "network_error"
)

// Decision is what an ErrorClassifier returns for a given failure.
type Decision struct {
	ShouldRetry bool
	ErrorType   ErrorType // zero value when ShouldRetry is false
	Reason      string
}

// Classifier is the provider-specific polymorphic boundary (spec §4.A,
// §9 "Dynamic dispatch").
type Classifier interface {
	Classify(err error) Decision
}

// CalculateBackoff implements spec §4.A's backoff formula and §8.8's
// testable property: with jitterFactor 0 the result is exactly
// min(initial*multiplier^attempt, max); otherwise it lies within
// delay*(1±jitterFactor).
func CalculateBackoff(attempt int, initial, max time.Duration, multiplier, jitterFactor float64) time.Duration {
	exp := float64(initial) * math.Pow(multiplier, float64(attempt))
	capped := exp
	if capped > float64(max) {
		capped = float64(max)
	}
	if jitterFactor <= 0 {
		return time.Duration(capped)
	}
	jitterRange := capped * jitterFactor
	jitter := (rand.Float64()*2 - 1) * jitterRange
	delay := capped + jitter
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

// Do executes op, retrying per cfg and classifier until success, a
// non-retryable classification, attempt exhaustion, or elapsed time budget
// exhaustion (spec §4.A "Algorithm"). The last error is returned unchanged
// on exhaustion.
func Do[T any](ctx context.Context, cfg Config, classifier Classifier, op func(ctx context.Context) (T, error)) (T, error) {
	start := time.Now()
	var zero T
	var lastErr error

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		callCtx := ctx
		var cancel context.CancelFunc
		if cfg.RequestTimeout > 0 {
			callCtx, cancel = context.WithTimeout(ctx, cfg.RequestTimeout)
		}
		result, err := op(callCtx)
		if cancel != nil {
			cancel()
		}
		if err == nil {
			return result, nil
		}
		lastErr = err

		decision := classifier.Classify(err)
		if !decision.ShouldRetry {
			return zero, err
		}
		if !categoryEnabled(cfg, decision.ErrorType) {
			return zero, err
		}
		if attempt == cfg.MaxRetries {
			return zero, err
		}
		if cfg.MaxTotalDuration > 0 && time.Since(start) >= cfg.MaxTotalDuration {
			return zero, err
		}

		delay := CalculateBackoff(attempt, cfg.InitialBackoff, cfg.MaxBackoff, cfg.Multiplier, cfg.JitterFactor)
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(delay):
		}
	}
	return zero, lastErr
}

func categoryEnabled(cfg Config, et ErrorType) bool {
	switch et {
	case ErrorRateLimit:
		return cfg.RetryOnRateLimit
	case ErrorServerError:
		return cfg.RetryOnServerError
	case ErrorTimeout, ErrorNetworkError:
		return cfg.RetryOnNetworkError
	default:
		return true
	}
}
