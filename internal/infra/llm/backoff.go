package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/vietddude/lexophile/internal/gathering/metrics"
)

// ErrRetriesExhausted wraps the last error once every attempt was rate limited.
var ErrRetriesExhausted = errors.New("rate limit exceeded after all retries")

// BackoffConfig defines retry behavior for rate-limited calls.
type BackoffConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	JitterMin  float64
	JitterMax  float64
}

// DefaultBackoffConfig: 1s doubling to 5 minutes, 10-30% jitter, 5 retries.
var DefaultBackoffConfig = BackoffConfig{
	MaxRetries: 5,
	BaseDelay:  1 * time.Second,
	MaxDelay:   300 * time.Second,
	JitterMin:  0.1,
	JitterMax:  0.3,
}

// SendFunc performs one attempt.
type SendFunc func(ctx context.Context) (*Response, error)

// Backoff retries transient failures with exponential delay plus jitter.
// Permanent failures return immediately.
type Backoff struct {
	Config   BackoffConfig
	Provider string
	Logger   *slog.Logger

	// Sleep blocks for d; nil uses a timer that honors ctx.
	Sleep func(ctx context.Context, d time.Duration) error
	// Rand returns a value in [0, 1); nil uses math/rand/v2.
	Rand func() float64
}

// NewBackoff creates a Backoff with the default sleeper and jitter source.
func NewBackoff(cfg BackoffConfig, provider string, logger *slog.Logger) *Backoff {
	return &Backoff{Config: cfg, Provider: provider, Logger: logger}
}

// Do runs send up to MaxRetries+1 times.
func (b *Backoff) Do(ctx context.Context, send SendFunc) (*Response, error) {
	total := b.Config.MaxRetries + 1
	var lastErr error

	for attempt := 0; attempt < total; attempt++ {
		b.logger().Info("API request attempt", "attempt", attempt+1, "max", total)

		start := time.Now()
		resp, err := send(ctx)
		metrics.APILatency.WithLabelValues(b.Provider).Observe(time.Since(start).Seconds())

		outcome := Classify(err)
		metrics.APIAttemptsTotal.WithLabelValues(b.Provider, outcome.String()).Inc()

		switch outcome {
		case OutcomeSuccess:
			b.logger().Info("API request successful")
			return resp, nil
		case OutcomePermanent:
			b.logger().Error("API request failed with non-rate-limit error", "error", err)
			return nil, err
		}

		lastErr = err
		if attempt == total-1 {
			break
		}

		delay := b.Delay(attempt)
		b.logger().Warn("Rate limit hit, backing off",
			"delay", delay.Round(100*time.Millisecond).String(),
			"next_attempt", attempt+2,
			"error", err,
		)
		metrics.BackoffDelay.Observe(delay.Seconds())
		if err := b.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	b.logger().Error("Rate limit exceeded", "attempts", total)
	return nil, fmt.Errorf("%w (%d attempts): %w", ErrRetriesExhausted, total, lastErr)
}

// Delay returns the wait before the retry following the given zero-based attempt.
func (b *Backoff) Delay(attempt int) time.Duration {
	delay := calculateBackoff(attempt, b.Config)
	u := rand.Float64()
	if b.Rand != nil {
		u = b.Rand()
	}
	factor := b.Config.JitterMin + u*(b.Config.JitterMax-b.Config.JitterMin)
	return delay + time.Duration(float64(delay)*factor)
}

func calculateBackoff(attempt int, config BackoffConfig) time.Duration {
	delay := float64(config.BaseDelay) * math.Pow(2, float64(attempt))
	if delay > float64(config.MaxDelay) {
		delay = float64(config.MaxDelay)
	}
	return time.Duration(delay)
}

func (b *Backoff) sleep(ctx context.Context, d time.Duration) error {
	if b.Sleep != nil {
		return b.Sleep(ctx, d)
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (b *Backoff) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.Default()
	}
	return b.Logger
}
