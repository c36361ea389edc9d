package llm

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// RetryConfig holds retry configuration for stream opens.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts per request.
	MaxAttempts int

	// BackoffBase is the initial backoff duration.
	BackoffBase time.Duration

	// BackoffMultiplier is applied to backoff on each retry.
	BackoffMultiplier float64

	// MaxBackoff caps the maximum backoff duration.
	MaxBackoff time.Duration
}

// DefaultRetryConfig returns sensible retry defaults.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       2 * time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        30 * time.Second,
	}
}

// RetryProvider wraps a StreamProvider and retries OpenStream on
// transient failures (rate limits, upstream overload). Fatal errors and
// cancellation surface immediately. Only the open is retried; once a
// stream is flowing, a mid-stream failure is the caller's to handle.
type RetryProvider struct {
	inner  StreamProvider
	cfg    RetryConfig
	logger *slog.Logger
}

// NewRetryProvider wraps inner with retry-on-transient behavior.
func NewRetryProvider(inner StreamProvider, cfg RetryConfig, logger *slog.Logger) *RetryProvider {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &RetryProvider{inner: inner, cfg: cfg, logger: logger}
}

// Name returns the wrapped provider's identifier.
func (r *RetryProvider) Name() string {
	return r.inner.Name()
}

// OpenStream opens the wrapped provider's stream, retrying transient
// failures with exponential backoff.
func (r *RetryProvider) OpenStream(ctx context.Context, req StreamRequest) (io.ReadCloser, error) {
	backoff := r.cfg.BackoffBase

	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		body, err := r.inner.OpenStream(ctx, req)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !IsTransient(err) || attempt == r.cfg.MaxAttempts {
			return nil, err
		}

		r.logger.Warn("Transient stream failure, retrying",
			"provider", r.inner.Name(),
			"attempt", attempt,
			"backoff", backoff,
			"error", err)

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		backoff = time.Duration(float64(backoff) * r.cfg.BackoffMultiplier)
		if backoff > r.cfg.MaxBackoff {
			backoff = r.cfg.MaxBackoff
		}
	}
	return nil, lastErr
}
