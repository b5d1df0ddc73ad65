package llm

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// RetryConfig bounds transport-level retries for completion requests.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts per request.
	MaxAttempts int

	// BackoffBase is the initial backoff duration.
	BackoffBase time.Duration

	// BackoffMultiplier is applied to the backoff on each retry.
	BackoffMultiplier float64

	// MaxBackoff caps the backoff duration.
	MaxBackoff time.Duration
}

// DefaultRetryConfig returns sensible retry defaults for completion requests.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:       3,
		BackoffBase:       2 * time.Second,
		BackoffMultiplier: 2.0,
		MaxBackoff:        30 * time.Second,
	}
}

type retryingCompleter struct {
	inner Completer
	cfg   RetryConfig
}

// WithRetry wraps a completer with bounded exponential backoff. A context
// cancellation stops retrying immediately.
func WithRetry(inner Completer, cfg RetryConfig) Completer {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.BackoffMultiplier <= 0 {
		cfg.BackoffMultiplier = 1
	}
	return &retryingCompleter{inner: inner, cfg: cfg}
}

func (r *retryingCompleter) Complete(ctx context.Context, req Request) (Response, error) {
	backoff := r.cfg.BackoffBase
	var lastErr error
	for attempt := 1; attempt <= r.cfg.MaxAttempts; attempt++ {
		resp, err := r.inner.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if attempt == r.cfg.MaxAttempts {
			break
		}
		log.Warn().Err(err).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("llm request failed, retrying")
		select {
		case <-ctx.Done():
			return Response{}, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = time.Duration(float64(backoff) * r.cfg.BackoffMultiplier)
		if r.cfg.MaxBackoff > 0 && backoff > r.cfg.MaxBackoff {
			backoff = r.cfg.MaxBackoff
		}
	}
	return Response{}, lastErr
}
