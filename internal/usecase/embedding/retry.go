package embedding

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ragdex/internal/domain"
)

// Retry defaults for provider calls.
const (
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = 200 * time.Millisecond
	DefaultRetryMaxDelay = 2 * time.Second
)

// RetryConfig bounds the retry loop around provider calls.
type RetryConfig struct {
	Attempts uint
	Delay    time.Duration
	MaxDelay time.Duration
}

// withDefaults fills zero fields so a partially configured policy stays sane.
func (c RetryConfig) withDefaults() RetryConfig {
	if c.Attempts == 0 {
		c.Attempts = DefaultRetryAttempts
	}
	if c.Delay <= 0 {
		c.Delay = DefaultRetryDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = DefaultRetryMaxDelay
	}
	return c
}

// RetryEmbedder retries failed provider calls with exponential backoff.
// It wraps only the external boundary: context cancellation is never
// retried, and in-process callers further up the chain see a single error.
type RetryEmbedder struct {
	inner  domain.Embedder
	cfg    RetryConfig
	logger *zap.Logger
}

// NewRetryEmbedder wraps an embedder with a bounded retry policy.
func NewRetryEmbedder(inner domain.Embedder, cfg RetryConfig, logger *zap.Logger) *RetryEmbedder {
	return &RetryEmbedder{inner: inner, cfg: cfg.withDefaults(), logger: logger}
}

// Embed retries the inner call on transient failure.
func (r *RetryEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return retry.DoWithData(
		func() (domain.EmbeddingResult, error) {
			return r.inner.Embed(ctx, text)
		},
		r.options(ctx, "embed")...,
	)
}

// BatchEmbed retries the whole batch on transient failure. Partial results
// are never kept: a retried batch starts from scratch.
func (r *RetryEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}
	return retry.DoWithData(
		func() (domain.BatchEmbeddingResult, error) {
			if be, ok := r.inner.(domain.BatchEmbedder); ok {
				return be.BatchEmbed(ctx, texts)
			}
			return domain.BatchFallback(ctx, r.inner, texts)
		},
		r.options(ctx, "batch_embed")...,
	)
}

func (r *RetryEmbedder) options(ctx context.Context, op string) []retry.Option {
	return []retry.Option{
		retry.Context(ctx),
		retry.Attempts(r.cfg.Attempts),
		retry.Delay(r.cfg.Delay),
		retry.MaxDelay(r.cfg.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(IsRetryable),
		retry.OnRetry(func(n uint, err error) {
			r.logger.Warn("Retrying embedding request",
				zap.String("op", op),
				zap.Uint("attempt", n+1),
				zap.Error(err),
			)
		}),
	}
}

// IsRetryable reports whether a provider error is worth another attempt.
// Context cancellation and deadline expiry are never retried.
func IsRetryable(err error) bool {
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}
