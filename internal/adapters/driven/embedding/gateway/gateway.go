// Package gateway wraps an embedding provider with the policies every caller
// relies on: a per-call timeout, bounded retries with exponential backoff for
// transient failures, optional request pacing, and a dimension lock.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
	"github.com/custodia-labs/sercha-rag/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-rag/internal/logger"
	"github.com/custodia-labs/sercha-rag/internal/metrics"
)

// Ensure Gateway implements the interface.
var _ driven.EmbeddingService = (*Gateway)(nil)

// Default retry policy.
const (
	DefaultBaseDelay = 200 * time.Millisecond
	DefaultMaxDelay  = 5 * time.Second
)

// Config holds the gateway policies.
type Config struct {
	// Provider labels metrics (e.g. "ollama").
	Provider string

	// Timeout bounds a single attempt. Zero uses domain.DefaultEmbedTimeout.
	Timeout time.Duration

	// MaxAttempts is the total number of tries for a transient failure.
	// Zero uses domain.DefaultMaxAttempts.
	MaxAttempts int

	// BaseDelay and MaxDelay shape the exponential backoff between attempts.
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// RequestsPerSecond paces provider calls. Zero disables pacing.
	RequestsPerSecond float64

	// Dimensions declares the expected vector size. Zero defers to the
	// provider, and then to the first vector observed.
	Dimensions int
}

// Gateway decorates an EmbeddingService.
type Gateway struct {
	inner   driven.EmbeddingService
	cfg     Config
	limiter *rate.Limiter
	dim     atomic.Int64
}

// New wraps inner with the given policies.
func New(inner driven.EmbeddingService, cfg Config) *Gateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = domain.DefaultEmbedTimeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = domain.DefaultMaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = DefaultBaseDelay
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = DefaultMaxDelay
	}
	if cfg.Provider == "" {
		cfg.Provider = "unknown"
	}

	g := &Gateway{inner: inner, cfg: cfg}
	if cfg.RequestsPerSecond > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	dim := cfg.Dimensions
	if dim == 0 {
		dim = inner.Dimensions()
	}
	g.dim.Store(int64(dim))

	return g
}

// Embed generates a vector for text, retrying transient failures.
func (g *Gateway) Embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32
	err := g.do(ctx, func(callCtx context.Context) error {
		v, err := g.inner.Embed(callCtx, text)
		if err != nil {
			return err
		}
		if err := g.check(v); err != nil {
			return err
		}
		vec = v
		return nil
	})
	return vec, err
}

// EmbedBatch generates vectors for texts, retrying the whole batch on transient failures.
func (g *Gateway) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var vecs [][]float32
	err := g.do(ctx, func(callCtx context.Context) error {
		out, err := g.inner.EmbedBatch(callCtx, texts)
		if err != nil {
			return err
		}
		if len(out) != len(texts) {
			return fmt.Errorf("got %d embeddings for %d inputs: %w", len(out), len(texts), domain.ErrFatal)
		}
		for _, v := range out {
			if err := g.check(v); err != nil {
				return err
			}
		}
		vecs = out
		return nil
	})
	return vecs, err
}

// Dimensions returns the locked vector size, or 0 before the first vector.
func (g *Gateway) Dimensions() int {
	return int(g.dim.Load())
}

// ModelName returns the wrapped model name.
func (g *Gateway) ModelName() string {
	return g.inner.ModelName()
}

// Ping checks the provider within one timeout, without retries.
func (g *Gateway) Ping(ctx context.Context) error {
	callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()
	return g.inner.Ping(callCtx)
}

// Close closes the wrapped service.
func (g *Gateway) Close() error {
	return g.inner.Close()
}

// check enforces a non-empty vector of the locked dimension.
// The first vector seen fixes the dimension when none was declared.
func (g *Gateway) check(v []float32) error {
	if len(v) == 0 {
		return fmt.Errorf("empty embedding: %w", domain.ErrFatal)
	}
	g.dim.CompareAndSwap(0, int64(len(v)))
	if want := g.dim.Load(); int64(len(v)) != want {
		return fmt.Errorf("%w: %w: got %d, want %d", domain.ErrFatal, domain.ErrDimensionMismatch, len(v), want)
	}
	return nil
}

func (g *Gateway) do(ctx context.Context, call func(context.Context) error) error {
	model := g.inner.ModelName()

	var err error
	for attempt := 1; attempt <= g.cfg.MaxAttempts; attempt++ {
		if g.limiter != nil {
			if werr := g.limiter.Wait(ctx); werr != nil {
				return werr
			}
		}

		start := time.Now()
		callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
		err = call(callCtx)
		timedOut := errors.Is(callCtx.Err(), context.DeadlineExceeded)
		cancel()

		metrics.EmbeddingRequestDuration.WithLabelValues(g.cfg.Provider, model).Observe(time.Since(start).Seconds())
		if err == nil {
			metrics.EmbeddingRequestsTotal.WithLabelValues(g.cfg.Provider, model, "success").Inc()
			return nil
		}
		metrics.EmbeddingRequestsTotal.WithLabelValues(g.cfg.Provider, model, "error").Inc()

		if ctx.Err() != nil {
			return ctx.Err()
		}

		// A timeout of this attempt alone is retryable whatever the provider reported.
		if timedOut && !errors.Is(err, domain.ErrTransient) {
			err = fmt.Errorf("attempt timed out after %s: %w: %w", g.cfg.Timeout, err, domain.ErrTransient)
		}

		if !errors.Is(err, domain.ErrTransient) {
			metrics.EmbeddingErrorsTotal.WithLabelValues(model, "fatal").Inc()
			return err
		}
		metrics.EmbeddingErrorsTotal.WithLabelValues(model, "transient").Inc()

		if attempt == g.cfg.MaxAttempts {
			break
		}

		delay := g.backoff(attempt)
		logger.Debug("embedding attempt %d/%d failed, retrying in %s: %v", attempt, g.cfg.MaxAttempts, delay, err)
		metrics.EmbeddingRetriesTotal.WithLabelValues(model).Inc()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}

	return fmt.Errorf("giving up after %d attempts: %w", g.cfg.MaxAttempts, err)
}

// backoff returns BaseDelay doubled per failed attempt, capped at MaxDelay.
func (g *Gateway) backoff(attempt int) time.Duration {
	d := g.cfg.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= g.cfg.MaxDelay {
			return g.cfg.MaxDelay
		}
	}
	return min(d, g.cfg.MaxDelay)
}
