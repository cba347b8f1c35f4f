// Package embedding holds what the embedding provider adapters share:
// failure classification into retryable and non-retryable errors.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// StatusError classifies an HTTP status returned by a provider.
// 429 and 5xx are transient; every other 4xx is fatal.
func StatusError(provider string, status int, message string) error {
	kind := domain.ErrFatal
	if status == http.StatusTooManyRequests || status >= http.StatusInternalServerError {
		kind = domain.ErrTransient
	}
	if message == "" {
		message = http.StatusText(status)
	}
	return fmt.Errorf("%s: status %d: %s: %w", provider, status, message, kind)
}

// TransportError classifies an error raised before a status was received.
// Network failures and timeouts are transient. Caller cancellation is
// returned unwrapped so it is never retried.
func TransportError(provider string, err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", provider, err)
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.As(err, &netErr) {
		return fmt.Errorf("%s: %w: %w", provider, err, domain.ErrTransient)
	}
	return fmt.Errorf("%s: %w: %w", provider, err, domain.ErrFatal)
}

// EmptyResponse is the fatal error for a response without a usable vector.
func EmptyResponse(provider string) error {
	return fmt.Errorf("%s: empty embedding in response: %w", provider, domain.ErrFatal)
}

// ToFloat32 narrows a float64 vector.
func ToFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}
