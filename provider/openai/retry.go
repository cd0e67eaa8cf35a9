package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/studyowl/studyowl/provider"
)

const (
	defaultMaxAttempts = 5
	defaultBaseBackoff = 500 * time.Millisecond
)

// withRetry applies the shared retry policy to one outbound provider call.
// Quota-exhaustion signals fail immediately as ErrQuotaExceeded and are never
// retried. Non-quota 429s and 5xx responses are retried up to c.maxAttempts,
// waiting for the provider's Retry-After when present and otherwise doubling
// from c.baseBackoff. Everything else propagates on the first failure.
func withRetry[T any](ctx context.Context, c *Client, op func(context.Context) (T, error)) (T, error) {
	var zero T
	for attempt := 0; ; attempt++ {
		v, err := op(ctx)
		if err == nil {
			return v, nil
		}
		classified, retryable, wait := classify(err, attempt, c.baseBackoff)
		if !retryable || attempt+1 >= c.maxAttempts {
			return zero, classified
		}
		c.logger.Printf("provider call failed (attempt %d/%d), retrying in %s: %v", attempt+1, c.maxAttempts, wait, err)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// classify maps an operation error onto the retry policy.
func classify(err error, attempt int, base time.Duration) (classified error, retryable bool, wait time.Duration) {
	var apiErr *provider.APIError
	if !errors.As(err, &apiErr) {
		return err, false, 0
	}
	if isQuotaError(apiErr) {
		return fmt.Errorf("%w: %s", provider.ErrQuotaExceeded, apiErr.Message), false, 0
	}
	switch {
	case apiErr.Status == http.StatusTooManyRequests:
		if apiErr.RetryAfter > 0 {
			return err, true, time.Duration(apiErr.RetryAfter) * time.Second
		}
		return err, true, base << attempt
	case apiErr.Status >= http.StatusInternalServerError:
		return err, true, base << attempt
	default:
		return err, false, 0
	}
}

// isQuotaError detects the provider's quota-exhaustion signal, which is
// distinct from transient rate limiting and must never be retried.
func isQuotaError(e *provider.APIError) bool {
	if e.Code == "insufficient_quota" {
		return true
	}
	return strings.Contains(strings.ToLower(e.Message), "quota")
}
