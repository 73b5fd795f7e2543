package transport

import (
	"context"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/rxtech-lab/tide-trading/pkg/errors"
)

const (
	// DefaultMaxAttempts is the default attempt cap for Retry.
	DefaultMaxAttempts = 3
	// DefaultInitialDelay is the default delay before the second attempt.
	DefaultInitialDelay = 500 * time.Millisecond
)

// transientStatusCodes are the server-side statuses worth retrying.
var transientStatusCodes = map[int]bool{
	500: true,
	502: true,
	503: true,
	504: true,
}

// IsTransient reports whether a failure is worth retrying: timeouts,
// retryable 5xx statuses, and transport-level network faults. Everything
// else (4xx, malformed responses, validation failures) is permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return transientStatusCodes[statusErr.StatusCode]
	}

	if errors.HasCode(err, errors.ErrCodeNetworkTransport) {
		return true
	}

	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}

// Retry re-invokes operation up to maxAttempts times, backing off purely
// exponentially (initialDelay, initialDelay*2, ...) with no jitter. Only
// transient failures are retried; permanent failures propagate after a
// single call. A transient failure that survives the attempt cap is wrapped
// with ErrCodeRetryExhausted.
func Retry[T any](operation func() (T, error), maxAttempts int, initialDelay time.Duration) (T, error) {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = initialDelay
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	policy.MaxInterval = initialDelay * time.Duration(1<<uint(maxAttempts))
	policy.MaxElapsedTime = 0

	classified := func() (T, error) {
		result, err := operation()
		if err != nil && !IsTransient(err) {
			return result, backoff.Permanent(err)
		}

		return result, err
	}

	result, err := backoff.RetryWithData(classified, backoff.WithMaxRetries(policy, uint64(maxAttempts-1)))
	if err != nil {
		if IsTransient(err) {
			return result, errors.Wrapf(errors.ErrCodeRetryExhausted, err, "gave up after %d attempts", maxAttempts)
		}

		return result, err
	}

	return result, nil
}

// RetryingClient wraps a Client so transient failures are retried
// automatically before surfacing to the exchange clients.
type RetryingClient struct {
	client       *Client
	maxAttempts  int
	initialDelay time.Duration
}

// NewRetryingClient wraps client with the default retry policy.
func NewRetryingClient(client *Client) *RetryingClient {
	return &RetryingClient{
		client:       client,
		maxAttempts:  DefaultMaxAttempts,
		initialDelay: DefaultInitialDelay,
	}
}

// Get issues a GET through the retry policy.
func (c *RetryingClient) Get(ctx context.Context, url string) ([]byte, error) {
	return Retry(func() ([]byte, error) {
		return c.client.Get(ctx, url)
	}, c.maxAttempts, c.initialDelay)
}

// Send issues the request through the retry policy.
func (c *RetryingClient) Send(ctx context.Context, req Request) ([]byte, error) {
	return Retry(func() ([]byte, error) {
		return c.client.Send(ctx, req)
	}, c.maxAttempts, c.initialDelay)
}
