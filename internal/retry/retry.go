// Package retry runs storage calls with exponential backoff and jitter.
package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/smithy-go"
	"google.golang.org/api/googleapi"
)

const (
	defaultMaxRetries = 5
	defaultBaseDelay  = 100 * time.Millisecond
	defaultMaxDelay   = 30 * time.Second
)

// Policy controls retries. The zero value uses the defaults.
type Policy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	// Retryable classifies errors. Defaults to IsRetryable.
	Retryable func(error) bool
}

// Default is five retries starting at 100ms, capped at 30s.
func Default() Policy {
	return Policy{
		MaxRetries: defaultMaxRetries,
		BaseDelay:  defaultBaseDelay,
		MaxDelay:   defaultMaxDelay,
		Retryable:  IsRetryable,
	}
}

// None disables retries.
func None() Policy {
	return Policy{MaxRetries: -1}
}

func (p Policy) withDefaults() Policy {
	if p.MaxRetries == 0 {
		p.MaxRetries = defaultMaxRetries
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = defaultBaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = defaultMaxDelay
	}
	if p.Retryable == nil {
		p.Retryable = IsRetryable
	}
	return p
}

// Do calls fn until it succeeds, returns a non-retryable error, or the
// retries run out. It stops early when ctx is done.
func Do(ctx context.Context, p Policy, fn func(ctx context.Context) error) error {
	p = p.withDefaults()

	retries := max(p.MaxRetries, 0)
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || !p.Retryable(err) {
			return err
		}
		if attempt >= retries {
			if retries == 0 {
				return err
			}
			return fmt.Errorf("max retries exceeded: %w", err)
		}

		select {
		case <-ctx.Done():
			return err
		case <-time.After(p.delay(attempt)):
		}
	}
}

// delay calculates the retry delay with exponential backoff and ±25% jitter.
func (p Policy) delay(attempt int) time.Duration {
	delay := float64(p.BaseDelay) * math.Pow(2.0, float64(attempt))
	delay += delay * 0.25 * (2*rand.Float64() - 1)
	if delay > float64(p.MaxDelay) {
		delay = float64(p.MaxDelay)
	}
	return time.Duration(delay)
}

// IsRetryable reports throttling, server-side failures, and truncated
// responses from any of the supported SDKs.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "SlowDown", "ServiceUnavailable", "RequestTimeout", "RequestTimeoutException":
			return true
		}
	}

	var v1Err awserr.RequestFailure
	if errors.As(err, &v1Err) {
		return retryableStatus(v1Err.StatusCode())
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		return retryableStatus(gErr.Code)
	}

	var httpErr interface{ HTTPStatusCode() int }
	if errors.As(err, &httpErr) {
		return retryableStatus(httpErr.HTTPStatusCode())
	}

	var respErr interface{ Response() *http.Response }
	if errors.As(err, &respErr) {
		if resp := respErr.Response(); resp != nil {
			return retryableStatus(resp.StatusCode)
		}
	}

	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || (code >= 500 && code < 600)
}
