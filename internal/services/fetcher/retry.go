package fetcher

import (
	"context"
	"errors"
	"math/rand"
	"net"
	"time"
)

// RetryPolicy defines retry behavior with exponential backoff
type RetryPolicy struct {
	MaxAttempts          int
	InitialBackoff       time.Duration
	MaxBackoff           time.Duration
	BackoffMultiplier    float64
	RetryableStatusCodes []int
}

// NewRetryPolicy creates the default policy for publisher fetches.
func NewRetryPolicy(maxAttempts int, initialBackoff, maxBackoff time.Duration) *RetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &RetryPolicy{
		MaxAttempts:       maxAttempts,
		InitialBackoff:    initialBackoff,
		MaxBackoff:        maxBackoff,
		BackoffMultiplier: 2.0,
		RetryableStatusCodes: []int{
			429, // Too Many Requests
			500, // Internal Server Error
			502, // Bad Gateway
			503, // Service Unavailable
			504, // Gateway Timeout
		},
	}
}

// ShouldRetry checks if an attempt should be retried based on attempt count, status code, and error type
func (p *RetryPolicy) ShouldRetry(attempt int, statusCode int, err error) bool {
	if attempt >= p.MaxAttempts {
		return false
	}

	if statusCode > 0 {
		if p.isRetryableStatusCode(statusCode) {
			return true
		}
		// Remaining 4xx are client errors and never recover on retry.
		if statusCode >= 400 && statusCode < 500 {
			return false
		}
	}

	if err != nil {
		return isRetryableError(err)
	}

	return false
}

// CalculateBackoff calculates the backoff duration with exponential backoff and jitter
func (p *RetryPolicy) CalculateBackoff(attempt int) time.Duration {
	backoff := float64(p.InitialBackoff)
	for i := 0; i < attempt; i++ {
		backoff *= p.BackoffMultiplier
	}
	if backoff > float64(p.MaxBackoff) {
		backoff = float64(p.MaxBackoff)
	}

	// Add jitter (±25%)
	jitter := backoff * 0.25 * (rand.Float64()*2 - 1)
	backoff += jitter

	if backoff < 0 {
		backoff = float64(p.InitialBackoff)
	}

	return time.Duration(backoff)
}

// isRetryableStatusCode checks if a status code is retryable
func (p *RetryPolicy) isRetryableStatusCode(statusCode int) bool {
	for _, code := range p.RetryableStatusCodes {
		if statusCode == code {
			return true
		}
	}
	return false
}

// isRetryableError checks if an error is retryable (timeouts, connection errors, context deadline exceeded)
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	return false
}
