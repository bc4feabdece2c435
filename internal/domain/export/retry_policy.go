package export

import (
	"fmt"
	"time"
)

const (
	maxRetryAttempts  = 10
	maxBackoffSeconds = 86400
)

// RetryPolicy controls how failed deliveries of one firing are retried.
// Backoff is fixed: every retry waits BackoffSeconds.
type RetryPolicy struct {
	Enabled        bool `json:"enabled"`
	MaxAttempts    int  `json:"maxAttempts"`
	BackoffSeconds int  `json:"backoffSeconds"`
}

// Validate checks attempt and backoff bounds. A disabled policy only needs
// non-negative values.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 0 || p.BackoffSeconds < 0 {
		return ErrInvalidRetryPolicy.WithMessage("retry values cannot be negative")
	}
	if !p.Enabled {
		return nil
	}
	if p.MaxAttempts < 1 || p.MaxAttempts > maxRetryAttempts {
		return ErrInvalidRetryPolicy.WithMessage(
			fmt.Sprintf("maxAttempts must be between 1 and %d", maxRetryAttempts))
	}
	if p.BackoffSeconds > maxBackoffSeconds {
		return ErrInvalidRetryPolicy.WithMessage(
			fmt.Sprintf("backoffSeconds cannot exceed %d", maxBackoffSeconds))
	}
	return nil
}

// AllowsRetryAfter reports whether a failed attempt may be followed by another
func (p RetryPolicy) AllowsRetryAfter(attempt int) bool {
	return p.Enabled && attempt < p.MaxAttempts
}

// Backoff returns the fixed delay before the next attempt
func (p RetryPolicy) Backoff() time.Duration {
	return time.Duration(p.BackoffSeconds) * time.Second
}
