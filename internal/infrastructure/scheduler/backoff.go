package scheduler

import "time"

// BackoffStrategy computes the delay before a retry attempt.
// attempt is the number of the attempt that just failed, starting at 1.
type BackoffStrategy interface {
	Delay(attempt int) time.Duration
}

// ConstantBackoff always waits the same interval
type ConstantBackoff struct {
	Interval time.Duration
}

// NewConstantBackoff creates a constant backoff strategy
func NewConstantBackoff(interval time.Duration) ConstantBackoff {
	return ConstantBackoff{Interval: interval}
}

// Delay returns the fixed interval, never negative
func (b ConstantBackoff) Delay(_ int) time.Duration {
	if b.Interval < 0 {
		return 0
	}
	return b.Interval
}
