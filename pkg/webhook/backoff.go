package webhook

import (
	"math"
	"time"
)

// BackoffStrategy calculates retry delays. Implementations must be safe
// for concurrent use.
type BackoffStrategy interface {
	// NextInterval returns the delay before the given attempt.
	// Attempt starts at 1 for the first retry.
	NextInterval(attempt int) time.Duration
}

// ExponentialBackoff doubles the delay on every attempt.
type ExponentialBackoff struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
}

// NextInterval returns min(InitialInterval * Multiplier^(attempt-1), MaxInterval).
func (e ExponentialBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	initial := e.InitialInterval
	if initial == 0 {
		initial = 15 * time.Minute
	}
	max := e.MaxInterval
	if max == 0 {
		max = 24 * time.Hour
	}
	multiplier := e.Multiplier
	if multiplier == 0 {
		multiplier = 2
	}

	interval := float64(initial) * math.Pow(multiplier, float64(attempt-1))
	if interval > float64(max) {
		interval = float64(max)
	}
	return time.Duration(interval)
}

// FixedBackoff returns a constant delay. Tests use it to make retry
// timing deterministic.
type FixedBackoff struct {
	Interval time.Duration
}

func (f FixedBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return f.Interval
}

// DefaultBackoffStrategy is the production schedule: 15 minutes doubling
// per attempt. Payment processors resolve most transient failures within
// an hour, and anything slower is usually an outage worth the wait.
func DefaultBackoffStrategy() BackoffStrategy {
	return ExponentialBackoff{
		InitialInterval: 15 * time.Minute,
		MaxInterval:     24 * time.Hour,
		Multiplier:      2,
	}
}
