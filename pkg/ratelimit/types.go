package ratelimit

import (
	"context"
	"time"
)

// Config describes one limiter surface (login endpoint, webhook endpoint,
// transcription API). Prefix namespaces keys so surfaces never share
// budgets.
type Config struct {
	MaxRequests int           `env:"RATE_LIMIT_MAX_REQUESTS" envDefault:"60"`
	Window      time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	Prefix      string        `env:"RATE_LIMIT_PREFIX" envDefault:"api"`

	// FailClosed denies requests when the store is unreachable. The
	// default fails open: availability is preferred over strict
	// enforcement, and store errors are logged instead of surfaced.
	FailClosed bool `env:"RATE_LIMIT_FAIL_CLOSED" envDefault:"false"`
}

// Result contains the outcome of a rate limit check.
type Result struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns how long to wait before the next request is allowed.
// Returns 0 when the current request was allowed.
func (r *Result) RetryAfter() time.Duration {
	if r.Allowed {
		return 0
	}
	return time.Until(r.ResetAt)
}

// Take is the outcome of one atomic store operation.
type Take struct {
	// Allowed reports whether a new entry was recorded.
	Allowed bool
	// Count is the number of live entries for the key before this call's
	// entry was added.
	Count int64
	// Oldest is the timestamp of the oldest surviving entry. Zero when the
	// window is empty.
	Oldest time.Time
}

// Store implements the sliding log over some backend. One call must
// atomically expire entries older than the window, count the survivors,
// and append a new entry only when the count is below the limit.
type Store interface {
	Take(ctx context.Context, key string, limit int, window time.Duration) (Take, error)
}
