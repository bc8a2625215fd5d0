package lockout

import (
	"context"
	"time"
)

// Config controls the lockout policy: Threshold consecutive failures
// lock the account for Duration.
type Config struct {
	Threshold int           `env:"LOCKOUT_THRESHOLD" envDefault:"5"`
	Duration  time.Duration `env:"LOCKOUT_DURATION" envDefault:"15m"`
}

// Status is the typed denial result auth flows branch on. It carries
// enough detail for client messaging (attempts left, unlock time)
// without exposing store internals.
type Status struct {
	Locked            bool
	FailedAttempts    int
	RemainingAttempts int
	UnlockAt          *time.Time
}

// Record is one tracked account's failure state.
type Record struct {
	Email          string
	FailedAttempts int
	LastAttempt    time.Time
	LockedUntil    *time.Time
}

// Store persists failure counters. RecordFailure must be a single atomic
// upsert: increment the counter (or restart at 1 when a previous lock has
// expired), and set LockedUntil in the same statement when the
// post-increment count reaches the threshold. An active lock's deadline
// must never be extended by further failures.
type Store interface {
	RecordFailure(ctx context.Context, email string, threshold int, lockFor time.Duration) (Record, error)

	// Get returns the record for an email, or ErrNotTracked.
	Get(ctx context.Context, email string) (Record, error)

	// Reset clears the counter and any lock.
	Reset(ctx context.Context, email string) error
}
