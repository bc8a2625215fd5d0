package lockout

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Guard tracks failed authentication attempts per account and enforces a
// temporary lockout once the threshold is crossed.
//
// Callers must invoke RecordFailure identically whether or not the email
// maps to an existing account; the guard tracks bare identifiers, so an
// attacker cannot distinguish "wrong password" from "no such account" by
// lockout side effects.
type Guard struct {
	store Store
	cfg   Config
	log   *slog.Logger
}

func NewGuard(store Store, cfg Config, log *slog.Logger) (*Guard, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = 5
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 15 * time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	return &Guard{store: store, cfg: cfg, log: log}, nil
}

// RecordFailure registers one failed attempt and reports the resulting
// state. The store increments and locks in one atomic step, so two
// concurrent failures cannot both observe a pre-threshold count.
func (g *Guard) RecordFailure(ctx context.Context, email string) (Status, error) {
	email = normalize(email)
	if email == "" {
		return Status{}, ErrEmailRequired
	}

	rec, err := g.store.RecordFailure(ctx, email, g.cfg.Threshold, g.cfg.Duration)
	if err != nil {
		return Status{}, err
	}

	status := g.statusOf(rec, time.Now())
	if status.Locked && rec.FailedAttempts == g.cfg.Threshold {
		g.log.WarnContext(ctx, "account locked after repeated failed logins",
			slog.String("email", email),
			slog.Int("failed_attempts", rec.FailedAttempts))
	}
	return status, nil
}

// Check reports whether the account is currently locked. An expired lock
// is cleared lazily here; no background sweep is needed for correctness.
func (g *Guard) Check(ctx context.Context, email string) (Status, error) {
	email = normalize(email)
	if email == "" {
		return Status{}, ErrEmailRequired
	}

	rec, err := g.store.Get(ctx, email)
	if err != nil {
		if err == ErrNotTracked {
			return Status{RemainingAttempts: g.cfg.Threshold}, nil
		}
		return Status{}, err
	}

	now := time.Now()
	if rec.LockedUntil != nil && !rec.LockedUntil.After(now) {
		if err := g.store.Reset(ctx, email); err != nil {
			return Status{}, err
		}
		return Status{RemainingAttempts: g.cfg.Threshold}, nil
	}

	return g.statusOf(rec, now), nil
}

// Clear removes the failure record after a successful authentication.
func (g *Guard) Clear(ctx context.Context, email string) error {
	email = normalize(email)
	if email == "" {
		return ErrEmailRequired
	}
	return g.store.Reset(ctx, email)
}

func (g *Guard) statusOf(rec Record, now time.Time) Status {
	status := Status{
		FailedAttempts:    rec.FailedAttempts,
		RemainingAttempts: max(0, g.cfg.Threshold-rec.FailedAttempts),
	}
	if rec.LockedUntil != nil && rec.LockedUntil.After(now) {
		unlockAt := *rec.LockedUntil
		status.Locked = true
		status.UnlockAt = &unlockAt
	}
	return status
}

func normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
