package ratelimit

import (
	"context"
	"log/slog"
	"time"
)

// Limiter enforces a count-based sliding log: every allowed request leaves
// a timestamped entry, and a request is admitted only while fewer than
// MaxRequests entries are younger than the window. Unlike fixed buckets
// this has no boundary bursts, at the cost of storing one entry per
// request.
type Limiter struct {
	store Store
	cfg   Config
	log   *slog.Logger
}

// New creates a sliding-window limiter over the given store.
func New(store Store, cfg Config, log *slog.Logger) (*Limiter, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if cfg.MaxRequests <= 0 {
		return nil, ErrInvalidLimit
	}
	if cfg.Window <= 0 {
		return nil, ErrInvalidWindow
	}
	if log == nil {
		log = slog.Default()
	}

	return &Limiter{store: store, cfg: cfg, log: log}, nil
}

// Allow checks and consumes one slot for the given key.
//
// When the store is unreachable the limiter fails open unless configured
// otherwise: the request is admitted and the error is logged, never
// returned. With FailClosed the request is denied and the store error is
// returned for the caller to surface.
func (l *Limiter) Allow(ctx context.Context, key string) (*Result, error) {
	if key == "" {
		return nil, ErrKeyRequired
	}

	now := time.Now()

	take, err := l.store.Take(ctx, key, l.cfg.MaxRequests, l.cfg.Window)
	if err != nil {
		if l.cfg.FailClosed {
			return &Result{
				Allowed: false,
				Limit:   l.cfg.MaxRequests,
				ResetAt: now.Add(l.cfg.Window),
			}, err
		}

		l.log.ErrorContext(ctx, "rate limit store unavailable, failing open",
			slog.String("key", key),
			slog.String("error", err.Error()))
		return &Result{
			Allowed:   true,
			Limit:     l.cfg.MaxRequests,
			Remaining: l.cfg.MaxRequests - 1,
			ResetAt:   now.Add(l.cfg.Window),
		}, nil
	}

	if !take.Allowed {
		// The window frees up when the oldest surviving entry expires.
		resetAt := take.Oldest.Add(l.cfg.Window)
		if take.Oldest.IsZero() {
			resetAt = now.Add(l.cfg.Window)
		}
		return &Result{
			Allowed: false,
			Limit:   l.cfg.MaxRequests,
			ResetAt: resetAt,
		}, nil
	}

	return &Result{
		Allowed:   true,
		Limit:     l.cfg.MaxRequests,
		Remaining: max(0, l.cfg.MaxRequests-int(take.Count)-1),
		ResetAt:   now.Add(l.cfg.Window),
	}, nil
}
