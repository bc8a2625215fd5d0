package usage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/isaacmorgado/splice-core/pkg/subscription"
)

// Meter enforces and records quota consumption against the plan catalog.
type Meter struct {
	store   Store
	subs    subscription.Store
	catalog subscription.Catalog
	log     *slog.Logger
}

// Option configures a Meter.
type Option func(*Meter)

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(m *Meter) {
		if log != nil {
			m.log = log
		}
	}
}

// NewMeter creates a usage meter over the given ledger store,
// subscription store, and plan catalog.
func NewMeter(store Store, subs subscription.Store, catalog subscription.Catalog, opts ...Option) (*Meter, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if subs == nil {
		return nil, ErrSubscriptionStoreRequired
	}
	if err := catalog.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogRequired, err)
	}

	m := &Meter{
		store:   store,
		subs:    subs,
		catalog: catalog,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// Check reports the user's current quota without consuming anything.
func (m *Meter) Check(ctx context.Context, userID uuid.UUID) (Quota, error) {
	sub, err := m.subs.Get(ctx, userID)
	if err != nil {
		return Quota{}, fmt.Errorf("load subscription: %w", err)
	}
	return m.quota(sub, sub.MinutesUsed)
}

// Track charges minutes against the user's quota. The charge always
// lands, even past the limit; callers gate work on Check beforehand, and
// the returned quota reflects the post-charge state.
func (m *Meter) Track(ctx context.Context, userID uuid.UUID, feature Feature, minutes int) (Quota, error) {
	if minutes <= 0 {
		return Quota{}, ErrInvalidMinutes
	}
	return m.apply(ctx, userID, feature, minutes)
}

// Refund returns minutes to the user's quota, for work that failed after
// being charged. The counter floors at zero even if the ledger sum goes
// negative, so over-refunding can never mint extra quota.
func (m *Meter) Refund(ctx context.Context, userID uuid.UUID, feature Feature, minutes int) (Quota, error) {
	if minutes <= 0 {
		return Quota{}, ErrInvalidMinutes
	}
	return m.apply(ctx, userID, feature, -minutes)
}

func (m *Meter) apply(ctx context.Context, userID uuid.UUID, feature Feature, delta int) (Quota, error) {
	sub, err := m.subs.Get(ctx, userID)
	if err != nil {
		return Quota{}, fmt.Errorf("load subscription: %w", err)
	}

	newUsed, err := m.store.Apply(ctx, userID, feature, delta)
	if err != nil {
		return Quota{}, fmt.Errorf("apply usage delta: %w", err)
	}

	m.log.DebugContext(ctx, "usage delta applied",
		slog.String("user_id", userID.String()),
		slog.String("feature", string(feature)),
		slog.Int("minutes", delta),
		slog.Int("used", newUsed),
	)

	return m.quota(sub, newUsed)
}

func (m *Meter) quota(sub *subscription.Subscription, used int) (Quota, error) {
	plan, err := m.catalog.ByTier(sub.Tier)
	if err != nil {
		return Quota{}, err
	}

	limit := plan.MinutesPerPeriod
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}

	percent := 100
	if limit > 0 {
		percent = used * 100 / limit
		if percent > 100 {
			percent = 100
		}
	}

	return Quota{
		Allowed:     sub.IsActive() && !sub.IsTrialExpired(time.Now()) && used < limit,
		Remaining:   remaining,
		Limit:       limit,
		Used:        used,
		Tier:        string(sub.Tier),
		PercentUsed: percent,
	}, nil
}
