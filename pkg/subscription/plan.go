package subscription

import (
	"fmt"
	"time"
)

// Plan describes a pricing tier. PriceID is the processor's price id for
// the standard rate; DiscountedPriceID is the rate charged while referral
// months remain. Free plans leave both empty.
type Plan struct {
	Tier              Tier            `yaml:"tier"`
	Name              string          `yaml:"name"`
	MinutesPerPeriod  int             `yaml:"minutes_per_period"`
	TrialDays         int             `yaml:"trial_days"`
	Price             Money           `yaml:"price"`
	Interval          BillingInterval `yaml:"interval"`
	PriceID           string          `yaml:"price_id"`
	DiscountedPriceID string          `yaml:"discounted_price_id"`
}

// TrialEndsAt calculates when a trial started at the given time ends.
func (p Plan) TrialEndsAt(startedAt time.Time) time.Time {
	if p.TrialDays <= 0 {
		return startedAt
	}
	return startedAt.AddDate(0, 0, p.TrialDays).UTC()
}

// Catalog holds all plans, indexed by tier. Loaded once at startup and
// read-only afterwards.
type Catalog map[Tier]Plan

// ByTier returns the plan for a tier.
func (c Catalog) ByTier(tier Tier) (Plan, error) {
	plan, ok := c[tier]
	if !ok {
		return Plan{}, fmt.Errorf("%w: tier %q", ErrPlanNotFound, tier)
	}
	return plan, nil
}

// ByPriceID resolves a processor price id (standard or discounted) to its
// plan. Webhook handlers use this to derive the tier from the processor's
// authoritative state.
func (c Catalog) ByPriceID(priceID string) (Plan, error) {
	if priceID == "" {
		return Plan{}, fmt.Errorf("%w: empty price id", ErrPlanNotFound)
	}
	for _, plan := range c {
		if plan.PriceID == priceID || plan.DiscountedPriceID == priceID {
			return plan, nil
		}
	}
	return Plan{}, fmt.Errorf("%w: price id %q", ErrPlanNotFound, priceID)
}

// Validate catches catalog misconfiguration at startup.
func (c Catalog) Validate() error {
	if len(c) == 0 {
		return fmt.Errorf("%w: no plans", ErrInvalidCatalog)
	}
	if _, ok := c[TierFree]; !ok {
		return fmt.Errorf("%w: free tier is required", ErrInvalidCatalog)
	}
	for tier, plan := range c {
		if plan.Tier != tier {
			return fmt.Errorf("%w: key %q != plan tier %q", ErrInvalidCatalog, tier, plan.Tier)
		}
		if plan.MinutesPerPeriod < 0 {
			return fmt.Errorf("%w: tier %q has negative minutes", ErrInvalidCatalog, tier)
		}
		paid := plan.Interval == BillingIntervalMonthly || plan.Interval == BillingIntervalAnnual
		if paid && plan.PriceID == "" {
			return fmt.Errorf("%w: paid tier %q has no price id", ErrInvalidCatalog, tier)
		}
	}
	return nil
}
