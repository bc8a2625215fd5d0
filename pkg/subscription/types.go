package subscription

// Tier identifies a pricing tier. Tiers map 1:1 to plans in the catalog.
type Tier string

const (
	TierFree    Tier = "free"
	TierCreator Tier = "creator"
	TierStudio  Tier = "studio"
)

// Status is the internal subscription state. Whatever the processor
// reports collapses into these three values.
type Status string

const (
	StatusActive   Status = "active"
	StatusPastDue  Status = "past_due"
	StatusCanceled Status = "canceled"
)

// MapProviderStatus remaps a processor-reported status onto the internal
// set via a fixed table. Unknown statuses map to canceled so a new
// processor state can never silently grant access.
func MapProviderStatus(providerStatus string) Status {
	switch providerStatus {
	case "active", "trialing":
		return StatusActive
	case "past_due":
		return StatusPastDue
	case "canceled", "cancelled", "unpaid":
		return StatusCanceled
	default:
		return StatusCanceled
	}
}

// Money is an amount in the smallest currency unit ($10.99 => 1099 USD).
type Money struct {
	Amount   int64  `yaml:"amount"`
	Currency string `yaml:"currency"`
}

// BillingInterval is the billing frequency for a plan.
type BillingInterval string

const (
	BillingIntervalNone    BillingInterval = "none" // free plans
	BillingIntervalMonthly BillingInterval = "monthly"
	BillingIntervalAnnual  BillingInterval = "annual"
)
