package billing

import "errors"

var (
	// ErrStoreRequired is returned when Handlers are constructed without a
	// subscription store.
	ErrStoreRequired = errors.New("billing: subscription store is required")

	// ErrProviderRequired is returned when Handlers are constructed
	// without a payment provider.
	ErrProviderRequired = errors.New("billing: payment provider is required")

	// ErrReferralServiceRequired is returned when Handlers are constructed
	// without a referral service.
	ErrReferralServiceRequired = errors.New("billing: referral service is required")

	// ErrCatalogRequired is returned when Handlers are constructed without
	// a plan catalog.
	ErrCatalogRequired = errors.New("billing: plan catalog is required")
)
