package usage

import "errors"

var (
	// ErrStoreRequired is returned when a Meter is constructed without a store.
	ErrStoreRequired = errors.New("usage: store is required")

	// ErrSubscriptionStoreRequired is returned when a Meter is constructed
	// without a subscription store.
	ErrSubscriptionStoreRequired = errors.New("usage: subscription store is required")

	// ErrCatalogRequired is returned when a Meter is constructed without a
	// plan catalog.
	ErrCatalogRequired = errors.New("usage: plan catalog is required")

	// ErrInvalidMinutes is returned when Track or Refund is called with a
	// non-positive minute amount.
	ErrInvalidMinutes = errors.New("usage: minutes must be positive")
)
