package referral

import "errors"

var (
	// ErrCodeNotFound is returned when a referral code does not exist.
	ErrCodeNotFound = errors.New("referral: code not found")

	// ErrCodeExhausted is returned when a code has no uses remaining.
	ErrCodeExhausted = errors.New("referral: code has no uses remaining")

	// ErrSelfReferral is returned when a user tries to redeem their own code.
	ErrSelfReferral = errors.New("referral: cannot redeem own code")

	// ErrAlreadyRedeemed is returned when a user who already redeemed a
	// code, any code, tries to redeem another.
	ErrAlreadyRedeemed = errors.New("referral: user already redeemed a code")

	// ErrStoreRequired is returned when a Service is constructed without a store.
	ErrStoreRequired = errors.New("referral: store is required")

	// ErrSubscriptionStoreRequired is returned when a Service is constructed
	// without a subscription store.
	ErrSubscriptionStoreRequired = errors.New("referral: subscription store is required")
)
