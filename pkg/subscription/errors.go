package subscription

import "errors"

var (
	ErrNotFound         = errors.New("subscription not found")
	ErrPlanNotFound     = errors.New("subscription plan not found")
	ErrInvalidCatalog   = errors.New("invalid plan catalog")
	ErrStoreRequired    = errors.New("subscription store is required")
	ErrProviderRequired = errors.New("billing provider is required")

	ErrMissingAPIKey             = errors.New("billing provider API key is required")
	ErrMissingWebhookSecret      = errors.New("billing provider webhook secret is required")
	ErrInvalidEnvironment        = errors.New("invalid billing provider environment")
	ErrWebhookVerificationFailed = errors.New("webhook signature verification failed")
)
