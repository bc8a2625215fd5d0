package subscription

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Provider abstracts the payment processor. The core consumes three
// operations: webhook verification/normalization, reading a
// subscription's authoritative state, and moving a subscription between
// price points during referral-discount transitions.
type Provider interface {
	// ParseWebhook verifies the signature and normalizes the payload.
	// Returns ErrWebhookVerificationFailed on a bad signature.
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*ProviderEvent, error)

	// RetrieveSubscription fetches the processor's current view of a
	// subscription.
	RetrieveSubscription(ctx context.Context, providerSubID string) (*ProviderSubscription, error)

	// UpdateSubscriptionPrice moves a subscription to a different price id.
	UpdateSubscriptionPrice(ctx context.Context, providerSubID, priceID string) error
}

// Normalized event types produced by ParseWebhook and dispatched by the
// event engine.
const (
	EventCheckoutCompleted   = "checkout.completed"
	EventSubscriptionUpdated = "subscription.updated"
	EventSubscriptionDeleted = "subscription.deleted"
	EventInvoicePaid         = "invoice.paid"
	EventPaymentFailed       = "payment.failed"
)

// ProviderEvent is a processor notification normalized to the fields the
// handlers need. Raw keeps the original payload for retry storage.
type ProviderEvent struct {
	ID            string // processor's unique event id, dedupe key
	Type          string // normalized type, one of the Event* constants
	ProviderEvent string // original processor event name

	UserID           uuid.UUID
	SubscriptionID   string
	Status           string
	PriceID          string
	PeriodEnd        *time.Time
	InvoicePeriodEnd *time.Time

	Raw []byte
}

// ProviderSubscription is the processor's authoritative subscription
// state, consulted when a checkout completes.
type ProviderSubscription struct {
	ID        string
	Status    string
	PriceID   string
	PeriodEnd *time.Time
}
