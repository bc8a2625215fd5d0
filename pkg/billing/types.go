package billing

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/isaacmorgado/splice-core/pkg/subscription"
	"github.com/isaacmorgado/splice-core/pkg/webhook"
)

// EventTierUpgrade is the internal reconciliation event type emitted
// when a referral discount ends but the processor price switch failed.
const EventTierUpgrade = "referral.tier_upgrade"

// EventData is the handler-facing payload stored inside a webhook event.
// It carries the normalized provider fields so a retry sees exactly what
// the first attempt saw, without re-verifying a signature.
type EventData struct {
	UserID           uuid.UUID  `json:"user_id"`
	SubscriptionID   string     `json:"subscription_id,omitempty"`
	Status           string     `json:"status,omitempty"`
	PriceID          string     `json:"price_id,omitempty"`
	PeriodEnd        *time.Time `json:"period_end,omitempty"`
	InvoicePeriodEnd *time.Time `json:"invoice_period_end,omitempty"`
}

// NewEvent converts a normalized provider event into the engine's event
// shape, with EventData as the payload.
func NewEvent(pe *subscription.ProviderEvent) (webhook.Event, error) {
	payload, err := json.Marshal(EventData{
		UserID:           pe.UserID,
		SubscriptionID:   pe.SubscriptionID,
		Status:           pe.Status,
		PriceID:          pe.PriceID,
		PeriodEnd:        pe.PeriodEnd,
		InvoicePeriodEnd: pe.InvoicePeriodEnd,
	})
	if err != nil {
		return webhook.Event{}, fmt.Errorf("marshal event data: %w", err)
	}
	return webhook.Event{ID: pe.ID, Type: pe.Type, Payload: payload}, nil
}

func decodeEventData(event webhook.Event) (EventData, error) {
	var data EventData
	if err := json.Unmarshal(event.Payload, &data); err != nil {
		return EventData{}, fmt.Errorf("decode event %s payload: %w", event.ID, err)
	}
	return data, nil
}
