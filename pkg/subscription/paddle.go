package subscription

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
	"github.com/google/uuid"
)

// PaddleConfig holds configuration for the Paddle billing provider.
type PaddleConfig struct {
	APIKey        string `env:"PADDLE_API_KEY,required"`
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET,required"`
	Environment   string `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
}

// PaddleProvider implements Provider for Paddle Billing.
type PaddleProvider struct {
	client   *paddle.SDK
	verifier *paddle.WebhookVerifier
}

func NewPaddleProvider(cfg PaddleConfig) (*PaddleProvider, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if cfg.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}

	var client *paddle.SDK
	var err error
	switch strings.ToLower(cfg.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(cfg.APIKey)
	case "production", "":
		client, err = paddle.New(cfg.APIKey)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidEnvironment, cfg.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("create paddle client: %w", err)
	}

	return &PaddleProvider{
		client:   client,
		verifier: paddle.NewWebhookVerifier(cfg.WebhookSecret),
	}, nil
}

// ParseWebhook verifies the Paddle-Signature header value against the raw
// payload and normalizes the event envelope.
func (p *PaddleProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*ProviderEvent, error) {
	// The SDK verifier consumes an *http.Request, so wrap the raw payload.
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build verification request: %w", err)
	}
	req.Header.Set("Paddle-Signature", signature)

	valid, err := p.verifier.Verify(req)
	if err != nil {
		return nil, errors.Join(ErrWebhookVerificationFailed, err)
	}
	if !valid {
		return nil, ErrWebhookVerificationFailed
	}

	var envelope struct {
		EventID   string         `json:"event_id"`
		EventType string         `json:"event_type"`
		Data      map[string]any `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("parse webhook payload: %w", err)
	}

	event := &ProviderEvent{
		ID:            envelope.EventID,
		Type:          mapPaddleEventType(envelope.EventType),
		ProviderEvent: envelope.EventType,
		Raw:           payload,
	}

	data := envelope.Data
	if id, ok := data["id"].(string); ok {
		event.SubscriptionID = id
	}
	// Transactions reference their subscription separately.
	if subID, ok := data["subscription_id"].(string); ok && subID != "" {
		event.SubscriptionID = subID
	}
	if status, ok := data["status"].(string); ok {
		event.Status = status
	}
	if customData, ok := data["custom_data"].(map[string]any); ok {
		if raw, ok := customData["user_id"].(string); ok {
			if userID, err := uuid.Parse(raw); err == nil {
				event.UserID = userID
			}
		}
	}
	if items, ok := data["items"].([]any); ok && len(items) > 0 {
		if item, ok := items[0].(map[string]any); ok {
			if price, ok := item["price"].(map[string]any); ok {
				if priceID, ok := price["id"].(string); ok {
					event.PriceID = priceID
				}
			}
			if priceID, ok := item["price_id"].(string); ok {
				event.PriceID = priceID
			}
		}
	}
	event.PeriodEnd = parsePaddlePeriodEnd(data, "current_billing_period")
	event.InvoicePeriodEnd = parsePaddlePeriodEnd(data, "billing_period")
	if event.InvoicePeriodEnd == nil {
		event.InvoicePeriodEnd = event.PeriodEnd
	}

	return event, nil
}

// RetrieveSubscription fetches the processor's authoritative state.
func (p *PaddleProvider) RetrieveSubscription(ctx context.Context, providerSubID string) (*ProviderSubscription, error) {
	sub, err := p.client.SubscriptionsClient.GetSubscription(ctx, &paddle.GetSubscriptionRequest{
		SubscriptionID: providerSubID,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieve paddle subscription %s: %w", providerSubID, err)
	}

	out := &ProviderSubscription{
		ID:     sub.ID,
		Status: string(sub.Status),
	}
	if len(sub.Items) > 0 {
		out.PriceID = sub.Items[0].Price.ID
	}
	if sub.CurrentBillingPeriod != nil {
		if endsAt, err := time.Parse(time.RFC3339, sub.CurrentBillingPeriod.EndsAt); err == nil {
			out.PeriodEnd = &endsAt
		}
	}
	return out, nil
}

// UpdateSubscriptionPrice moves the subscription onto a different catalog
// price. Used when referral months run out and the discounted rate ends.
func (p *PaddleProvider) UpdateSubscriptionPrice(ctx context.Context, providerSubID, priceID string) error {
	item := paddle.NewUpdateSubscriptionItemsSubscriptionUpdateItemFromCatalog(&paddle.SubscriptionUpdateItemFromCatalog{
		PriceID:  priceID,
		Quantity: 1,
	})

	_, err := p.client.SubscriptionsClient.UpdateSubscription(ctx, &paddle.UpdateSubscriptionRequest{
		SubscriptionID:       providerSubID,
		Items:                paddle.NewPatchField([]paddle.UpdateSubscriptionItems{*item}),
		ProrationBillingMode: paddle.NewPatchField(paddle.ProrationBillingModeProratedNextBillingPeriod),
	})
	if err != nil {
		return fmt.Errorf("update paddle subscription %s price: %w", providerSubID, err)
	}
	return nil
}

func mapPaddleEventType(paddleEvent string) string {
	switch paddleEvent {
	case "transaction.completed":
		return EventCheckoutCompleted
	case "subscription.updated":
		return EventSubscriptionUpdated
	case "subscription.canceled":
		return EventSubscriptionDeleted
	case "transaction.paid":
		return EventInvoicePaid
	case "transaction.payment_failed":
		return EventPaymentFailed
	default:
		// Unmapped events keep their provider name; the engine ignores
		// types without a registered handler.
		return paddleEvent
	}
}

func parsePaddlePeriodEnd(data map[string]any, key string) *time.Time {
	period, ok := data[key].(map[string]any)
	if !ok {
		return nil
	}
	raw, ok := period["ends_at"].(string)
	if !ok {
		return nil
	}
	endsAt, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil
	}
	return &endsAt
}
