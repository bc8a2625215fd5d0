package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/isaacmorgado/splice-core/pkg/referral"
	"github.com/isaacmorgado/splice-core/pkg/subscription"
	"github.com/isaacmorgado/splice-core/pkg/webhook"
)

// Handlers owns the billing-side reactions to processor events.
type Handlers struct {
	subs      subscription.Store
	catalog   subscription.Catalog
	provider  subscription.Provider
	referrals *referral.Service
	log       *slog.Logger

	engine *webhook.Engine
}

// Option configures Handlers.
type Option func(*Handlers)

// WithLogger sets the logger. Defaults to slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(h *Handlers) {
		if log != nil {
			h.log = log
		}
	}
}

func NewHandlers(
	subs subscription.Store,
	catalog subscription.Catalog,
	provider subscription.Provider,
	referrals *referral.Service,
	opts ...Option,
) (*Handlers, error) {
	if subs == nil {
		return nil, ErrStoreRequired
	}
	if err := catalog.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCatalogRequired, err)
	}
	if provider == nil {
		return nil, ErrProviderRequired
	}
	if referrals == nil {
		return nil, ErrReferralServiceRequired
	}

	h := &Handlers{
		subs:      subs,
		catalog:   catalog,
		provider:  provider,
		referrals: referrals,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Register wires every handler onto the engine. The engine is kept so
// the invoice handler can enqueue reconciliation events through the same
// dedupe and retry machinery.
func (h *Handlers) Register(engine *webhook.Engine) {
	h.engine = engine
	engine.Handle(subscription.EventCheckoutCompleted, h.handleCheckoutCompleted)
	engine.Handle(subscription.EventSubscriptionUpdated, h.handleSubscriptionUpdated)
	engine.Handle(subscription.EventSubscriptionDeleted, h.handleSubscriptionDeleted)
	engine.Handle(subscription.EventInvoicePaid, h.handleInvoicePaid)
	engine.Handle(subscription.EventPaymentFailed, h.handlePaymentFailed)
	engine.Handle(EventTierUpgrade, h.handleTierUpgrade)
}

// handleCheckoutCompleted attaches the processor subscription to the
// user. Checkout metadata is not trusted: the subscription is read back
// from the processor and tier, status, and period come from that
// authoritative state.
func (h *Handlers) handleCheckoutCompleted(ctx context.Context, event webhook.Event) error {
	data, err := decodeEventData(event)
	if err != nil {
		return err
	}
	if data.SubscriptionID == "" || data.UserID == uuid.Nil {
		h.log.WarnContext(ctx, "checkout event missing subscription or user id",
			slog.String("event_id", event.ID))
		return nil
	}

	psub, err := h.provider.RetrieveSubscription(ctx, data.SubscriptionID)
	if err != nil {
		return fmt.Errorf("retrieve subscription %s: %w", data.SubscriptionID, err)
	}
	plan, err := h.catalog.ByPriceID(psub.PriceID)
	if err != nil {
		return fmt.Errorf("resolve plan for checkout: %w", err)
	}

	sub, err := h.subs.Get(ctx, data.UserID)
	if errors.Is(err, subscription.ErrNotFound) {
		sub = &subscription.Subscription{UserID: data.UserID}
	} else if err != nil {
		return fmt.Errorf("load subscription: %w", err)
	}

	sub.ProviderSubID = psub.ID
	sub.Tier = plan.Tier
	sub.Status = subscription.MapProviderStatus(psub.Status)
	sub.PeriodEnd = psub.PeriodEnd
	sub.IsTrial = psub.Status == "trialing"
	if sub.IsTrial {
		ends := plan.TrialEndsAt(time.Now())
		sub.TrialEndsAt = &ends
	} else {
		sub.TrialEndsAt = nil
	}

	if err := h.subs.Save(ctx, sub); err != nil {
		return fmt.Errorf("save subscription: %w", err)
	}

	// Referred users start on the discounted rate.
	if sub.OnDiscountedRate() && plan.DiscountedPriceID != "" && psub.PriceID != plan.DiscountedPriceID {
		if err := h.provider.UpdateSubscriptionPrice(ctx, sub.ProviderSubID, plan.DiscountedPriceID); err != nil {
			return fmt.Errorf("apply discounted price: %w", err)
		}
	}

	h.log.InfoContext(ctx, "checkout completed",
		slog.String("user_id", sub.UserID.String()),
		slog.String("tier", string(sub.Tier)),
		slog.String("provider_sub_id", sub.ProviderSubID),
	)
	return nil
}

// handleSubscriptionUpdated remaps the processor's status onto the
// internal set and follows price changes.
func (h *Handlers) handleSubscriptionUpdated(ctx context.Context, event webhook.Event) error {
	data, err := decodeEventData(event)
	if err != nil {
		return err
	}

	sub, err := h.lookup(ctx, data)
	if err != nil {
		return fmt.Errorf("look up subscription: %w", err)
	}

	sub.Status = subscription.MapProviderStatus(data.Status)
	if data.PeriodEnd != nil {
		sub.PeriodEnd = data.PeriodEnd
	}
	if data.PriceID != "" {
		plan, err := h.catalog.ByPriceID(data.PriceID)
		if err != nil {
			h.log.WarnContext(ctx, "update references unknown price id",
				slog.String("price_id", data.PriceID),
				slog.String("event_id", event.ID))
		} else {
			sub.Tier = plan.Tier
		}
	}

	if err := h.subs.Save(ctx, sub); err != nil {
		return fmt.Errorf("save subscription: %w", err)
	}
	return nil
}

// handleSubscriptionDeleted downgrades to the free tier and detaches the
// processor subscription.
func (h *Handlers) handleSubscriptionDeleted(ctx context.Context, event webhook.Event) error {
	data, err := decodeEventData(event)
	if err != nil {
		return err
	}

	sub, err := h.lookup(ctx, data)
	if errors.Is(err, subscription.ErrNotFound) {
		// Nothing to downgrade; the delete may precede any checkout we saw.
		return nil
	}
	if err != nil {
		return fmt.Errorf("look up subscription: %w", err)
	}

	sub.Tier = subscription.TierFree
	sub.Status = subscription.StatusCanceled
	sub.ProviderSubID = ""
	sub.PeriodEnd = nil
	sub.IsTrial = false
	sub.TrialEndsAt = nil

	if err := h.subs.Save(ctx, sub); err != nil {
		return fmt.Errorf("save subscription: %w", err)
	}

	h.log.InfoContext(ctx, "subscription canceled",
		slog.String("user_id", sub.UserID.String()))
	return nil
}

// handleInvoicePaid rolls the billing period forward and burns a
// referral month. The period only advances on a strictly later invoice
// period end, so replays and out-of-order invoices change nothing.
func (h *Handlers) handleInvoicePaid(ctx context.Context, event webhook.Event) error {
	data, err := decodeEventData(event)
	if err != nil {
		return err
	}
	if data.InvoicePeriodEnd == nil {
		return nil
	}

	sub, err := h.lookup(ctx, data)
	if err != nil {
		return fmt.Errorf("look up subscription: %w", err)
	}

	applied, err := h.subs.ResetPeriod(ctx, sub.UserID, *data.InvoicePeriodEnd)
	if err != nil {
		return fmt.Errorf("reset billing period: %w", err)
	}
	if !applied {
		h.log.DebugContext(ctx, "stale invoice ignored",
			slog.String("user_id", sub.UserID.String()),
			slog.String("event_id", event.ID))
		return nil
	}

	reachedZero, err := h.referrals.DecrementMonths(ctx, sub.UserID)
	if err != nil {
		// The period already advanced, so a retry of this event would be
		// stopped by the period guard before reaching the counter. Burn
		// the month on the next invoice instead of failing the event.
		h.log.ErrorContext(ctx, "referral month decrement failed",
			slog.String("user_id", sub.UserID.String()),
			slog.String("error", err.Error()))
		return nil
	}
	if !reachedZero {
		return nil
	}

	plan, err := h.catalog.ByTier(sub.Tier)
	if err != nil || plan.PriceID == "" || sub.ProviderSubID == "" {
		return nil
	}
	if err := h.provider.UpdateSubscriptionPrice(ctx, sub.ProviderSubID, plan.PriceID); err != nil {
		h.log.ErrorContext(ctx, "standard price restore failed, queueing reconciliation",
			slog.String("user_id", sub.UserID.String()),
			slog.String("error", err.Error()))
		h.enqueueTierUpgrade(ctx, sub, *data.InvoicePeriodEnd)
	}
	return nil
}

// handlePaymentFailed marks the subscription past due. Access stays on
// until the processor cancels, matching dunning behavior.
func (h *Handlers) handlePaymentFailed(ctx context.Context, event webhook.Event) error {
	data, err := decodeEventData(event)
	if err != nil {
		return err
	}

	sub, err := h.lookup(ctx, data)
	if err != nil {
		return fmt.Errorf("look up subscription: %w", err)
	}

	sub.Status = subscription.StatusPastDue
	if err := h.subs.Save(ctx, sub); err != nil {
		return fmt.Errorf("save subscription: %w", err)
	}

	h.log.WarnContext(ctx, "payment failed",
		slog.String("user_id", sub.UserID.String()))
	return nil
}

// handleTierUpgrade retries a price switch that failed after the
// referral counter already reached zero.
func (h *Handlers) handleTierUpgrade(ctx context.Context, event webhook.Event) error {
	data, err := decodeEventData(event)
	if err != nil {
		return err
	}

	sub, err := h.subs.Get(ctx, data.UserID)
	if err != nil {
		return fmt.Errorf("look up subscription: %w", err)
	}
	if sub.ProviderSubID == "" {
		// Canceled in the meantime; nothing to switch.
		return nil
	}

	plan, err := h.catalog.ByTier(sub.Tier)
	if err != nil {
		return err
	}
	if plan.PriceID == "" {
		return nil
	}
	if err := h.provider.UpdateSubscriptionPrice(ctx, sub.ProviderSubID, plan.PriceID); err != nil {
		return fmt.Errorf("restore standard price: %w", err)
	}

	h.log.InfoContext(ctx, "standard price restored",
		slog.String("user_id", sub.UserID.String()))
	return nil
}

// enqueueTierUpgrade routes the failed price switch through the engine
// so it inherits dedupe and exponential retry. The event id is derived
// from the user and the period that crossed zero, keeping replays of the
// originating invoice from queueing duplicates.
func (h *Handlers) enqueueTierUpgrade(ctx context.Context, sub *subscription.Subscription, periodEnd time.Time) {
	if h.engine == nil {
		return
	}

	event, err := NewEvent(&subscription.ProviderEvent{
		ID:     fmt.Sprintf("%s:%s:%d", EventTierUpgrade, sub.UserID, periodEnd.Unix()),
		Type:   EventTierUpgrade,
		UserID: sub.UserID,
	})
	if err != nil {
		h.log.ErrorContext(ctx, "failed to build reconciliation event",
			slog.String("error", err.Error()))
		return
	}
	if err := h.engine.Process(ctx, event); err != nil {
		// Process already queued it for retry; the error is expected on
		// the first pass since the provider just failed.
		h.log.WarnContext(ctx, "tier upgrade reconciliation queued",
			slog.String("user_id", sub.UserID.String()),
			slog.String("event_id", event.ID))
	}
}

// lookup resolves the subscription an event refers to, preferring the
// processor's subscription id over the user id from custom data.
func (h *Handlers) lookup(ctx context.Context, data EventData) (*subscription.Subscription, error) {
	if data.SubscriptionID != "" {
		sub, err := h.subs.GetByProviderSubID(ctx, data.SubscriptionID)
		if err == nil {
			return sub, nil
		}
		if !errors.Is(err, subscription.ErrNotFound) {
			return nil, err
		}
	}
	if data.UserID != uuid.Nil {
		return h.subs.Get(ctx, data.UserID)
	}
	return nil, subscription.ErrNotFound
}
