package billing_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	modbilling "github.com/isaacmorgado/splice-core/modules/billing"
	"github.com/isaacmorgado/splice-core/pkg/billing"
	"github.com/isaacmorgado/splice-core/pkg/ratelimit"
	"github.com/isaacmorgado/splice-core/pkg/referral"
	"github.com/isaacmorgado/splice-core/pkg/subscription"
	"github.com/isaacmorgado/splice-core/pkg/usage"
	"github.com/isaacmorgado/splice-core/pkg/webhook"
)

// stubProvider accepts any payload with the magic signature and replays
// a canned event.
type stubProvider struct {
	event *subscription.ProviderEvent
}

func (p *stubProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*subscription.ProviderEvent, error) {
	if signature != "valid" {
		return nil, subscription.ErrWebhookVerificationFailed
	}
	return p.event, nil
}

func (p *stubProvider) RetrieveSubscription(ctx context.Context, providerSubID string) (*subscription.ProviderSubscription, error) {
	return nil, errors.New("not configured")
}

func (p *stubProvider) UpdateSubscriptionPrice(ctx context.Context, providerSubID, priceID string) error {
	return nil
}

type env struct {
	server *httptest.Server
	subs   *subscription.MemoryStore
	userID uuid.UUID
}

func newEnv(t *testing.T, provider subscription.Provider) *env {
	t.Helper()
	ctx := context.Background()

	subs := subscription.NewMemoryStore()
	userID := uuid.New()
	require.NoError(t, subs.Save(ctx, &subscription.Subscription{
		UserID: userID, Tier: subscription.TierCreator,
		Status: subscription.StatusActive, MinutesUsed: 120,
	}))

	catalog, err := subscription.NewInMemSource(
		subscription.Plan{Tier: subscription.TierFree, Name: "Free", MinutesPerPeriod: 30},
		subscription.Plan{
			Tier: subscription.TierCreator, Name: "Creator", MinutesPerPeriod: 300,
			Interval: subscription.BillingIntervalMonthly, PriceID: "pri_creator",
		},
	).Load(ctx)
	require.NoError(t, err)

	referrals, err := referral.NewService(referral.NewMemoryStore(), subs)
	require.NoError(t, err)

	meter, err := usage.NewMeter(usage.NewMemoryStore(subs), subs, catalog)
	require.NoError(t, err)

	engine, err := webhook.NewEngine(webhook.NewMemoryProcessedStore(), webhook.NewMemoryFailedStore())
	require.NoError(t, err)
	handlers, err := billing.NewHandlers(subs, catalog, provider, referrals)
	require.NoError(t, err)
	handlers.Register(engine)

	limiter, err := ratelimit.New(ratelimit.NewMemoryStore(), ratelimit.Config{
		MaxRequests: 5, Window: time.Minute,
	}, nil)
	require.NoError(t, err)

	// Auth is a header stub: production wraps this with token verification.
	userFn := func(r *http.Request) (uuid.UUID, bool) {
		id, err := uuid.Parse(r.Header.Get("X-User-ID"))
		return id, err == nil
	}

	router := modbilling.Router(modbilling.RouterOptions{
		Webhook:  modbilling.NewWebhookService(provider, engine, nil, nil),
		Usage:    modbilling.NewUsageService(meter, userFn, limiter, nil),
		Referral: modbilling.NewReferralService(referrals, userFn, nil, nil),
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return &env{server: server, subs: subs, userID: userID}
}

func (e *env) request(t *testing.T, method, path, body string, auth bool, headers map[string]string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, e.server.URL+path, strings.NewReader(body))
	require.NoError(t, err)
	if auth {
		req.Header.Set("X-User-ID", e.userID.String())
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestWebhookEndpoint(t *testing.T) {
	t.Parallel()

	periodEnd := time.Now().AddDate(0, 1, 0)
	provider := &stubProvider{event: &subscription.ProviderEvent{
		ID:             "evt_http_1",
		Type:           subscription.EventSubscriptionUpdated,
		SubscriptionID: "sub_http",
		Status:         "past_due",
		PeriodEnd:      &periodEnd,
	}}
	e := newEnv(t, provider)
	ctx := context.Background()

	require.NoError(t, e.subs.Save(ctx, &subscription.Subscription{
		UserID: uuid.New(), Tier: subscription.TierCreator,
		Status: subscription.StatusActive, ProviderSubID: "sub_http",
	}))

	t.Run("bad signature rejected", func(t *testing.T) {
		resp := e.request(t, http.MethodPost, "/webhook", `{}`, false,
			map[string]string{"Paddle-Signature": "forged"})
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("valid event applied and replays acknowledged", func(t *testing.T) {
		resp := e.request(t, http.MethodPost, "/webhook", `{}`, false,
			map[string]string{"Paddle-Signature": "valid"})
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		sub, err := e.subs.GetByProviderSubID(ctx, "sub_http")
		require.NoError(t, err)
		assert.Equal(t, subscription.StatusPastDue, sub.Status)

		resp = e.request(t, http.MethodPost, "/webhook", `{}`, false,
			map[string]string{"Paddle-Signature": "valid"})
		assert.Equal(t, http.StatusOK, resp.StatusCode, "duplicates are acknowledged")
	})
}

func TestUsageEndpoint(t *testing.T) {
	t.Parallel()

	e := newEnv(t, &stubProvider{})

	resp := e.request(t, http.MethodGet, "/usage", "", false, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = e.request(t, http.MethodGet, "/usage", "", true, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/json")
	assert.NotEmpty(t, resp.Header.Get("X-RateLimit-Limit"))
}

func TestUsageEndpointRateLimited(t *testing.T) {
	t.Parallel()

	e := newEnv(t, &stubProvider{})

	for i := 0; i < 5; i++ {
		resp := e.request(t, http.MethodGet, "/usage", "", true, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp := e.request(t, http.MethodGet, "/usage", "", true, nil)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
}

func TestReferralEndpoints(t *testing.T) {
	t.Parallel()

	e := newEnv(t, &stubProvider{})
	ctx := context.Background()

	// Owner mints a code through the API.
	resp := e.request(t, http.MethodGet, "/referral/code", "", true, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var minted struct {
		Code string `json:"code"`
	}
	require.NoError(t, jsonDecode(resp, &minted))
	require.Len(t, minted.Code, 8)

	resp = e.request(t, http.MethodGet, "/referral/validate/"+minted.Code, "", false, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Unknown codes validate false rather than 404.
	resp = e.request(t, http.MethodGet, "/referral/validate/XXXXXXXX", "", false, nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Self-redemption is rejected; another user succeeds.
	resp = e.request(t, http.MethodPost, "/referral/redeem", `{"code":"`+minted.Code+`"}`, true, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	redeemer := uuid.New()
	require.NoError(t, e.subs.Save(ctx, &subscription.Subscription{
		UserID: redeemer, Tier: subscription.TierFree, Status: subscription.StatusActive,
	}))
	req, err := http.NewRequest(http.MethodPost, e.server.URL+"/referral/redeem",
		strings.NewReader(`{"code":"`+minted.Code+`"}`))
	require.NoError(t, err)
	req.Header.Set("X-User-ID", redeemer.String())
	redeemResp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer redeemResp.Body.Close()
	assert.Equal(t, http.StatusNoContent, redeemResp.StatusCode)

	sub, err := e.subs.Get(ctx, redeemer)
	require.NoError(t, err)
	assert.Equal(t, 2, sub.ReferralMonthsRemaining)
}

func jsonDecode(resp *http.Response, v any) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(v)
}
