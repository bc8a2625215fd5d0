package billing

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/isaacmorgado/splice-core/pkg/billing"
	"github.com/isaacmorgado/splice-core/pkg/ratelimit"
	"github.com/isaacmorgado/splice-core/pkg/subscription"
	"github.com/isaacmorgado/splice-core/pkg/webhook"
)

// signatureHeader carries the processor's payload signature.
const signatureHeader = "Paddle-Signature"

// maxWebhookBody caps webhook payloads at 1 MiB. Processor events are
// a few kilobytes; anything bigger is not a webhook.
const maxWebhookBody = 1 << 20

// WebhookService receives processor notifications, verifies and
// normalizes them, and feeds them to the event engine.
type WebhookService struct {
	provider subscription.Provider
	engine   *webhook.Engine
	limiter  *ratelimit.Limiter
	log      *slog.Logger
}

func NewWebhookService(provider subscription.Provider, engine *webhook.Engine, limiter *ratelimit.Limiter, log *slog.Logger) *WebhookService {
	if log == nil {
		log = slog.Default()
	}
	return &WebhookService{provider: provider, engine: engine, limiter: limiter, log: log}
}

func (s *WebhookService) Handle() http.Handler {
	r := chi.NewRouter()
	if s.limiter != nil {
		// Webhooks carry no auth token; the processor's IPs are the key.
		r.Use(ratelimit.Middleware(s.limiter, ratelimit.RequestKey("webhook", nil)))
	}
	r.Post("/", s.receive)
	return r
}

// receive answers the processor. 2xx acknowledges the event; any other
// status makes the processor re-deliver, which the engine's dedupe makes
// safe.
func (s *WebhookService) receive(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	pe, err := s.provider.ParseWebhook(r.Context(), payload, r.Header.Get(signatureHeader))
	if err != nil {
		if errors.Is(err, subscription.ErrWebhookVerificationFailed) {
			s.log.WarnContext(r.Context(), "webhook signature rejected")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		s.log.ErrorContext(r.Context(), "webhook parse failed", slog.String("error", err.Error()))
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	event, err := billing.NewEvent(pe)
	if err != nil {
		s.log.ErrorContext(r.Context(), "webhook normalization failed", slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if err := s.engine.Process(r.Context(), event); err != nil {
		// The failure is queued for retry, but a non-2xx keeps the
		// processor re-delivering too; whichever side recovers first wins.
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}
