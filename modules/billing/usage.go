package billing

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/isaacmorgado/splice-core/pkg/ratelimit"
	"github.com/isaacmorgado/splice-core/pkg/usage"
)

// UsageService exposes the caller's quota snapshot.
type UsageService struct {
	meter   *usage.Meter
	userFn  ratelimit.UserIDFunc
	limiter *ratelimit.Limiter
	log     *slog.Logger
}

func NewUsageService(meter *usage.Meter, userFn ratelimit.UserIDFunc, limiter *ratelimit.Limiter, log *slog.Logger) *UsageService {
	if log == nil {
		log = slog.Default()
	}
	return &UsageService{meter: meter, userFn: userFn, limiter: limiter, log: log}
}

func (s *UsageService) Handle() http.Handler {
	r := chi.NewRouter()
	if s.limiter != nil {
		r.Use(ratelimit.Middleware(s.limiter, ratelimit.RequestKey("usage", s.userFn)))
	}
	r.Get("/", s.current)
	return r
}

type quotaResponse struct {
	Allowed     bool   `json:"allowed"`
	Remaining   int    `json:"remaining"`
	Limit       int    `json:"limit"`
	Used        int    `json:"used"`
	Tier        string `json:"tier"`
	PercentUsed int    `json:"percent_used"`
}

func (s *UsageService) current(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userFn(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	quota, err := s.meter.Check(r.Context(), userID)
	if err != nil {
		s.log.ErrorContext(r.Context(), "quota check failed",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, quotaResponse{
		Allowed:     quota.Allowed,
		Remaining:   quota.Remaining,
		Limit:       quota.Limit,
		Used:        quota.Used,
		Tier:        quota.Tier,
		PercentUsed: quota.PercentUsed,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
