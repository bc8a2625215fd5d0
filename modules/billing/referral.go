package billing

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/isaacmorgado/splice-core/pkg/ratelimit"
	"github.com/isaacmorgado/splice-core/pkg/referral"
)

// ReferralService exposes code generation, validation, and redemption.
type ReferralService struct {
	referrals *referral.Service
	userFn    ratelimit.UserIDFunc
	limiter   *ratelimit.Limiter
	log       *slog.Logger
}

func NewReferralService(referrals *referral.Service, userFn ratelimit.UserIDFunc, limiter *ratelimit.Limiter, log *slog.Logger) *ReferralService {
	if log == nil {
		log = slog.Default()
	}
	return &ReferralService{referrals: referrals, userFn: userFn, limiter: limiter, log: log}
}

func (s *ReferralService) Handle() http.Handler {
	r := chi.NewRouter()
	if s.limiter != nil {
		r.Use(ratelimit.Middleware(s.limiter, ratelimit.RequestKey("referral", s.userFn)))
	}
	r.Get("/code", s.code)
	r.Get("/validate/{code}", s.validate)
	r.Post("/redeem", s.redeem)
	return r
}

type codeResponse struct {
	Code          string `json:"code"`
	UsesRemaining int    `json:"uses_remaining"`
}

func (s *ReferralService) code(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userFn(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	code, err := s.referrals.Generate(r.Context(), userID)
	if err != nil {
		s.log.ErrorContext(r.Context(), "code generation failed",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, codeResponse{Code: code.Code, UsesRemaining: code.UsesRemaining})
}

type validateResponse struct {
	Valid bool `json:"valid"`
}

func (s *ReferralService) validate(w http.ResponseWriter, r *http.Request) {
	v, err := s.referrals.Validate(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		if errors.Is(err, referral.ErrCodeNotFound) {
			// Unknown and exhausted codes answer identically, so the
			// endpoint cannot be used to probe which codes exist.
			writeJSON(w, http.StatusOK, validateResponse{Valid: false})
			return
		}
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{Valid: v.Valid})
}

type redeemRequest struct {
	Code string `json:"code"`
}

func (s *ReferralService) redeem(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.userFn(r)
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	err := s.referrals.Redeem(r.Context(), req.Code, userID)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, referral.ErrCodeNotFound),
		errors.Is(err, referral.ErrCodeExhausted):
		http.Error(w, "invalid referral code", http.StatusUnprocessableEntity)
	case errors.Is(err, referral.ErrSelfReferral):
		http.Error(w, "cannot redeem your own code", http.StatusUnprocessableEntity)
	case errors.Is(err, referral.ErrAlreadyRedeemed):
		http.Error(w, "referral already redeemed", http.StatusConflict)
	default:
		s.log.ErrorContext(r.Context(), "redemption failed",
			slog.String("user_id", userID.String()),
			slog.String("error", err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}
