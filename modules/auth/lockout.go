package auth

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/isaacmorgado/splice-core/pkg/lockout"
)

// LockoutService exposes the lockout guard to the credential service.
// The credential service checks before verifying a password, records
// after a failed verification, and clears after a successful one. The
// responses look identical whether or not the email maps to an account.
type LockoutService struct {
	guard *lockout.Guard
	log   *slog.Logger
}

func NewLockoutService(guard *lockout.Guard, log *slog.Logger) *LockoutService {
	if log == nil {
		log = slog.Default()
	}
	return &LockoutService{guard: guard, log: log}
}

func (s *LockoutService) Handle() http.Handler {
	r := chi.NewRouter()
	r.Get("/attempts", s.check)
	r.Post("/attempts", s.recordFailure)
	r.Delete("/attempts", s.clear)
	return r
}

type lockoutRequest struct {
	Email string `json:"email"`
}

type lockoutResponse struct {
	Locked            bool       `json:"locked"`
	FailedAttempts    int        `json:"failed_attempts"`
	RemainingAttempts int        `json:"remaining_attempts"`
	UnlockAt          *time.Time `json:"unlock_at,omitempty"`
}

func (s *LockoutService) check(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	status, err := s.guard.Check(r.Context(), email)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, status)
}

func (s *LockoutService) recordFailure(w http.ResponseWriter, r *http.Request) {
	var req lockoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	status, err := s.guard.RecordFailure(r.Context(), req.Email)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, status)
}

func (s *LockoutService) clear(w http.ResponseWriter, r *http.Request) {
	var req lockoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if err := s.guard.Clear(r.Context(), req.Email); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *LockoutService) respond(w http.ResponseWriter, status lockout.Status) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(lockoutResponse{
		Locked:            status.Locked,
		FailedAttempts:    status.FailedAttempts,
		RemainingAttempts: status.RemainingAttempts,
		UnlockAt:          status.UnlockAt,
	})
}

func (s *LockoutService) fail(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, lockout.ErrEmailRequired) {
		http.Error(w, "email is required", http.StatusBadRequest)
		return
	}
	s.log.ErrorContext(r.Context(), "lockout operation failed", slog.String("error", err.Error()))
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}
