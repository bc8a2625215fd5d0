package httpserver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/isaacmorgado/splice-core/pkg/logger"
)

// HealthCheckHandler serves liveness and readiness probes. With no
// check functions it always answers 200, suiting /healthz. With checks
// it runs each one and answers 503 on the first failure, suiting
// /readyz backed by the database ping.
func HealthCheckHandler(ctx context.Context, log *slog.Logger, checks ...func(context.Context) error) http.HandlerFunc {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return func(w http.ResponseWriter, r *http.Request) {
		for _, check := range checks {
			if err := check(r.Context()); err != nil {
				log.ErrorContext(ctx, "readiness check failed", logger.Error(err))
				http.Error(w, "unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}
}
