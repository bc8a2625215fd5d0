package lockout

import (
	"net/http"
	"strconv"
	"time"
)

// EmailFunc extracts the account identifier a request is trying to
// authenticate as. An empty return skips the lockout check.
type EmailFunc func(*http.Request) string

// Middleware rejects authentication attempts against locked accounts
// before the credential check runs. 429 with Retry-After mirrors what a
// throttled client already handles; the body never reveals whether the
// account exists.
func Middleware(guard *Guard, emailFn EmailFunc) func(http.Handler) http.Handler {
	if emailFn == nil {
		panic("lockout.Middleware: emailFn is required")
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			email := emailFn(r)
			if email == "" {
				next.ServeHTTP(w, r)
				return
			}

			status, err := guard.Check(r.Context(), email)
			if err != nil {
				// Availability over strictness: a store outage must not
				// lock every account out of login.
				next.ServeHTTP(w, r)
				return
			}

			if status.Locked {
				if status.UnlockAt != nil {
					retryAfter := int(time.Until(*status.UnlockAt).Seconds())
					if retryAfter < 1 {
						retryAfter = 1
					}
					w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				}
				http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
