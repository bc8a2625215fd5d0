package ratelimit

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/isaacmorgado/splice-core/pkg/clientip"
)

// Key derives the storage key for a request. Authenticated callers are
// keyed by user id so rotating IPs does not reset their budget; anonymous
// callers are keyed by client address.
func Key(prefix string, userID uuid.UUID, ip string) string {
	if userID != uuid.Nil {
		return prefix + ":user:" + userID.String()
	}
	return prefix + ":ip:" + ip
}

// KeyFunc extracts a storage key from an HTTP request. An empty return
// skips rate limiting for that request.
type KeyFunc func(*http.Request) string

// UserIDFunc resolves the authenticated user for a request, if any.
type UserIDFunc func(*http.Request) (uuid.UUID, bool)

// RequestKey builds a KeyFunc that scopes the budget to the user when
// authenticated and to the client IP otherwise.
func RequestKey(prefix string, userFn UserIDFunc) KeyFunc {
	return func(r *http.Request) string {
		if userFn != nil {
			if id, ok := userFn(r); ok && id != uuid.Nil {
				return Key(prefix, id, "")
			}
		}
		return Key(prefix, uuid.Nil, clientip.Get(r))
	}
}
