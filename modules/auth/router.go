// Package auth mounts the authentication-adjacent surface this service
// owns: the account lockout API consumed by the credential service
// before and after each password check.
package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type Mountable interface {
	Handle() http.Handler
}

// RouterOptions configures which services to mount in the auth module.
type RouterOptions struct {
	Lockout Mountable
}

// Router assembles the auth module's HTTP surface.
func Router(opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	if opts.Lockout != nil {
		r.Mount("/lockout", opts.Lockout.Handle())
	}

	return r
}
