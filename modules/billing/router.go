package billing

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type Mountable interface {
	Handle() http.Handler
}

// RouterOptions configures which services to mount in the billing module.
// Each service is optional and only mounted if provided.
type RouterOptions struct {
	Webhook  Mountable
	Usage    Mountable
	Referral Mountable
}

// Router assembles the billing module's HTTP surface.
//
//	r := chi.NewRouter()
//	r.Mount("/billing", billing.Router(billing.RouterOptions{
//	    Webhook:  webhookSvc,
//	    Usage:    usageSvc,
//	    Referral: referralSvc,
//	}))
func Router(opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	if opts.Webhook != nil {
		r.Mount("/webhook", opts.Webhook.Handle())
	}
	if opts.Usage != nil {
		r.Mount("/usage", opts.Usage.Handle())
	}
	if opts.Referral != nil {
		r.Mount("/referral", opts.Referral.Handle())
	}

	return r
}
