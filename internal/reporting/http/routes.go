package reportinghttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// MountRoutes registers report and loan query endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Route("/reports", func(r chi.Router) {
		r.Get("/brokers", h.handleReport(kindBrokers))
		r.Get("/totals", h.handleReport(kindTotals))
		r.Get("/tiers", h.handleReport(kindTiers))
		r.With(limiter).Get("/brokers.pdf", h.handlePDF)
	})
	r.Get("/loans/total", h.handleLoanTotal)
	r.Get("/brokers/{broker}/max-loan", h.handleMaxLoan)
}
