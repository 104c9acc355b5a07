package reporthttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

// MountRoutes registers the monthly report endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(h.cfg.ExportsPerMin, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Get("/reports/monthly", h.handleBook)
	r.Get("/reports/monthly/options", h.handleOptions)
	r.Get("/reports/monthly/{kind}", h.handleReport)
	r.Post("/reports/cache/bump", h.handleBump)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/reports/monthly/export.pdf", h.handlePDF)
		gr.Get("/reports/monthly/{kind}/export.csv", h.handleCSV)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
