package analytichttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/maison-parfum/maison/internal/platform/httpx"
)

// MountRoutes registers the analytics endpoints relative to the router it is
// given; the caller is expected to mount it under an authenticated prefix.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(10, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "export limit reached, retry in a minute")
		}),
	)

	r.Get("/dashboard", h.handleDashboard)
	r.Get("/charts/revenue.svg", h.handleRevenueChart)
	r.Get("/charts/categories.svg", h.handleCategoryChart)
	r.Post("/invalidate", h.handleInvalidate)
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/export.csv", h.handleCSV)
		gr.Get("/export.pdf", h.handlePDF)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
