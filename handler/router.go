// Package handler wires the plan engine's HTTP surface: the billing
// webhook, the checkout endpoint and the tenant plan-status view.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter assembles the chi router for the plan service.
func NewRouter(billing *BillingHandler, plans *PlanHandler, healthchecks ...func(context.Context) error) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Post("/webhooks/billing", billing.Webhook)
	r.Post("/billing/checkout", billing.Checkout)
	r.Get("/tenants/{tenantID}/plan", plans.Current)

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		for _, check := range healthchecks {
			if err := check(req.Context()); err != nil {
				respondError(w, http.StatusServiceUnavailable, "unhealthy", err.Error())
				return
			}
		}
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return r
}
