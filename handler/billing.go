package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/tecassist/plankit/pkg/billing"
	"github.com/tecassist/plankit/pkg/plan"
)

// maxWebhookBody bounds webhook payload reads; processor events are small.
const maxWebhookBody = 1 << 20

// BillingHandler exposes the payment-processor facing endpoints: the
// inbound webhook and the outbound checkout-session request.
type BillingHandler struct {
	provider   billing.Provider
	reconciler *plan.Reconciler
	log        *slog.Logger
}

func NewBillingHandler(provider billing.Provider, reconciler *plan.Reconciler, log *slog.Logger) *BillingHandler {
	if provider == nil {
		panic("handler: billing.Provider is required")
	}
	if reconciler == nil {
		panic("handler: plan.Reconciler is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &BillingHandler{
		provider:   provider,
		reconciler: reconciler,
		log:        log.With(slog.String("component", "handler.billing")),
	}
}

// Webhook handles POST /webhooks/billing. Signature failures are a 400
// with no state touched; the processor's own retry policy governs
// redelivery, so transient apply failures answer 500.
func (h *BillingHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload", "failed to read payload")
		return
	}

	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		signature = r.Header.Get("Paddle-Signature")
	}

	event, err := h.provider.ParseWebhook(r.Context(), payload, signature)
	if err != nil {
		h.log.WarnContext(r.Context(), "webhook rejected", slog.Any("error", err))
		respondError(w, http.StatusBadRequest, "invalid_signature", "webhook verification failed")
		return
	}

	if err := h.reconciler.Apply(r.Context(), event); err != nil {
		h.log.ErrorContext(r.Context(), "webhook apply failed",
			slog.String("event_id", event.ID), slog.Any("error", err))
		respondError(w, http.StatusInternalServerError, "apply_failed", "event could not be applied")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"received": event.ID})
}

type checkoutRequest struct {
	TenantID    string `json:"tenant_id"`
	PlanType    string `json:"plan_type"`
	Email       string `json:"email,omitempty"`
	SuccessPath string `json:"success_path"`
	CancelPath  string `json:"cancel_path"`
}

// Checkout handles POST /billing/checkout and answers with the hosted
// checkout URL the UI should redirect to.
func (h *BillingHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payload", "malformed request body")
		return
	}

	link, err := h.provider.CreateCheckoutLink(r.Context(), billing.CheckoutRequest{
		TenantID:    req.TenantID,
		PlanType:    req.PlanType,
		Email:       req.Email,
		SuccessPath: req.SuccessPath,
		CancelPath:  req.CancelPath,
	})
	if err != nil {
		switch {
		case errors.Is(err, billing.ErrMissingTenantID), errors.Is(err, billing.ErrMissingPlanType):
			respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		case errors.Is(err, billing.ErrNoCheckoutURL):
			respondError(w, http.StatusNotFound, "unknown_plan", err.Error())
		default:
			h.log.ErrorContext(r.Context(), "checkout link creation failed", slog.Any("error", err))
			respondError(w, http.StatusBadGateway, "provider_error", "could not start checkout")
		}
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"url":        link.URL,
		"session_id": link.SessionID,
	})
}
