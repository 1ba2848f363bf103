package billing

import (
	"context"
	"time"
)

// Provider is the payment-processor boundary. The engine only ever emits
// checkout-session requests and consumes verified webhook events; all
// payment UI lives on the processor's hosted pages. Implementations exist
// for a Stripe-style processor and for Paddle.
type Provider interface {
	// CreateCheckoutLink returns a hosted checkout URL for the tenant to
	// subscribe to a plan.
	CreateCheckoutLink(ctx context.Context, req CheckoutRequest) (*CheckoutLink, error)

	// ParseWebhook verifies the payload signature against the shared
	// secret and returns the normalized event. Verification failure is an
	// error and nothing from the payload may be trusted.
	ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error)
}

// CheckoutRequest carries everything needed to start a checkout session.
type CheckoutRequest struct {
	TenantID    string
	PlanType    string
	Email       string // pre-fill billing email if known
	SuccessPath string // redirect after successful payment
	CancelPath  string // redirect if the customer bails out
}

// CheckoutLink is a hosted checkout session the tenant gets redirected to.
type CheckoutLink struct {
	URL       string
	SessionID string
	ExpiresAt time.Time
}

// EventType is the normalized processor event type.
type EventType string

const (
	EventCheckoutCompleted   EventType = "checkout_completed"
	EventSubscriptionUpdated EventType = "subscription_updated"
	EventSubscriptionDeleted EventType = "subscription_deleted"
	EventIgnored             EventType = "ignored"
)

// Event is a verified, normalized webhook event. TenantID comes from the
// session metadata the engine planted at checkout time; subscription
// lifecycle events carry only the processor's customer id and are resolved
// back to a tenant through the customer index.
type Event struct {
	ID               string // processor's event id, idempotency key
	Type             EventType
	ProviderEvent    string // original processor event name
	TenantID         string
	CustomerID       string
	SubscriptionID   string
	PlanType         string
	Status           string
	CurrentPeriodEnd time.Time
	Raw              map[string]any
}
