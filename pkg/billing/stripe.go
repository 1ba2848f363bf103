package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// StripeConfig holds configuration for the Stripe-style provider.
// PaymentLinks maps a plan type to the processor's hosted payment-link URL
// for that plan; checkout needs no API round trip because the tenant
// linkage travels as client_reference_id on the link.
type StripeConfig struct {
	WebhookSecret string            `env:"BILLING_WEBHOOK_SECRET,required"`
	Tolerance     time.Duration     `env:"BILLING_SIGNATURE_TOLERANCE" envDefault:"5m"`
	PaymentLinks  map[string]string `env:"BILLING_PAYMENT_LINKS" envSeparator:"," envKeyValSeparator:"|"` // planType|url pairs
}

// StripeProvider implements Provider for a Stripe-style processor.
// Webhook signatures use the `t=<unix>,v1=<hex>` header scheme where v1 is
// HMAC-SHA256(secret, "<t>.<payload>").
type StripeProvider struct {
	config StripeConfig
	// linkPlans resolves a session's payment_link back to a plan type.
	// Each payment link is bound to exactly one plan, so the link itself
	// identifies the tier even when the session carries no metadata.
	linkPlans map[string]string
	now       func() time.Time
}

// NewStripeProvider creates the Stripe-style provider.
func NewStripeProvider(config StripeConfig) (*StripeProvider, error) {
	if config.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}
	if config.Tolerance <= 0 {
		config.Tolerance = 5 * time.Minute
	}

	// Index the configured links by full URL and by trailing path segment;
	// the processor reports the link either way depending on API version.
	linkPlans := make(map[string]string, len(config.PaymentLinks)*2)
	for pt, raw := range config.PaymentLinks {
		if raw == "" {
			continue
		}
		linkPlans[raw] = pt
		if u, err := url.Parse(raw); err == nil {
			if seg := path.Base(u.Path); seg != "" && seg != "/" && seg != "." {
				linkPlans[seg] = pt
			}
		}
	}

	return &StripeProvider{
		config:    config,
		linkPlans: linkPlans,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// CreateCheckoutLink resolves the hosted payment link for the requested
// plan and binds the tenant to the future checkout session through
// client_reference_id, so the completion webhook can be attributed.
func (p *StripeProvider) CreateCheckoutLink(ctx context.Context, req CheckoutRequest) (*CheckoutLink, error) {
	if req.TenantID == "" {
		return nil, ErrMissingTenantID
	}
	if req.PlanType == "" {
		return nil, ErrMissingPlanType
	}

	base, ok := p.config.PaymentLinks[req.PlanType]
	if !ok || base == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoCheckoutURL, req.PlanType)
	}

	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNoCheckoutURL, req.PlanType)
	}
	q := u.Query()
	q.Set("client_reference_id", req.TenantID)
	if req.Email != "" {
		q.Set("prefilled_email", req.Email)
	}
	u.RawQuery = q.Encode()

	// Payment links have no processor-side session until the tenant opens
	// them, so the correlation id is minted locally.
	return &CheckoutLink{
		URL:       u.String(),
		SessionID: "cl_" + uuid.NewString(),
		ExpiresAt: p.now().Add(24 * time.Hour),
	}, nil
}

// ParseWebhook verifies the signature header and maps the payload onto a
// normalized Event. Unknown event types come back as EventIgnored so the
// caller can acknowledge them without acting.
func (p *StripeProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error) {
	if err := p.verifySignature(payload, signature); err != nil {
		return nil, err
	}

	var envelope struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Data struct {
			Object map[string]any `json:"object"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if envelope.ID == "" || envelope.Type == "" {
		return nil, fmt.Errorf("%w: missing event id or type", ErrMalformedPayload)
	}

	event := &Event{
		ID:            envelope.ID,
		ProviderEvent: envelope.Type,
		Raw:           envelope.Data.Object,
	}
	obj := envelope.Data.Object

	switch envelope.Type {
	case "checkout.session.completed":
		event.Type = EventCheckoutCompleted

		// Only subscription-mode sessions change plan state.
		if mode, _ := obj["mode"].(string); mode != "" && mode != "subscription" {
			event.Type = EventIgnored
			return event, nil
		}

		event.CustomerID, _ = obj["customer"].(string)
		event.SubscriptionID, _ = obj["subscription"].(string)

		if meta, ok := obj["metadata"].(map[string]any); ok {
			event.TenantID, _ = meta["tenant_id"].(string)
			event.PlanType, _ = meta["plan_type"].(string)
		}
		// Payment-link checkouts carry the tenant as client_reference_id.
		if event.TenantID == "" {
			event.TenantID, _ = obj["client_reference_id"].(string)
		}
		// Dashboard metadata is optional on payment links; the link on
		// the session recovers the plan when metadata is absent.
		if event.PlanType == "" {
			if link, _ := obj["payment_link"].(string); link != "" {
				event.PlanType = p.linkPlans[link]
			}
		}

	case "customer.subscription.updated", "customer.subscription.deleted":
		if envelope.Type == "customer.subscription.deleted" {
			event.Type = EventSubscriptionDeleted
		} else {
			event.Type = EventSubscriptionUpdated
		}

		event.SubscriptionID, _ = obj["id"].(string)
		event.CustomerID, _ = obj["customer"].(string)
		event.Status, _ = obj["status"].(string)
		if meta, ok := obj["metadata"].(map[string]any); ok {
			event.TenantID, _ = meta["tenant_id"].(string)
			event.PlanType, _ = meta["plan_type"].(string)
		}
		if end, ok := obj["current_period_end"].(float64); ok && end > 0 {
			event.CurrentPeriodEnd = time.Unix(int64(end), 0).UTC()
		}

	default:
		event.Type = EventIgnored
	}

	return event, nil
}

// verifySignature checks the `t=...,v1=...` header using constant-time
// comparison and a bounded timestamp window against replay.
func (p *StripeProvider) verifySignature(payload []byte, header string) error {
	var ts int64
	var candidates []string

	for part := range strings.SplitSeq(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			parsed, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("%w: bad timestamp", ErrSignatureInvalid)
			}
			ts = parsed
		case "v1":
			candidates = append(candidates, v)
		}
	}

	if ts == 0 || len(candidates) == 0 {
		return fmt.Errorf("%w: missing signature elements", ErrSignatureInvalid)
	}

	age := p.now().Sub(time.Unix(ts, 0))
	if age > p.config.Tolerance || age < -1*time.Minute {
		return ErrSignatureExpired
	}

	mac := hmac.New(sha256.New, []byte(p.config.WebhookSecret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	for _, candidate := range candidates {
		if hmac.Equal([]byte(expected), []byte(candidate)) {
			return nil
		}
	}
	return ErrSignatureInvalid
}

// SignPayload produces a valid signature header for a payload. Used by
// tests and by local tooling that replays captured events.
func SignPayload(secret string, payload []byte, at time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", at.Unix())
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", at.Unix(), hex.EncodeToString(mac.Sum(nil)))
}
