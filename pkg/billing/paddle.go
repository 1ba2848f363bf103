package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
)

// PaddleConfig holds configuration for the Paddle provider.
// PriceIDs maps a plan type to the Paddle catalog price used at checkout.
type PaddleConfig struct {
	APIKey        string            `env:"PADDLE_API_KEY,required"`
	WebhookSecret string            `env:"PADDLE_WEBHOOK_SECRET,required"`
	Environment   string            `env:"PADDLE_ENVIRONMENT" envDefault:"production"`
	PriceIDs      map[string]string `env:"PADDLE_PRICE_IDS" envSeparator:"," envKeyValSeparator:"|"`

	// API call boundary: per-attempt timeout and bounded retry.
	APITimeout    time.Duration `env:"PADDLE_API_TIMEOUT" envDefault:"15s"`
	RetryAttempts int           `env:"PADDLE_RETRY_ATTEMPTS" envDefault:"3"`
}

// PaddleProvider implements Provider for Paddle. It is the alternate
// processor integration; deployments pick one provider at wiring time.
type PaddleProvider struct {
	client   *paddle.SDK
	verifier *paddle.WebhookVerifier
	config   PaddleConfig
	backoff  BackoffStrategy
}

// NewPaddleProvider creates a Paddle-backed provider.
func NewPaddleProvider(config PaddleConfig) (*PaddleProvider, error) {
	if config.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if config.WebhookSecret == "" {
		return nil, ErrMissingWebhookSecret
	}

	var client *paddle.SDK
	var err error
	switch strings.ToLower(config.Environment) {
	case "sandbox":
		client, err = paddle.NewSandbox(config.APIKey)
	case "production", "":
		client, err = paddle.New(config.APIKey)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidProviderEnvironment, config.Environment)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle client: %w", err)
	}

	return &PaddleProvider{
		client:   client,
		verifier: paddle.NewWebhookVerifier(config.WebhookSecret),
		config:   config,
		backoff:  ExponentialBackoff{},
	}, nil
}

// CreateCheckoutLink creates a hosted Paddle transaction for the plan's
// catalog price, carrying the tenant id in custom data so webhook events
// can be attributed back.
func (p *PaddleProvider) CreateCheckoutLink(ctx context.Context, req CheckoutRequest) (*CheckoutLink, error) {
	if req.TenantID == "" {
		return nil, ErrMissingTenantID
	}
	priceID, ok := p.config.PriceIDs[req.PlanType]
	if !ok || priceID == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoCheckoutURL, req.PlanType)
	}

	item := paddle.NewCreateTransactionItemsTransactionItemFromCatalog(&paddle.TransactionItemFromCatalog{
		PriceID:  priceID,
		Quantity: 1,
	})

	transactionReq := &paddle.CreateTransactionRequest{
		Items: []paddle.CreateTransactionItems{*item},
		CustomData: paddle.CustomData{
			"tenant_id": req.TenantID,
			"plan_type": req.PlanType,
		},
	}
	if req.SuccessPath != "" {
		transactionReq.Checkout = &paddle.TransactionCheckout{
			URL: paddle.PtrTo(req.SuccessPath),
		}
	}

	// The processor API is the slow leg of checkout; each attempt runs
	// under its own timeout and transient failures are retried with
	// exponential backoff.
	var transaction *paddle.Transaction
	err := withRetry(ctx, p.config.RetryAttempts, p.config.APITimeout, p.backoff, func(ctx context.Context) error {
		t, err := p.client.TransactionsClient.CreateTransaction(ctx, transactionReq)
		if err != nil {
			return err
		}
		transaction = t
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create paddle transaction: %w", err)
	}

	if transaction.Checkout == nil || transaction.Checkout.URL == nil {
		return nil, ErrNoCheckoutURL
	}

	return &CheckoutLink{
		URL:       *transaction.Checkout.URL,
		SessionID: transaction.ID,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}, nil
}

// ParseWebhook verifies the Paddle-Signature header through the SDK
// verifier and maps the payload onto a normalized Event.
func (p *PaddleProvider) ParseWebhook(ctx context.Context, payload []byte, signature string) (*Event, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "/webhook", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build verification request: %w", err)
	}
	req.Header.Set("Paddle-Signature", signature)

	valid, err := p.verifier.Verify(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}
	if !valid {
		return nil, ErrSignatureInvalid
	}

	var paddleEvent struct {
		EventID   string         `json:"event_id"`
		EventType string         `json:"event_type"`
		Data      map[string]any `json:"data"`
	}
	if err := json.Unmarshal(payload, &paddleEvent); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}

	event := &Event{
		ID:            paddleEvent.EventID,
		Type:          mapPaddleEventType(paddleEvent.EventType),
		ProviderEvent: paddleEvent.EventType,
		Raw:           paddleEvent.Data,
	}

	if id, ok := paddleEvent.Data["id"].(string); ok {
		event.SubscriptionID = id
	}
	if subID, ok := paddleEvent.Data["subscription_id"].(string); ok {
		event.SubscriptionID = subID
	}
	if customerID, ok := paddleEvent.Data["customer_id"].(string); ok {
		event.CustomerID = customerID
	}
	if status, ok := paddleEvent.Data["status"].(string); ok {
		event.Status = mapPaddleStatus(status)
	}
	if custom, ok := paddleEvent.Data["custom_data"].(map[string]any); ok {
		event.TenantID, _ = custom["tenant_id"].(string)
		event.PlanType, _ = custom["plan_type"].(string)
	}
	if billingPeriod, ok := paddleEvent.Data["current_billing_period"].(map[string]any); ok {
		if ends, ok := billingPeriod["ends_at"].(string); ok {
			if t, err := time.Parse(time.RFC3339, ends); err == nil {
				event.CurrentPeriodEnd = t.UTC()
			}
		}
	}

	return event, nil
}

func mapPaddleEventType(paddleEvent string) EventType {
	switch paddleEvent {
	case "transaction.completed":
		return EventCheckoutCompleted
	case "subscription.created", "subscription.updated", "subscription.resumed":
		return EventSubscriptionUpdated
	case "subscription.canceled":
		return EventSubscriptionDeleted
	default:
		return EventIgnored
	}
}

// mapPaddleStatus translates Paddle statuses into the Stripe-style ones
// the reconciler understands.
func mapPaddleStatus(paddleStatus string) string {
	switch strings.ToLower(paddleStatus) {
	case "active", "trialing":
		return "active"
	case "canceled", "cancelled":
		return "canceled"
	default:
		return paddleStatus
	}
}
