package billing

import "errors"

var (
	ErrMissingWebhookSecret       = errors.New("billing: webhook secret is required")
	ErrMissingAPIKey              = errors.New("billing: provider API key is required")
	ErrSignatureInvalid           = errors.New("billing: webhook signature verification failed")
	ErrSignatureExpired           = errors.New("billing: webhook signature timestamp outside tolerance")
	ErrMalformedPayload           = errors.New("billing: malformed webhook payload")
	ErrMissingTenantID            = errors.New("billing: tenant ID is required")
	ErrMissingPlanType            = errors.New("billing: plan type is required")
	ErrNoCheckoutURL              = errors.New("billing: no checkout URL available for plan")
	ErrInvalidProviderEnvironment = errors.New("billing: invalid provider environment")
)
