// Package billing is the payment-processor boundary of the plan engine.
//
// The engine never talks to payment UIs directly: it emits hosted-checkout
// requests and consumes signed webhook events, normalized into a
// processor-agnostic Event. Two Provider implementations ship with the
// package, a Stripe-style one built on the t=/v1= HMAC signature scheme
// and a Paddle one built on the official SDK.
//
// Signature verification is mandatory; ParseWebhook never returns event
// data from a payload that failed verification.
package billing
