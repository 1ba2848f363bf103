package plan

import "time"

// PlanType identifies the feature tier a tenant is subscribed to.
type PlanType string

const (
	TypeTrial        PlanType = "trial"
	TypeBasic        PlanType = "basic"
	TypeProfessional PlanType = "professional"
	TypeEnterprise   PlanType = "enterprise"
)

// Status represents the lifecycle state of a tenant's plan.
//
// Trial and Active are derived from the current period on every read.
// Cancelled and Blocked are explicit states set by operations (or an
// external moderation action for Blocked) and are preserved across
// recomputation until the period itself runs out.
type Status string

const (
	StatusTrial     Status = "trial"
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
	StatusBlocked   Status = "blocked"
)

// Resource represents a countable tenant resource with a per-tier limit.
type Resource string

const (
	ResourceServiceOrders Resource = "service_orders"
	ResourceClients       Resource = "clients"
	ResourceProducts      Resource = "products"
	ResourceUsers         Resource = "users"
	ResourceStorage       Resource = "storage" // measured in GB
)

// Unlimited indicates no limit for a resource (-1 chosen for SQL compatibility).
const Unlimited int64 = -1

// Feature represents a tier capability that can be switched on or off.
type Feature string

const (
	FeatureReports         Feature = "reports"
	FeatureAdvancedReports Feature = "advanced_reports"
	FeatureAPI             Feature = "api"
	FeatureWhatsApp        Feature = "whatsapp"
	FeatureCustomBranding  Feature = "custom_branding"
	FeaturePrioritySupport Feature = "priority_support"
	FeatureMultiLocation   Feature = "multi_location"
	FeatureExport          Feature = "export"
)

// BillingInterval represents the billing frequency of a tier.
type BillingInterval string

const (
	BillingIntervalNone      BillingInterval = "none" // trial, no billing cycle
	BillingIntervalMonthly   BillingInterval = "monthly"
	BillingIntervalQuarterly BillingInterval = "quarterly"
	BillingIntervalAnnual    BillingInterval = "annual"
)

// PeriodEnd returns the end of a billing period that starts at the given time.
func (i BillingInterval) PeriodEnd(start time.Time) time.Time {
	switch i {
	case BillingIntervalMonthly:
		return start.AddDate(0, 1, 0)
	case BillingIntervalQuarterly:
		return start.AddDate(0, 3, 0)
	case BillingIntervalAnnual:
		return start.AddDate(1, 0, 0)
	default:
		return start
	}
}

// Money represents a monetary amount in the smallest currency unit,
// e.g. R$ 49,90 is Amount: 4990, Currency: "BRL".
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Billing carries the renewal bookkeeping attached to a paid plan record.
type Billing struct {
	AutoRenewal     bool       `json:"auto_renewal"`
	NextBillingDate *time.Time `json:"next_billing_date,omitempty"`
	LastPaymentDate *time.Time `json:"last_payment_date,omitempty"`
	PaymentMethod   string     `json:"payment_method,omitempty"` // short summary, e.g. "card *4242"
}

// TenantProfile is the read-only slice of the external profile store the
// engine needs to derive a default plan for a tenant that has none yet.
// Identity comes from the auth boundary and is treated as opaque.
type TenantProfile struct {
	ID            string
	Email         string
	PlanType      PlanType
	RegisteredAt  time.Time
	PlanExpiresAt time.Time
}
