package plan

import (
	"maps"
	"slices"
	"time"
)

// RecordID returns the deterministic storage key for a tenant's single
// plan record slot.
func RecordID(tenantID string) string {
	return "plan_" + tenantID
}

// Record is a tenant's subscription state. Each tenant has exactly one
// record at a time; upgrades overwrite it in place.
//
// Status, RemainingDays, Limits, Features and Paid are denormalized: they
// are persisted for inspection but always recomputed from PlanType/EndDate
// and the tier catalog on load. Access-control decisions must only ever see
// reconciled records (Storage.LoadPlan does the reconciliation).
type Record struct {
	ID       string   `json:"id"`
	TenantID string   `json:"tenant_id"`
	PlanType PlanType `json:"plan_type"`
	Status   Status   `json:"status"`

	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`

	TrialStartDate *time.Time `json:"trial_start_date,omitempty"`
	TrialEndDate   *time.Time `json:"trial_end_date,omitempty"`
	// TrialUsed is monotonic: once true it is never reset, which is what
	// prevents a tenant from claiming a second trial.
	TrialUsed bool `json:"trial_used"`

	RemainingDays int                `json:"remaining_days"`
	Limits        map[Resource]int64 `json:"limits"`
	Features      []Feature          `json:"features"`
	Paid          bool               `json:"paid"`

	Billing Billing `json:"billing"`

	// Version supports optimistic concurrency between the interactive
	// path and webhook reconciliation. Every persisted write bumps it.
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`

	// ProviderCustomerID and ProviderSubID link the record to the payment
	// processor once a checkout completed. Empty for trial-only tenants.
	ProviderCustomerID string `json:"provider_customer_id,omitempty"`
	ProviderSubID      string `json:"provider_sub_id,omitempty"`
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	out := *r
	out.Limits = maps.Clone(r.Limits)
	out.Features = slices.Clone(r.Features)
	out.TrialStartDate = cloneTime(r.TrialStartDate)
	out.TrialEndDate = cloneTime(r.TrialEndDate)
	out.Billing.NextBillingDate = cloneTime(r.Billing.NextBillingDate)
	out.Billing.LastPaymentDate = cloneTime(r.Billing.LastPaymentDate)
	return &out
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// HasFeature reports whether the reconciled feature snapshot contains f.
// It does not apply status gating; use StatusService.IsFeatureAllowed for
// access-control decisions.
func (r *Record) HasFeature(f Feature) bool {
	return r != nil && slices.Contains(r.Features, f)
}

// Limit returns the reconciled limit for a resource, or 0 when the
// resource is not part of the tier.
func (r *Record) Limit(res Resource) int64 {
	if r == nil {
		return 0
	}
	return r.Limits[res]
}

func (r *Record) IsTrial() bool     { return r != nil && r.Status == StatusTrial }
func (r *Record) IsActive() bool    { return r != nil && r.Status == StatusActive }
func (r *Record) IsExpired() bool   { return r != nil && r.Status == StatusExpired }
func (r *Record) IsCancelled() bool { return r != nil && r.Status == StatusCancelled }
func (r *Record) IsBlocked() bool   { return r != nil && r.Status == StatusBlocked }

// reconcileAt recomputes every denormalized field from the authoritative
// inputs (PlanType, EndDate, catalog) as of now. Explicit cancelled and
// blocked states survive recomputation while their period is still
// running; a cancelled record whose period has passed becomes expired.
func (r *Record) reconcileAt(catalog Catalog, now time.Time) {
	r.RemainingDays = RemainingDaysAt(r.EndDate, now)

	derived := DetermineStatusAt(r.EndDate, r.PlanType, now)
	switch r.Status {
	case StatusBlocked:
		// Blocked is set by an external moderation action and only that
		// action lifts it.
	case StatusCancelled:
		// Cancellation keeps the paid-through window open; it only decays
		// to expired once the period actually runs out.
		if derived == StatusExpired {
			r.Status = StatusExpired
		}
	default:
		r.Status = derived
	}

	if tier, ok := catalog.Lookup(r.PlanType); ok {
		r.Limits = tier.Limits
		r.Features = tier.Features
		r.Paid = tier.Paid
	} else {
		// Unknown tier in storage: fail closed rather than trusting a
		// stale snapshot.
		r.Limits = map[Resource]int64{}
		r.Features = nil
		r.Paid = false
	}
}
