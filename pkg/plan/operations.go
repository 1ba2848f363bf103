package plan

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Operations implements the interactive state transitions. Each operation
// is a single read-modify-write over one tenant's record slot. The
// interactive path is an optimistic stand-in for the payment processor:
// webhook reconciliation is the system of record and wins version races.
type Operations struct {
	storage *Storage
	log     *slog.Logger
	now     func() time.Time
}

// NewOperations creates the interactive operations bound to a Storage.
func NewOperations(storage *Storage, log *slog.Logger) *Operations {
	if storage == nil {
		panic("plan: Storage is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Operations{
		storage: storage,
		log:     log.With(slog.String("component", "plan.operations")),
		now:     storage.now,
	}
}

// ActivateTrial grants the tenant its one-time trial. The call is
// idempotent: a tenant already on its trial gets the existing record back
// unchanged, so rapid double-invocation cannot restart the clock. TrialUsed
// is never reset once set.
func (o *Operations) ActivateTrial(ctx context.Context, tenantID string) (*Record, error) {
	if tenantID == "" {
		return nil, ErrTenantRequired
	}

	existing, err := o.storage.LoadPlan(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.TrialUsed && existing.PlanType == TypeTrial {
		return existing, nil
	}

	now := o.now()
	end := now.AddDate(0, 0, o.storage.catalog.TrialDaysFor(TypeTrial))

	rec := &Record{
		ID:             RecordID(tenantID),
		TenantID:       tenantID,
		PlanType:       TypeTrial,
		StartDate:      now,
		EndDate:        end,
		TrialStartDate: &now,
		TrialEndDate:   &end,
		TrialUsed:      true,
		Billing:        Billing{AutoRenewal: false},
	}
	if existing != nil {
		rec.Version = existing.Version
		rec.ProviderCustomerID = existing.ProviderCustomerID
		rec.ProviderSubID = existing.ProviderSubID
	}
	rec.reconcileAt(o.storage.catalog, now)

	return o.persist(ctx, rec)
}

// UpgradePlan moves the tenant onto a paid tier with a fresh billing
// period. The period length follows the target tier's declared billing
// interval. Calling it without a current record or towards a non-paid tier
// is a usage error and is rejected, never silently ignored.
func (o *Operations) UpgradePlan(ctx context.Context, tenantID string, current *Record, target PlanType) (*Record, error) {
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	if current == nil {
		return nil, ErrNoCurrentPlan
	}
	tier, ok := o.storage.catalog.Lookup(target)
	if !ok {
		return nil, ErrUnknownTier
	}
	if !tier.Paid {
		return nil, ErrNotPaidTier
	}

	now := o.now()
	end := tier.Interval.PeriodEnd(now)

	rec := current.Clone()
	rec.PlanType = target
	rec.StartDate = now
	rec.EndDate = end
	rec.TrialStartDate = nil
	rec.TrialEndDate = nil
	rec.TrialUsed = current.TrialUsed || current.PlanType == TypeTrial
	rec.Status = StatusActive
	rec.Billing.AutoRenewal = true
	rec.Billing.NextBillingDate = &end
	rec.Billing.LastPaymentDate = &now
	rec.reconcileAt(o.storage.catalog, now)

	return o.persist(ctx, rec)
}

// CancelPlan marks the record cancelled and switches auto-renewal off.
// EndDate is untouched: cancellation means "do not renew", the tenant
// keeps access through the already-paid period.
func (o *Operations) CancelPlan(ctx context.Context, tenantID string, current *Record) (*Record, error) {
	if tenantID == "" {
		return nil, ErrTenantRequired
	}
	if current == nil {
		return nil, ErrNoCurrentPlan
	}

	rec := current.Clone()
	rec.Status = StatusCancelled
	rec.Billing.AutoRenewal = false

	return o.persist(ctx, rec)
}

// persist writes the mutated record. A version conflict means a webhook
// delivery advanced the slot mid-operation; the authoritative state is
// reloaded and returned alongside the conflict so callers can refresh
// their view. Plain persistence failures are logged and the in-memory
// record is still handed back, best-effort.
func (o *Operations) persist(ctx context.Context, rec *Record) (*Record, error) {
	err := o.storage.SavePlanStrict(ctx, rec)
	switch {
	case err == nil:
		return rec, nil
	case errors.Is(err, ErrVersionConflict):
		o.log.WarnContext(ctx, "interactive write lost race to reconciliation",
			slog.String("tenant_id", rec.TenantID))
		if fresh, loadErr := o.storage.LoadPlan(ctx, rec.TenantID); loadErr == nil && fresh != nil {
			return fresh, ErrVersionConflict
		}
		return nil, ErrVersionConflict
	default:
		o.log.ErrorContext(ctx, "plan operation persisted best-effort only",
			slog.String("tenant_id", rec.TenantID), slog.Any("error", err))
		return rec, nil
	}
}
