package plan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tecassist/plankit/pkg/billing"
)

// Reconciler maps verified payment-processor events onto plan records. It
// is the system of record for paid-plan state: its writes always advance
// the record version, so an interactive write racing a delivery loses.
//
// Delivery is at-least-once, so application is keyed on the processor's
// event id. A redelivered event acknowledges without mutating anything.
type Reconciler struct {
	storage   *Storage
	events    ProcessedEventStore
	customers CustomerIndex
	log       *slog.Logger
}

// reconcileWriteAttempts bounds the version-conflict retry loop. Conflicts
// here only come from interactive writes racing the delivery, which the
// reload resolves immediately.
const reconcileWriteAttempts = 3

// NewReconciler creates the webhook reconciliation handler.
func NewReconciler(storage *Storage, events ProcessedEventStore, customers CustomerIndex, log *slog.Logger) *Reconciler {
	if storage == nil {
		panic("plan: Storage is required")
	}
	if events == nil {
		panic("plan: ProcessedEventStore is required")
	}
	if customers == nil {
		panic("plan: CustomerIndex is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{
		storage:   storage,
		events:    events,
		customers: customers,
		log:       log.With(slog.String("component", "plan.reconciler")),
	}
}

// Apply processes one verified event. Events the engine cannot attribute
// to a tenant are logged and dropped without mutation; persistence
// failures are surfaced so the processor's retry policy redelivers.
func (r *Reconciler) Apply(ctx context.Context, event *billing.Event) error {
	if event == nil || event.Type == billing.EventIgnored {
		return nil
	}

	if event.ID != "" {
		first, err := r.events.MarkProcessed(ctx, event.ID)
		if err != nil {
			return fmt.Errorf("event idempotency check: %w", err)
		}
		if !first {
			r.log.DebugContext(ctx, "skipping redelivered event",
				slog.String("event_id", event.ID))
			return nil
		}
	}

	var err error
	switch event.Type {
	case billing.EventCheckoutCompleted:
		err = r.applyCheckoutCompleted(ctx, event)
	case billing.EventSubscriptionUpdated, billing.EventSubscriptionDeleted:
		err = r.applySubscriptionChange(ctx, event)
	}

	if err != nil && event.ID != "" {
		// Unmark so the processor's redelivery gets another shot.
		if forgetErr := r.events.Forget(ctx, event.ID); forgetErr != nil {
			r.log.ErrorContext(ctx, "failed to unmark event after apply failure",
				slog.String("event_id", event.ID), slog.Any("error", forgetErr))
		}
	}
	return err
}

func (r *Reconciler) applyCheckoutCompleted(ctx context.Context, event *billing.Event) error {
	if event.TenantID == "" {
		r.log.WarnContext(ctx, "checkout event has no tenant linkage, dropping",
			slog.String("event_id", event.ID),
			slog.String("provider_event", event.ProviderEvent))
		return nil
	}

	pt := PlanType(event.PlanType)
	tier, ok := r.storage.catalog.Lookup(pt)
	if !ok || !tier.Paid {
		r.log.WarnContext(ctx, "checkout event names no known paid tier, dropping",
			slog.String("event_id", event.ID),
			slog.String("plan_type", event.PlanType))
		return nil
	}

	if event.CustomerID != "" {
		if err := r.customers.LinkCustomer(ctx, event.CustomerID, event.TenantID); err != nil {
			return fmt.Errorf("link customer: %w", err)
		}
	}

	return r.writeWithRetry(ctx, event.TenantID, func(rec *Record, now time.Time) {
		rec.PlanType = pt
		rec.Status = StatusActive
		rec.StartDate = now
		rec.EndDate = event.CurrentPeriodEnd
		if rec.EndDate.IsZero() {
			rec.EndDate = tier.Interval.PeriodEnd(now)
		}
		rec.TrialUsed = rec.TrialUsed || rec.TrialStartDate != nil
		rec.TrialStartDate = nil
		rec.TrialEndDate = nil
		rec.Billing.AutoRenewal = true
		rec.Billing.NextBillingDate = &rec.EndDate
		rec.Billing.LastPaymentDate = &now
		rec.ProviderCustomerID = event.CustomerID
		rec.ProviderSubID = event.SubscriptionID
	})
}

func (r *Reconciler) applySubscriptionChange(ctx context.Context, event *billing.Event) error {
	tenantID := event.TenantID
	if tenantID == "" && event.CustomerID != "" {
		resolved, err := r.customers.TenantByCustomer(ctx, event.CustomerID)
		switch {
		case err == nil:
			tenantID = resolved
		case errors.Is(err, ErrRecordNotFound):
		default:
			return fmt.Errorf("resolve customer: %w", err)
		}
	}
	if tenantID == "" {
		r.log.WarnContext(ctx, "subscription event has no tenant linkage, dropping",
			slog.String("event_id", event.ID),
			slog.String("customer_id", event.CustomerID))
		return nil
	}

	status := event.Status
	if status == "" && event.Type == billing.EventSubscriptionDeleted {
		status = "canceled"
	}

	return r.writeWithRetry(ctx, tenantID, func(rec *Record, now time.Time) {
		if !event.CurrentPeriodEnd.IsZero() {
			rec.EndDate = event.CurrentPeriodEnd
			rec.Billing.NextBillingDate = &rec.EndDate
		}
		switch status {
		case "active":
			rec.Status = StatusActive
			rec.Billing.AutoRenewal = true
		case "canceled", "cancelled":
			rec.Status = StatusCancelled
			rec.Billing.AutoRenewal = false
		default:
			// Terminal processor states (unpaid, incomplete_expired, ...)
			// end access now. Status is derived from dates on every load,
			// so the window has to close for the expiry to stick.
			rec.Status = StatusExpired
			rec.Billing.AutoRenewal = false
			if rec.EndDate.After(now) {
				rec.EndDate = now
			}
		}
		if pt := PlanType(event.PlanType); pt != "" {
			if tier, ok := r.storage.catalog.Lookup(pt); ok && tier.Paid {
				rec.PlanType = pt
			}
		}
		if event.SubscriptionID != "" {
			rec.ProviderSubID = event.SubscriptionID
		}
		if event.CustomerID != "" {
			rec.ProviderCustomerID = event.CustomerID
		}
	})
}

// writeWithRetry loads (or seeds) the tenant's record, applies mutate and
// persists strictly. On a version conflict the record is reloaded and the
// mutation reapplied against the fresh state, keeping the delivery
// authoritative over whatever write slipped in between.
func (r *Reconciler) writeWithRetry(ctx context.Context, tenantID string, mutate func(rec *Record, now time.Time)) error {
	var lastErr error
	for range reconcileWriteAttempts {
		rec, err := r.storage.LoadPlan(ctx, tenantID)
		if err != nil {
			return err
		}
		if rec == nil {
			rec = &Record{
				ID:       RecordID(tenantID),
				TenantID: tenantID,
			}
		}

		now := r.storage.now()
		mutate(rec, now)

		// Recompute derived fields against the mutated authoritative
		// inputs. Explicit cancelled survives recomputation while the
		// paid-through window is still open.
		rec.reconcileAt(r.storage.catalog, now)

		err = r.storage.SavePlanStrict(ctx, rec)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrVersionConflict) {
			return err
		}
		lastErr = err
	}
	return lastErr
}
