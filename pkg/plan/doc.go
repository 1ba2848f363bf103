// Package plan implements the subscription lifecycle engine for a
// multi-tenant SaaS: tier catalog, trial lifecycle, upgrade/downgrade,
// cancellation, feature gating and reconciliation with the payment
// processor's webhook events.
//
// # Model
//
// Each tenant owns exactly one Record, stored under the deterministic key
// plan_<tenantID>. The record's Status, RemainingDays, Limits, Features
// and Paid fields are denormalized: Storage recomputes them from PlanType,
// EndDate and the tier Catalog on every load, so stale persisted values
// can never leak into an access-control decision. Cancelled and Blocked
// are explicit states that survive recomputation while the paid-through
// period lasts.
//
// # Components
//
//   - Calculations (calc.go): pure date arithmetic and status derivation.
//   - Storage: load/create/persist against the injected Store port, with
//     reconcile-on-read and fail-safe handling of corrupt slots.
//   - Operations: the interactive transitions (ActivateTrial, UpgradePlan,
//     CancelPlan), each a single read-modify-write.
//   - StatusService: composition layer exposing the record and the gating
//     predicates, creating the default record for first-time tenants.
//   - Decide (guard.go): the per-render access decision.
//   - Reconciler: maps verified billing events onto records; the system of
//     record for paid-plan state.
//
// # Concurrency
//
// Records carry a version. Every persisted write is conditional on the
// version it read, so two browser tabs or a webhook delivery racing an
// interactive upgrade cannot silently clobber each other: the interactive
// path loses with ErrVersionConflict and refreshes, while the Reconciler
// retries against the fresh state and always wins.
//
// # Usage
//
//	store := plan.NewMemoryStore()
//	storage := plan.NewStorage(store, plan.DefaultCatalog(), log)
//	ops := plan.NewOperations(storage, log)
//
//	rec, err := ops.ActivateTrial(ctx, tenantID)
//	...
//	if plan.Decide(plan.RequirePaid, rec).Blocks() {
//		// render upsell
//	}
package plan
