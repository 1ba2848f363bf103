package plan_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tecassist/plankit/pkg/billing"
	"github.com/tecassist/plankit/pkg/plan"
)

func newTestReconciler(t *testing.T) (*plan.Reconciler, *plan.Storage, *plan.MemoryStore) {
	t.Helper()
	storage, store := newTestStorage(t)
	rec := plan.NewReconciler(storage, store, store, slog.New(slog.DiscardHandler))
	return rec, storage, store
}

func checkoutEvent(tenantID, planType string) *billing.Event {
	return &billing.Event{
		ID:               "evt_" + uuid.NewString(),
		Type:             billing.EventCheckoutCompleted,
		ProviderEvent:    "checkout.session.completed",
		TenantID:         tenantID,
		CustomerID:       "cus_" + tenantID,
		SubscriptionID:   "sub_" + tenantID,
		PlanType:         planType,
		CurrentPeriodEnd: testNow.AddDate(0, 1, 0),
	}
}

func TestReconciler_CheckoutCompleted(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("activates the paid plan for the tenant", func(t *testing.T) {
		t.Parallel()
		reconciler, storage, _ := newTestReconciler(t)

		require.NoError(t, reconciler.Apply(ctx, checkoutEvent("t-co", "professional")))

		rec, err := storage.LoadPlan(ctx, "t-co")
		require.NoError(t, err)
		require.NotNil(t, rec)

		assert.Equal(t, plan.TypeProfessional, rec.PlanType)
		assert.Equal(t, plan.StatusActive, rec.Status)
		assert.True(t, rec.Paid)
		assert.Equal(t, testNow.AddDate(0, 1, 0), rec.EndDate)
		assert.Equal(t, "cus_t-co", rec.ProviderCustomerID)
		assert.Equal(t, "sub_t-co", rec.ProviderSubID)
		assert.True(t, rec.Billing.AutoRenewal)
	})

	t.Run("overwrites an existing trial and keeps trial usage", func(t *testing.T) {
		t.Parallel()
		reconciler, storage, _ := newTestReconciler(t)
		ops := plan.NewOperations(storage, slog.New(slog.DiscardHandler))

		_, err := ops.ActivateTrial(ctx, "t-co-trial")
		require.NoError(t, err)

		require.NoError(t, reconciler.Apply(ctx, checkoutEvent("t-co-trial", "basic")))

		rec, err := storage.LoadPlan(ctx, "t-co-trial")
		require.NoError(t, err)
		assert.Equal(t, plan.TypeBasic, rec.PlanType)
		assert.True(t, rec.TrialUsed)
		assert.Nil(t, rec.TrialStartDate)
		assert.Nil(t, rec.TrialEndDate)
	})

	t.Run("same event delivered twice applies once", func(t *testing.T) {
		t.Parallel()
		reconciler, storage, _ := newTestReconciler(t)

		event := checkoutEvent("t-idem", "basic")
		require.NoError(t, reconciler.Apply(ctx, event))

		first, err := storage.LoadPlan(ctx, "t-idem")
		require.NoError(t, err)

		require.NoError(t, reconciler.Apply(ctx, event))

		second, err := storage.LoadPlan(ctx, "t-idem")
		require.NoError(t, err)

		assert.Equal(t, first.Version, second.Version)
		assert.Equal(t, first.EndDate, second.EndDate)
		assert.Equal(t, first.PlanType, second.PlanType)
	})

	t.Run("event without tenant linkage is dropped", func(t *testing.T) {
		t.Parallel()
		reconciler, storage, _ := newTestReconciler(t)

		event := checkoutEvent("", "basic")
		require.NoError(t, reconciler.Apply(ctx, event))

		rec, err := storage.LoadPlan(ctx, "t-anon")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("event naming an unknown tier is dropped", func(t *testing.T) {
		t.Parallel()
		reconciler, storage, _ := newTestReconciler(t)

		require.NoError(t, reconciler.Apply(ctx, checkoutEvent("t-weird", "platinum")))

		rec, err := storage.LoadPlan(ctx, "t-weird")
		require.NoError(t, err)
		assert.Nil(t, rec)
	})

	t.Run("webhook write beats a stale interactive write", func(t *testing.T) {
		t.Parallel()
		reconciler, storage, _ := newTestReconciler(t)
		ops := plan.NewOperations(storage, slog.New(slog.DiscardHandler))

		trial, err := ops.ActivateTrial(ctx, "t-race")
		require.NoError(t, err)

		require.NoError(t, reconciler.Apply(ctx, checkoutEvent("t-race", "enterprise")))

		// The interactive caller still holds the pre-webhook record.
		_, err = ops.UpgradePlan(ctx, "t-race", trial, plan.TypeBasic)
		assert.ErrorIs(t, err, plan.ErrVersionConflict)

		rec, err := storage.LoadPlan(ctx, "t-race")
		require.NoError(t, err)
		assert.Equal(t, plan.TypeEnterprise, rec.PlanType)
	})
}

func TestReconciler_SubscriptionLifecycle(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	seed := func(t *testing.T) (*plan.Reconciler, *plan.Storage) {
		t.Helper()
		reconciler, storage, _ := newTestReconciler(t)
		require.NoError(t, reconciler.Apply(ctx, checkoutEvent("t-sub", "professional")))
		return reconciler, storage
	}

	t.Run("updated event maps processor status", func(t *testing.T) {
		t.Parallel()
		reconciler, storage := seed(t)

		newEnd := testNow.AddDate(0, 2, 0)
		require.NoError(t, reconciler.Apply(ctx, &billing.Event{
			ID:               "evt_" + uuid.NewString(),
			Type:             billing.EventSubscriptionUpdated,
			ProviderEvent:    "customer.subscription.updated",
			CustomerID:       "cus_t-sub",
			Status:           "active",
			CurrentPeriodEnd: newEnd,
		}))

		rec, err := storage.LoadPlan(ctx, "t-sub")
		require.NoError(t, err)
		assert.Equal(t, plan.StatusActive, rec.Status)
		assert.Equal(t, newEnd, rec.EndDate)
	})

	t.Run("canceled status becomes cancelled", func(t *testing.T) {
		t.Parallel()
		reconciler, storage := seed(t)

		require.NoError(t, reconciler.Apply(ctx, &billing.Event{
			ID:            "evt_" + uuid.NewString(),
			Type:          billing.EventSubscriptionUpdated,
			ProviderEvent: "customer.subscription.updated",
			CustomerID:    "cus_t-sub",
			Status:        "canceled",
		}))

		rec, err := storage.LoadPlan(ctx, "t-sub")
		require.NoError(t, err)
		assert.Equal(t, plan.StatusCancelled, rec.Status)
		assert.False(t, rec.Billing.AutoRenewal)
	})

	t.Run("unknown processor status expires the plan", func(t *testing.T) {
		t.Parallel()
		reconciler, storage := seed(t)

		require.NoError(t, reconciler.Apply(ctx, &billing.Event{
			ID:            "evt_" + uuid.NewString(),
			Type:          billing.EventSubscriptionUpdated,
			ProviderEvent: "customer.subscription.updated",
			CustomerID:    "cus_t-sub",
			Status:        "unpaid",
		}))

		rec, err := storage.LoadPlan(ctx, "t-sub")
		require.NoError(t, err)
		assert.Equal(t, plan.StatusExpired, rec.Status)
	})

	t.Run("deleted event without status cancels", func(t *testing.T) {
		t.Parallel()
		reconciler, storage := seed(t)

		require.NoError(t, reconciler.Apply(ctx, &billing.Event{
			ID:            "evt_" + uuid.NewString(),
			Type:          billing.EventSubscriptionDeleted,
			ProviderEvent: "customer.subscription.deleted",
			CustomerID:    "cus_t-sub",
		}))

		rec, err := storage.LoadPlan(ctx, "t-sub")
		require.NoError(t, err)
		assert.Equal(t, plan.StatusCancelled, rec.Status)
	})

	t.Run("unresolvable customer is dropped without mutation", func(t *testing.T) {
		t.Parallel()
		reconciler, storage := seed(t)

		before, err := storage.LoadPlan(ctx, "t-sub")
		require.NoError(t, err)

		require.NoError(t, reconciler.Apply(ctx, &billing.Event{
			ID:            "evt_" + uuid.NewString(),
			Type:          billing.EventSubscriptionUpdated,
			ProviderEvent: "customer.subscription.updated",
			CustomerID:    "cus_stranger",
			Status:        "canceled",
		}))

		after, err := storage.LoadPlan(ctx, "t-sub")
		require.NoError(t, err)
		assert.Equal(t, before.Version, after.Version)
		assert.Equal(t, before.Status, after.Status)
	})

	t.Run("ignored events are acknowledged without effect", func(t *testing.T) {
		t.Parallel()
		reconciler, _ := seed(t)
		require.NoError(t, reconciler.Apply(ctx, &billing.Event{
			ID:   "evt_" + uuid.NewString(),
			Type: billing.EventIgnored,
		}))
		require.NoError(t, reconciler.Apply(ctx, nil))
	})
}

func TestReconciler_CancelledStatePersistsThroughReload(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	reconciler, storage, _ := newTestReconciler(t)

	require.NoError(t, reconciler.Apply(ctx, checkoutEvent("t-persist", "basic")))
	require.NoError(t, reconciler.Apply(ctx, &billing.Event{
		ID:               "evt_" + uuid.NewString(),
		Type:             billing.EventSubscriptionDeleted,
		ProviderEvent:    "customer.subscription.deleted",
		CustomerID:       "cus_t-persist",
		CurrentPeriodEnd: testNow.Add(48 * time.Hour),
	}))

	for range 3 {
		rec, err := storage.LoadPlan(ctx, "t-persist")
		require.NoError(t, err)
		assert.Equal(t, plan.StatusCancelled, rec.Status)
		assert.True(t, plan.IsFeatureAllowed(rec, plan.FeatureWhatsApp))
	}
}
