package plan_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tecassist/plankit/pkg/plan"
)

func newTestOperations(t *testing.T) (*plan.Operations, *plan.Storage) {
	t.Helper()
	storage, _ := newTestStorage(t)
	return plan.NewOperations(storage, slog.New(slog.DiscardHandler)), storage
}

func TestOperations_ActivateTrial(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("creates a fresh trial record", func(t *testing.T) {
		t.Parallel()
		ops, _ := newTestOperations(t)

		rec, err := ops.ActivateTrial(ctx, "t-1")
		require.NoError(t, err)
		require.NotNil(t, rec)

		assert.Equal(t, plan.TypeTrial, rec.PlanType)
		assert.Equal(t, plan.StatusTrial, rec.Status)
		assert.Equal(t, testNow, rec.StartDate)
		assert.Equal(t, testNow.AddDate(0, 0, plan.DefaultTrialDays), rec.EndDate)
		assert.True(t, rec.TrialUsed)
		assert.False(t, rec.Paid)
		assert.False(t, rec.Billing.AutoRenewal)
	})

	t.Run("second activation is a no-op", func(t *testing.T) {
		t.Parallel()
		ops, _ := newTestOperations(t)

		first, err := ops.ActivateTrial(ctx, "t-2")
		require.NoError(t, err)
		second, err := ops.ActivateTrial(ctx, "t-2")
		require.NoError(t, err)

		assert.Equal(t, first.StartDate, second.StartDate)
		assert.Equal(t, first.EndDate, second.EndDate)
		assert.Equal(t, first.Version, second.Version)
	})

	t.Run("missing tenant is rejected", func(t *testing.T) {
		t.Parallel()
		ops, _ := newTestOperations(t)

		_, err := ops.ActivateTrial(ctx, "")
		assert.ErrorIs(t, err, plan.ErrTenantRequired)
	})
}

func TestOperations_UpgradePlan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("upgrade from trial clears trial markers", func(t *testing.T) {
		t.Parallel()
		ops, _ := newTestOperations(t)

		trial, err := ops.ActivateTrial(ctx, "t-up")
		require.NoError(t, err)

		rec, err := ops.UpgradePlan(ctx, "t-up", trial, plan.TypeProfessional)
		require.NoError(t, err)
		require.NotNil(t, rec)

		assert.Equal(t, plan.TypeProfessional, rec.PlanType)
		assert.Equal(t, plan.StatusActive, rec.Status)
		assert.Nil(t, rec.TrialStartDate)
		assert.Nil(t, rec.TrialEndDate)
		assert.True(t, rec.TrialUsed)
		assert.True(t, rec.Paid)
		assert.True(t, rec.HasFeature(plan.FeatureAdvancedReports))

		// Period follows the tier's billing interval, monthly here.
		assert.Equal(t, testNow, rec.StartDate)
		assert.Equal(t, testNow.AddDate(0, 1, 0), rec.EndDate)

		assert.True(t, rec.Billing.AutoRenewal)
		require.NotNil(t, rec.Billing.NextBillingDate)
		assert.Equal(t, rec.EndDate, *rec.Billing.NextBillingDate)
		require.NotNil(t, rec.Billing.LastPaymentDate)
		assert.Equal(t, testNow, *rec.Billing.LastPaymentDate)
	})

	t.Run("trial usage stays monotonic through upgrades", func(t *testing.T) {
		t.Parallel()
		ops, _ := newTestOperations(t)

		trial, err := ops.ActivateTrial(ctx, "t-mono")
		require.NoError(t, err)
		upgraded, err := ops.UpgradePlan(ctx, "t-mono", trial, plan.TypeBasic)
		require.NoError(t, err)
		assert.True(t, upgraded.TrialUsed)

		// Even a repeated trial activation attempt cannot reset the flag.
		again, err := ops.ActivateTrial(ctx, "t-mono")
		require.NoError(t, err)
		assert.True(t, again.TrialUsed)
	})

	t.Run("upgrade without a current record is a usage error", func(t *testing.T) {
		t.Parallel()
		ops, _ := newTestOperations(t)

		_, err := ops.UpgradePlan(ctx, "t-none", nil, plan.TypeBasic)
		assert.ErrorIs(t, err, plan.ErrNoCurrentPlan)
	})

	t.Run("upgrade to a non-paid tier is rejected", func(t *testing.T) {
		t.Parallel()
		ops, _ := newTestOperations(t)

		trial, err := ops.ActivateTrial(ctx, "t-bad")
		require.NoError(t, err)

		_, err = ops.UpgradePlan(ctx, "t-bad", trial, plan.TypeTrial)
		assert.ErrorIs(t, err, plan.ErrNotPaidTier)

		_, err = ops.UpgradePlan(ctx, "t-bad", trial, plan.PlanType("vip"))
		assert.ErrorIs(t, err, plan.ErrUnknownTier)
	})

	t.Run("expired plan can be upgraded back to active", func(t *testing.T) {
		t.Parallel()
		ops, storage := newTestOperations(t)

		trial, err := ops.ActivateTrial(ctx, "t-exp")
		require.NoError(t, err)
		trial.EndDate = testNow.AddDate(0, 0, -1)
		require.NoError(t, storage.SavePlanStrict(ctx, trial))

		expired, err := storage.LoadPlan(ctx, "t-exp")
		require.NoError(t, err)
		require.Equal(t, plan.StatusExpired, expired.Status)

		rec, err := ops.UpgradePlan(ctx, "t-exp", expired, plan.TypeBasic)
		require.NoError(t, err)
		assert.Equal(t, plan.StatusActive, rec.Status)
	})
}

func TestOperations_CancelPlan(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("cancellation keeps the paid-through window", func(t *testing.T) {
		t.Parallel()
		ops, storage := newTestOperations(t)

		trial, err := ops.ActivateTrial(ctx, "t-cancel")
		require.NoError(t, err)
		active, err := ops.UpgradePlan(ctx, "t-cancel", trial, plan.TypeProfessional)
		require.NoError(t, err)

		cancelled, err := ops.CancelPlan(ctx, "t-cancel", active)
		require.NoError(t, err)

		assert.Equal(t, plan.StatusCancelled, cancelled.Status)
		assert.False(t, cancelled.Billing.AutoRenewal)
		assert.Equal(t, active.EndDate, cancelled.EndDate)

		// Feature gating still allows access until the period runs out.
		assert.True(t, plan.IsFeatureAllowed(cancelled, plan.FeatureAPI))

		loaded, err := storage.LoadPlan(ctx, "t-cancel")
		require.NoError(t, err)
		assert.Equal(t, plan.StatusCancelled, loaded.Status)
	})

	t.Run("cancel without a record is a usage error", func(t *testing.T) {
		t.Parallel()
		ops, _ := newTestOperations(t)

		_, err := ops.CancelPlan(ctx, "t-x", nil)
		assert.ErrorIs(t, err, plan.ErrNoCurrentPlan)
	})
}

func TestOperations_VersionConflictRefreshesView(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	ops, storage := newTestOperations(t)

	trial, err := ops.ActivateTrial(ctx, "t-conflict")
	require.NoError(t, err)

	// A reconciliation write advances the slot behind the caller's back.
	fresh, err := storage.LoadPlan(ctx, "t-conflict")
	require.NoError(t, err)
	fresh.PlanType = plan.TypeEnterprise
	fresh.EndDate = testNow.AddDate(1, 0, 0)
	require.NoError(t, storage.SavePlanStrict(ctx, fresh))

	// The stale interactive upgrade loses and gets the fresh record back.
	rec, err := ops.UpgradePlan(ctx, "t-conflict", trial, plan.TypeBasic)
	assert.ErrorIs(t, err, plan.ErrVersionConflict)
	require.NotNil(t, rec)
	assert.Equal(t, plan.TypeEnterprise, rec.PlanType)
}
