package plan_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/tecassist/plankit/pkg/plan"
)

func TestRemainingDaysAt(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		end  time.Time
		want int
	}{
		{"period already over", now.Add(-time.Hour), 0},
		{"ends exactly now", now, 0},
		{"ends later today counts as one day", now.Add(6 * time.Hour), 1},
		{"exactly one day", now.Add(24 * time.Hour), 1},
		{"one day and a bit rounds up", now.Add(25 * time.Hour), 2},
		{"five days", now.AddDate(0, 0, 5), 5},
		{"far past stays at zero", now.AddDate(0, 0, -30), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, plan.RemainingDaysAt(tt.end, now))
		})
	}
}

func TestDetermineStatusAt(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("running trial", func(t *testing.T) {
		t.Parallel()
		got := plan.DetermineStatusAt(now.AddDate(0, 0, 3), plan.TypeTrial, now)
		assert.Equal(t, plan.StatusTrial, got)
	})

	t.Run("running paid plan", func(t *testing.T) {
		t.Parallel()
		got := plan.DetermineStatusAt(now.AddDate(0, 0, 20), plan.TypeBasic, now)
		assert.Equal(t, plan.StatusActive, got)
	})

	t.Run("expired regardless of type", func(t *testing.T) {
		t.Parallel()
		yesterday := now.AddDate(0, 0, -1)
		assert.Equal(t, plan.StatusExpired, plan.DetermineStatusAt(yesterday, plan.TypeTrial, now))
		assert.Equal(t, plan.StatusExpired, plan.DetermineStatusAt(yesterday, plan.TypeBasic, now))
		assert.Equal(t, plan.StatusExpired, plan.DetermineStatusAt(yesterday, plan.TypeEnterprise, now))
	})

	t.Run("expiration is stable under recomputation", func(t *testing.T) {
		t.Parallel()
		end := now.Add(-time.Minute)
		for range 5 {
			assert.Equal(t, plan.StatusExpired, plan.DetermineStatusAt(end, plan.TypeBasic, now))
		}
	})
}

func TestShouldShowUpgradePrompt(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		planType  plan.PlanType
		remaining int
		status    plan.Status
		want      bool
	}{
		{"trial almost over", plan.TypeTrial, 2, plan.StatusTrial, true},
		{"trial at threshold", plan.TypeTrial, 3, plan.StatusTrial, true},
		{"fresh trial", plan.TypeTrial, 6, plan.StatusTrial, false},
		{"healthy paid plan", plan.TypeBasic, 10, plan.StatusActive, false},
		{"expired paid plan", plan.TypeBasic, 0, plan.StatusExpired, true},
		{"expired trial", plan.TypeTrial, 0, plan.StatusExpired, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, plan.ShouldShowUpgradePrompt(tt.planType, tt.remaining, tt.status))
		})
	}
}

func TestTrialProgressPercent(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0, plan.TrialProgressPercent(7, 7), 0.01)
	assert.InDelta(t, 100, plan.TrialProgressPercent(0, 7), 0.01)
	assert.InDelta(t, 50, plan.TrialProgressPercent(7, 14), 0.01)
	// Remaining above total clamps instead of going negative.
	assert.InDelta(t, 0, plan.TrialProgressPercent(10, 7), 0.01)
	// Degenerate trial length reports a finished trial.
	assert.InDelta(t, 100, plan.TrialProgressPercent(3, 0), 0.01)
}

func TestBillingIntervalPeriodEnd(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, start.AddDate(0, 1, 0), plan.BillingIntervalMonthly.PeriodEnd(start))
	assert.Equal(t, start.AddDate(0, 3, 0), plan.BillingIntervalQuarterly.PeriodEnd(start))
	assert.Equal(t, start.AddDate(1, 0, 0), plan.BillingIntervalAnnual.PeriodEnd(start))
	assert.Equal(t, start, plan.BillingIntervalNone.PeriodEnd(start))
}
