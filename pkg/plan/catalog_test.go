package plan_test

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tecassist/plankit/pkg/plan"
)

func TestDefaultCatalog(t *testing.T) {
	t.Parallel()
	catalog := plan.DefaultCatalog()

	t.Run("carries all four tiers", func(t *testing.T) {
		t.Parallel()
		for _, pt := range []plan.PlanType{
			plan.TypeTrial, plan.TypeBasic, plan.TypeProfessional, plan.TypeEnterprise,
		} {
			_, ok := catalog.Lookup(pt)
			assert.True(t, ok, "missing tier %s", pt)
		}
	})

	t.Run("lookup returns a copy", func(t *testing.T) {
		t.Parallel()
		tier, ok := catalog.Lookup(plan.TypeBasic)
		require.True(t, ok)

		tier.Limits[plan.ResourceUsers] = 999
		tier.Features[0] = plan.Feature("scribbled")

		fresh, ok := catalog.Lookup(plan.TypeBasic)
		require.True(t, ok)
		assert.Equal(t, int64(2), fresh.Limits[plan.ResourceUsers])
		assert.Equal(t, plan.FeatureReports, fresh.Features[0])
	})

	t.Run("paid flags match pricing", func(t *testing.T) {
		t.Parallel()
		assert.False(t, catalog.IsPaid(plan.TypeTrial))
		assert.True(t, catalog.IsPaid(plan.TypeProfessional))
		assert.False(t, catalog.IsPaid(plan.PlanType("nope")))
	})

	t.Run("trial days fall back to the default", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, plan.DefaultTrialDays, catalog.TrialDaysFor(plan.TypeTrial))
		assert.Equal(t, plan.DefaultTrialDays, catalog.TrialDaysFor(plan.PlanType("nope")))
	})
}

func TestCatalogFromYAML(t *testing.T) {
	t.Parallel()

	t.Run("parses a tier table", func(t *testing.T) {
		t.Parallel()
		catalog, err := plan.CatalogFromYAML(strings.NewReader(`
trial:
  name: Teste
  trial_days: 14
  interval: none
  limits:
    service_orders: 10
  features: [reports]
basic:
  name: Basico
  paid: true
  price: 4990
  currency: BRL
  interval: monthly
  limits:
    service_orders: 100
    users: 2
  features: [reports, whatsapp]
`))
		require.NoError(t, err)

		basic, ok := catalog.Lookup(plan.TypeBasic)
		require.True(t, ok)
		assert.True(t, basic.Paid)
		assert.Equal(t, int64(4990), basic.Price.Amount)
		assert.Equal(t, plan.BillingIntervalMonthly, basic.Interval)
		assert.Equal(t, int64(100), basic.Limits[plan.ResourceServiceOrders])
		assert.Contains(t, basic.Features, plan.FeatureWhatsApp)

		assert.Equal(t, 14, catalog.TrialDaysFor(plan.TypeTrial))
	})

	t.Run("rejects an unknown interval", func(t *testing.T) {
		t.Parallel()
		_, err := plan.CatalogFromYAML(strings.NewReader(`
basic:
  paid: true
  price: 100
  interval: weekly
`))
		assert.ErrorIs(t, err, plan.ErrInvalidCatalog)
	})

	t.Run("rejects a paid tier without a price", func(t *testing.T) {
		t.Parallel()
		_, err := plan.CatalogFromYAML(strings.NewReader(`
basic:
  paid: true
  interval: monthly
`))
		assert.ErrorIs(t, err, plan.ErrInvalidCatalog)
	})

	t.Run("rejects an empty document", func(t *testing.T) {
		t.Parallel()
		_, err := plan.CatalogFromYAML(strings.NewReader(""))
		assert.ErrorIs(t, err, plan.ErrInvalidCatalog)
	})

	t.Run("rejects garbage", func(t *testing.T) {
		t.Parallel()
		_, err := plan.CatalogFromYAML(strings.NewReader("[not, a, map"))
		assert.ErrorIs(t, err, plan.ErrInvalidCatalog)
	})
}

func TestLoadCatalog(t *testing.T) {
	t.Parallel()

	t.Run("empty path yields the built-in catalog", func(t *testing.T) {
		t.Parallel()
		catalog, err := plan.LoadCatalog("")
		require.NoError(t, err)
		assert.True(t, catalog.IsPaid(plan.TypeBasic))
	})

	t.Run("missing file reports an invalid catalog", func(t *testing.T) {
		t.Parallel()
		_, err := plan.LoadCatalog(filepath.Join(t.TempDir(), "absent.yml"))
		assert.ErrorIs(t, err, plan.ErrInvalidCatalog)
	})
}
