package plan

import (
	"maps"
	"slices"
)

// Tier describes one entry of the static tier table: metadata plus the
// feature/limit snapshot copied into plan records on read. Lookups always
// go through a Catalog so tier data is defined exactly once.
type Tier struct {
	Type      PlanType
	Name      string
	Paid      bool
	TrialDays int
	Price     Money
	Interval  BillingInterval
	Limits    map[Resource]int64
	Features  []Feature
}

// clone returns a deep copy so callers can never mutate catalog state
// through a record snapshot.
func (t Tier) clone() Tier {
	t.Limits = maps.Clone(t.Limits)
	t.Features = slices.Clone(t.Features)
	return t
}

// Catalog maps plan types to their tier definitions.
type Catalog map[PlanType]Tier

// Lookup returns a deep copy of the tier for the given plan type.
func (c Catalog) Lookup(pt PlanType) (Tier, bool) {
	t, ok := c[pt]
	if !ok {
		return Tier{}, false
	}
	return t.clone(), true
}

// IsPaid reports whether the plan type maps to a paid tier.
// Unknown tiers are never paid.
func (c Catalog) IsPaid(pt PlanType) bool {
	t, ok := c[pt]
	return ok && t.Paid
}

// DefaultTrialDays is the trial length used when a tier does not declare one.
const DefaultTrialDays = 7

// DefaultCatalog returns the built-in tier table. Deployments that need
// different limits load a catalog from YAML instead (see CatalogFromYAML).
func DefaultCatalog() Catalog {
	return Catalog{
		TypeTrial: {
			Type:      TypeTrial,
			Name:      "Teste Gratis",
			Paid:      false,
			TrialDays: DefaultTrialDays,
			Interval:  BillingIntervalNone,
			Limits: map[Resource]int64{
				ResourceServiceOrders: 20,
				ResourceClients:       30,
				ResourceProducts:      50,
				ResourceUsers:         1,
				ResourceStorage:       1,
			},
			Features: []Feature{FeatureReports, FeatureExport},
		},
		TypeBasic: {
			Type:     TypeBasic,
			Name:     "Basico",
			Paid:     true,
			Price:    Money{Amount: 4990, Currency: "BRL"},
			Interval: BillingIntervalMonthly,
			Limits: map[Resource]int64{
				ResourceServiceOrders: 100,
				ResourceClients:       200,
				ResourceProducts:      500,
				ResourceUsers:         2,
				ResourceStorage:       5,
			},
			Features: []Feature{FeatureReports, FeatureExport, FeatureWhatsApp},
		},
		TypeProfessional: {
			Type:     TypeProfessional,
			Name:     "Profissional",
			Paid:     true,
			Price:    Money{Amount: 9990, Currency: "BRL"},
			Interval: BillingIntervalMonthly,
			Limits: map[Resource]int64{
				ResourceServiceOrders: 500,
				ResourceClients:       1000,
				ResourceProducts:      5000,
				ResourceUsers:         5,
				ResourceStorage:       20,
			},
			Features: []Feature{
				FeatureReports, FeatureExport, FeatureWhatsApp,
				FeatureAdvancedReports, FeatureAPI,
			},
		},
		TypeEnterprise: {
			Type:     TypeEnterprise,
			Name:     "Empresarial",
			Paid:     true,
			Price:    Money{Amount: 19990, Currency: "BRL"},
			Interval: BillingIntervalMonthly,
			Limits: map[Resource]int64{
				ResourceServiceOrders: Unlimited,
				ResourceClients:       Unlimited,
				ResourceProducts:      Unlimited,
				ResourceUsers:         Unlimited,
				ResourceStorage:       100,
			},
			Features: []Feature{
				FeatureReports, FeatureExport, FeatureWhatsApp,
				FeatureAdvancedReports, FeatureAPI,
				FeatureCustomBranding, FeaturePrioritySupport, FeatureMultiLocation,
			},
		},
	}
}

// TrialDaysFor returns the trial length for a plan type, falling back to
// DefaultTrialDays for tiers without an explicit value.
func (c Catalog) TrialDaysFor(pt PlanType) int {
	if t, ok := c[pt]; ok && t.TrialDays > 0 {
		return t.TrialDays
	}
	return DefaultTrialDays
}
