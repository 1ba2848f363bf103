package plan

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

type yamlTier struct {
	Name      string           `yaml:"name"`
	Paid      bool             `yaml:"paid"`
	TrialDays int              `yaml:"trial_days"`
	Price     int64            `yaml:"price"`
	Currency  string           `yaml:"currency"`
	Interval  string           `yaml:"interval"`
	Limits    map[string]int64 `yaml:"limits"`
	Features  []string         `yaml:"features"`
}

// CatalogFromYAML parses a tier table from YAML. The document is a map of
// plan type to tier definition:
//
//	basic:
//	  name: Basico
//	  paid: true
//	  price: 4990
//	  currency: BRL
//	  interval: monthly
//	  limits:
//	    service_orders: 100
//	  features: [reports, whatsapp]
//
// Every tier must carry a billing interval; paid tiers must carry a price.
func CatalogFromYAML(r io.Reader) (Catalog, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Join(ErrInvalidCatalog, err)
	}

	var doc map[string]yamlTier
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errors.Join(ErrInvalidCatalog, err)
	}
	if len(doc) == 0 {
		return nil, fmt.Errorf("%w: no tiers defined", ErrInvalidCatalog)
	}

	catalog := make(Catalog, len(doc))
	for key, yt := range doc {
		pt := PlanType(key)

		interval := BillingInterval(yt.Interval)
		switch interval {
		case BillingIntervalNone, BillingIntervalMonthly, BillingIntervalQuarterly, BillingIntervalAnnual:
		default:
			return nil, fmt.Errorf("%w: tier %s has unknown interval %q", ErrInvalidCatalog, key, yt.Interval)
		}

		if yt.Paid && yt.Price <= 0 {
			return nil, fmt.Errorf("%w: paid tier %s has no price", ErrInvalidCatalog, key)
		}

		limits := make(map[Resource]int64, len(yt.Limits))
		for res, limit := range yt.Limits {
			limits[Resource(res)] = limit
		}

		features := make([]Feature, 0, len(yt.Features))
		for _, f := range yt.Features {
			features = append(features, Feature(f))
		}

		catalog[pt] = Tier{
			Type:      pt,
			Name:      yt.Name,
			Paid:      yt.Paid,
			TrialDays: yt.TrialDays,
			Price:     Money{Amount: yt.Price, Currency: yt.Currency},
			Interval:  interval,
			Limits:    limits,
			Features:  features,
		}
	}

	return catalog, nil
}

// LoadCatalog reads a tier table from the given YAML file, or returns the
// built-in catalog when path is empty.
func LoadCatalog(path string) (Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Join(ErrInvalidCatalog, err)
	}
	defer f.Close()
	return CatalogFromYAML(f)
}
