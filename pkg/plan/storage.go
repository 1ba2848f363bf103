package plan

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"
)

// Storage translates between the raw persistence slot and fully reconciled
// plan records. Every record leaving Storage has had its denormalized
// fields recomputed; there is deliberately no raw-record accessor.
type Storage struct {
	store   Store
	catalog Catalog
	log     *slog.Logger
	now     func() time.Time
}

// StorageOption configures a Storage instance.
type StorageOption func(*Storage)

// WithClock overrides the clock, pinning time in tests.
func WithClock(now func() time.Time) StorageOption {
	return func(s *Storage) {
		if now != nil {
			s.now = now
		}
	}
}

// NewStorage creates a Storage bound to the given store and tier catalog.
// Panics on nil dependencies to fail fast during initialization.
func NewStorage(store Store, catalog Catalog, log *slog.Logger, opts ...StorageOption) *Storage {
	if store == nil {
		panic("plan: Store is required")
	}
	if len(catalog) == 0 {
		panic("plan: catalog is required")
	}
	if log == nil {
		log = slog.Default()
	}
	s := &Storage{
		store:   store,
		catalog: catalog,
		now:     func() time.Time { return time.Now().UTC() },
		log:     log.With(slog.String("component", "plan.storage")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Catalog returns the tier table this storage reconciles against.
func (s *Storage) Catalog() Catalog { return s.catalog }

// LoadPlan reads and reconciles the tenant's plan record. A missing record
// returns (nil, nil) so the caller decides whether to create a default. A
// corrupt record is deleted and also reported as absent: broken persisted
// state must never lock a tenant out.
func (s *Storage) LoadPlan(ctx context.Context, tenantID string) (*Record, error) {
	if tenantID == "" {
		return nil, ErrTenantRequired
	}

	key := RecordID(tenantID)
	raw, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		s.log.WarnContext(ctx, "discarding corrupt plan record",
			slog.String("tenant_id", tenantID), slog.Any("error", err))
		if rmErr := s.store.Remove(ctx, key); rmErr != nil {
			s.log.ErrorContext(ctx, "failed to remove corrupt plan record",
				slog.String("tenant_id", tenantID), slog.Any("error", rmErr))
		}
		return nil, nil
	}

	rec.reconcileAt(s.catalog, s.now())
	return &rec, nil
}

// CreateDefaultPlan builds the tenant's first record from its profile. The
// profile must name a tier the catalog knows; the period comes from the
// profile's own registration and expiry dates, so a pre-existing tenant's
// historical trial window is respected rather than restarted.
//
// Returns (nil, nil) for profiles without a usable tier: that is a
// data-integrity guard, not a default-to-trial fallback.
func (s *Storage) CreateDefaultPlan(ctx context.Context, profile TenantProfile) (*Record, error) {
	if profile.ID == "" {
		return nil, ErrTenantRequired
	}

	tier, ok := s.catalog.Lookup(profile.PlanType)
	if !ok {
		s.log.WarnContext(ctx, "cannot derive default plan for unknown tier",
			slog.String("tenant_id", profile.ID),
			slog.String("plan_type", string(profile.PlanType)))
		return nil, nil
	}

	now := s.now()
	start := profile.RegisteredAt
	if start.IsZero() {
		start = now
	}
	end := profile.PlanExpiresAt
	if end.IsZero() {
		if profile.PlanType == TypeTrial {
			end = start.AddDate(0, 0, s.catalog.TrialDaysFor(profile.PlanType))
		} else {
			end = tier.Interval.PeriodEnd(start)
		}
	}

	rec := &Record{
		ID:        RecordID(profile.ID),
		TenantID:  profile.ID,
		PlanType:  profile.PlanType,
		StartDate: start,
		EndDate:   end,
		UpdatedAt: now,
	}
	if profile.PlanType == TypeTrial {
		rec.TrialStartDate = &start
		rec.TrialEndDate = &end
		rec.TrialUsed = true
	}
	rec.reconcileAt(s.catalog, now)

	s.SavePlan(ctx, rec)
	return rec, nil
}

// SavePlan persists the record into the tenant's single slot, bumping its
// version. Persistence failure is logged and swallowed: the caller keeps
// its in-memory view and plan-state durability problems never crash the
// interactive path. Writers that need durability guarantees (webhook
// reconciliation) use SavePlanStrict instead.
func (s *Storage) SavePlan(ctx context.Context, rec *Record) {
	if err := s.SavePlanStrict(ctx, rec); err != nil {
		s.log.ErrorContext(ctx, "failed to persist plan record",
			slog.String("tenant_id", rec.TenantID), slog.Any("error", err))
	}
}

// SavePlanStrict persists the record and surfaces any failure, including
// ErrVersionConflict when a concurrent writer already advanced the slot.
func (s *Storage) SavePlanStrict(ctx context.Context, rec *Record) error {
	if rec == nil || rec.TenantID == "" {
		return ErrTenantRequired
	}

	expected := rec.Version
	rec.Version++
	rec.UpdatedAt = s.now()
	if rec.ID == "" {
		rec.ID = RecordID(rec.TenantID)
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		rec.Version = expected
		return errors.Join(ErrPersistFailed, err)
	}

	if err := s.store.SetVersioned(ctx, rec.ID, string(raw), expected); err != nil {
		rec.Version = expected
		if errors.Is(err, ErrVersionConflict) {
			return err
		}
		return errors.Join(ErrPersistFailed, err)
	}
	return nil
}
