package plan

import (
	"context"
	"log/slog"
)

// ProfileSource resolves the external profile fields needed to derive a
// default plan for a tenant that has no record yet. Implementations sit on
// the auth/profile boundary and are read-only from the engine's side.
type ProfileSource interface {
	Profile(ctx context.Context, tenantID string) (TenantProfile, error)
}

// StatusService composes Storage and the calculations into the view the
// rest of the system consumes. It creates the default record for
// first-time tenants and exposes the gating predicates. Nothing here is
// cached: every call answers from a freshly reconciled record.
type StatusService struct {
	storage  *Storage
	profiles ProfileSource
	log      *slog.Logger
}

// NewStatusService creates the composition layer. profiles may be nil,
// in which case first-time tenants simply have no plan until an explicit
// operation creates one.
func NewStatusService(storage *Storage, profiles ProfileSource, log *slog.Logger) *StatusService {
	if storage == nil {
		panic("plan: Storage is required")
	}
	if log == nil {
		log = slog.Default()
	}
	return &StatusService{
		storage:  storage,
		profiles: profiles,
		log:      log.With(slog.String("component", "plan.status")),
	}
}

// Current returns the tenant's reconciled record, creating the default one
// on first contact. Returns (nil, nil) when the tenant has no record and
// no default can be derived from its profile.
func (s *StatusService) Current(ctx context.Context, tenantID string) (*Record, error) {
	rec, err := s.storage.LoadPlan(ctx, tenantID)
	if err != nil || rec != nil {
		return rec, err
	}

	if s.profiles == nil {
		return nil, nil
	}
	profile, err := s.profiles.Profile(ctx, tenantID)
	if err != nil {
		s.log.WarnContext(ctx, "profile lookup failed, tenant stays without plan",
			slog.String("tenant_id", tenantID), slog.Any("error", err))
		return nil, nil
	}
	return s.storage.CreateDefaultPlan(ctx, profile)
}

// IsFeatureAllowed answers the access-control question for one feature.
// Expired and blocked records deny everything; otherwise the reconciled
// feature snapshot decides. A tenant without a record has no features.
func (s *StatusService) IsFeatureAllowed(ctx context.Context, tenantID string, f Feature) bool {
	rec, err := s.Current(ctx, tenantID)
	if err != nil || rec == nil {
		return false
	}
	return IsFeatureAllowed(rec, f)
}

// UsageLimit returns the reconciled limit for a resource, 0 when the
// tenant has no plan or the tier does not include the resource.
func (s *StatusService) UsageLimit(ctx context.Context, tenantID string, res Resource) int64 {
	rec, err := s.Current(ctx, tenantID)
	if err != nil || rec == nil {
		return 0
	}
	return rec.Limit(res)
}

// ShouldShowUpgradePrompt reports whether the tenant should be nudged
// towards a paid tier right now.
func (s *StatusService) ShouldShowUpgradePrompt(ctx context.Context, tenantID string) bool {
	rec, err := s.Current(ctx, tenantID)
	if err != nil || rec == nil {
		return false
	}
	return ShouldShowUpgradePrompt(rec.PlanType, rec.RemainingDays, rec.Status)
}

// TrialProgress returns the tenant's trial completion percentage, 100 for
// tenants that are not on a trial.
func (s *StatusService) TrialProgress(ctx context.Context, tenantID string) float64 {
	rec, err := s.Current(ctx, tenantID)
	if err != nil || rec == nil || rec.PlanType != TypeTrial {
		return 100
	}
	return TrialProgressPercent(rec.RemainingDays, s.storage.catalog.TrialDaysFor(TypeTrial))
}

// IsFeatureAllowed applies the status gate to a reconciled record: expired
// and blocked hard-deny, every other status defers to the feature snapshot.
func IsFeatureAllowed(rec *Record, f Feature) bool {
	if rec == nil {
		return false
	}
	if rec.Status == StatusExpired || rec.Status == StatusBlocked {
		return false
	}
	return rec.HasFeature(f)
}
