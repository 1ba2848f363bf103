package plan

import "errors"

var (
	ErrTenantRequired = errors.New("plan: tenant is required")
	ErrUnknownTier    = errors.New("plan: unknown tier")
	ErrInvalidCatalog = errors.New("plan: invalid catalog")

	ErrNoCurrentPlan = errors.New("plan: no current plan record")
	ErrNotPaidTier   = errors.New("plan: target tier is not a paid tier")

	ErrRecordNotFound  = errors.New("plan: record not found")
	ErrVersionConflict = errors.New("plan: record version conflict")

	ErrPersistFailed = errors.New("plan: failed to persist record")
)
