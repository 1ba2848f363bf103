package plan

// RequiredLevel is what a gated surface demands from the tenant's plan.
type RequiredLevel string

const (
	// RequireAny admits every tenant whose period is still running.
	RequireAny RequiredLevel = "any"
	// RequirePaid admits only tenants on an active (or cancelled but
	// still paid-through) paid tier.
	RequirePaid RequiredLevel = "paid"
)

// Decision is the guard's verdict for one render of a gated surface.
type Decision string

const (
	// Allow renders the gated content as-is.
	Allow Decision = "allow"
	// AllowWithTrialBanner renders the content behind a dismissable
	// "trial almost over" banner.
	AllowWithTrialBanner Decision = "allow_with_trial_banner"
	// BlockTrialExpired hard-blocks with an upgrade call-to-action.
	BlockTrialExpired Decision = "block_trial_expired"
	// BlockPaidRequired hard-blocks with the plan-selection screen.
	BlockPaidRequired Decision = "block_paid_required"
)

// Blocks reports whether the decision suppresses the gated content.
func (d Decision) Blocks() bool {
	return d == BlockTrialExpired || d == BlockPaidRequired
}

// Decide evaluates the access gate against a live reconciled record. It
// must be called per render with the current record; decisions are never
// cached because the status can flip mid-session.
//
// A missing record is treated like an expired trial: the tenant sees the
// upgrade call-to-action rather than broken content.
func Decide(required RequiredLevel, rec *Record) Decision {
	if rec == nil {
		return BlockTrialExpired
	}

	if rec.Status == StatusExpired || rec.Status == StatusBlocked {
		if rec.PlanType == TypeTrial {
			return BlockTrialExpired
		}
		return BlockPaidRequired
	}

	if required == RequirePaid && !rec.Paid {
		return BlockPaidRequired
	}

	if rec.PlanType == TypeTrial && rec.RemainingDays <= 3 {
		return AllowWithTrialBanner
	}
	return Allow
}
