package plan

import "time"

// Calculations in this file are pure: no I/O, no clock access except the
// convenience wrappers that delegate to the fixed-time variants. The
// fixed-time forms exist so tests can pin the clock.

const day = 24 * time.Hour

// RemainingDaysAt returns the number of calendar days left in a period
// ending at end, as seen from now. Partial days round up, so a period
// ending later today still counts as one remaining day until it strictly
// passes. Never negative.
func RemainingDaysAt(end, now time.Time) int {
	left := end.Sub(now)
	if left <= 0 {
		return 0
	}
	days := int(left / day)
	if left%day != 0 {
		days++
	}
	return days
}

// RemainingDays returns the calendar days left until end from the current time.
func RemainingDays(end time.Time) int {
	return RemainingDaysAt(end, time.Now().UTC())
}

// DetermineStatusAt derives the period-driven status for a record: expired
// when the period has run out, otherwise trial or active depending on the
// plan type. Cancelled and blocked are explicit states owned by operations;
// callers that hold one of those must preserve it themselves while the
// period is still running.
func DetermineStatusAt(end time.Time, pt PlanType, now time.Time) Status {
	if RemainingDaysAt(end, now) <= 0 {
		return StatusExpired
	}
	if pt == TypeTrial {
		return StatusTrial
	}
	return StatusActive
}

// DetermineStatus derives the period-driven status as of the current time.
func DetermineStatus(end time.Time, pt PlanType) Status {
	return DetermineStatusAt(end, pt, time.Now().UTC())
}

// ShouldShowUpgradePrompt reports whether the UI should nudge the tenant
// towards a paid tier: the trial is almost over, or the plan already expired.
func ShouldShowUpgradePrompt(pt PlanType, remainingDays int, status Status) bool {
	if pt == TypeTrial && remainingDays <= 3 {
		return true
	}
	return status == StatusExpired
}

// TrialProgressPercent returns how far through the trial the tenant is,
// clamped to [0,100]. A totalDays of zero or less reports a finished trial.
func TrialProgressPercent(remainingDays, totalDays int) float64 {
	if totalDays <= 0 {
		return 100
	}
	remaining := min(remainingDays, totalDays)
	pct := float64(totalDays-remaining) / float64(totalDays) * 100
	return max(0, min(100, pct))
}
