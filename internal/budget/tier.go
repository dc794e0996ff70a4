// Package budget maps budget snapshots to remediation tiers. Everything
// here is a pure function of its inputs so tier decisions are trivially
// testable without a clock or a provider.
package budget

import (
	"fmt"

	"github.com/budgetguard/budgetguard/pkg/lifecycle"
)

// Tier is a discrete budget-usage bracket. Higher tiers mean more
// aggressive remediation.
type Tier int

const (
	TierNormal Tier = iota
	TierWarning
	TierCritical
	TierEmergency
)

func (t Tier) String() string {
	switch t {
	case TierNormal:
		return "Normal"
	case TierWarning:
		return "Warning"
	case TierCritical:
		return "Critical"
	case TierEmergency:
		return "Emergency"
	default:
		return fmt.Sprintf("Tier(%d)", int(t))
	}
}

// Boundaries are the spend-percentage thresholds for each tier. All
// boundaries are closed: spend exactly at a boundary selects the higher
// tier.
type Boundaries struct {
	WarningPct   float64
	CriticalPct  float64
	EmergencyPct float64
}

// DefaultBoundaries returns the standard 50/80/100 thresholds.
func DefaultBoundaries() Boundaries {
	return Boundaries{WarningPct: 50, CriticalPct: 80, EmergencyPct: 100}
}

// Validate checks that boundaries are positive and strictly increasing.
func (b Boundaries) Validate() error {
	if b.WarningPct <= 0 {
		return fmt.Errorf("warning boundary must be > 0, got %.1f", b.WarningPct)
	}
	if b.CriticalPct <= b.WarningPct {
		return fmt.Errorf("critical boundary (%.1f) must be greater than warning (%.1f)", b.CriticalPct, b.WarningPct)
	}
	if b.EmergencyPct <= b.CriticalPct {
		return fmt.Errorf("emergency boundary (%.1f) must be greater than critical (%.1f)", b.EmergencyPct, b.CriticalPct)
	}
	return nil
}

// SelectTier derives the remediation tier from a budget snapshot.
//
// The tier follows actual spend: Normal below the warning boundary,
// Warning at or above it, Critical at or above the critical boundary,
// Emergency at or above the emergency boundary. Forecast spend may only
// raise a Normal result to Warning — forecast evidence never triggers
// resource actions, so it never selects Critical or Emergency.
//
// A snapshot with a non-positive limit selects Normal: with no budget to
// measure against there is no spend evidence to act on.
func SelectTier(snap lifecycle.BudgetSnapshot, b Boundaries) Tier {
	if snap.LimitUSD <= 0 {
		return TierNormal
	}

	tier := tierForPct(snap.ActualSpendUSD / snap.LimitUSD * 100, b)

	if tier == TierNormal && snap.ForecastSpendUSD/snap.LimitUSD*100 >= b.WarningPct {
		return TierWarning
	}
	return tier
}

func tierForPct(pct float64, b Boundaries) Tier {
	switch {
	case pct >= b.EmergencyPct:
		return TierEmergency
	case pct >= b.CriticalPct:
		return TierCritical
	case pct >= b.WarningPct:
		return TierWarning
	default:
		return TierNormal
	}
}

// SnapshotFromAlert converts a push alert into an explicit BudgetSnapshot
// against the configured budget limit. Actual spend is only populated for
// ACTUAL alerts; FORECASTED alerts populate forecast spend so the tier
// selector caps them at Warning naturally.
func SnapshotFromAlert(ev lifecycle.BudgetAlertEvent, limitUSD float64, currency, period string) lifecycle.BudgetSnapshot {
	snap := lifecycle.BudgetSnapshot{
		Name:     ev.BudgetName,
		LimitUSD: limitUSD,
		Currency: currency,
		Period:   period,
	}
	// Multiply before dividing so round percentages map back to exact
	// dollar amounts (110/100*1000 picks up float error, 110*1000/100
	// does not).
	spend := ev.ThresholdPercentage * limitUSD / 100
	if ev.Forecasted() {
		snap.ForecastSpendUSD = spend
	} else {
		snap.ActualSpendUSD = spend
	}
	return snap
}
