package notify

import (
	"fmt"
	"strings"

	"github.com/budgetguard/budgetguard/internal/budget"
	"github.com/budgetguard/budgetguard/pkg/lifecycle"
)

func severityForTier(tier budget.Tier) Severity {
	switch tier {
	case budget.TierEmergency, budget.TierCritical:
		return SeverityCritical
	case budget.TierWarning:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// TierAlert builds the notification for one budget remediation cycle.
func TierAlert(snap lifecycle.BudgetSnapshot, tier budget.Tier, res lifecycle.CycleResult) Message {
	pct := 0.0
	if snap.LimitUSD > 0 {
		pct = snap.ActualSpendUSD / snap.LimitUSD * 100
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Budget %q is at %.1f%% of its $%.2f limit (tier: %s).\n",
		snap.Name, pct, snap.LimitUSD, tier)
	fmt.Fprintf(&b, "Actual spend: $%.2f", snap.ActualSpendUSD)
	if snap.ForecastSpendUSD > 0 {
		fmt.Fprintf(&b, ", forecast: $%.2f", snap.ForecastSpendUSD)
	}
	fmt.Fprintf(&b, " (%s, period %s)\n", snap.Currency, snap.Period)

	if res.DryRun {
		b.WriteString("\nMode: monitor (no actions were applied)\n")
	}

	succeeded, skipped, failed := res.Counts()
	fmt.Fprintf(&b, "\nActions: %d processed, %d succeeded, %d skipped, %d failed\n",
		res.Processed, succeeded, skipped, failed)
	writeActionLines(&b, res.Records)

	subject := fmt.Sprintf("[budgetguard] %s: budget %q at %.0f%%", tier, snap.Name, pct)
	return Message{Subject: subject, Body: b.String(), Severity: severityForTier(tier)}
}

// ScheduleSummary builds the notification for a scheduler cycle that
// changed at least one resource. Quiet cycles produce no message.
func ScheduleSummary(res lifecycle.CycleResult) Message {
	succeeded, skipped, failed := res.Counts()

	var b strings.Builder
	fmt.Fprintf(&b, "Schedule enforcement: %d resources processed, %d changed, %d skipped, %d failed.\n",
		res.Processed, succeeded, skipped, failed)
	if res.DryRun {
		b.WriteString("Mode: monitor (no actions were applied)\n")
	}
	writeActionLines(&b, res.Records)

	sev := SeverityInfo
	if failed > 0 {
		sev = SeverityWarning
	}
	return Message{
		Subject:  fmt.Sprintf("[budgetguard] schedule enforcement: %d actions", res.Processed),
		Body:     b.String(),
		Severity: sev,
	}
}

// StorageSummary builds the notification for a storage optimization run.
func StorageSummary(bucketsScanned, policiesApplied, emptyBuckets int, estSavingsUSD float64) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Storage optimization: %d buckets scanned, %d lifecycle policies applied.\n",
		bucketsScanned, policiesApplied)
	if emptyBuckets > 0 {
		fmt.Fprintf(&b, "%d empty buckets flagged for review.\n", emptyBuckets)
	}
	if estSavingsUSD > 0 {
		fmt.Fprintf(&b, "Estimated monthly savings: $%.2f\n", estSavingsUSD)
	}
	return Message{
		Subject:  fmt.Sprintf("[budgetguard] storage optimization: %d policies applied", policiesApplied),
		Body:     b.String(),
		Severity: SeverityInfo,
	}
}

func writeActionLines(b *strings.Builder, records []lifecycle.ActionRecord) {
	for _, rec := range records {
		if rec.Action == lifecycle.ActionWarn {
			continue
		}
		fmt.Fprintf(b, "  - %s %s (%s): %s", rec.Action, rec.ResourceID, rec.ResourceKind, rec.Outcome.Kind)
		if rec.Outcome.Reason != "" {
			fmt.Fprintf(b, " (%s)", rec.Outcome.Reason)
		}
		b.WriteByte('\n')
	}
}
