// Package remediation reacts to budget alerts: it selects the tier for
// the reported spend and shuts down the resource classes that tier
// covers, skipping protected resources and recording every decision.
package remediation

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/budgetguard/budgetguard/internal/budget"
	"github.com/budgetguard/budgetguard/internal/config"
	"github.com/budgetguard/budgetguard/internal/metrics"
	"github.com/budgetguard/budgetguard/internal/notify"
	"github.com/budgetguard/budgetguard/internal/runner"
	"github.com/budgetguard/budgetguard/internal/store"
	"github.com/budgetguard/budgetguard/pkg/cloudprovider"
	"github.com/budgetguard/budgetguard/pkg/lifecycle"
)

// Controller handles inbound budget alert events.
type Controller struct {
	cfg        *config.Config
	provider   cloudprovider.ResourceProvider
	runner     *runner.Runner
	dispatcher *notify.Dispatcher
	writer     *store.Writer // may be nil
}

func NewController(cfg *config.Config, provider cloudprovider.ResourceProvider, run *runner.Runner, dispatcher *notify.Dispatcher, writer *store.Writer) *Controller {
	return &Controller{
		cfg:        cfg,
		provider:   provider,
		runner:     run,
		dispatcher: dispatcher,
		writer:     writer,
	}
}

func (c *Controller) boundaries() budget.Boundaries {
	return budget.Boundaries{
		WarningPct:   c.cfg.Budget.WarningPct,
		CriticalPct:  c.cfg.Budget.CriticalPct,
		EmergencyPct: c.cfg.Budget.EmergencyPct,
	}
}

// HandleAlert runs one remediation cycle for an inbound budget alert.
// The returned result carries every record produced; err is only set for
// infrastructure failures (inventory unavailable), never for individual
// action failures.
func (c *Controller) HandleAlert(ctx context.Context, ev lifecycle.BudgetAlertEvent) (lifecycle.CycleResult, budget.Tier, error) {
	now := time.Now()
	if !c.cfg.Remediation.Enabled {
		slog.Info("remediation disabled, ignoring budget alert", "budget", ev.BudgetName, "alertType", ev.AlertType)
		return lifecycle.CycleResult{Trigger: "Disabled", StartedAt: now}, budget.TierNormal, nil
	}
	snap := budget.SnapshotFromAlert(ev, c.cfg.Budget.LimitUSD, c.cfg.Budget.Currency, now.Format("2006-01"))
	snap.ObservedAt = now

	tier := budget.SelectTier(snap, c.boundaries())
	cycleID := uuid.NewString()

	pct := 0.0
	if snap.LimitUSD > 0 {
		pct = snap.ActualSpendUSD / snap.LimitUSD * 100
	}
	metrics.CurrentTier.Set(float64(tier))
	metrics.BudgetSpendPct.Set(pct)

	slog.Info("budget alert received",
		"cycle", cycleID,
		"budget", ev.BudgetName,
		"alertType", ev.AlertType,
		"thresholdPct", ev.ThresholdPercentage,
		"tier", tier,
	)

	if tier == budget.TierNormal {
		return lifecycle.CycleResult{CycleID: cycleID, Trigger: tier.String(), StartedAt: now}, tier, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Remediation.CycleTimeout)
	defer cancel()

	actions, err := c.plan(ctx, tier, cycleID, snap)
	if err != nil {
		return lifecycle.CycleResult{CycleID: cycleID, Trigger: tier.String(), StartedAt: now}, tier, err
	}

	result := c.runner.Execute(ctx, cycleID, tier.String(), actions)

	if c.writer != nil {
		c.writer.WriteCycle(result)
	}
	if c.dispatcher != nil {
		c.dispatcher.Send(ctx, "budget-alert:"+tier.String(), notify.TierAlert(snap, tier, result))
	}
	return result, tier, nil
}

// plan builds the action list for a tier against a fresh inventory.
//
// Warning notifies only: a single Warn record names the budget. Critical
// stops Compute and scales ContainerService to zero; RelationalStore is
// left untouched until Emergency. Protected resources are recorded as
// Skipped at every tier. The kill-switch downgrades all stop actions to
// Skipped while keeping the notification and the audit trail.
func (c *Controller) plan(ctx context.Context, tier budget.Tier, cycleID string, snap lifecycle.BudgetSnapshot) ([]runner.Action, error) {
	warn := runner.Action{
		Resource: lifecycle.ManagedResource{ID: snap.Name, Name: snap.Name, Kind: "Budget"},
		Kind:     lifecycle.ActionWarn,
		Trigger:  tier.String(),
	}

	if tier == budget.TierWarning {
		return []runner.Action{warn}, nil
	}

	resources, err := c.provider.ListResources(ctx)
	if err != nil {
		if len(resources) == 0 {
			return nil, err
		}
		// Act on what we can see rather than letting one failing API
		// leave everything running.
		slog.Warn("partial inventory, continuing", "cycle", cycleID, "error", err)
	}
	countByKind := make(map[lifecycle.ResourceKind]int)
	for _, r := range resources {
		countByKind[r.Kind]++
	}
	for kind, n := range countByKind {
		metrics.ResourcesInventoried.WithLabelValues(string(kind)).Set(float64(n))
	}

	actions := []runner.Action{warn}
	for _, res := range resources {
		if !c.tierCovers(tier, res.Kind) {
			continue
		}
		a := runner.Action{
			Resource: res,
			Kind:     lifecycle.ActionStop,
			Trigger:  tier.String(),
		}
		switch {
		case res.Protected(c.cfg.Tags.ProtectionKey):
			a.SkipReason = "protected"
		case c.cfg.Remediation.ShutdownDisabled:
			a.SkipReason = "shutdown-disabled"
		}
		actions = append(actions, a)
	}
	return actions, nil
}

func (c *Controller) tierCovers(tier budget.Tier, kind lifecycle.ResourceKind) bool {
	switch kind {
	case lifecycle.KindCompute, lifecycle.KindContainerService:
		return tier >= budget.TierCritical
	case lifecycle.KindRelationalStore:
		return tier >= budget.TierEmergency
	default:
		return false
	}
}
