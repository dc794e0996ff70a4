// Package scheduler enforces owner-declared runtime schedules: on every
// tick it compares each tagged resource's observed state with what its
// schedule wants right now and starts or stops it to match.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/budgetguard/budgetguard/internal/config"
	"github.com/budgetguard/budgetguard/internal/metrics"
	"github.com/budgetguard/budgetguard/internal/notify"
	"github.com/budgetguard/budgetguard/internal/runner"
	"github.com/budgetguard/budgetguard/internal/schedule"
	"github.com/budgetguard/budgetguard/internal/store"
	"github.com/budgetguard/budgetguard/pkg/cloudprovider"
	"github.com/budgetguard/budgetguard/pkg/lifecycle"
)

const triggerName = "ScheduleTick"

// Controller runs the periodic schedule enforcement cycle.
type Controller struct {
	cfg        *config.Config
	provider   cloudprovider.ResourceProvider
	runner     *runner.Runner
	dispatcher *notify.Dispatcher
	writer     *store.Writer // may be nil

	now func() time.Time
}

func NewController(cfg *config.Config, provider cloudprovider.ResourceProvider, run *runner.Runner, dispatcher *notify.Dispatcher, writer *store.Writer) *Controller {
	return &Controller{
		cfg:        cfg,
		provider:   provider,
		runner:     run,
		dispatcher: dispatcher,
		writer:     writer,
		now:        time.Now,
	}
}

// Tick runs one enforcement cycle. Resources without a schedule tag are
// unmanaged and never touched. A malformed tag falls back to the
// configured default schedule; with the stock always-on default that can
// only ever start a resource, so a typo never shuts anything down.
// Schedules override the protection tag: an owner who declared dev-hours
// gets dev-hours.
func (c *Controller) Tick(ctx context.Context) (lifecycle.CycleResult, error) {
	cycleID := uuid.NewString()
	localNow := c.now().In(c.cfg.Location())
	// Validate already rejected an unparseable default schedule.
	fallback, _ := schedule.ParseOrDefault(c.cfg.Scheduler.DefaultSchedule)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Remediation.CycleTimeout)
	defer cancel()

	resources, err := c.provider.ListResources(ctx)
	if err != nil {
		if len(resources) == 0 {
			return lifecycle.CycleResult{CycleID: cycleID, Trigger: triggerName}, err
		}
		slog.Warn("partial inventory, continuing", "cycle", cycleID, "error", err)
	}

	var actions []runner.Action
	for _, res := range resources {
		if res.Kind == lifecycle.KindObjectStore {
			continue
		}
		raw, ok := res.ScheduleTag(c.cfg.Tags.ScheduleKey)
		if !ok {
			continue
		}

		sched, parseErr := schedule.Parse(raw)
		if parseErr != nil {
			slog.Warn("malformed schedule tag, falling back to default",
				"resource", res.ID, "tag", raw, "fallback", fallback.String(), "error", parseErr)
			metrics.ScheduleParseFailures.Inc()
			sched = fallback
		}

		desired := sched.DesiredState(localNow)
		if desired == res.CurrentState || res.CurrentState == lifecycle.StateUnknown {
			continue
		}

		action := lifecycle.ActionStop
		if desired == lifecycle.StateRunning {
			action = lifecycle.ActionStart
		}
		actions = append(actions, runner.Action{
			Resource: res,
			Kind:     action,
			Trigger:  triggerName,
		})
	}

	result := c.runner.Execute(ctx, cycleID, triggerName, actions)

	if c.writer != nil {
		c.writer.WriteCycle(result)
	}
	if c.dispatcher != nil && result.Processed > 0 {
		c.dispatcher.Send(ctx, "schedule-tick", notify.ScheduleSummary(result))
	}
	return result, nil
}
