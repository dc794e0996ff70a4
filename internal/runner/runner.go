// Package runner executes planned lifecycle actions against a cloud
// provider with a bounded worker pool, per-action timeouts, and retries.
// Both the budget remediation and schedule controllers drive it.
package runner

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/budgetguard/budgetguard/internal/metrics"
	"github.com/budgetguard/budgetguard/internal/state"
	"github.com/budgetguard/budgetguard/pkg/cloudprovider"
	"github.com/budgetguard/budgetguard/pkg/lifecycle"
)

// Action is one planned step of a cycle. A non-empty SkipReason means the
// decision was made upstream and the action is recorded without touching
// the provider.
type Action struct {
	Resource   lifecycle.ManagedResource
	Kind       lifecycle.ActionKind
	Trigger    string
	SkipReason string
}

// Options tune the execution of a cycle.
type Options struct {
	Workers       int
	ActionTimeout time.Duration
	MaxRetries    int
	RetryBackoff  time.Duration
	DryRun        bool
}

func (o *Options) normalize() {
	if o.Workers <= 0 {
		o.Workers = 8
	}
	if o.ActionTimeout <= 0 {
		o.ActionTimeout = 30 * time.Second
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = time.Second
	}
}

// Runner executes actions and records every outcome in the audit log.
type Runner struct {
	provider cloudprovider.ResourceProvider
	audit    *state.AuditLog
	opts     Options
}

// New creates a runner. The audit log may be nil for tests that only
// care about the returned records.
func New(provider cloudprovider.ResourceProvider, audit *state.AuditLog, opts Options) *Runner {
	opts.normalize()
	return &Runner{provider: provider, audit: audit, opts: opts}
}

// Execute runs all actions through the worker pool and returns the cycle
// result. A failed action never aborts the cycle; every action produces
// exactly one record.
func (r *Runner) Execute(ctx context.Context, cycleID, trigger string, actions []Action) lifecycle.CycleResult {
	start := time.Now()
	records := make([]lifecycle.ActionRecord, len(actions))

	sem := make(chan struct{}, r.opts.Workers)
	done := make(chan int)

	for i := range actions {
		go func(i int) {
			sem <- struct{}{}
			defer func() { <-sem }()
			records[i] = r.runOne(ctx, cycleID, actions[i])
			done <- i
		}(i)
	}
	for range actions {
		<-done
	}

	result := lifecycle.CycleResult{
		CycleID:   cycleID,
		Trigger:   trigger,
		DryRun:    r.opts.DryRun,
		StartedAt: start,
		Duration:  time.Since(start),
		Processed: len(actions),
		Records:   records,
	}

	for _, rec := range records {
		if r.audit != nil {
			r.audit.Record(rec)
		}
		metrics.ActionsTotal.WithLabelValues(
			string(rec.ResourceKind), string(rec.Action), string(rec.Outcome.Kind)).Inc()
	}
	metrics.CycleDuration.WithLabelValues(trigger).Observe(result.Duration.Seconds())

	succeeded, skipped, failed := result.Counts()
	slog.Info("cycle complete",
		"cycle", cycleID,
		"trigger", trigger,
		"processed", result.Processed,
		"succeeded", succeeded,
		"skipped", skipped,
		"failed", failed,
		"dryRun", r.opts.DryRun,
		"duration", result.Duration.Round(time.Millisecond),
	)
	return result
}

func (r *Runner) runOne(ctx context.Context, cycleID string, a Action) lifecycle.ActionRecord {
	rec := lifecycle.ActionRecord{
		CycleID:      cycleID,
		ResourceID:   a.Resource.ID,
		ResourceKind: a.Resource.Kind,
		Action:       a.Kind,
		Trigger:      a.Trigger,
		DryRun:       r.opts.DryRun,
		Timestamp:    time.Now(),
	}
	rec.Outcome = r.decide(ctx, a)
	return rec
}

func (r *Runner) decide(ctx context.Context, a Action) lifecycle.Outcome {
	if a.SkipReason != "" {
		return lifecycle.Skipped(a.SkipReason)
	}

	switch a.Kind {
	case lifecycle.ActionWarn:
		// Warn records the decision; notification happens upstream.
		return lifecycle.Success()
	case lifecycle.ActionStop:
		if a.Resource.CurrentState == lifecycle.StateStopped {
			return lifecycle.Success()
		}
		if !a.Resource.Stoppable {
			return lifecycle.Skipped("not-stoppable")
		}
	case lifecycle.ActionStart:
		if a.Resource.CurrentState == lifecycle.StateRunning {
			return lifecycle.Success()
		}
	default:
		return lifecycle.Failed("unsupported-action")
	}

	if r.opts.DryRun {
		slog.Info("dry run: would execute",
			"action", a.Kind, "resource", a.Resource.ID, "kind", a.Resource.Kind)
		return lifecycle.Success()
	}

	return r.execute(ctx, a)
}

// execute calls the provider with retries on transient errors. Backoff
// doubles each attempt and is abandoned the moment ctx expires.
func (r *Runner) execute(ctx context.Context, a Action) lifecycle.Outcome {
	backoff := r.opts.RetryBackoff

	var lastErr error
	for attempt := 0; attempt <= r.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return lifecycle.Failed("deadline-exceeded")
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		callCtx, cancel := context.WithTimeout(ctx, r.opts.ActionTimeout)
		var err error
		switch a.Kind {
		case lifecycle.ActionStop:
			err = r.provider.Stop(callCtx, a.Resource)
		case lifecycle.ActionStart:
			err = r.provider.Start(callCtx, a.Resource)
		}
		cancel()

		if err == nil {
			return lifecycle.Success()
		}

		switch cloudprovider.Classify(err) {
		case cloudprovider.ClassAlreadyInState:
			return lifecycle.Success()
		case cloudprovider.ClassPermission:
			return lifecycle.Failed("permission-denied")
		case cloudprovider.ClassTransient:
			lastErr = err
			slog.Warn("transient provider error, will retry",
				"resource", a.Resource.ID, "action", a.Kind,
				"attempt", attempt+1, "error", err)
			continue
		}

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return lifecycle.Failed("deadline-exceeded")
		}
		return lifecycle.Failed(err.Error())
	}

	if errors.Is(lastErr, context.DeadlineExceeded) {
		return lifecycle.Failed("deadline-exceeded")
	}
	return lifecycle.Failed(lastErr.Error())
}
