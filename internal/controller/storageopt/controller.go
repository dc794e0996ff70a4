package storageopt

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/budgetguard/budgetguard/internal/config"
	"github.com/budgetguard/budgetguard/internal/metrics"
	"github.com/budgetguard/budgetguard/internal/notify"
	"github.com/budgetguard/budgetguard/internal/state"
	"github.com/budgetguard/budgetguard/pkg/cloudprovider"
	"github.com/budgetguard/budgetguard/pkg/lifecycle"
)

// Report summarizes one optimization run.
type Report struct {
	CycleID         string   `json:"cycleId"`
	BucketsScanned  int      `json:"bucketsScanned"`
	PoliciesApplied int      `json:"policiesApplied"`
	AlreadyOptimal  int      `json:"alreadyOptimal"`
	EmptyBuckets    []string `json:"emptyBuckets,omitempty"`
	EstSavingsUSD   float64  `json:"estSavingsUsd"`
	Failures        int      `json:"failures"`
}

// Controller applies the configured tiering policy across all buckets.
type Controller struct {
	cfg        *config.Config
	storage    cloudprovider.StorageProvider
	sink       cloudprovider.MetricsSink // may be nil
	dispatcher *notify.Dispatcher        // may be nil
	audit      *state.AuditLog           // may be nil
	dryRun     bool
}

func NewController(cfg *config.Config, storage cloudprovider.StorageProvider, sink cloudprovider.MetricsSink, dispatcher *notify.Dispatcher, audit *state.AuditLog) *Controller {
	return &Controller{
		cfg:        cfg,
		storage:    storage,
		sink:       sink,
		dispatcher: dispatcher,
		audit:      audit,
		dryRun:     cfg.Mode == "monitor",
	}
}

// Run executes one optimization pass. Per-bucket failures are recorded
// and the pass continues; only a failed bucket listing aborts it.
func (c *Controller) Run(ctx context.Context) (Report, error) {
	report := Report{CycleID: uuid.NewString()}
	policy := PolicyFromConfig(c.cfg.Storage)
	if err := policy.Validate(); err != nil {
		return report, err
	}

	buckets, err := c.storage.ListBuckets(ctx)
	if err != nil {
		return report, err
	}
	report.BucketsScanned = len(buckets)

	for _, b := range buckets {
		if b.Empty {
			report.EmptyBuckets = append(report.EmptyBuckets, b.Name)
			c.record(b.Name, lifecycle.Skipped("empty-bucket"))
			continue
		}

		summary, err := c.storage.GetLifecycleSummary(ctx, b.Name)
		if err != nil {
			slog.Warn("storage: lifecycle summary unavailable", "bucket", b.Name, "error", err)
			report.Failures++
			c.record(b.Name, lifecycle.Failed(err.Error()))
			continue
		}
		if summary.HasIATransition && summary.HasArchiveTransition && summary.HasAbortIncomplete {
			report.AlreadyOptimal++
			c.record(b.Name, lifecycle.Skipped("already-optimal"))
			continue
		}

		if c.dryRun {
			slog.Info("dry run: would apply lifecycle policy", "bucket", b.Name)
		} else if err := c.storage.ApplyLifecyclePolicy(ctx, b.Name, policy, b.VersioningEnabled); err != nil {
			slog.Warn("storage: policy apply failed", "bucket", b.Name, "error", err)
			report.Failures++
			c.record(b.Name, lifecycle.Failed(err.Error()))
			continue
		}

		report.PoliciesApplied++
		if b.SizeGB >= c.cfg.Storage.MinBucketSizeGB {
			report.EstSavingsUSD += estimateMonthlySavings(b.SizeGB, policy)
		}
		c.record(b.Name, lifecycle.Success())
		metrics.StoragePoliciesApplied.Inc()
	}

	metrics.StorageSavingsUSD.Set(report.EstSavingsUSD)
	c.publishMetrics(ctx, report)

	if c.dispatcher != nil && (report.PoliciesApplied > 0 || len(report.EmptyBuckets) > 0) {
		c.dispatcher.Send(ctx, "storage-optimization",
			notify.StorageSummary(report.BucketsScanned, report.PoliciesApplied, len(report.EmptyBuckets), report.EstSavingsUSD))
	}

	slog.Info("storage optimization complete",
		"cycle", report.CycleID,
		"scanned", report.BucketsScanned,
		"applied", report.PoliciesApplied,
		"alreadyOptimal", report.AlreadyOptimal,
		"empty", len(report.EmptyBuckets),
		"failures", report.Failures,
		"estSavingsUsd", report.EstSavingsUSD,
		"dryRun", c.dryRun,
	)
	return report, nil
}

func (c *Controller) record(bucket string, outcome lifecycle.Outcome) {
	if c.audit == nil {
		return
	}
	c.audit.Record(lifecycle.ActionRecord{
		ResourceID:   bucket,
		ResourceKind: lifecycle.KindObjectStore,
		Action:       lifecycle.ActionTierTransition,
		Trigger:      "StorageOptimization",
		Outcome:      outcome,
		DryRun:       c.dryRun,
		Timestamp:    time.Now(),
	})
}

// publishMetrics pushes run counters to the cloud monitoring service so
// dashboards outside this process can track optimization coverage.
func (c *Controller) publishMetrics(ctx context.Context, report Report) {
	if c.sink == nil {
		return
	}
	put := func(name string, value float64, unit string) {
		if err := c.sink.PutMetric(ctx, name, value, unit); err != nil {
			slog.Debug("storage: metric publish failed", "metric", name, "error", err)
		}
	}
	put("BucketsScanned", float64(report.BucketsScanned), "Count")
	put("LifecyclePoliciesApplied", float64(report.PoliciesApplied), "Count")
	put("EmptyBuckets", float64(len(report.EmptyBuckets)), "Count")
	put("EstimatedMonthlySavings", report.EstSavingsUSD, "None")
}
