// Package metrics exposes the daemon's Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CurrentTier = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "budgetguard",
		Name:      "budget_tier",
		Help:      "Current remediation tier (0=Normal 1=Warning 2=Critical 3=Emergency)",
	})

	BudgetSpendPct = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "budgetguard",
		Name:      "budget_spend_pct",
		Help:      "Last observed actual spend as percent of the budget limit",
	})

	ActionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "budgetguard",
		Name:      "actions_total",
		Help:      "Lifecycle actions by resource kind, action and outcome",
	}, []string{"kind", "action", "outcome"})

	CycleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "budgetguard",
		Name:      "cycle_duration_seconds",
		Help:      "Duration of remediation/scheduler/storage cycles",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	}, []string{"trigger"})

	ResourcesInventoried = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "budgetguard",
		Name:      "resources_inventoried",
		Help:      "Resources enumerated in the last cycle, by kind",
	}, []string{"kind"})

	ScheduleParseFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "budgetguard",
		Name:      "schedule_parse_failures_total",
		Help:      "Malformed AutoSchedule tags resolved to the AlwaysOn fallback",
	})

	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "budgetguard",
		Name:      "notifications_total",
		Help:      "Notification dispatch attempts by result",
	}, []string{"result"}) // "sent", "deduped", "failed"

	StoragePoliciesApplied = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "budgetguard",
		Name:      "storage_policies_applied_total",
		Help:      "Bucket lifecycle policies created or updated",
	})

	StorageSavingsUSD = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "budgetguard",
		Name:      "storage_estimated_savings_usd",
		Help:      "Estimated monthly savings from storage tiering, last run",
	})
)
