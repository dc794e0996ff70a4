// Package lifecycle defines the shared types for budget-driven resource
// lifecycle control: managed resources, their tags, and the immutable
// action records produced by every decision.
package lifecycle

import "time"

// Tag keys read from managed resources. Both are configurable; these are
// the defaults the rest of the system assumes.
const (
	TagAutoSchedule  = "AutoSchedule"
	TagDoNotShutdown = "DoNotShutdown"
)

// ResourceKind identifies the class of a managed resource.
type ResourceKind string

const (
	KindCompute          ResourceKind = "Compute"
	KindRelationalStore  ResourceKind = "RelationalStore"
	KindContainerService ResourceKind = "ContainerService"
	KindObjectStore      ResourceKind = "ObjectStore"
)

// ResourceState is the observed run state of a resource. ObjectStore
// resources have no run state and always report StateUnknown.
type ResourceState string

const (
	StateRunning ResourceState = "Running"
	StateStopped ResourceState = "Stopped"
	StateUnknown ResourceState = "Unknown"
)

// ManagedResource is a point-in-time view of one cloud resource. It is
// rebuilt from the provider on every cycle and never persisted; acting on
// a stale copy is prevented by simply not keeping one.
type ManagedResource struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Kind         ResourceKind      `json:"kind"`
	Tags         map[string]string `json:"tags,omitempty"`
	CurrentState ResourceState     `json:"currentState"`

	// Stoppable is false for resources the provider cannot stop at all
	// (e.g. Multi-AZ database instances). Such resources are recorded as
	// Skipped rather than attempted.
	Stoppable bool `json:"stoppable"`
}

// Protected reports whether the resource opted out of budget-tier-driven
// remediation. The tag key is configurable; an empty key means the
// default. Owner-declared schedules are NOT affected by this flag.
func (r ManagedResource) Protected(key string) bool {
	if key == "" {
		key = TagDoNotShutdown
	}
	return r.Tags[key] == "true"
}

// ScheduleTag returns the raw schedule tag value and whether it is set.
// An empty key means the default.
func (r ManagedResource) ScheduleTag(key string) (string, bool) {
	if key == "" {
		key = TagAutoSchedule
	}
	v, ok := r.Tags[key]
	return v, ok
}

// ActionKind is the type of lifecycle action taken on a resource.
type ActionKind string

const (
	ActionWarn           ActionKind = "Warn"
	ActionStop           ActionKind = "Stop"
	ActionStart          ActionKind = "Start"
	ActionTierTransition ActionKind = "TierTransition"
)

// OutcomeKind is the result class of an attempted action.
type OutcomeKind string

const (
	OutcomeSuccess OutcomeKind = "Success"
	OutcomeSkipped OutcomeKind = "Skipped"
	OutcomeFailed  OutcomeKind = "Failed"
)

// Outcome carries the result of one action attempt. Reason is empty for
// Success and holds the skip or failure cause otherwise.
type Outcome struct {
	Kind   OutcomeKind `json:"kind"`
	Reason string      `json:"reason,omitempty"`
}

func Success() Outcome              { return Outcome{Kind: OutcomeSuccess} }
func Skipped(reason string) Outcome { return Outcome{Kind: OutcomeSkipped, Reason: reason} }
func Failed(reason string) Outcome  { return Outcome{Kind: OutcomeFailed, Reason: reason} }

// ActionRecord is the immutable audit entry for one executed decision.
// Created once, never mutated; the audit trail built from these records
// is the sole durable record of system behavior.
type ActionRecord struct {
	CycleID      string       `json:"cycleId"`
	ResourceID   string       `json:"resourceId"`
	ResourceKind ResourceKind `json:"resourceKind"`
	Action       ActionKind   `json:"action"`
	Trigger      string       `json:"trigger"` // tier name or schedule name
	Outcome      Outcome      `json:"outcome"`
	DryRun       bool         `json:"dryRun"`
	Timestamp    time.Time    `json:"timestamp"`
}

// BudgetSnapshot is an explicit view of budget state at one instant.
// All tier decisions take it as a parameter; there is no ambient account
// state anywhere in the system.
type BudgetSnapshot struct {
	Name             string    `json:"name"`
	LimitUSD         float64   `json:"limitUsd"`
	Currency         string    `json:"currency"`
	Period           string    `json:"period"` // e.g. "2026-08", monotonic across cycles
	ActualSpendUSD   float64   `json:"actualSpendUsd"`
	ForecastSpendUSD float64   `json:"forecastSpendUsd"`
	ObservedAt       time.Time `json:"observedAt"`
}

// BudgetAlertEvent is the inbound push event from the billing system.
type BudgetAlertEvent struct {
	BudgetName          string  `json:"budgetName"`
	ThresholdPercentage float64 `json:"thresholdPercentage"`
	AlertType           string  `json:"alertType"` // "ACTUAL" or "FORECASTED"
}

// Forecasted reports whether the alert carries forecast (not actual)
// spend evidence. Forecast evidence may raise the tier to Warning for
// early signaling but never triggers Stop actions.
func (e BudgetAlertEvent) Forecasted() bool { return e.AlertType == "FORECASTED" }

// CycleResult summarizes one remediation or scheduling cycle.
type CycleResult struct {
	CycleID   string         `json:"cycleId"`
	Trigger   string         `json:"trigger"`
	DryRun    bool           `json:"dryRun"`
	StartedAt time.Time      `json:"startedAt"`
	Duration  time.Duration  `json:"duration"`
	Processed int            `json:"processed"`
	Records   []ActionRecord `json:"records"`
}

// Counts returns the number of records per outcome kind.
func (r *CycleResult) Counts() (success, skipped, failed int) {
	for _, rec := range r.Records {
		switch rec.Outcome.Kind {
		case OutcomeSuccess:
			success++
		case OutcomeSkipped:
			skipped++
		case OutcomeFailed:
			failed++
		}
	}
	return
}
