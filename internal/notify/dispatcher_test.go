package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/budgetguard/budgetguard/internal/budget"
	"github.com/budgetguard/budgetguard/pkg/lifecycle"
)

type fakePublisher struct {
	published []string
	err       error
}

func (f *fakePublisher) Publish(ctx context.Context, subject, body string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, subject)
	return nil
}

func TestDispatcherDedupWindow(t *testing.T) {
	pub := &fakePublisher{}
	d := NewDispatcher(pub, 15*time.Minute)

	now := time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC)
	d.now = func() time.Time { return now }

	msg := Message{Subject: "s", Body: "b", Severity: SeverityWarning}
	d.Send(context.Background(), "budget-alert:Warning", msg)
	d.Send(context.Background(), "budget-alert:Warning", msg)

	if len(pub.published) != 1 {
		t.Fatalf("published %d messages inside window, want 1", len(pub.published))
	}

	// A different key is not deduped.
	d.Send(context.Background(), "budget-alert:Critical", msg)
	if len(pub.published) != 2 {
		t.Fatalf("published %d messages, want 2", len(pub.published))
	}

	// Past the window the same key fires again.
	now = now.Add(16 * time.Minute)
	d.Send(context.Background(), "budget-alert:Warning", msg)
	if len(pub.published) != 3 {
		t.Fatalf("published %d messages after window, want 3", len(pub.published))
	}
}

func TestDispatcherPublishFailureIsSwallowed(t *testing.T) {
	pub := &fakePublisher{err: errors.New("topic unavailable")}
	d := NewDispatcher(pub, time.Minute)

	// Must not panic or propagate.
	d.Send(context.Background(), "k", Message{Subject: "s"})
}

func TestDispatcherNilPublisher(t *testing.T) {
	d := NewDispatcher(nil, time.Minute)
	d.Send(context.Background(), "k", Message{Subject: "s"})
}

func TestTierAlertMessage(t *testing.T) {
	snap := lifecycle.BudgetSnapshot{
		Name:           "monthly",
		LimitUSD:       1000,
		Currency:       "USD",
		Period:         "2026-08",
		ActualSpendUSD: 850,
	}
	res := lifecycle.CycleResult{
		Processed: 2,
		Records: []lifecycle.ActionRecord{
			{ResourceID: "i-1", ResourceKind: lifecycle.KindCompute, Action: lifecycle.ActionStop, Outcome: lifecycle.Success()},
			{ResourceID: "i-2", ResourceKind: lifecycle.KindCompute, Action: lifecycle.ActionStop, Outcome: lifecycle.Skipped("protected")},
		},
	}

	msg := TierAlert(snap, budget.TierCritical, res)

	if msg.Severity != SeverityCritical {
		t.Errorf("severity = %s, want critical", msg.Severity)
	}
	if !strings.Contains(msg.Subject, "Critical") {
		t.Errorf("subject missing tier: %q", msg.Subject)
	}
	if !strings.Contains(msg.Body, "85.0%") {
		t.Errorf("body missing spend percentage: %q", msg.Body)
	}
	if !strings.Contains(msg.Body, "i-2") || !strings.Contains(msg.Body, "protected") {
		t.Errorf("body missing skipped action detail: %q", msg.Body)
	}
}

func TestTierAlertDryRunBanner(t *testing.T) {
	msg := TierAlert(lifecycle.BudgetSnapshot{Name: "m", LimitUSD: 100, ActualSpendUSD: 90},
		budget.TierCritical, lifecycle.CycleResult{DryRun: true})
	if !strings.Contains(msg.Body, "monitor") {
		t.Errorf("dry-run body missing monitor banner: %q", msg.Body)
	}
}

func TestScheduleSummarySeverity(t *testing.T) {
	res := lifecycle.CycleResult{
		Processed: 1,
		Records: []lifecycle.ActionRecord{
			{ResourceID: "i-1", Action: lifecycle.ActionStop, Outcome: lifecycle.Failed("boom")},
		},
	}
	if got := ScheduleSummary(res).Severity; got != SeverityWarning {
		t.Errorf("severity with failures = %s, want warning", got)
	}

	res.Records[0].Outcome = lifecycle.Success()
	if got := ScheduleSummary(res).Severity; got != SeverityInfo {
		t.Errorf("severity without failures = %s, want info", got)
	}
}
