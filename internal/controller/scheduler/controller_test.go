package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/budgetguard/budgetguard/internal/config"
	"github.com/budgetguard/budgetguard/internal/runner"
	"github.com/budgetguard/budgetguard/pkg/lifecycle"
)

type fakeProvider struct {
	mu        sync.Mutex
	resources []lifecycle.ManagedResource
	stopped   []string
	started   []string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) ListResources(ctx context.Context) ([]lifecycle.ManagedResource, error) {
	return f.resources, nil
}

func (f *fakeProvider) ListResourcesByKind(ctx context.Context, kind lifecycle.ResourceKind) ([]lifecycle.ManagedResource, error) {
	return nil, nil
}

func (f *fakeProvider) Stop(ctx context.Context, res lifecycle.ManagedResource) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = append(f.stopped, res.ID)
	return nil
}

func (f *fakeProvider) Start(ctx context.Context, res lifecycle.ManagedResource) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, res.ID)
	return nil
}

func tagged(id string, state lifecycle.ResourceState, tags map[string]string) lifecycle.ManagedResource {
	return lifecycle.ManagedResource{
		ID:           id,
		Name:         id,
		Kind:         lifecycle.KindCompute,
		CurrentState: state,
		Stoppable:    true,
		Tags:         tags,
	}
}

func testController(p *fakeProvider, now time.Time) *Controller {
	cfg := config.DefaultConfig()
	cfg.Mode = "active"
	cfg.Region = "us-east-1"
	cfg.Budget.LimitUSD = 1000

	run := runner.New(p, nil, runner.Options{
		Workers:       4,
		ActionTimeout: time.Second,
		RetryBackoff:  time.Millisecond,
	})
	c := NewController(cfg, p, run, nil, nil)
	c.now = func() time.Time { return now }
	return c
}

// 2026-08-03 is a Monday.
func at(day time.Weekday, hour, minute int) time.Time {
	base := time.Date(2026, 8, 3, hour, minute, 0, 0, time.UTC)
	offset := int(day - time.Monday)
	if offset < 0 {
		offset += 7
	}
	return base.AddDate(0, 0, offset)
}

func TestTickStopsOutsideBusinessHours(t *testing.T) {
	p := &fakeProvider{resources: []lifecycle.ManagedResource{
		tagged("i-1", lifecycle.StateRunning, map[string]string{lifecycle.TagAutoSchedule: "business-hours"}),
	}}
	c := testController(p, at(time.Saturday, 10, 0))

	res, err := c.Tick(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(p.stopped) != 1 || p.stopped[0] != "i-1" {
		t.Fatalf("stopped = %v, want [i-1]", p.stopped)
	}
	if res.Records[0].Action != lifecycle.ActionStop {
		t.Errorf("record action = %s", res.Records[0].Action)
	}
}

func TestTickStartsInsideBusinessHours(t *testing.T) {
	p := &fakeProvider{resources: []lifecycle.ManagedResource{
		tagged("i-1", lifecycle.StateStopped, map[string]string{lifecycle.TagAutoSchedule: "business-hours"}),
	}}
	c := testController(p, at(time.Tuesday, 10, 0))

	if _, err := c.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(p.started) != 1 || p.started[0] != "i-1" {
		t.Fatalf("started = %v, want [i-1]", p.started)
	}
}

func TestTickUntaggedResourceUntouched(t *testing.T) {
	p := &fakeProvider{resources: []lifecycle.ManagedResource{
		tagged("i-1", lifecycle.StateRunning, nil),
	}}
	c := testController(p, at(time.Saturday, 10, 0))

	res, err := c.Tick(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(p.stopped)+len(p.started) != 0 {
		t.Errorf("untagged resource was touched")
	}
	if res.Processed != 0 {
		t.Errorf("processed = %d, want 0", res.Processed)
	}
}

func TestTickMalformedTagNeverStops(t *testing.T) {
	p := &fakeProvider{resources: []lifecycle.ManagedResource{
		tagged("i-run", lifecycle.StateRunning, map[string]string{lifecycle.TagAutoSchedule: "weekdays-only"}),
		tagged("i-stop", lifecycle.StateStopped, map[string]string{lifecycle.TagAutoSchedule: "demo-only"}),
	}}
	c := testController(p, at(time.Saturday, 3, 0))

	if _, err := c.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(p.stopped) != 0 {
		t.Errorf("malformed tag caused a stop: %v", p.stopped)
	}
	// Always-on fallback starts the stopped resource.
	if len(p.started) != 1 || p.started[0] != "i-stop" {
		t.Errorf("started = %v, want [i-stop]", p.started)
	}
}

func TestTickMalformedTagUsesConfiguredDefault(t *testing.T) {
	p := &fakeProvider{resources: []lifecycle.ManagedResource{
		tagged("i-stop", lifecycle.StateStopped, map[string]string{lifecycle.TagAutoSchedule: "demo-only"}),
	}}
	c := testController(p, at(time.Saturday, 3, 0))
	c.cfg.Scheduler.DefaultSchedule = "never"

	if _, err := c.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	// A "never" default leaves the stopped resource stopped instead of
	// applying the stock always-on fallback.
	if len(p.started) != 0 {
		t.Errorf("never-default started a resource: %v", p.started)
	}
	if len(p.stopped) != 0 {
		t.Errorf("never-default stopped an already-stopped resource: %v", p.stopped)
	}
}

func TestTickCustomScheduleKey(t *testing.T) {
	p := &fakeProvider{resources: []lifecycle.ManagedResource{
		tagged("i-custom", lifecycle.StateRunning, map[string]string{"Uptime": "business-hours"}),
		tagged("i-default", lifecycle.StateRunning, map[string]string{lifecycle.TagAutoSchedule: "business-hours"}),
	}}
	c := testController(p, at(time.Saturday, 10, 0))
	c.cfg.Tags.ScheduleKey = "Uptime"

	if _, err := c.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	// Only the resource tagged under the configured key is managed.
	if len(p.stopped) != 1 || p.stopped[0] != "i-custom" {
		t.Errorf("stopped = %v, want [i-custom]", p.stopped)
	}
}

func TestTickScheduleOverridesProtection(t *testing.T) {
	p := &fakeProvider{resources: []lifecycle.ManagedResource{
		tagged("i-1", lifecycle.StateRunning, map[string]string{
			lifecycle.TagAutoSchedule:  "dev-hours",
			lifecycle.TagDoNotShutdown: "true",
		}),
	}}
	c := testController(p, at(time.Monday, 22, 0))

	if _, err := c.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(p.stopped) != 1 {
		t.Errorf("protection blocked an owner-declared schedule: stopped=%v", p.stopped)
	}
}

func TestTickNoActionWhenStateMatches(t *testing.T) {
	p := &fakeProvider{resources: []lifecycle.ManagedResource{
		tagged("i-1", lifecycle.StateRunning, map[string]string{lifecycle.TagAutoSchedule: "24x7"}),
		tagged("i-2", lifecycle.StateStopped, map[string]string{lifecycle.TagAutoSchedule: "never"}),
	}}
	c := testController(p, at(time.Wednesday, 12, 0))

	res, err := c.Tick(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Processed != 0 {
		t.Errorf("matching states produced %d actions", res.Processed)
	}
}

func TestTickSchedulesEvaluateInConfiguredTimezone(t *testing.T) {
	p := &fakeProvider{resources: []lifecycle.ManagedResource{
		tagged("i-1", lifecycle.StateRunning, map[string]string{lifecycle.TagAutoSchedule: "business-hours"}),
	}}
	// 17:30 UTC on a Monday is 19:30 in Berlin: outside business hours.
	c := testController(p, at(time.Monday, 17, 30))
	c.cfg.Timezone = "Europe/Berlin"

	if _, err := c.Tick(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(p.stopped) != 1 {
		t.Errorf("timezone not honored: stopped=%v", p.stopped)
	}
}
