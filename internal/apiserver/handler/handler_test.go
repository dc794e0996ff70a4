package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/budgetguard/budgetguard/internal/config"
	"github.com/budgetguard/budgetguard/internal/controller/remediation"
	"github.com/budgetguard/budgetguard/internal/runner"
	"github.com/budgetguard/budgetguard/internal/state"
	"github.com/budgetguard/budgetguard/pkg/lifecycle"
)

type fakeProvider struct {
	resources []lifecycle.ManagedResource
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) ListResources(ctx context.Context) ([]lifecycle.ManagedResource, error) {
	return f.resources, nil
}

func (f *fakeProvider) ListResourcesByKind(ctx context.Context, kind lifecycle.ResourceKind) ([]lifecycle.ManagedResource, error) {
	var out []lifecycle.ManagedResource
	for _, r := range f.resources {
		if r.Kind == kind {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeProvider) Stop(ctx context.Context, res lifecycle.ManagedResource) error { return nil }

func (f *fakeProvider) Start(ctx context.Context, res lifecycle.ManagedResource) error { return nil }

func testEventHandler(p *fakeProvider) *EventHandler {
	cfg := config.DefaultConfig()
	cfg.Mode = "active"
	cfg.Region = "us-east-1"
	cfg.Budget.LimitUSD = 1000

	run := runner.New(p, nil, runner.Options{
		Workers:       2,
		ActionTimeout: time.Second,
		RetryBackoff:  time.Millisecond,
	})
	rem := remediation.NewController(cfg, p, run, nil, nil)
	return NewEventHandler(rem, nil, nil)
}

func TestBudgetAlertRejectsBadPayload(t *testing.T) {
	h := testEventHandler(&fakeProvider{})

	tests := []struct {
		name string
		body string
	}{
		{"invalid json", "{"},
		{"missing budget name", `{"thresholdPercentage": 85, "alertType": "ACTUAL"}`},
		{"bad alert type", `{"budgetName": "m", "thresholdPercentage": 85, "alertType": "GUESS"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api/v1/events/budget-alert", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			h.BudgetAlert(rec, req)
			if rec.Code != 400 {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestBudgetAlertRunsCycle(t *testing.T) {
	p := &fakeProvider{resources: []lifecycle.ManagedResource{
		{ID: "i-1", Kind: lifecycle.KindCompute, CurrentState: lifecycle.StateRunning, Stoppable: true},
	}}
	h := testEventHandler(p)

	body := `{"budgetName": "monthly", "thresholdPercentage": 85, "alertType": "ACTUAL"}`
	req := httptest.NewRequest("POST", "/api/v1/events/budget-alert", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.BudgetAlert(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Tier      string `json:"tier"`
		Processed int    `json:"processed"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Tier != "Critical" {
		t.Errorf("tier = %s, want Critical", resp.Tier)
	}
	if resp.Processed < 1 {
		t.Errorf("processed = %d, want at least 1", resp.Processed)
	}
}

func TestAuditListHonorsLimit(t *testing.T) {
	audit := state.NewAuditLog(100)
	for i := 0; i < 10; i++ {
		audit.Record(lifecycle.ActionRecord{ResourceID: "i-1", Action: lifecycle.ActionStop, Outcome: lifecycle.Success()})
	}
	h := NewAuditHandler(audit)

	req := httptest.NewRequest("GET", "/api/v1/audit?limit=3", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	var resp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 3 {
		t.Errorf("count = %d, want 3", resp.Count)
	}
}

func TestAuditListAllBypassesLimit(t *testing.T) {
	audit := state.NewAuditLog(100)
	for i := 0; i < 10; i++ {
		audit.Record(lifecycle.ActionRecord{ResourceID: "i-1", Action: lifecycle.ActionStop, Outcome: lifecycle.Success()})
	}
	h := NewAuditHandler(audit)

	req := httptest.NewRequest("GET", "/api/v1/audit?all=1", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	var resp struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 10 {
		t.Errorf("count = %d, want 10", resp.Count)
	}
}

func TestResourceListFiltersByKind(t *testing.T) {
	p := &fakeProvider{resources: []lifecycle.ManagedResource{
		{ID: "i-1", Kind: lifecycle.KindCompute},
		{ID: "db-1", Kind: lifecycle.KindRelationalStore},
	}}
	h := NewResourceHandler(p)

	req := httptest.NewRequest("GET", "/api/v1/resources?kind=Compute", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	var resp struct {
		Count     int                         `json:"count"`
		Resources []lifecycle.ManagedResource `json:"resources"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Count != 1 || resp.Resources[0].ID != "i-1" {
		t.Errorf("filtered resources = %+v", resp.Resources)
	}
}

func TestConfigGetRedacted(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Notify.TopicARN = "arn:aws:sns:us-east-1:123:secret-topic"
	h := NewConfigHandler(cfg)

	rec := httptest.NewRecorder()
	h.Get(rec, httptest.NewRequest("GET", "/api/v1/config", nil))

	if strings.Contains(rec.Body.String(), "secret-topic") {
		t.Error("config response leaked the topic ARN")
	}
}
