package aws

import (
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/smithy-go"

	"github.com/budgetguard/budgetguard/pkg/cloudprovider"
	"github.com/budgetguard/budgetguard/pkg/lifecycle"
)

func TestWrapErr_ClassifiesAPICodes(t *testing.T) {
	tests := []struct {
		code string
		want cloudprovider.ErrorClass
	}{
		{"Throttling", cloudprovider.ClassTransient},
		{"RequestLimitExceeded", cloudprovider.ClassTransient},
		{"UnauthorizedOperation", cloudprovider.ClassPermission},
		{"AccessDeniedException", cloudprovider.ClassPermission},
		{"IncorrectInstanceState", cloudprovider.ClassAlreadyInState},
		{"InvalidDBInstanceState", cloudprovider.ClassAlreadyInState},
		{"SomethingElse", cloudprovider.ClassOther},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			apiErr := &smithy.GenericAPIError{Code: tt.code, Message: "boom"}
			wrapped := wrapErr("test op", apiErr)
			if got := cloudprovider.Classify(wrapped); got != tt.want {
				t.Errorf("Classify(%s) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestWrapErr_NilPassesThrough(t *testing.T) {
	if err := wrapErr("noop", nil); err != nil {
		t.Errorf("wrapErr(nil) = %v, want nil", err)
	}
}

func TestWrapErr_NonAPIError(t *testing.T) {
	wrapped := wrapErr("test op", errors.New("connection reset"))
	if got := cloudprovider.Classify(wrapped); got != cloudprovider.ClassOther {
		t.Errorf("Classify = %v, want ClassOther", got)
	}
	var pe *cloudprovider.ProviderError
	if !errors.As(wrapped, &pe) {
		t.Fatal("expected ProviderError")
	}
	if pe.Code != "Unknown" {
		t.Errorf("Code = %q, want Unknown", pe.Code)
	}
}

func TestInstanceState(t *testing.T) {
	running := &ec2types.InstanceState{Name: ec2types.InstanceStateNameRunning}
	if got := instanceState(running); got != lifecycle.StateRunning {
		t.Errorf("running = %v, want Running", got)
	}
	stopped := &ec2types.InstanceState{Name: ec2types.InstanceStateNameStopped}
	if got := instanceState(stopped); got != lifecycle.StateStopped {
		t.Errorf("stopped = %v, want Stopped", got)
	}
	pending := &ec2types.InstanceState{Name: ec2types.InstanceStateNamePending}
	if got := instanceState(pending); got != lifecycle.StateUnknown {
		t.Errorf("pending = %v, want Unknown", got)
	}
	if got := instanceState(nil); got != lifecycle.StateUnknown {
		t.Errorf("nil = %v, want Unknown", got)
	}
}

func TestDBInstanceState(t *testing.T) {
	if got := dbInstanceState("available"); got != lifecycle.StateRunning {
		t.Errorf("available = %v, want Running", got)
	}
	if got := dbInstanceState("stopped"); got != lifecycle.StateStopped {
		t.Errorf("stopped = %v, want Stopped", got)
	}
	if got := dbInstanceState("backing-up"); got != lifecycle.StateUnknown {
		t.Errorf("backing-up = %v, want Unknown", got)
	}
}

func TestEC2TagMap(t *testing.T) {
	tags := []ec2types.Tag{
		{Key: aws.String("AutoSchedule"), Value: aws.String("business-hours")},
		{Key: aws.String("DoNotShutdown"), Value: aws.String("true")},
		{Key: nil, Value: aws.String("orphan")},
	}
	m := ec2TagMap(tags)
	if len(m) != 2 {
		t.Fatalf("len = %d, want 2", len(m))
	}
	if m["AutoSchedule"] != "business-hours" {
		t.Errorf("AutoSchedule = %q", m["AutoSchedule"])
	}

	res := lifecycle.ManagedResource{Tags: m}
	if !res.Protected("") {
		t.Error("resource with DoNotShutdown=true should be protected")
	}
}

func TestClusterFromServiceARN(t *testing.T) {
	arn := "arn:aws:ecs:us-east-1:123456789012:service/prod-cluster/web-api"
	cluster, err := clusterFromServiceARN(arn)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cluster != "prod-cluster" {
		t.Errorf("cluster = %q, want prod-cluster", cluster)
	}

	if _, err := clusterFromServiceARN("arn:aws:ecs:us-east-1:123:cluster/prod"); err == nil {
		t.Error("expected error for non-service ARN")
	}
	if _, err := clusterFromServiceARN("arn:aws:ecs:us-east-1:123:service/legacy-name"); err == nil {
		t.Error("expected error for old-format ARN without cluster")
	}
}

func TestChunk(t *testing.T) {
	items := []string{"a", "b", "c", "d", "e"}
	chunks := chunk(items, 2)
	if len(chunks) != 3 {
		t.Fatalf("len = %d, want 3", len(chunks))
	}
	if len(chunks[2]) != 1 || chunks[2][0] != "e" {
		t.Errorf("last chunk = %v, want [e]", chunks[2])
	}
	if got := chunk(nil, 10); got != nil {
		t.Errorf("chunk(nil) = %v, want nil", got)
	}
}
