package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/budgetguard/budgetguard/pkg/lifecycle"
)

// listInstances enumerates EC2 instances that are running or stopped.
// Terminated and transitioning instances are not candidates for any
// lifecycle action, so they are filtered at the API.
func (p *Provider) listInstances(ctx context.Context) ([]lifecycle.ManagedResource, error) {
	var resources []lifecycle.ManagedResource

	const maxPages = 100 // safety limit to prevent unbounded pagination
	paginator := ec2.NewDescribeInstancesPaginator(p.ec2Client, &ec2.DescribeInstancesInput{
		Filters: []ec2types.Filter{
			{
				Name:   aws.String("instance-state-name"),
				Values: []string{"running", "stopped"},
			},
		},
	})
	for pageNum := 0; paginator.HasMorePages() && pageNum < maxPages; pageNum++ {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, wrapErr("describing instances", err)
		}

		for _, reservation := range page.Reservations {
			for _, inst := range reservation.Instances {
				resources = append(resources, lifecycle.ManagedResource{
					ID:           aws.ToString(inst.InstanceId),
					Name:         instanceName(inst),
					Kind:         lifecycle.KindCompute,
					Tags:         ec2TagMap(inst.Tags),
					CurrentState: instanceState(inst.State),
					Stoppable:    true,
				})
			}
		}
	}
	return resources, nil
}

func (p *Provider) stopInstance(ctx context.Context, id string) error {
	_, err := p.ec2Client.StopInstances(ctx, &ec2.StopInstancesInput{
		InstanceIds: []string{id},
	})
	return wrapErr(fmt.Sprintf("stopping instance %s", id), err)
}

func (p *Provider) startInstance(ctx context.Context, id string) error {
	_, err := p.ec2Client.StartInstances(ctx, &ec2.StartInstancesInput{
		InstanceIds: []string{id},
	})
	return wrapErr(fmt.Sprintf("starting instance %s", id), err)
}

func instanceState(state *ec2types.InstanceState) lifecycle.ResourceState {
	if state == nil {
		return lifecycle.StateUnknown
	}
	switch state.Name {
	case ec2types.InstanceStateNameRunning:
		return lifecycle.StateRunning
	case ec2types.InstanceStateNameStopped:
		return lifecycle.StateStopped
	default:
		return lifecycle.StateUnknown
	}
}

func instanceName(inst ec2types.Instance) string {
	for _, tag := range inst.Tags {
		if aws.ToString(tag.Key) == "Name" {
			return aws.ToString(tag.Value)
		}
	}
	return aws.ToString(inst.InstanceId)
}

func ec2TagMap(tags []ec2types.Tag) map[string]string {
	m := make(map[string]string, len(tags))
	for _, tag := range tags {
		if tag.Key != nil && tag.Value != nil {
			m[*tag.Key] = *tag.Value
		}
	}
	return m
}
