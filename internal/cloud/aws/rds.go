package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"

	"github.com/budgetguard/budgetguard/pkg/lifecycle"
)

// listDBInstances enumerates RDS database instances. Multi-AZ instances
// cannot be stopped by the API; they are reported with Stoppable=false
// so the executors record them as Skipped instead of failing on them.
func (p *Provider) listDBInstances(ctx context.Context) ([]lifecycle.ManagedResource, error) {
	var resources []lifecycle.ManagedResource

	const maxPages = 100
	paginator := rds.NewDescribeDBInstancesPaginator(p.rdsClient, &rds.DescribeDBInstancesInput{})
	for pageNum := 0; paginator.HasMorePages() && pageNum < maxPages; pageNum++ {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, wrapErr("describing DB instances", err)
		}

		for _, db := range page.DBInstances {
			id := aws.ToString(db.DBInstanceIdentifier)
			resources = append(resources, lifecycle.ManagedResource{
				ID:           id,
				Name:         id,
				Kind:         lifecycle.KindRelationalStore,
				Tags:         rdsTagMap(db.TagList),
				CurrentState: dbInstanceState(aws.ToString(db.DBInstanceStatus)),
				Stoppable:    !aws.ToBool(db.MultiAZ),
			})
		}
	}
	return resources, nil
}

func (p *Provider) stopDBInstance(ctx context.Context, id string) error {
	_, err := p.rdsClient.StopDBInstance(ctx, &rds.StopDBInstanceInput{
		DBInstanceIdentifier: aws.String(id),
	})
	return wrapErr(fmt.Sprintf("stopping DB instance %s", id), err)
}

func (p *Provider) startDBInstance(ctx context.Context, id string) error {
	_, err := p.rdsClient.StartDBInstance(ctx, &rds.StartDBInstanceInput{
		DBInstanceIdentifier: aws.String(id),
	})
	return wrapErr(fmt.Sprintf("starting DB instance %s", id), err)
}

// dbInstanceState maps RDS status strings onto the run-state enum. RDS
// has many transitional statuses; anything in flight reports Unknown so
// the schedulers leave it alone until it settles.
func dbInstanceState(status string) lifecycle.ResourceState {
	switch status {
	case "available":
		return lifecycle.StateRunning
	case "stopped":
		return lifecycle.StateStopped
	default:
		return lifecycle.StateUnknown
	}
}

func rdsTagMap(tags []rdstypes.Tag) map[string]string {
	m := make(map[string]string, len(tags))
	for _, tag := range tags {
		if tag.Key != nil && tag.Value != nil {
			m[*tag.Key] = *tag.Value
		}
	}
	return m
}
