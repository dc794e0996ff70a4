package aws

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"

	"github.com/budgetguard/budgetguard/pkg/cloudprovider"
	"github.com/budgetguard/budgetguard/pkg/lifecycle"
)

// listServices enumerates ECS services across all clusters. A service
// with desired count zero reports Stopped; anything above zero reports
// Running. The service ARN doubles as resource ID since it encodes the
// cluster for later mutation.
func (p *Provider) listServices(ctx context.Context) ([]lifecycle.ManagedResource, error) {
	var resources []lifecycle.ManagedResource

	const maxPages = 100
	clusterPaginator := ecs.NewListClustersPaginator(p.ecsClient, &ecs.ListClustersInput{})
	for pageNum := 0; clusterPaginator.HasMorePages() && pageNum < maxPages; pageNum++ {
		page, err := clusterPaginator.NextPage(ctx)
		if err != nil {
			return nil, wrapErr("listing ECS clusters", err)
		}

		for _, clusterArn := range page.ClusterArns {
			clusterResources, err := p.listClusterServices(ctx, clusterArn)
			if err != nil {
				return nil, err
			}
			resources = append(resources, clusterResources...)
		}
	}
	return resources, nil
}

func (p *Provider) listClusterServices(ctx context.Context, clusterArn string) ([]lifecycle.ManagedResource, error) {
	var resources []lifecycle.ManagedResource

	const maxPages = 100
	paginator := ecs.NewListServicesPaginator(p.ecsClient, &ecs.ListServicesInput{
		Cluster: aws.String(clusterArn),
	})
	for pageNum := 0; paginator.HasMorePages() && pageNum < maxPages; pageNum++ {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, wrapErr(fmt.Sprintf("listing services in %s", clusterArn), err)
		}
		if len(page.ServiceArns) == 0 {
			continue
		}

		// DescribeServices accepts at most 10 services per call.
		for _, batch := range chunk(page.ServiceArns, 10) {
			desc, err := p.ecsClient.DescribeServices(ctx, &ecs.DescribeServicesInput{
				Cluster:  aws.String(clusterArn),
				Services: batch,
				Include:  []ecstypes.ServiceField{ecstypes.ServiceFieldTags},
			})
			if err != nil {
				return nil, wrapErr(fmt.Sprintf("describing services in %s", clusterArn), err)
			}

			for _, svc := range desc.Services {
				state := lifecycle.StateStopped
				if svc.DesiredCount > 0 {
					state = lifecycle.StateRunning
				}
				resources = append(resources, lifecycle.ManagedResource{
					ID:           aws.ToString(svc.ServiceArn),
					Name:         aws.ToString(svc.ServiceName),
					Kind:         lifecycle.KindContainerService,
					Tags:         ecsTagMap(svc.Tags),
					CurrentState: state,
					Stoppable:    true,
				})
			}
		}
	}
	return resources, nil
}

// scaleService sets the desired task count for a service identified by
// its ARN. The cluster is recovered from the ARN itself.
func (p *Provider) scaleService(ctx context.Context, serviceArn string, desired int32) error {
	cluster, err := clusterFromServiceARN(serviceArn)
	if err != nil {
		return &cloudprovider.ProviderError{
			Class: cloudprovider.ClassOther,
			Code:  "InvalidServiceARN",
			Op:    fmt.Sprintf("scaling service %s", serviceArn),
			Err:   err,
		}
	}
	_, err = p.ecsClient.UpdateService(ctx, &ecs.UpdateServiceInput{
		Cluster:      aws.String(cluster),
		Service:      aws.String(serviceArn),
		DesiredCount: aws.Int32(desired),
	})
	return wrapErr(fmt.Sprintf("scaling service %s to %d", serviceArn, desired), err)
}

// clusterFromServiceARN extracts the cluster name from a service ARN of
// the form arn:aws:ecs:region:account:service/cluster-name/service-name.
func clusterFromServiceARN(arn string) (string, error) {
	_, resource, ok := strings.Cut(arn, ":service/")
	if !ok {
		return "", fmt.Errorf("not a service ARN: %s", arn)
	}
	cluster, _, ok := strings.Cut(resource, "/")
	if !ok {
		return "", fmt.Errorf("service ARN %s does not carry a cluster name", arn)
	}
	return cluster, nil
}

func ecsTagMap(tags []ecstypes.Tag) map[string]string {
	m := make(map[string]string, len(tags))
	for _, tag := range tags {
		if tag.Key != nil && tag.Value != nil {
			m[*tag.Key] = *tag.Value
		}
	}
	return m
}

func chunk(items []string, size int) [][]string {
	var chunks [][]string
	for len(items) > size {
		chunks = append(chunks, items[:size])
		items = items[size:]
	}
	if len(items) > 0 {
		chunks = append(chunks, items)
	}
	return chunks
}
