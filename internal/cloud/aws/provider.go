// Package aws implements the provider interfaces over the AWS APIs:
// EC2 (Compute), RDS (RelationalStore), ECS (ContainerService), S3
// (ObjectStore), SNS for notifications and CloudWatch for custom metrics.
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/budgetguard/budgetguard/pkg/cloudprovider"
	"github.com/budgetguard/budgetguard/pkg/lifecycle"
)

// Provider implements cloudprovider.ResourceProvider and
// cloudprovider.StorageProvider for AWS. It holds no resource state:
// every List call hits the API so cycles never act on stale inventory.
type Provider struct {
	region    string
	ec2Client *ec2.Client
	rdsClient *rds.Client
	ecsClient *ecs.Client
	s3Client  *s3.Client
	snsClient *sns.Client
	cwClient  *cloudwatch.Client
}

func NewProvider(ctx context.Context, region string) (*Provider, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &Provider{
		region:    region,
		ec2Client: ec2.NewFromConfig(cfg),
		rdsClient: rds.NewFromConfig(cfg),
		ecsClient: ecs.NewFromConfig(cfg),
		s3Client:  s3.NewFromConfig(cfg),
		snsClient: sns.NewFromConfig(cfg),
		cwClient:  cloudwatch.NewFromConfig(cfg),
	}, nil
}

func (p *Provider) Name() string { return "aws" }

// ListResources enumerates all managed resource kinds in one pass.
// Enumeration failures for one kind do not hide the others; the first
// error is returned alongside whatever was collected so a partially
// failing API does not blind the whole cycle.
func (p *Provider) ListResources(ctx context.Context) ([]lifecycle.ManagedResource, error) {
	var all []lifecycle.ManagedResource
	var firstErr error

	for _, kind := range []lifecycle.ResourceKind{
		lifecycle.KindCompute,
		lifecycle.KindRelationalStore,
		lifecycle.KindContainerService,
		lifecycle.KindObjectStore,
	} {
		resources, err := p.ListResourcesByKind(ctx, kind)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("listing %s resources: %w", kind, err)
			}
			continue
		}
		all = append(all, resources...)
	}
	return all, firstErr
}

func (p *Provider) ListResourcesByKind(ctx context.Context, kind lifecycle.ResourceKind) ([]lifecycle.ManagedResource, error) {
	switch kind {
	case lifecycle.KindCompute:
		return p.listInstances(ctx)
	case lifecycle.KindRelationalStore:
		return p.listDBInstances(ctx)
	case lifecycle.KindContainerService:
		return p.listServices(ctx)
	case lifecycle.KindObjectStore:
		return p.listBucketResources(ctx)
	default:
		return nil, fmt.Errorf("unknown resource kind %q", kind)
	}
}

// Stop halts the resource, or scales a container service to zero.
func (p *Provider) Stop(ctx context.Context, res lifecycle.ManagedResource) error {
	switch res.Kind {
	case lifecycle.KindCompute:
		return p.stopInstance(ctx, res.ID)
	case lifecycle.KindRelationalStore:
		return p.stopDBInstance(ctx, res.ID)
	case lifecycle.KindContainerService:
		return p.scaleService(ctx, res.ID, 0)
	default:
		return &cloudprovider.ProviderError{
			Class: cloudprovider.ClassOther,
			Code:  "UnsupportedKind",
			Op:    fmt.Sprintf("stop %s", res.ID),
		}
	}
}

// Start resumes the resource, or scales a container service back to one
// task so owners can scale it further themselves.
func (p *Provider) Start(ctx context.Context, res lifecycle.ManagedResource) error {
	switch res.Kind {
	case lifecycle.KindCompute:
		return p.startInstance(ctx, res.ID)
	case lifecycle.KindRelationalStore:
		return p.startDBInstance(ctx, res.ID)
	case lifecycle.KindContainerService:
		return p.scaleService(ctx, res.ID, 1)
	default:
		return &cloudprovider.ProviderError{
			Class: cloudprovider.ClassOther,
			Code:  "UnsupportedKind",
			Op:    fmt.Sprintf("start %s", res.ID),
		}
	}
}
