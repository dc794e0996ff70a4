package aws

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"github.com/budgetguard/budgetguard/pkg/cloudprovider"
	"github.com/budgetguard/budgetguard/pkg/lifecycle"
)

// storageClassFor maps the tier enum to S3 transition storage classes.
var storageClassFor = map[lifecycle.StorageTier]s3types.TransitionStorageClass{
	lifecycle.TierInfrequentAccess: s3types.TransitionStorageClassStandardIa,
	lifecycle.TierArchive:          s3types.TransitionStorageClassGlacier,
	lifecycle.TierDeepArchive:      s3types.TransitionStorageClassDeepArchive,
}

// listBucketResources reports buckets as ObjectStore managed resources.
// Buckets have no run state; they appear in the inventory so the audit
// trail covers the full resource surface, but only the storage optimizer
// acts on them.
func (p *Provider) listBucketResources(ctx context.Context) ([]lifecycle.ManagedResource, error) {
	out, err := p.s3Client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, wrapErr("listing buckets", err)
	}

	resources := make([]lifecycle.ManagedResource, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		name := aws.ToString(b.Name)
		resources = append(resources, lifecycle.ManagedResource{
			ID:           name,
			Name:         name,
			Kind:         lifecycle.KindObjectStore,
			CurrentState: lifecycle.StateUnknown,
			Stoppable:    false,
		})
	}
	return resources, nil
}

// ListBuckets implements cloudprovider.StorageProvider. Per-bucket probes
// (emptiness, versioning, size) that fail leave their fields zeroed
// rather than failing the listing; the optimizer treats unknown-size
// buckets as too small for savings estimates.
func (p *Provider) ListBuckets(ctx context.Context) ([]cloudprovider.BucketInfo, error) {
	out, err := p.s3Client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, wrapErr("listing buckets", err)
	}

	buckets := make([]cloudprovider.BucketInfo, 0, len(out.Buckets))
	for _, b := range out.Buckets {
		name := aws.ToString(b.Name)
		info := cloudprovider.BucketInfo{Name: name}

		if empty, err := p.isBucketEmpty(ctx, name); err == nil {
			info.Empty = empty
		}
		if versioned, err := p.isVersioningEnabled(ctx, name); err == nil {
			info.VersioningEnabled = versioned
		}
		if sizeGB, err := p.bucketSizeGB(ctx, name); err == nil {
			info.SizeGB = sizeGB
		}
		buckets = append(buckets, info)
	}
	return buckets, nil
}

func (p *Provider) isBucketEmpty(ctx context.Context, bucket string) (bool, error) {
	out, err := p.s3Client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, wrapErr(fmt.Sprintf("listing objects in %s", bucket), err)
	}
	return aws.ToInt32(out.KeyCount) == 0, nil
}

func (p *Provider) isVersioningEnabled(ctx context.Context, bucket string) (bool, error) {
	out, err := p.s3Client.GetBucketVersioning(ctx, &s3.GetBucketVersioningInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		return false, wrapErr(fmt.Sprintf("getting versioning for %s", bucket), err)
	}
	return out.Status == s3types.BucketVersioningStatusEnabled, nil
}

// bucketSizeGB reads the daily BucketSizeBytes metric from CloudWatch,
// the same source the storage console uses.
func (p *Provider) bucketSizeGB(ctx context.Context, bucket string) (float64, error) {
	now := time.Now().UTC()
	out, err := p.cwClient.GetMetricStatistics(ctx, &cloudwatch.GetMetricStatisticsInput{
		Namespace:  aws.String("AWS/S3"),
		MetricName: aws.String("BucketSizeBytes"),
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String("BucketName"), Value: aws.String(bucket)},
			{Name: aws.String("StorageType"), Value: aws.String("StandardStorage")},
		},
		StartTime:  aws.Time(now.Add(-48 * time.Hour)),
		EndTime:    aws.Time(now),
		Period:     aws.Int32(86400),
		Statistics: []cwtypes.Statistic{cwtypes.StatisticAverage},
	})
	if err != nil {
		return 0, wrapErr(fmt.Sprintf("reading size metric for %s", bucket), err)
	}
	if len(out.Datapoints) == 0 {
		return 0, nil
	}
	return aws.ToFloat64(out.Datapoints[0].Average) / (1 << 30), nil
}

// GetLifecycleSummary reduces a bucket's existing lifecycle rules to the
// transitions the optimizer cares about. A bucket with no configuration
// returns an empty summary, not an error.
func (p *Provider) GetLifecycleSummary(ctx context.Context, bucket string) (*cloudprovider.LifecycleRuleSummary, error) {
	out, err := p.s3Client.GetBucketLifecycleConfiguration(ctx, &s3.GetBucketLifecycleConfigurationInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		var ae smithy.APIError
		if errors.As(err, &ae) && ae.ErrorCode() == "NoSuchLifecycleConfiguration" {
			return &cloudprovider.LifecycleRuleSummary{}, nil
		}
		return nil, wrapErr(fmt.Sprintf("getting lifecycle for %s", bucket), err)
	}

	summary := &cloudprovider.LifecycleRuleSummary{}
	for _, rule := range out.Rules {
		if rule.Status != s3types.ExpirationStatusEnabled {
			continue
		}
		for _, tr := range rule.Transitions {
			switch tr.StorageClass {
			case s3types.TransitionStorageClassStandardIa, s3types.TransitionStorageClassOnezoneIa:
				summary.HasIATransition = true
			case s3types.TransitionStorageClassGlacier, s3types.TransitionStorageClassDeepArchive:
				summary.HasArchiveTransition = true
			}
		}
		if rule.AbortIncompleteMultipartUpload != nil {
			summary.HasAbortIncomplete = true
		}
	}
	return summary, nil
}

// ApplyLifecyclePolicy writes the standing tiering policy as one bucket
// lifecycle rule. The call replaces the bucket's configuration with the
// same document every time, so re-applying is a no-op.
func (p *Provider) ApplyLifecyclePolicy(ctx context.Context, bucket string, policy lifecycle.StoragePolicy, versioned bool) error {
	rule := s3types.LifecycleRule{
		ID:     aws.String("budgetguard-tiering"),
		Status: s3types.ExpirationStatusEnabled,
		Prefix: aws.String(""),
	}

	for _, tr := range policy.Transitions {
		class, ok := storageClassFor[tr.Tier]
		if !ok {
			continue
		}
		rule.Transitions = append(rule.Transitions, s3types.Transition{
			Days:         aws.Int32(int32(tr.AgeDays)),
			StorageClass: class,
		})
	}

	if policy.AbortIncompleteDays > 0 {
		rule.AbortIncompleteMultipartUpload = &s3types.AbortIncompleteMultipartUpload{
			DaysAfterInitiation: aws.Int32(int32(policy.AbortIncompleteDays)),
		}
	}

	if versioned {
		for _, tr := range policy.Transitions {
			if tr.Tier == lifecycle.TierDeepArchive {
				continue // keep noncurrent versions out of deep archive
			}
			class, ok := storageClassFor[tr.Tier]
			if !ok {
				continue
			}
			rule.NoncurrentVersionTransitions = append(rule.NoncurrentVersionTransitions, s3types.NoncurrentVersionTransition{
				NoncurrentDays: aws.Int32(int32(tr.AgeDays)),
				StorageClass:   class,
			})
		}
		if policy.NoncurrentExpiryDays > 0 {
			rule.NoncurrentVersionExpiration = &s3types.NoncurrentVersionExpiration{
				NoncurrentDays: aws.Int32(int32(policy.NoncurrentExpiryDays)),
			}
		}
	}

	_, err := p.s3Client.PutBucketLifecycleConfiguration(ctx, &s3.PutBucketLifecycleConfigurationInput{
		Bucket: aws.String(bucket),
		LifecycleConfiguration: &s3types.BucketLifecycleConfiguration{
			Rules: []s3types.LifecycleRule{rule},
		},
	})
	return wrapErr(fmt.Sprintf("applying lifecycle policy to %s", bucket), err)
}
