// Package cloudprovider defines the provider-facing interfaces for the
// lifecycle controllers. Implementations live under internal/cloud.
package cloudprovider

import (
	"context"

	"github.com/budgetguard/budgetguard/pkg/lifecycle"
)

// ResourceProvider enumerates and mutates managed resources. Inventory is
// always read fresh from the provider; implementations must not cache
// resource state between calls.
type ResourceProvider interface {
	Name() string

	// Inventory (READ)
	ListResources(ctx context.Context) ([]lifecycle.ManagedResource, error)
	ListResourcesByKind(ctx context.Context, kind lifecycle.ResourceKind) ([]lifecycle.ManagedResource, error)

	// Lifecycle Operations (WRITE)
	// Stop halts a Compute or RelationalStore resource, or scales a
	// ContainerService to zero desired count. Start is the inverse.
	// Both must be idempotent: a provider "already in target state"
	// response is not an error.
	Stop(ctx context.Context, res lifecycle.ManagedResource) error
	Start(ctx context.Context, res lifecycle.ManagedResource) error
}

// BucketInfo describes one object-store bucket for lifecycle optimization.
type BucketInfo struct {
	Name              string
	Empty             bool
	VersioningEnabled bool
	SizeGB            float64
}

// LifecycleRuleSummary is a reduced view of a bucket's existing lifecycle
// configuration, enough to decide whether the standing policy already
// covers the transitions we would apply.
type LifecycleRuleSummary struct {
	HasIATransition      bool
	HasArchiveTransition bool
	HasAbortIncomplete   bool
}

// StorageProvider exposes the object-store operations used by the storage
// tiering optimizer. Policy application is declarative and idempotent:
// re-applying the same policy is a no-op at the provider.
type StorageProvider interface {
	ListBuckets(ctx context.Context) ([]BucketInfo, error)
	GetLifecycleSummary(ctx context.Context, bucket string) (*LifecycleRuleSummary, error)
	ApplyLifecyclePolicy(ctx context.Context, bucket string, policy lifecycle.StoragePolicy, versioned bool) error
}

// Publisher delivers a human-readable notification to the configured
// pub/sub channel. Failures are fire-and-forget at the call site.
type Publisher interface {
	Publish(ctx context.Context, subject, body string) error
}

// MetricsSink records custom metrics with the cloud monitoring service.
type MetricsSink interface {
	PutMetric(ctx context.Context, name string, value float64, unit string) error
}
