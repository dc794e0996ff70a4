// Package storageopt applies standing lifecycle tiering policies to
// object-store buckets and estimates the monthly savings they unlock.
package storageopt

import (
	"github.com/budgetguard/budgetguard/internal/config"
	"github.com/budgetguard/budgetguard/pkg/lifecycle"
)

// Approximate monthly storage prices per GB, used only for savings
// estimates in reports; billing stays authoritative.
const (
	rateStandardGBMonth    = 0.023
	rateIAGBMonth          = 0.0125
	rateArchiveGBMonth     = 0.0036
	rateDeepArchiveGBMonth = 0.00099
)

// PolicyFromConfig builds the tiering policy from the configured
// transition ages.
func PolicyFromConfig(cfg config.StorageConfig) lifecycle.StoragePolicy {
	return lifecycle.StoragePolicy{
		Transitions: []lifecycle.StorageTransition{
			{AgeDays: cfg.IADays, Tier: lifecycle.TierInfrequentAccess},
			{AgeDays: cfg.ArchiveDays, Tier: lifecycle.TierArchive},
			{AgeDays: cfg.DeepArchiveDays, Tier: lifecycle.TierDeepArchive},
		},
		AbortIncompleteDays:  cfg.AbortIncompleteDays,
		NoncurrentExpiryDays: cfg.NoncurrentExpiryDays,
	}
}

// TargetTier returns the tier an object of the given age belongs in
// under the policy: the coldest transition whose age threshold the
// object has reached, or Standard when it has reached none.
func TargetTier(policy lifecycle.StoragePolicy, ageDays int) lifecycle.StorageTier {
	tier := lifecycle.TierStandard
	for _, t := range policy.Transitions {
		if ageDays >= t.AgeDays {
			tier = t.Tier
		}
	}
	return tier
}

// ShouldAbortUpload reports whether an incomplete multipart upload of
// the given age is past the policy's abort threshold.
func ShouldAbortUpload(policy lifecycle.StoragePolicy, ageDays int) bool {
	return policy.AbortIncompleteDays > 0 && ageDays >= policy.AbortIncompleteDays
}

// ShouldExpireVersion reports whether a noncurrent object version of the
// given age is past the policy's expiry threshold.
func ShouldExpireVersion(policy lifecycle.StoragePolicy, ageDays int) bool {
	return policy.NoncurrentExpiryDays > 0 && ageDays >= policy.NoncurrentExpiryDays
}

// estimateMonthlySavings approximates monthly savings for a bucket once
// tiering is in effect, assuming the bucket's data ages into the first
// transition. Deliberately coarse: it informs reports, not decisions.
func estimateMonthlySavings(sizeGB float64, policy lifecycle.StoragePolicy) float64 {
	if sizeGB <= 0 || len(policy.Transitions) == 0 {
		return 0
	}
	first := policy.Transitions[0].Tier
	rate := rateStandardGBMonth
	switch first {
	case lifecycle.TierInfrequentAccess:
		rate = rateIAGBMonth
	case lifecycle.TierArchive:
		rate = rateArchiveGBMonth
	case lifecycle.TierDeepArchive:
		rate = rateDeepArchiveGBMonth
	}
	saving := sizeGB * (rateStandardGBMonth - rate)
	if saving < 0 {
		return 0
	}
	return saving
}
