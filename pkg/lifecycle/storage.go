package lifecycle

// StorageTier is a storage class ordered from hot to cold.
type StorageTier string

const (
	TierStandard         StorageTier = "Standard"
	TierInfrequentAccess StorageTier = "InfrequentAccess"
	TierArchive          StorageTier = "Archive"
	TierDeepArchive      StorageTier = "DeepArchive"
)

// colder maps each tier to its position in the hot-to-cold order.
var colder = map[StorageTier]int{
	TierStandard:         0,
	TierInfrequentAccess: 1,
	TierArchive:          2,
	TierDeepArchive:      3,
}

// Colder reports whether t is strictly colder than other.
func (t StorageTier) Colder(other StorageTier) bool {
	return colder[t] > colder[other]
}

// StorageTransition moves objects older than AgeDays to Tier.
type StorageTransition struct {
	AgeDays int         `json:"ageDays"`
	Tier    StorageTier `json:"tier"`
}

// StoragePolicy is a standing, declarative tiering policy for one bucket.
// Transitions must be strictly increasing in age and monotonically colder
// in tier; Validate enforces both.
type StoragePolicy struct {
	Transitions []StorageTransition `json:"transitions"`

	// AbortIncompleteDays deletes incomplete multipart uploads older
	// than this many days. Zero disables the rule.
	AbortIncompleteDays int `json:"abortIncompleteDays"`

	// NoncurrentExpiryDays expires old object versions after this many
	// days. Only applied to versioned buckets. Zero disables the rule.
	NoncurrentExpiryDays int `json:"noncurrentExpiryDays"`
}

// Validate checks the policy ordering invariants.
func (p StoragePolicy) Validate() error {
	for i := 1; i < len(p.Transitions); i++ {
		prev, cur := p.Transitions[i-1], p.Transitions[i]
		if cur.AgeDays <= prev.AgeDays {
			return &PolicyError{Reason: "transition ages must be strictly increasing"}
		}
		if !cur.Tier.Colder(prev.Tier) {
			return &PolicyError{Reason: "transition tiers must get monotonically colder"}
		}
	}
	return nil
}

// PolicyError reports an invalid storage policy.
type PolicyError struct {
	Reason string
}

func (e *PolicyError) Error() string { return "invalid storage policy: " + e.Reason }
