package vonsim

import "github.com/ehrlich-b/vonsim/internal/constants"

// Re-export the default tunables so callers of the public API don't need
// to import internal/constants directly.
const (
	DefaultNumCores             = constants.DefaultNumCores
	MinCores                    = constants.MinCores
	MaxCores                    = constants.MaxCores
	DefaultQuantum              = constants.DefaultQuantum
	DefaultPartitionWords       = constants.DefaultPartitionWords
	DefaultPrimaryMemoryWords   = constants.DefaultPrimaryMemoryWords
	DefaultSecondaryMemoryWords = constants.DefaultSecondaryMemoryWords
	DefaultCacheCapacity        = constants.DefaultCacheCapacity
	DefaultIOLatencyTicks       = constants.DefaultIOLatencyTicks
	TemporalSnapshotInterval    = constants.TemporalSnapshotInterval
	EndSentinel                 = constants.EndSentinel
)
