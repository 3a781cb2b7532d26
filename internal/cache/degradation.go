package cache

import (
	"sync/atomic"

	"github.com/proanalytics/core/internal/domain"
)

// DegradationStats counts reads served by each tier, adapted from the
// teacher's internal/mcp/errors/degradation.go GracefulDegradationManager:
// instead of tracking fallback reasons for external variant-database
// calls, it tracks which cache tier served each GetOrCompute call, so an
// operator can see a backend outage reflected as a spike in computed/memory
// reads without redis ever returning an error to the caller.
type DegradationStats struct {
	memory   uint64
	backend  uint64
	computed uint64
}

func (d *DegradationStats) record(tier domain.CacheTier) {
	switch tier {
	case domain.TierMemory:
		atomic.AddUint64(&d.memory, 1)
	case domain.TierBackend:
		atomic.AddUint64(&d.backend, 1)
	case domain.TierComputed:
		atomic.AddUint64(&d.computed, 1)
	}
}

// Snapshot returns the current counts without resetting them.
func (d *DegradationStats) Snapshot() (memory, backend, computed uint64) {
	return atomic.LoadUint64(&d.memory), atomic.LoadUint64(&d.backend), atomic.LoadUint64(&d.computed)
}
