package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/proanalytics/core/internal/domain"
)

func TestDegradationStats_RecordsEachTier(t *testing.T) {
	var stats DegradationStats
	stats.record(domain.TierMemory)
	stats.record(domain.TierMemory)
	stats.record(domain.TierBackend)
	stats.record(domain.TierComputed)

	memory, backend, computed := stats.Snapshot()
	assert.Equal(t, uint64(2), memory)
	assert.Equal(t, uint64(1), backend)
	assert.Equal(t, uint64(1), computed)
}
