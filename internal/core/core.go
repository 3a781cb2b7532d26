package core

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/proanalytics/core/internal/cache"
	"github.com/proanalytics/core/internal/cohort"
	"github.com/proanalytics/core/internal/domain"
	"github.com/proanalytics/core/internal/scoring"
)

// DegradationRecorder receives periodic cache-tier snapshots; implemented
// by observability.PostgresSink without internal/core importing that
// package's other audit-event concerns directly.
type DegradationRecorder interface {
	RecordCacheDegradation(ctx context.Context, memory, backend, computed uint64)
}

// Core is the orchestrator tying every component together behind the three
// operations of spec.md §6.
type Core struct {
	logger     *logrus.Logger
	store      domain.Store
	cache      *cache.TieredCache
	computer   *scoring.Computer
	aggregator *cohort.Aggregator
	degradation DegradationRecorder
	scoringCfg domain.ScoringConfig
}

// New constructs a Core. degradation may be nil (no audit sink configured).
func New(logger *logrus.Logger, store domain.Store, tieredCache *cache.TieredCache, computer *scoring.Computer, aggregator *cohort.Aggregator, degradation DegradationRecorder, scoringCfg domain.ScoringConfig) *Core {
	return &Core{
		logger:      logger,
		store:       store,
		cache:       tieredCache,
		computer:    computer,
		aggregator:  aggregator,
		degradation: degradation,
		scoringCfg:  scoringCfg,
	}
}

// ReportCacheDegradation forwards the cache's current tier-hit snapshot to
// the audit sink. The core itself holds no goroutines of its own;
// cmd/analyticscore calls it once, after its demonstration pass.
func (c *Core) ReportCacheDegradation(ctx context.Context) {
	if c.degradation == nil {
		return
	}
	memory, backend, computed := c.cache.Stats().Snapshot()
	c.degradation.RecordCacheDegradation(ctx, memory, backend, computed)
}
