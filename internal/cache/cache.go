package cache

import (
	"context"
	"time"

	goredisv8 "github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	redisv9 "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/proanalytics/core/internal/domain"
)

// Config configures the two tiers' backends, sizes, and default TTLs.
type Config struct {
	PatientRedisURL     string
	PopulationRedisURL  string
	PatientL1Size       int
	PopulationL1Size    int
	PatientDefaultTTL   time.Duration
	PopulationDefaultTTL time.Duration
}

// TieredCache is the Cache & Invalidation component (G): it implements
// domain.Cache by routing a key to its owning tier (patient-scoped vs.
// population-scoped, per keys.go's prefixes), single-flighting concurrent
// misses for the same key, and falling back transparently to direct
// compute when both the in-process LRU and the tier's Redis backend miss
// or fail.
type TieredCache struct {
	logger     *logrus.Logger
	patient    *patientTier
	population *populationTier
	locks      *PatientLocks
	sf         singleflight.Group
	stats      DegradationStats
}

// New constructs the patient and population tiers from cfg. Redis clients
// are created eagerly but connections are lazy (go-redis dials on first
// command), matching pkg/external/cache.go's NewCacheClient.
func New(logger *logrus.Logger, cfg Config) (*TieredCache, error) {
	patientOpts, err := redisv9.ParseURL(cfg.PatientRedisURL)
	if err != nil {
		return nil, domain.NewUnavailable("invalid patient cache redis url", err)
	}
	popOpts, err := goredisv8.ParseURL(cfg.PopulationRedisURL)
	if err != nil {
		return nil, domain.NewUnavailable("invalid population cache redis url", err)
	}

	patientTTL := cfg.PatientDefaultTTL
	if patientTTL <= 0 {
		patientTTL = 5 * time.Minute
	}
	popTTL := cfg.PopulationDefaultTTL
	if popTTL <= 0 {
		popTTL = time.Hour
	}

	pt, err := newPatientTier(logger, redisv9.NewClient(patientOpts), cfg.PatientL1Size, patientTTL)
	if err != nil {
		return nil, domain.NewUnavailable("failed to build patient cache tier", err)
	}
	popt, err := newPopulationTier(logger, goredisv8.NewClient(popOpts), cfg.PopulationL1Size, popTTL)
	if err != nil {
		return nil, domain.NewUnavailable("failed to build population cache tier", err)
	}

	return &TieredCache{
		logger:     logger,
		patient:    pt,
		population: popt,
		locks:      NewPatientLocks(),
	}, nil
}

// GetOrCompute implements domain.Cache. Concurrent callers for the same
// key coalesce onto one in-flight compute via singleflight; every waiter
// receives the same result and tier classification.
func (c *TieredCache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(ctx context.Context) ([]byte, error)) ([]byte, domain.CacheTier, error) {
	type result struct {
		value []byte
		tier  domain.CacheTier
	}

	v, err, _ := c.sf.Do(key, func() (interface{}, error) {
		value, tier, getErr := c.get(ctx, key)
		if getErr == nil {
			c.stats.record(tier)
			return result{value: value, tier: tier}, nil
		}

		computed, computeErr := compute(ctx)
		if computeErr != nil {
			return nil, computeErr
		}
		c.set(ctx, key, computed, ttl)
		c.stats.record(domain.TierComputed)
		return result{value: computed, tier: domain.TierComputed}, nil
	})
	if err != nil {
		return nil, domain.TierComputed, err
	}
	r := v.(result)
	return r.value, r.tier, nil
}

func (c *TieredCache) get(ctx context.Context, key string) ([]byte, domain.CacheTier, error) {
	if IsPopulationKey(key) {
		return c.population.get(ctx, key)
	}
	return c.patient.get(ctx, key)
}

func (c *TieredCache) set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if IsPopulationKey(key) {
		c.population.set(ctx, key, value, ttl)
		return
	}
	c.patient.set(ctx, key, value, ttl)
}

// InvalidatePatient implements domain.Cache: flushes every pscores:/pitem:/
// pcomp: key scoped to patientID. Does not touch the population tier —
// a patient's own write does not itself invalidate cohort aggregates it
// participates in; OnSubmissionWritten drives that separately via
// InvalidatePopulation, per spec.md §4.G's two independent invalidation
// triggers.
func (c *TieredCache) InvalidatePatient(ctx context.Context, patientID uuid.UUID) error {
	return c.patient.invalidatePatient(ctx, patientID.String())
}

// InvalidatePopulation implements domain.Cache: a global, non-blocking
// flush of the entire agg: family via the population tier's generation
// bump.
func (c *TieredCache) InvalidatePopulation(ctx context.Context) {
	c.population.invalidateAll()
}

// Locks exposes the per-patient write lock for internal/core's use when
// serializing OnSubmissionWritten against concurrent writes for the same
// patient.
func (c *TieredCache) Locks() *PatientLocks {
	return c.locks
}

// Stats exposes degradation counters for observability wiring.
func (c *TieredCache) Stats() *DegradationStats {
	return &c.stats
}
