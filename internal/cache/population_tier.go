package cache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru"
	"github.com/sirupsen/logrus"
)

// populationTier serves the agg: key family: hashicorp/golang-lru (v1, the
// non-generic original) in front of go-redis/v8, 1-hour default TTL per
// spec.md §4.G. Deliberately a second, independently-versioned stack from
// patientTier (golang-lru/v2 + redis/go-redis/v9): the two key families
// never share backends, so a population-tier outage cannot affect patient
// reads and vice versa (the isolation invariant spec.md §4.G calls out
// explicitly).
//
// Invalidation uses a generation counter rather than pattern deletion:
// every agg: key is suffixed with the tier's current generation at write
// time, so bumping the generation makes every previously-written key
// unreachable by future reads without an expensive SCAN over the whole
// aggregate keyspace, which can be large (cartesian product of filter,
// cohort predicate, and aggregation-type combinations).
type populationTier struct {
	logger     *logrus.Logger
	l1         *lru.Cache
	redis      *redis.Client
	breaker    *gobreakerWrapper
	defaultTTL time.Duration
	generation uint64
}

func newPopulationTier(logger *logrus.Logger, redisClient *redis.Client, l1Size int, defaultTTL time.Duration) (*populationTier, error) {
	if l1Size <= 0 {
		l1Size = 2048
	}
	l1, err := lru.New(l1Size)
	if err != nil {
		return nil, err
	}
	return &populationTier{
		logger:     logger,
		l1:         l1,
		redis:      redisClient,
		breaker:    newGobreakerWrapper(newBreaker("population-cache-redis", logger)),
		defaultTTL: defaultTTL,
	}, nil
}

func (t *populationTier) versionedKey(key string) string {
	return fmt.Sprintf("%s@g%d", key, atomic.LoadUint64(&t.generation))
}

func (t *populationTier) get(ctx context.Context, key string) ([]byte, domainCacheTier, error) {
	vkey := t.versionedKey(key)

	if raw, ok := t.l1.Get(vkey); ok {
		entry := raw.(cachedEntry)
		if !entry.expired() {
			return entry.value, tierMemory, nil
		}
		t.l1.Remove(vkey)
	}

	val, err := t.breaker.execute(func() (interface{}, error) {
		return t.redis.Get(ctx, vkey).Bytes()
	})
	if err != nil {
		if err == redis.Nil {
			return nil, tierComputed, errCacheMiss
		}
		return nil, tierComputed, err
	}
	b := val.([]byte)
	t.l1.Add(vkey, cachedEntry{value: b, expiresAt: time.Now().Add(t.defaultTTL)})
	return b, tierBackend, nil
}

func (t *populationTier) set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = t.defaultTTL
	}
	vkey := t.versionedKey(key)
	t.l1.Add(vkey, cachedEntry{value: value, expiresAt: time.Now().Add(ttl)})
	if _, err := t.breaker.execute(func() (interface{}, error) {
		return nil, t.redis.Set(ctx, vkey, value, ttl).Err()
	}); err != nil {
		t.logger.WithError(err).WithField("key", key).Warn("population cache: redis set failed, serving from memory only")
	}
}

// invalidateAll bumps the generation counter; it never blocks on Redis and
// never fails, matching spec.md §4.G's "any submission write globally
// flushes agg:*" invalidation trigger.
func (t *populationTier) invalidateAll() {
	atomic.AddUint64(&t.generation, 1)
	t.l1.Purge()
}
