package cache

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// patientTier serves the pscores:/pitem:/pcomp: key family: a generic
// in-process LRU in front of redis/go-redis/v9, 5-minute default TTL per
// spec.md §4.G. Grounded on pkg/external/cache.go's CacheClient shape,
// split into two tiers here because patient-scoped and population-scoped
// data have different invalidation granularity (invariant: flushing one
// patient's keys must never touch another's).
//
// Invalidation follows the same generation-counter scheme as
// population_tier.go's invalidateAll, per spec.md §9's design note that not
// every backend supports wildcard deletion: each patient has its own
// generation, incremented on invalidatePatient, and every key get/set
// touches is suffixed with the owning patient's current generation so a
// bump makes that patient's previously-written keys unreachable without a
// Redis SCAN.
type patientTier struct {
	logger     *logrus.Logger
	l1         *lru.Cache[string, cachedEntry]
	redis      *redis.Client
	breaker    *gobreakerWrapper
	sf         singleflight.Group
	defaultTTL time.Duration

	genMu       sync.Mutex
	generations map[string]uint64
}

type cachedEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e cachedEntry) expired() bool { return time.Now().After(e.expiresAt) }

func newPatientTier(logger *logrus.Logger, redisClient *redis.Client, l1Size int, defaultTTL time.Duration) (*patientTier, error) {
	if l1Size <= 0 {
		l1Size = 4096
	}
	l1, err := lru.New[string, cachedEntry](l1Size)
	if err != nil {
		return nil, err
	}
	return &patientTier{
		logger:      logger,
		l1:          l1,
		redis:       redisClient,
		breaker:     newGobreakerWrapper(newBreaker("patient-cache-redis", logger)),
		defaultTTL:  defaultTTL,
		generations: map[string]uint64{},
	}, nil
}

// generation returns patientID's current generation, defaulting to 0 for a
// patient never invalidated.
func (t *patientTier) generation(patientID string) uint64 {
	t.genMu.Lock()
	defer t.genMu.Unlock()
	return t.generations[patientID]
}

// versionedKey suffixes key with the current generation of the patient it
// belongs to, so a bumped generation makes the unsuffixed key's prior
// writes unreachable without touching them.
func (t *patientTier) versionedKey(key string) string {
	return fmt.Sprintf("%s@g%d", key, t.generation(patientSegment(key)))
}

func (t *patientTier) get(ctx context.Context, key string) ([]byte, domainCacheTier, error) {
	vkey := t.versionedKey(key)

	if entry, ok := t.l1.Get(vkey); ok && !entry.expired() {
		return entry.value, tierMemory, nil
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

func (t *patientTier) set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		ttl = t.defaultTTL
	}
	vkey := t.versionedKey(key)
	t.l1.Add(vkey, cachedEntry{value: value, expiresAt: time.Now().Add(ttl)})
	if _, err := t.breaker.execute(func() (interface{}, error) {
		return nil, t.redis.Set(ctx, vkey, value, ttl).Err()
	}); err != nil {
		t.logger.WithError(err).WithField("key", key).Warn("patient cache: redis set failed, serving from memory only")
	}
}

// invalidatePatient bumps patientID's generation and drops its now-stale
// entries from the L1 LRU; it never blocks on Redis and never fails,
// matching population_tier.go's invalidateAll.
func (t *patientTier) invalidatePatient(ctx context.Context, patientID string) error {
	t.genMu.Lock()
	t.generations[patientID]++
	t.genMu.Unlock()

	for _, key := range t.l1.Keys() {
		if containsPatientSegment(key, patientID) {
			t.l1.Remove(key)
		}
	}
	return nil
}

func containsPatientSegment(key, patientID string) bool {
	needle := ":" + patientID + ":"
	for i := 0; i+len(needle) <= len(key); i++ {
		if key[i:i+len(needle)] == needle {
			return true
		}
	}
	return false
}

// patientSegment extracts the patient id segment from one of the three
// pscores:/pitem:/pcomp: key shapes (the token immediately after the
// prefix), so versionedKey can look up that patient's current generation.
func patientSegment(key string) string {
	rest := key
	switch {
	case hasPrefix(key, prefixPatientScore):
		rest = key[len(prefixPatientScore):]
	case hasPrefix(key, prefixPatientItem):
		rest = key[len(prefixPatientItem):]
	case hasPrefix(key, prefixPatientComposite):
		rest = key[len(prefixPatientComposite):]
	}
	if i := strings.IndexByte(rest, ':'); i >= 0 {
		return rest[:i]
	}
	return rest
}
