package cache

import (
	"errors"

	"github.com/sony/gobreaker"

	"github.com/proanalytics/core/internal/domain"
)

type domainCacheTier = domain.CacheTier

const (
	tierMemory   = domain.TierMemory
	tierBackend  = domain.TierBackend
	tierComputed = domain.TierComputed
)

// errCacheMiss signals "key absent from this tier", distinct from a
// backend failure; callers fall through to the next tier/compute on it.
var errCacheMiss = errors.New("cache: key not present")

// gobreakerWrapper adapts gobreaker.CircuitBreaker.Execute, which returns
// (interface{}, error), to the call sites in patient_tier.go/population_tier.go.
type gobreakerWrapper struct {
	cb *gobreaker.CircuitBreaker
}

func newGobreakerWrapper(cb *gobreaker.CircuitBreaker) *gobreakerWrapper {
	return &gobreakerWrapper{cb: cb}
}

func (w *gobreakerWrapper) execute(fn func() (interface{}, error)) (interface{}, error) {
	return w.cb.Execute(fn)
}
