package cache

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
)

// newBreaker configures one gobreaker.CircuitBreaker per backend (one for
// the patient-tier Redis client, one for the population-tier Redis
// client), grounded directly on pkg/external/circuit_breaker.go's
// ResilientExternalClient: trip after 5 consecutive failures, half-open
// after Timeout, and log every state transition.
func newBreaker(name string, log *logrus.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			}).Warn("cache backend circuit breaker state change")
		},
	})
}
