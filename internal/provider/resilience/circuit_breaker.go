// Package resilience wraps outbound provider calls with a circuit breaker,
// bounded retries and health tracking. The generative-text oracle is the
// main consumer: a tripped breaker turns every oracle call into an
// immediate failure so callers fall back locally without waiting.
package resilience

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// CircuitBreakerConfig holds configuration for the circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies the breaker in logs and status reports.
	Name string

	// MaxRequests is the number of trial requests allowed while half-open.
	// Default: 1
	MaxRequests uint32

	// Interval clears the closed-state counts periodically. 0 disables it.
	Interval time.Duration

	// OpenTimeout is how long the breaker stays open before probing again.
	// Default: 30 seconds
	OpenTimeout time.Duration

	// ConsecutiveFailures trips the breaker regardless of the failure ratio.
	// Default: 5
	ConsecutiveFailures uint32

	// ReadyToTrip overrides the trip policy when set.
	ReadyToTrip func(counts gobreaker.Counts) bool

	// OnStateChange is called on every state transition.
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultCircuitBreakerConfig returns the breaker settings used for oracle calls.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:                name,
		MaxRequests:         1,
		OpenTimeout:         30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// tripPolicy trips after n consecutive failures, or when at least 10 requests
// have been seen and 60% or more of them failed.
func tripPolicy(n uint32) func(gobreaker.Counts) bool {
	return func(counts gobreaker.Counts) bool {
		if counts.ConsecutiveFailures >= n {
			return true
		}
		if counts.Requests < 10 {
			return false
		}
		return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
	}
}

// NewCircuitBreaker creates a typed circuit breaker from cfg.
func NewCircuitBreaker[T any](cfg CircuitBreakerConfig) *gobreaker.CircuitBreaker[T] {
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = 1
	}
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = 30 * time.Second
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}

	readyToTrip := cfg.ReadyToTrip
	if readyToTrip == nil {
		readyToTrip = tripPolicy(cfg.ConsecutiveFailures)
	}

	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:          cfg.Name,
		MaxRequests:   cfg.MaxRequests,
		Interval:      cfg.Interval,
		Timeout:       cfg.OpenTimeout,
		ReadyToTrip:   readyToTrip,
		OnStateChange: cfg.OnStateChange,
	})
}
