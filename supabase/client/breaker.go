package client

import (
	"time"

	"github.com/sony/gobreaker"
)

// BreakerConfig tunes the circuit breaker wrapped around every request.
// Zero values fall back to the defaults below.
type BreakerConfig struct {
	Name             string
	FailureThreshold uint32
	OpenTimeout      time.Duration
	OnStateChange    func(name string, from, to gobreaker.State)
}

const (
	defaultFailureThreshold = 5
	defaultOpenTimeout      = 30 * time.Second
)

func newBreaker(cfg BreakerConfig) *gobreaker.CircuitBreaker {
	if cfg.Name == "" {
		cfg.Name = "supabase"
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = defaultFailureThreshold
	}
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = defaultOpenTimeout
	}

	threshold := cfg.FailureThreshold
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: cfg.OnStateChange,
	})
}
