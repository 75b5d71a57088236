// Package resilience wraps calls to upstream providers (the advisory model,
// the directions API) with timeouts, bounded retries and a circuit breaker,
// and keeps per-provider health for the ops status endpoint.
package resilience

import (
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// BreakerSettings controls when a provider's circuit opens.
type BreakerSettings struct {
	// MinRequests is how many requests must be seen before the failure
	// ratio is considered.
	MinRequests uint32
	// FailureRatio trips the breaker once reached.
	FailureRatio float64
	// OpenFor is how long the circuit stays open before probing.
	OpenFor time.Duration
	// Probes is the number of requests let through while half-open.
	Probes uint32
}

// DefaultBreakerSettings trips after half of at least five requests fail and
// probes again after a minute.
func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		MinRequests:  5,
		FailureRatio: 0.5,
		OpenFor:      time.Minute,
		Probes:       1,
	}
}

func (s BreakerSettings) withDefaults() BreakerSettings {
	d := DefaultBreakerSettings()
	if s.MinRequests == 0 {
		s.MinRequests = d.MinRequests
	}
	if s.FailureRatio <= 0 {
		s.FailureRatio = d.FailureRatio
	}
	if s.OpenFor == 0 {
		s.OpenFor = d.OpenFor
	}
	if s.Probes == 0 {
		s.Probes = d.Probes
	}
	return s
}

// shouldTrip reports whether counts warrant opening the circuit.
func (s BreakerSettings) shouldTrip(counts gobreaker.Counts) bool {
	if counts.Requests < s.MinRequests {
		return false
	}
	return float64(counts.TotalFailures)/float64(counts.Requests) >= s.FailureRatio
}

func newBreaker(name string, s BreakerSettings, onChange func(string, gobreaker.State, gobreaker.State)) *gobreaker.CircuitBreaker[*http.Response] {
	return gobreaker.NewCircuitBreaker[*http.Response](gobreaker.Settings{
		Name:          name,
		MaxRequests:   s.Probes,
		Timeout:       s.OpenFor,
		ReadyToTrip:   s.shouldTrip,
		OnStateChange: onChange,
	})
}
