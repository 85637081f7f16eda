package resilience

import (
	"sync/atomic"

	"github.com/hyperlinkr/hyperlinkr/internal/config"
)

// MultiBreaker guards M independent remote endpoints (spec §4.3's
// multi-endpoint remote store), one CircuitBreaker per endpoint, with a
// lock-free round-robin rotor for endpoint selection among the healthy
// set. It generalizes the single CircuitBreaker above the way the
// original's Mutex<Vec<String>> healthy-node list does conceptually,
// but keeps endpoint selection lock-free (each breaker still guards its
// own counters with a mutex).
type MultiBreaker struct {
	endpoints []string
	breakers  []*CircuitBreaker
	rotor     atomic.Uint64
}

// NewMultiBreaker creates one CircuitBreaker per endpoint, all sharing
// the same configuration.
func NewMultiBreaker(endpoints []string, cfg config.CircuitBreakerConfig) *MultiBreaker {
	mb := &MultiBreaker{
		endpoints: append([]string(nil), endpoints...),
		breakers:  make([]*CircuitBreaker, len(endpoints)),
	}
	for i, ep := range endpoints {
		mb.breakers[i] = NewCircuitBreaker(ep, cfg)
	}
	return mb
}

// Len returns the number of endpoints.
func (mb *MultiBreaker) Len() int { return len(mb.breakers) }

// Endpoint returns the address of endpoint i.
func (mb *MultiBreaker) Endpoint(i int) string { return mb.endpoints[i] }

// Breaker returns the circuit breaker guarding endpoint i.
func (mb *MultiBreaker) Breaker(i int) *CircuitBreaker { return mb.breakers[i] }

// Healthy returns the indices of endpoints whose breaker is not Open,
// in endpoint order.
func (mb *MultiBreaker) Healthy() []int {
	healthy := make([]int, 0, len(mb.breakers))
	for i, cb := range mb.breakers {
		if !cb.IsOpen() {
			healthy = append(healthy, i)
		}
	}
	return healthy
}

// Next picks the next endpoint to try via round-robin rotation over the
// currently healthy set. It returns ok=false if every endpoint's
// breaker is Open.
func (mb *MultiBreaker) Next() (idx int, ok bool) {
	healthy := mb.Healthy()
	if len(healthy) == 0 {
		return 0, false
	}
	n := mb.rotor.Add(1)
	return healthy[n%uint64(len(healthy))], true
}

// Execute runs fn against the endpoint selected by Next, recording the
// outcome against that endpoint's breaker. Returns ErrNoHealthyEndpoints
// if every breaker is Open.
func (mb *MultiBreaker) Execute(fn func(endpointIdx int) (any, error)) (any, error) {
	idx, ok := mb.Next()
	if !ok {
		return nil, ErrNoHealthyEndpoints
	}
	cb := mb.breakers[idx]
	if !cb.Allow() {
		return nil, ErrRejected
	}

	result, err := fn(idx)
	if err != nil {
		cb.RecordFailure()
	} else {
		cb.RecordSuccess()
	}
	return result, err
}

// Stats returns a snapshot of every endpoint's breaker state.
func (mb *MultiBreaker) Stats() []CircuitBreakerStats {
	stats := make([]CircuitBreakerStats, len(mb.breakers))
	for i, cb := range mb.breakers {
		stats[i] = cb.Stats()
	}
	return stats
}

// SetOnStateChange installs the same callback, wrapped to report which
// endpoint transitioned, on every per-endpoint breaker.
func (mb *MultiBreaker) SetOnStateChange(fn func(endpoint string, from, to State)) {
	for i, cb := range mb.breakers {
		ep := mb.endpoints[i]
		cb.SetOnStateChange(func(from, to State) {
			fn(ep, from, to)
		})
	}
}
