// Package resilience provides fault tolerance patterns guarding the
// remote key/value store: a per-endpoint circuit breaker, retry with
// exponential backoff, and a bulkhead, composed the same way the
// teacher composes them (bulkhead outermost, breaker innermost).
package resilience

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/hyperlinkr/hyperlinkr/internal/config"
)

type State int32

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreaker implements the circuit breaker pattern of spec §4.2
// for a single endpoint: one atomic state word, mutex-protected
// counters, and at most halfOpenMaxRequests probes admitted in HalfOpen
// (counted under the mutex).
type CircuitBreaker struct {
	name string

	failureThreshold    int
	successThreshold    int
	openDuration        time.Duration
	halfOpenMaxRequests int

	state atomic.Int32

	mu               sync.Mutex
	consecutiveFails int
	consecutiveSuccs int
	halfOpenRequests int
	openedAt         time.Time

	onStateChange func(from, to State)
}

// stateTransition lets callbacks run outside the mutex to avoid deadlocks.
type stateTransition struct {
	from     State
	to       State
	callback func(from, to State)
}

// NewCircuitBreaker creates a circuit breaker for one endpoint, named
// for inclusion in log lines and callbacks.
func NewCircuitBreaker(name string, cfg config.CircuitBreakerConfig) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:                name,
		failureThreshold:    cfg.FailureThreshold,
		successThreshold:    cfg.SuccessThreshold,
		openDuration:        cfg.OpenDuration,
		halfOpenMaxRequests: cfg.HalfOpenMaxRequests,
	}

	if cb.failureThreshold <= 0 {
		cb.failureThreshold = 5
	}
	if cb.successThreshold <= 0 {
		cb.successThreshold = 2
	}
	if cb.openDuration <= 0 {
		cb.openDuration = 30 * time.Second
	}
	if cb.halfOpenMaxRequests <= 0 {
		cb.halfOpenMaxRequests = 3
	}

	cb.state.Store(int32(StateClosed))

	return cb
}

// Name returns the endpoint name this breaker guards.
func (cb *CircuitBreaker) Name() string { return cb.name }

// Execute runs fn through the circuit breaker.
func (cb *CircuitBreaker) Execute(fn func() (any, error)) (any, error) {
	if !cb.Allow() {
		return nil, ErrRejected
	}

	result, err := fn()

	if err != nil {
		cb.RecordFailure()
	} else {
		cb.RecordSuccess()
	}

	return result, err
}

// Allow checks if a request should be let through. Exactly one caller
// observes the Open -> HalfOpen transition; subsequent Open callers are
// denied until that happens.
func (cb *CircuitBreaker) Allow() bool {
	state := State(cb.state.Load())

	switch state {
	case StateClosed:
		return true

	case StateOpen:
		var transition *stateTransition
		var allowed bool

		cb.mu.Lock()
		if State(cb.state.Load()) == StateOpen && time.Since(cb.openedAt) >= cb.openDuration {
			transition = cb.transitionTo(StateHalfOpen)
			cb.halfOpenRequests = 1
			allowed = true
		}
		cb.mu.Unlock()

		transition.invoke()
		return allowed

	case StateHalfOpen:
		cb.mu.Lock()
		allowed := cb.halfOpenRequests < cb.halfOpenMaxRequests
		if allowed {
			cb.halfOpenRequests++
		}
		cb.mu.Unlock()
		return allowed

	default:
		return true
	}
}

// RecordSuccess records a successful call.
func (cb *CircuitBreaker) RecordSuccess() {
	var transition *stateTransition

	cb.mu.Lock()
	state := State(cb.state.Load())

	switch state {
	case StateClosed:
		cb.consecutiveFails = 0

	case StateHalfOpen:
		cb.consecutiveSuccs++
		if cb.consecutiveSuccs >= cb.successThreshold {
			transition = cb.transitionTo(StateClosed)
		}
	}
	cb.mu.Unlock()

	transition.invoke()
}

// RecordFailure records a failed call. Only failures that actually
// reached the remote count toward tripping (spec §7) — callers must not
// call RecordFailure for a Rejected outcome, only for a call that was
// Allow()ed and then failed.
func (cb *CircuitBreaker) RecordFailure() {
	var transition *stateTransition

	cb.mu.Lock()
	state := State(cb.state.Load())

	switch state {
	case StateClosed:
		cb.consecutiveFails++
		if cb.consecutiveFails >= cb.failureThreshold {
			transition = cb.transitionTo(StateOpen)
		}

	case StateHalfOpen:
		transition = cb.transitionTo(StateOpen)
	}
	cb.mu.Unlock()

	transition.invoke()
}

// transitionTo must be called while holding the mutex. The returned
// transition's callback must be invoked after releasing the mutex.
func (cb *CircuitBreaker) transitionTo(newState State) *stateTransition {
	oldState := State(cb.state.Load())
	if oldState == newState {
		return nil
	}

	switch newState {
	case StateClosed:
		cb.consecutiveFails = 0
		cb.consecutiveSuccs = 0
		cb.halfOpenRequests = 0

	case StateOpen:
		cb.openedAt = time.Now()
		cb.consecutiveSuccs = 0

	case StateHalfOpen:
		cb.consecutiveSuccs = 0
		cb.halfOpenRequests = 0
	}

	cb.state.Store(int32(newState))

	if cb.onStateChange != nil {
		return &stateTransition{from: oldState, to: newState, callback: cb.onStateChange}
	}
	return nil
}

func (t *stateTransition) invoke() {
	if t != nil && t.callback != nil {
		t.callback(t.from, t.to)
	}
}

func (cb *CircuitBreaker) State() State { return State(cb.state.Load()) }

func (cb *CircuitBreaker) IsOpen() bool     { return cb.State() == StateOpen }
func (cb *CircuitBreaker) IsClosed() bool   { return cb.State() == StateClosed }
func (cb *CircuitBreaker) IsHalfOpen() bool { return cb.State() == StateHalfOpen }

// SetOnStateChange sets a callback invoked synchronously, outside any
// internal lock, after each state transition.
func (cb *CircuitBreaker) SetOnStateChange(fn func(from, to State)) {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.onStateChange = fn
}

func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.consecutiveFails = 0
	cb.consecutiveSuccs = 0
	cb.halfOpenRequests = 0
	cb.state.Store(int32(StateClosed))
}

func (cb *CircuitBreaker) Stats() CircuitBreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return CircuitBreakerStats{
		Endpoint:         cb.name,
		State:            cb.State(),
		ConsecutiveFails: cb.consecutiveFails,
		ConsecutiveSuccs: cb.consecutiveSuccs,
		HalfOpenRequests: cb.halfOpenRequests,
		OpenedAt:         cb.openedAt,
	}
}

type CircuitBreakerStats struct {
	Endpoint         string
	State            State
	ConsecutiveFails int
	ConsecutiveSuccs int
	HalfOpenRequests int
	OpenedAt         time.Time
}

// DisabledCircuitBreaker is a no-op breaker that allows every request.
type DisabledCircuitBreaker struct{}

func NewDisabledCircuitBreaker() *DisabledCircuitBreaker { return &DisabledCircuitBreaker{} }

func (cb *DisabledCircuitBreaker) Execute(fn func() (any, error)) (any, error) { return fn() }
func (cb *DisabledCircuitBreaker) Allow() bool                                 { return true }
func (cb *DisabledCircuitBreaker) RecordSuccess()                             {}
func (cb *DisabledCircuitBreaker) RecordFailure()                             {}
func (cb *DisabledCircuitBreaker) State() State                               { return StateClosed }
func (cb *DisabledCircuitBreaker) IsOpen() bool                               { return false }
func (cb *DisabledCircuitBreaker) IsClosed() bool                            { return true }
func (cb *DisabledCircuitBreaker) IsHalfOpen() bool                          { return false }
func (cb *DisabledCircuitBreaker) Reset()                                    {}
func (cb *DisabledCircuitBreaker) SetOnStateChange(fn func(from, to State))  {}
