package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// State represents the state of the circuit breaker.
type State int

const (
	// Closed is the initial state where requests are allowed.
	Closed State = iota
	// Open state is when the circuit has tripped and requests are blocked.
	Open
	// HalfOpen allows a limited number of trial requests to test recovery.
	HalfOpen
)

// ErrCircuitOpen is returned when the circuit breaker is in the Open state.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker wraps calls to an unreliable upstream. After a number of
// consecutive failures the circuit opens and calls fail fast with
// ErrCircuitOpen until the timeout elapses and a trial call succeeds.
type CircuitBreaker struct {
	failureThreshold uint32
	successThreshold uint32
	timeout          time.Duration

	mutex       sync.Mutex
	state       State
	failures    uint32
	successes   uint32
	lastFailure time.Time
}

// New creates a CircuitBreaker.
// failureThreshold: consecutive failures required to open the circuit.
// successThreshold: consecutive successes in half-open state required to close it.
// timeout: how long the circuit stays open before allowing trial calls.
func New(failureThreshold, successThreshold uint32, timeout time.Duration) *CircuitBreaker {
	return &CircuitBreaker{
		failureThreshold: failureThreshold,
		successThreshold: successThreshold,
		timeout:          timeout,
		state:            Closed,
	}
}

// State returns the current state of the circuit breaker.
func (cb *CircuitBreaker) State() State {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	return cb.currentState()
}

// currentState resolves the Open→HalfOpen transition. Caller holds the mutex.
func (cb *CircuitBreaker) currentState() State {
	if cb.state == Open && time.Since(cb.lastFailure) > cb.timeout {
		cb.state = HalfOpen
		cb.successes = 0
	}
	return cb.state
}

// Execute runs req unless the circuit is open. The request's error, if any,
// is returned unchanged so callers can inspect it.
func (cb *CircuitBreaker) Execute(req func() error) error {
	cb.mutex.Lock()
	if cb.currentState() == Open {
		cb.mutex.Unlock()
		return ErrCircuitOpen
	}
	cb.mutex.Unlock()

	err := req()

	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	if err != nil {
		cb.onFailure()
		return err
	}
	cb.onSuccess()
	return nil
}

// onFailure counts a failure and trips the circuit when the threshold is hit.
// A failure in half-open state trips it immediately. Caller holds the mutex.
func (cb *CircuitBreaker) onFailure() {
	switch cb.state {
	case HalfOpen:
		cb.trip()
	case Closed:
		cb.failures++
		if cb.failures >= cb.failureThreshold {
			cb.trip()
		}
	}
}

// onSuccess resets failure counting, and closes a half-open circuit once
// enough trial calls have succeeded. Caller holds the mutex.
func (cb *CircuitBreaker) onSuccess() {
	switch cb.state {
	case HalfOpen:
		cb.successes++
		if cb.successes >= cb.successThreshold {
			cb.state = Closed
			cb.failures = 0
			cb.successes = 0
		}
	case Closed:
		cb.failures = 0
	}
}

func (cb *CircuitBreaker) trip() {
	cb.state = Open
	cb.lastFailure = time.Now()
	cb.failures = 0
	cb.successes = 0
}
