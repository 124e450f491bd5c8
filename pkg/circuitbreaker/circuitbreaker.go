// Package circuitbreaker implements the circuit breaker pattern. It keeps
// a failing external service (the campus mail relay, above all) from being
// hammered while it is down. Standard library only.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State is the breaker position.
type State int

const (
	// StateClosed lets requests through; the normal state.
	StateClosed State = iota
	// StateOpen rejects requests outright.
	StateOpen
	// StateHalfOpen lets a few probe requests test recovery.
	StateHalfOpen
)

// String returns the string representation of the state.
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

var (
	// ErrCircuitOpen is returned while the breaker rejects requests.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrTooManyRequests is returned when the half-open probe quota is used up.
	ErrTooManyRequests = errors.New("too many requests in half-open state")
)

// Counts holds request counters since the last Reset.
type Counts struct {
	Requests             int
	TotalSuccesses       int
	TotalFailures        int
	ConsecutiveSuccesses int
	ConsecutiveFailures  int
}

// CircuitBreaker tracks failures of one downstream dependency.
//
// Closed trips to open after FailureThreshold consecutive failures. Open
// rejects everything until Timeout has passed since the trip, then admits
// up to MaxHalfOpenRequests probes. SuccessThreshold consecutive probe
// successes close the breaker again; one probe failure reopens it.
//
// Every state change starts a new generation; an outcome that settles
// after the state already changed is dropped instead of being counted
// against the wrong state.
type CircuitBreaker struct {
	name string

	failureThreshold int
	successThreshold int
	openTimeout      time.Duration
	halfOpenMax      int

	onStateChange func(name string, from, to State)
	isFailure     func(error) bool

	mu         sync.Mutex
	state      State
	generation uint64
	counts     Counts
	openedAt   time.Time
	probes     int
}

// Option configures a CircuitBreaker.
type Option func(*CircuitBreaker)

// WithFailureThreshold sets how many consecutive failures trip the breaker.
func WithFailureThreshold(n int) Option {
	return func(cb *CircuitBreaker) {
		if n > 0 {
			cb.failureThreshold = n
		}
	}
}

// WithSuccessThreshold sets how many probe successes close the breaker.
func WithSuccessThreshold(n int) Option {
	return func(cb *CircuitBreaker) {
		if n > 0 {
			cb.successThreshold = n
		}
	}
}

// WithTimeout sets how long the breaker stays open before probing.
func WithTimeout(d time.Duration) Option {
	return func(cb *CircuitBreaker) {
		if d > 0 {
			cb.openTimeout = d
		}
	}
}

// WithMaxHalfOpenRequests sets the probe quota per half-open phase.
func WithMaxHalfOpenRequests(n int) Option {
	return func(cb *CircuitBreaker) {
		if n > 0 {
			cb.halfOpenMax = n
		}
	}
}

// WithOnStateChange sets a transition callback. It runs with the breaker
// lock held; do not call back into the breaker from it.
func WithOnStateChange(fn func(name string, from, to State)) Option {
	return func(cb *CircuitBreaker) {
		cb.onStateChange = fn
	}
}

// WithIsFailure decides which errors count against the breaker.
// Without it every non-nil error counts.
func WithIsFailure(fn func(error) bool) Option {
	return func(cb *CircuitBreaker) {
		cb.isFailure = fn
	}
}

// New builds a breaker. Without options: trips after 5 consecutive
// failures, stays open 30s, admits 1 probe, closes after 2 probe successes.
func New(name string, opts ...Option) *CircuitBreaker {
	cb := &CircuitBreaker{
		name:             name,
		failureThreshold: 5,
		successThreshold: 2,
		openTimeout:      30 * time.Second,
		halfOpenMax:      1,
		state:            StateClosed,
	}
	for _, opt := range opts {
		opt(cb)
	}
	return cb
}

// ══════════════════════════════════════════════════════════════════════════════
// EXECUTION
// ══════════════════════════════════════════════════════════════════════════════

// Execute runs fn if the breaker admits the request and settles the
// outcome. The function's own error is returned unchanged; rejections
// return ErrCircuitOpen or ErrTooManyRequests without running fn.
func (cb *CircuitBreaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	gen, err := cb.admit()
	if err != nil {
		return err
	}

	err = fn(ctx)
	cb.settle(gen, cb.failed(err))
	return err
}

// admit decides whether a request may proceed and returns the generation
// it belongs to.
func (cb *CircuitBreaker) admit() (uint64, error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && time.Since(cb.openedAt) >= cb.openTimeout {
		cb.transition(StateHalfOpen)
	}

	switch cb.state {
	case StateClosed:
		cb.counts.Requests++
		return cb.generation, nil

	case StateHalfOpen:
		if cb.probes >= cb.halfOpenMax {
			return 0, ErrTooManyRequests
		}
		cb.probes++
		cb.counts.Requests++
		return cb.generation, nil

	default:
		return 0, ErrCircuitOpen
	}
}

// settle records an outcome, unless the breaker has changed state since
// the request was admitted.
func (cb *CircuitBreaker) settle(gen uint64, failed bool) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if gen != cb.generation {
		return
	}

	if failed {
		cb.onFailure()
	} else {
		cb.onSuccess()
	}
}

func (cb *CircuitBreaker) failed(err error) bool {
	if err == nil {
		return false
	}
	if cb.isFailure != nil {
		return cb.isFailure(err)
	}
	return true
}

func (cb *CircuitBreaker) onSuccess() {
	cb.counts.TotalSuccesses++
	cb.counts.ConsecutiveSuccesses++
	cb.counts.ConsecutiveFailures = 0

	if cb.state == StateHalfOpen && cb.counts.ConsecutiveSuccesses >= cb.successThreshold {
		cb.transition(StateClosed)
	}
}

func (cb *CircuitBreaker) onFailure() {
	cb.counts.TotalFailures++
	cb.counts.ConsecutiveFailures++
	cb.counts.ConsecutiveSuccesses = 0

	switch cb.state {
	case StateClosed:
		if cb.counts.ConsecutiveFailures >= cb.failureThreshold {
			cb.transition(StateOpen)
		}
	case StateHalfOpen:
		cb.transition(StateOpen)
	}
}

// transition moves to a new state and starts a new generation.
func (cb *CircuitBreaker) transition(to State) {
	if cb.state == to {
		return
	}

	from := cb.state
	cb.state = to
	cb.generation++
	cb.probes = 0
	cb.counts.ConsecutiveSuccesses = 0
	cb.counts.ConsecutiveFailures = 0

	if to == StateOpen {
		cb.openedAt = time.Now()
	}

	if cb.onStateChange != nil {
		cb.onStateChange(cb.name, from, to)
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// INSPECTION
// ══════════════════════════════════════════════════════════════════════════════

// State returns the current breaker position.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// Counts returns the counters accumulated since the last Reset.
func (cb *CircuitBreaker) Counts() Counts {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.counts
}

// Reset force-closes the breaker and zeroes the counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.generation++
	cb.counts = Counts{}
	cb.probes = 0
}

// Name returns the breaker name.
func (cb *CircuitBreaker) Name() string {
	return cb.name
}

// IsOpen reports whether requests are currently rejected.
func (cb *CircuitBreaker) IsOpen() bool {
	return cb.State() == StateOpen
}

// IsClosed reports whether the breaker is in its normal state.
func (cb *CircuitBreaker) IsClosed() bool {
	return cb.State() == StateClosed
}
