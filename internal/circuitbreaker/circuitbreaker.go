package circuitbreaker

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

const (
	Closed Status = iota
	Open
	HalfOpen
)

// ErrOpen signals that the circuit is open. See CircuitBreaker.Run.
var ErrOpen = errors.New("circuit breaker is open")

type Status int

func (s Status) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

type CircuitBreaker struct {
	maxFailures  int
	resetTimeout time.Duration
	clock        clock.Clock
	// ignore reports errors that do not count as failures.
	ignore func(error) bool

	// mu guards access to status, lastFailure and failures.
	mu          sync.Mutex
	failures    int
	lastFailure time.Time
	status      Status
}

// Option customises a CircuitBreaker.
type Option func(*CircuitBreaker)

// WithClock sets the clock used to time the reset timeout. Defaults to the wall
// clock.
func WithClock(c clock.Clock) Option {
	return func(cb *CircuitBreaker) { cb.clock = c }
}

// WithIgnoredErrors makes errors for which ignore returns true pass through
// without counting as failures.
func WithIgnoredErrors(ignore func(error) bool) Option {
	return func(cb *CircuitBreaker) { cb.ignore = ignore }
}

// New creates a new CircuitBreaker instance with the specified maximum number
// of consecutive failures and a reset timeout duration.
//
// See CircuitBreaker.Run.
func New(maxFailures int, resetTimeout time.Duration, o ...Option) *CircuitBreaker {
	cb := &CircuitBreaker{
		maxFailures:  maxFailures,
		resetTimeout: resetTimeout,
		clock:        clock.New(),
		ignore:       func(error) bool { return false },
	}
	for _, apply := range o {
		apply(cb)
	}
	return cb
}

// Run attempts to execute the provided function within the context of the
// circuit breaker. It handles state transitions, Closed, Open, or HalfOpen,
// based on the outcome of the attempt.
//
// If the circuit is in the Open state, and not enough time has passed since the
// last failure, the circuit remains open, and the function returns
// ErrOpen without attempting the provided function. If enough time
// has passed, the circuit transitions to HalfOpen, and one attempt is allowed.
//
// In HalfOpen state if the function is executed and returns an error, the
// circuit breaker will transition back to Open status. Otherwise, if the
// function executes successfully, the circuit resets to the Closed state, and
// the failure count is reset to zero.
func (cb *CircuitBreaker) Run(attempt func() error) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	switch cb.status {
	case Open:
		if cb.clock.Since(cb.lastFailure) < cb.resetTimeout {
			return ErrOpen
		}
		cb.status = HalfOpen
		fallthrough
	case HalfOpen, Closed:
		err := attempt()
		if err != nil && !cb.ignore(err) {
			cb.failures++
			if cb.status == HalfOpen || cb.failures >= cb.maxFailures {
				cb.status = Open
				cb.lastFailure = cb.clock.Now()
			}
			return err
		}
		cb.status = Closed
		cb.failures = 0
		return err
	default:
		return fmt.Errorf("unknown status: %d", cb.status)
	}
}

// GetStatus returns the current status of the CircuitBreaker.
func (cb *CircuitBreaker) GetStatus() Status {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.status
}
