// Package resilience keeps assessments flowing when a speech backend
// misbehaves. [CircuitBreaker] is a three-state breaker (closed, open,
// half-open) that stops hammering a provider after repeated failures, and
// [FallbackGroup] chains alternative providers of the same kind so the next
// healthy one picks up where a tripped primary left off.
//
// All types are safe for concurrent use.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned by [CircuitBreaker.Execute] while the breaker is
// open and its reset timeout has not yet elapsed.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the operating mode of a [CircuitBreaker].
type State int

const (
	// StateClosed forwards every call. Normal operation.
	StateClosed State = iota

	// StateOpen rejects every call with [ErrCircuitOpen]. Entered after the
	// failure streak reaches MaxFailures, left once ResetTimeout elapses.
	StateOpen

	// StateHalfOpen lets a bounded number of trial calls through to find out
	// whether the backend recovered. Success closes the breaker, any failure
	// re-opens it.
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

// CircuitBreakerConfig tunes a [CircuitBreaker]. Zero values fall back to the
// defaults documented per field.
type CircuitBreakerConfig struct {
	// Name labels the breaker in log output, typically the provider name from
	// the configuration file.
	Name string

	// MaxFailures is the length of the consecutive-failure streak that trips
	// the breaker. Default 5.
	MaxFailures int

	// ResetTimeout is how long a tripped breaker waits before allowing trial
	// calls again. Default 30s.
	ResetTimeout time.Duration

	// HalfOpenMax bounds the trial calls permitted in the half-open state.
	// Default 3.
	HalfOpenMax int
}

// CircuitBreaker guards calls to a single speech provider. Consecutive
// failures trip it open; after ResetTimeout it admits trial calls and closes
// again once enough of them succeed.
type CircuitBreaker struct {
	name         string
	maxFailures  int
	resetTimeout time.Duration
	halfOpenMax  int

	mu          sync.Mutex
	state       State
	failStreak  int
	lastFailure time.Time
	trialCalls  int
	trialFails  int
}

// NewCircuitBreaker creates a breaker from cfg, filling in defaults for any
// zero-valued field.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMax <= 0 {
		cfg.HalfOpenMax = 3
	}
	return &CircuitBreaker{
		name:         cfg.Name,
		maxFailures:  cfg.MaxFailures,
		resetTimeout: cfg.ResetTimeout,
		halfOpenMax:  cfg.HalfOpenMax,
		state:        StateClosed,
	}
}

// Execute runs fn unless the breaker is open, in which case it returns
// [ErrCircuitOpen] without invoking fn. The error from fn is returned
// unchanged so callers can still inspect it.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	switch cb.state {
	case StateOpen:
		if time.Since(cb.lastFailure) < cb.resetTimeout {
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
		cb.state = StateHalfOpen
		cb.trialCalls = 0
		cb.trialFails = 0
		slog.Info("circuit breaker transitioning to half-open",
			"name", cb.name)

	case StateHalfOpen:
		if cb.trialCalls >= cb.halfOpenMax {
			// Trial budget spent, wait for the verdict of the calls in flight.
			cb.mu.Unlock()
			return ErrCircuitOpen
		}
	}

	trial := cb.state == StateHalfOpen
	if trial {
		cb.trialCalls++
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.recordFailure(trial)
	} else {
		cb.recordSuccess(trial)
	}
	return err
}

// recordFailure must be called with cb.mu held.
func (cb *CircuitBreaker) recordFailure(trial bool) {
	cb.lastFailure = time.Now()

	if trial {
		// One failed trial call is enough evidence the backend is still down.
		cb.trialFails++
		cb.state = StateOpen
		cb.failStreak = cb.maxFailures
		slog.Warn("circuit breaker re-opened from half-open",
			"name", cb.name)
		return
	}

	cb.failStreak++
	if cb.failStreak >= cb.maxFailures {
		cb.state = StateOpen
		slog.Warn("circuit breaker opened",
			"name", cb.name,
			"consecutive_failures", cb.failStreak)
	}
}

// recordSuccess must be called with cb.mu held.
func (cb *CircuitBreaker) recordSuccess(trial bool) {
	if trial {
		if cb.trialCalls-cb.trialFails >= cb.halfOpenMax {
			cb.state = StateClosed
			cb.failStreak = 0
			cb.trialCalls = 0
			cb.trialFails = 0
			slog.Info("circuit breaker closed after recovery",
				"name", cb.name)
		}
		return
	}

	// A success in the closed state wipes the failure streak.
	cb.failStreak = 0
}

// State reports the breaker's current state. An open breaker whose reset
// timeout has elapsed reports [StateHalfOpen]; the stored state only changes
// on the next [CircuitBreaker.Execute].
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.state == StateOpen && time.Since(cb.lastFailure) >= cb.resetTimeout {
		return StateHalfOpen
	}
	return cb.state
}

// Reset forces the breaker back to [StateClosed] and clears all counters.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.state = StateClosed
	cb.failStreak = 0
	cb.trialCalls = 0
	cb.trialFails = 0
	slog.Info("circuit breaker manually reset", "name", cb.name)
}
