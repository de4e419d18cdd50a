package redis

import (
	"errors"
	"sync"
	"time"
)

// ErrBreakerOpen rejects a publish while the breaker is open and the
// cooldown has not elapsed. The buffered publisher treats it as "queue
// locally and retry later".
var ErrBreakerOpen = errors.New("redis breaker open")

// State is the breaker position. The numeric values feed the
// monitor_redis_circuit_breaker_state gauge directly.
type State int

const (
	StateClosed   State = 0 // calls pass through
	StateOpen     State = 1 // calls rejected until the cooldown elapses
	StateHalfOpen State = 2 // trial call in flight
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	}
	return "unknown"
}

// CircuitBreaker guards Redis publishes so a dead broker fails fast instead
// of stalling every polling round. A streak of consecutive failures opens
// the breaker; once the cooldown elapses the next call is let through as a
// trial, closing the breaker on success and reopening it on failure.
type CircuitBreaker struct {
	mu       sync.Mutex
	state    State
	streak   int // consecutive failures
	limit    int
	cooldown time.Duration
	openedAt time.Time

	// OnStateChange observes transitions. The monitor hangs its breaker
	// gauge and trip counter here, the buffered publisher its flush.
	OnStateChange func(from, to State)
}

// NewCircuitBreaker creates a closed breaker that trips after maxFailures
// consecutive errors and retries once cooldown has elapsed.
func NewCircuitBreaker(maxFailures int, cooldown time.Duration) *CircuitBreaker {
	return &CircuitBreaker{limit: maxFailures, cooldown: cooldown}
}

// Do runs fn under the breaker's admission rule and folds its result into
// the breaker state.
func (cb *CircuitBreaker) Do(fn func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	return cb.record(fn())
}

// CurrentState reports the breaker position.
func (cb *CircuitBreaker) CurrentState() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

// admit decides whether a call may proceed, moving an expired open state to
// half-open so the call runs as the trial.
func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	if cb.state == StateOpen {
		if time.Since(cb.openedAt) <= cb.cooldown {
			return ErrBreakerOpen
		}
		cb.shift(StateHalfOpen)
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err == nil {
		if cb.state == StateHalfOpen {
			cb.shift(StateClosed)
		}
		cb.streak = 0
		return nil
	}

	cb.streak++
	cb.openedAt = time.Now()
	if cb.state == StateHalfOpen || cb.streak >= cb.limit {
		cb.shift(StateOpen)
	}
	return err
}

// shift transitions the state and fires the observer. Caller holds mu.
func (cb *CircuitBreaker) shift(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	if to == StateClosed {
		cb.streak = 0
	}
	if cb.OnStateChange != nil {
		cb.OnStateChange(from, to)
	}
}
