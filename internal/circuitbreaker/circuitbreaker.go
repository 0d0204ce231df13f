// Package circuitbreaker guards the weather API against repeated upstream
// failures. After enough consecutive failures the circuit opens and calls are
// rejected locally until a cool-down elapses; a half-open probe phase then
// decides whether the upstream has recovered.
package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrOpen is returned when the circuit is open and the call is rejected
// without reaching the upstream. Callers treat it as non-retryable.
var ErrOpen = errors.New("circuit breaker open")

// State is the breaker state.
type State int

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
		return "half_open"
	}
	return "unknown"
}

// Config holds breaker parameters. Zero values fall back to defaults suitable
// for the live weather path.
type Config struct {
	FailureThreshold int           // consecutive failures before opening
	SuccessThreshold int           // half-open successes before closing
	Timeout          time.Duration // open-state cool-down before probing
	Component        string        // named in rejection errors and metrics
	OnStateChange    func(from, to State)
}

// CircuitBreaker tracks consecutive failures for one upstream component.
type CircuitBreaker struct {
	mu        sync.RWMutex
	state     State
	failures  int
	successes int
	openedAt  time.Time

	cfg Config
}

// New creates a CircuitBreaker with the given config.
func New(cfg Config) *CircuitBreaker {
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 2
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &CircuitBreaker{state: StateClosed, cfg: cfg}
}

// Call runs fn when the circuit allows it. An open circuit rejects with ErrOpen
// until the cool-down elapses, then admits one probe in half-open state. The
// outcome of fn moves the circuit toward open (failure) or closed (success).
func (cb *CircuitBreaker) Call(ctx context.Context, fn func() error) error {
	if err := cb.allow(); err != nil {
		return err
	}
	err := fn()
	cb.record(err)
	return err
}

// State returns the current state (for metrics).
func (cb *CircuitBreaker) State() State {
	cb.mu.RLock()
	defer cb.mu.RUnlock()
	return cb.state
}

func (cb *CircuitBreaker) allow() error {
	cb.mu.Lock()
	if cb.state != StateOpen {
		cb.mu.Unlock()
		return nil
	}
	if time.Since(cb.openedAt) < cb.cfg.Timeout {
		cb.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrOpen, cb.cfg.Component)
	}
	cb.successes = 0
	cb.transition(StateHalfOpen)
	cb.mu.Unlock()
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if err != nil {
		cb.failures++
		cb.openedAt = time.Now()
		// A half-open probe failure reopens immediately regardless of count.
		if cb.state == StateHalfOpen || cb.failures >= cb.cfg.FailureThreshold {
			cb.failures = 0
			cb.transition(StateOpen)
		}
		return
	}

	cb.failures = 0
	cb.successes++
	if cb.state == StateHalfOpen && cb.successes >= cb.cfg.SuccessThreshold {
		cb.successes = 0
		cb.transition(StateClosed)
	}
}

// transition changes state and fires the callback. Caller holds cb.mu; the
// callback runs under the lock, so it must not call back into the breaker.
func (cb *CircuitBreaker) transition(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(from, to)
	}
}
