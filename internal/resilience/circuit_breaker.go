package resilience

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
)

// CircuitBreakerState represents the state of the circuit breaker
type CircuitBreakerState int

const (
	StateClosed CircuitBreakerState = iota
	StateHalfOpen
	StateOpen
)

// String returns the lowercase state name
func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig holds configuration for the circuit breaker
type CircuitBreakerConfig struct {
	FailureThreshold int           `json:"failure_threshold" yaml:"failure_threshold"` // consecutive failures before opening
	RecoveryTimeout  time.Duration `json:"recovery_timeout" yaml:"recovery_timeout"`   // open period before half-open trial requests
	SuccessThreshold int           `json:"success_threshold" yaml:"success_threshold"` // trial requests allowed while half-open

	// Exclude reports errors that say nothing about the dependency's health.
	// They count as neither success nor failure. Caller cancellation is always excluded.
	Exclude func(error) bool `json:"-" yaml:"-"`
}

// StateChangeFunc is notified on every transition
type StateChangeFunc func(name string, from, to CircuitBreakerState)

// CircuitBreaker guards calls to an unreliable dependency returning T
type CircuitBreaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// ErrCircuitOpen is returned without calling the dependency while the breaker is open
var ErrCircuitOpen = errors.New("circuit breaker is open")

// NewCircuitBreaker creates a breaker, filling zero config values with defaults
func NewCircuitBreaker[T any](name string, config CircuitBreakerConfig, onChange StateChangeFunc) *CircuitBreaker[T] {
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = 5
	}
	if config.RecoveryTimeout <= 0 {
		config.RecoveryTimeout = 30 * time.Second
	}
	if config.SuccessThreshold <= 0 {
		config.SuccessThreshold = 1
	}

	threshold := uint32(config.FailureThreshold)
	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: uint32(config.SuccessThreshold),
		Timeout:     config.RecoveryTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsExcluded: func(err error) bool {
			if errors.Is(err, context.Canceled) {
				return true
			}
			return config.Exclude != nil && config.Exclude(err)
		},
	}
	if onChange != nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			onChange(name, fromGobreaker(from), fromGobreaker(to))
		}
	}

	return &CircuitBreaker[T]{cb: gobreaker.NewCircuitBreaker[T](settings)}
}

// Execute runs fn unless the breaker is open. Rejections are reported as ErrCircuitOpen.
func (b *CircuitBreaker[T]) Execute(fn func() (T, error)) (T, error) {
	result, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		var zero T
		return zero, ErrCircuitOpen
	}
	return result, err
}

// State returns the current state of the circuit breaker
func (b *CircuitBreaker[T]) State() CircuitBreakerState {
	return fromGobreaker(b.cb.State())
}

// Name returns the breaker name
func (b *CircuitBreaker[T]) Name() string {
	return b.cb.Name()
}

// Failures returns the current consecutive failure count
func (b *CircuitBreaker[T]) Failures() int {
	return int(b.cb.Counts().ConsecutiveFailures)
}

func fromGobreaker(s gobreaker.State) CircuitBreakerState {
	switch s {
	case gobreaker.StateHalfOpen:
		return StateHalfOpen
	case gobreaker.StateOpen:
		return StateOpen
	default:
		return StateClosed
	}
}
