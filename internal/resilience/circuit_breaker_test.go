package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend down")

func TestCircuitBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	cb := NewCircuitBreaker[string]("test", CircuitBreakerConfig{
		FailureThreshold: 3,
		RecoveryTimeout:  time.Hour,
	}, nil)

	calls := 0
	failing := func() (string, error) {
		calls++
		return "", errBackend
	}

	for i := 0; i < 3; i++ {
		_, err := cb.Execute(failing)
		assert.ErrorIs(t, err, errBackend)
	}
	assert.Equal(t, StateOpen, cb.State())

	_, err := cb.Execute(failing)
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.Equal(t, 3, calls, "open breaker must not call through")
}

func TestCircuitBreaker_ExcludedErrorsDoNotTrip(t *testing.T) {
	errGone := errors.New("video gone")
	cb := NewCircuitBreaker[string]("test", CircuitBreakerConfig{
		FailureThreshold: 2,
		RecoveryTimeout:  time.Hour,
		Exclude:          func(err error) bool { return errors.Is(err, errGone) },
	}, nil)

	tests := []struct {
		name string
		err  error
	}{
		{name: "caller cancelled", err: context.Canceled},
		{name: "wrapped cancellation", err: fmt.Errorf("fetch: %w", context.Canceled)},
		{name: "excluded by config", err: fmt.Errorf("yt-dlp: %w", errGone)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 5; i++ {
				_, err := cb.Execute(func() (string, error) { return "", tt.err })
				assert.ErrorIs(t, err, tt.err)
			}
			assert.Equal(t, StateClosed, cb.State())
			assert.Zero(t, cb.Failures())
		})
	}

	_, err := cb.Execute(func() (string, error) { return "", errBackend })
	assert.ErrorIs(t, err, errBackend)
	assert.Equal(t, 1, cb.Failures())
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker[int]("test", CircuitBreakerConfig{FailureThreshold: 2}, nil)

	_, err := cb.Execute(func() (int, error) { return 0, errBackend })
	require.Error(t, err)
	assert.Equal(t, 1, cb.Failures())

	v, err := cb.Execute(func() (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, v)
	assert.Equal(t, 0, cb.Failures())
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_HalfOpenRecovery(t *testing.T) {
	var mu sync.Mutex
	var transitions []string

	cb := NewCircuitBreaker[int]("metadata", CircuitBreakerConfig{
		FailureThreshold: 1,
		RecoveryTimeout:  20 * time.Millisecond,
		SuccessThreshold: 1,
	}, func(name string, from, to CircuitBreakerState) {
		mu.Lock()
		defer mu.Unlock()
		transitions = append(transitions, from.String()+"->"+to.String())
	})

	_, err := cb.Execute(func() (int, error) { return 0, errBackend })
	require.Error(t, err)
	assert.Equal(t, StateOpen, cb.State())

	time.Sleep(40 * time.Millisecond)

	_, err = cb.Execute(func() (int, error) { return 1, nil })
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestCircuitBreaker_Defaults(t *testing.T) {
	cb := NewCircuitBreaker[int]("defaults", CircuitBreakerConfig{}, nil)

	assert.Equal(t, "defaults", cb.Name())
	for i := 0; i < 4; i++ {
		_, _ = cb.Execute(func() (int, error) { return 0, errBackend })
	}
	assert.Equal(t, StateClosed, cb.State())

	_, _ = cb.Execute(func() (int, error) { return 0, errBackend })
	assert.Equal(t, StateOpen, cb.State())
}

func TestCircuitBreakerState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "unknown", CircuitBreakerState(9).String())
}
