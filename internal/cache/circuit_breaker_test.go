package cache

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errRedisDown = errors.New("dial tcp: connection refused")

func tripBreaker(cb *CircuitBreaker, times int) {
	for i := 0; i < times; i++ {
		_ = cb.Execute(func() error { return errRedisDown })
	}
}

func TestCircuitBreaker_StaysClosedOnSuccess(t *testing.T) {
	cb := NewCircuitBreaker(&CircuitBreakerConfig{MaxFailures: 3, Timeout: 100 * time.Millisecond, HalfOpenMaxCalls: 2})

	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, CircuitBreakerClosed, cb.GetState())
}

func TestCircuitBreaker_OpensAtThreshold(t *testing.T) {
	cb := NewCircuitBreaker(&CircuitBreakerConfig{MaxFailures: 2, Timeout: time.Minute, HalfOpenMaxCalls: 1})

	tripBreaker(cb, 1)
	assert.Equal(t, CircuitBreakerClosed, cb.GetState())

	tripBreaker(cb, 1)
	assert.Equal(t, CircuitBreakerOpen, cb.GetState())

	err := cb.Execute(func() error {
		t.Error("operation must not run while the breaker is open")
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitBreakerOpen)
}

func TestCircuitBreaker_SuccessResetsFailureCount(t *testing.T) {
	cb := NewCircuitBreaker(&CircuitBreakerConfig{MaxFailures: 2, Timeout: time.Minute, HalfOpenMaxCalls: 1})

	tripBreaker(cb, 1)
	require.NoError(t, cb.Execute(func() error { return nil }))
	tripBreaker(cb, 1)

	assert.Equal(t, CircuitBreakerClosed, cb.GetState())
}

func TestCircuitBreaker_HalfOpenRecovers(t *testing.T) {
	cb := NewCircuitBreaker(&CircuitBreakerConfig{MaxFailures: 1, Timeout: 30 * time.Millisecond, HalfOpenMaxCalls: 2})

	tripBreaker(cb, 1)
	require.Equal(t, CircuitBreakerOpen, cb.GetState())

	time.Sleep(40 * time.Millisecond)

	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, CircuitBreakerHalfOpen, cb.GetState())

	require.NoError(t, cb.Execute(func() error { return nil }))
	assert.Equal(t, CircuitBreakerClosed, cb.GetState())
}

func TestCircuitBreaker_HalfOpenFailureReopens(t *testing.T) {
	cb := NewCircuitBreaker(&CircuitBreakerConfig{MaxFailures: 1, Timeout: 30 * time.Millisecond, HalfOpenMaxCalls: 2})

	tripBreaker(cb, 1)
	time.Sleep(40 * time.Millisecond)

	err := cb.Execute(func() error { return errRedisDown })
	assert.ErrorIs(t, err, errRedisDown)
	assert.Equal(t, CircuitBreakerOpen, cb.GetState())
}

func TestCircuitBreaker_ReportsStateChanges(t *testing.T) {
	var mu sync.Mutex
	var transitions []string

	cb := NewCircuitBreaker(&CircuitBreakerConfig{
		MaxFailures:      1,
		Timeout:          20 * time.Millisecond,
		HalfOpenMaxCalls: 1,
		OnStateChange: func(from, to CircuitBreakerState) {
			mu.Lock()
			transitions = append(transitions, from.String()+"->"+to.String())
			mu.Unlock()
		},
	})

	tripBreaker(cb, 1)
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, cb.Execute(func() error { return nil }))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"closed->open", "open->half-open", "half-open->closed"}, transitions)
}

func TestCircuitBreaker_Stats(t *testing.T) {
	cb := NewCircuitBreaker(nil)
	tripBreaker(cb, 2)

	stats := cb.GetStats()
	assert.Equal(t, "closed", stats["state"])
	assert.Equal(t, 2, stats["failure_count"])
	assert.Equal(t, 5, stats["max_failures"])
}

func TestCircuitBreaker_Concurrency(t *testing.T) {
	cb := NewCircuitBreaker(&CircuitBreakerConfig{MaxFailures: 5, Timeout: 100 * time.Millisecond, HalfOpenMaxCalls: 3})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_ = cb.Execute(func() error {
					if (id+j)%3 == 0 {
						return errRedisDown
					}
					return nil
				})
			}
		}(i)
	}
	wg.Wait()

	err := cb.Execute(func() error { return nil })
	if err != nil {
		assert.ErrorIs(t, err, ErrCircuitBreakerOpen)
	}
}
