package cache

import (
	"errors"
	"sync"
	"time"
)

type CircuitBreakerState int

const (
	CircuitBreakerClosed CircuitBreakerState = iota
	CircuitBreakerOpen
	CircuitBreakerHalfOpen
)

var stateNames = map[CircuitBreakerState]string{
	CircuitBreakerClosed:   "closed",
	CircuitBreakerOpen:     "open",
	CircuitBreakerHalfOpen: "half-open",
}

func (s CircuitBreakerState) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return "closed"
}

var ErrCircuitBreakerOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig tunes when L2 failures stop reaching redis.
type CircuitBreakerConfig struct {
	MaxFailures      int           `json:"max_failures"`
	Timeout          time.Duration `json:"timeout"`
	HalfOpenMaxCalls int           `json:"half_open_max_calls"`
	// OnStateChange, when set, is called outside the breaker's lock.
	OnStateChange func(from, to CircuitBreakerState) `json:"-"`
}

func DefaultCircuitBreakerConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		MaxFailures:      5,
		Timeout:          30 * time.Second,
		HalfOpenMaxCalls: 3,
	}
}

// CircuitBreaker guards calls to the shared cache. After MaxFailures
// consecutive failures it rejects calls for Timeout, then lets up to
// HalfOpenMaxCalls probes through; that many successes close it again.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu          sync.Mutex
	state       CircuitBreakerState
	failures    int
	probes      int
	probeWins   int
	lastFailure time.Time
}

func NewCircuitBreaker(config *CircuitBreakerConfig) *CircuitBreaker {
	if config == nil {
		config = DefaultCircuitBreakerConfig()
	}
	return &CircuitBreaker{cfg: *config}
}

// Execute runs fn unless the breaker is open, in which case fn is skipped
// and ErrCircuitBreakerOpen is returned.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if !cb.admit() {
		return ErrCircuitBreakerOpen
	}
	err := fn()
	cb.settle(err)
	return err
}

func (cb *CircuitBreaker) admit() bool {
	cb.mu.Lock()
	from := cb.state
	ok := true
	switch cb.state {
	case CircuitBreakerOpen:
		ok = time.Since(cb.lastFailure) >= cb.cfg.Timeout
		if ok {
			cb.moveTo(CircuitBreakerHalfOpen)
			cb.probes = 1
		}
	case CircuitBreakerHalfOpen:
		ok = cb.probes < cb.cfg.HalfOpenMaxCalls
		if ok {
			cb.probes++
		}
	}
	to := cb.state
	cb.mu.Unlock()

	cb.report(from, to)
	return ok
}

func (cb *CircuitBreaker) settle(err error) {
	cb.mu.Lock()
	from := cb.state
	if err != nil {
		cb.failures++
		cb.lastFailure = time.Now()
		if cb.state == CircuitBreakerHalfOpen || cb.failures >= cb.cfg.MaxFailures {
			cb.moveTo(CircuitBreakerOpen)
		}
	} else if cb.state == CircuitBreakerHalfOpen {
		cb.probeWins++
		if cb.probeWins >= cb.cfg.HalfOpenMaxCalls {
			cb.moveTo(CircuitBreakerClosed)
			cb.failures = 0
		}
	} else {
		cb.failures = 0
	}
	to := cb.state
	cb.mu.Unlock()

	cb.report(from, to)
}

// moveTo switches state and clears the probe bookkeeping. Callers hold mu.
func (cb *CircuitBreaker) moveTo(state CircuitBreakerState) {
	cb.state = state
	cb.probes = 0
	cb.probeWins = 0
}

func (cb *CircuitBreaker) report(from, to CircuitBreakerState) {
	if from != to && cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(from, to)
	}
}

func (cb *CircuitBreaker) GetState() CircuitBreakerState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) GetStats() map[string]interface{} {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	return map[string]interface{}{
		"state":           cb.state.String(),
		"failure_count":   cb.failures,
		"probe_successes": cb.probeWins,
		"last_failure":    cb.lastFailure.Unix(),
		"max_failures":    cb.cfg.MaxFailures,
		"timeout_seconds": cb.cfg.Timeout.Seconds(),
	}
}
