package resilience

import (
	"errors"
	"sync"
	"time"
)

// State is a circuit breaker state.
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
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned without calling the function while open.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreakerConfig configures a circuit breaker.
type CircuitBreakerConfig struct {
	Name string `mapstructure:"-"`
	// MaxFailures is the consecutive failure count that opens the circuit.
	MaxFailures int `mapstructure:"max_failures"`
	// Timeout is how long the circuit stays open before a trial call.
	Timeout time.Duration `mapstructure:"timeout"`
	// HalfOpenMaxCalls trial calls must all succeed to close again.
	HalfOpenMaxCalls int `mapstructure:"half_open_max_calls"`

	OnStateChange func(name string, from, to State) `mapstructure:"-"`
	// IsFailure decides which errors count against the circuit. Nil counts
	// every error. Errors it rejects leave the breaker untouched.
	IsFailure func(error) bool `mapstructure:"-"`
}

// DefaultCircuitBreakerConfig returns the defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxFailures:      5,
		Timeout:          30 * time.Second,
		HalfOpenMaxCalls: 1,
	}
}

// BreakerStats is a point-in-time view of a CircuitBreaker, shaped for the
// admin API.
type BreakerStats struct {
	Name                string    `json:"name"`
	State               string    `json:"state"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	Failures            int64     `json:"failures"`
	Ignored             int64     `json:"ignored"`
	Rejected            int64     `json:"rejected"`
	OpenUntil           time.Time `json:"open_until,omitzero"`
}

// CircuitBreaker fails fast while the guarded dependency is unhealthy.
//
// Closed counts consecutive failures and opens at MaxFailures. Open
// refuses calls with ErrCircuitOpen until Timeout has passed, then admits
// up to HalfOpenMaxCalls trials; one failed trial reopens it.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig
	now func() time.Time

	mu       sync.Mutex
	state    State
	streak   int
	openedAt time.Time
	trials   int
	passed   int

	failures int64
	ignored  int64
	rejected int64
}

// NewCircuitBreaker creates a closed circuit breaker.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	d := DefaultCircuitBreakerConfig(cfg.Name)
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = d.MaxFailures
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = d.Timeout
	}
	if cfg.HalfOpenMaxCalls <= 0 {
		cfg.HalfOpenMaxCalls = d.HalfOpenMaxCalls
	}
	return &CircuitBreaker{cfg: cfg, now: time.Now}
}

// Execute runs fn unless the circuit is open.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := fn()
	cb.settle(err)
	return err
}

// State returns the current state, moving open to half-open once the
// timeout has passed.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.observe()
}

// Failures returns the consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.streak
}

// Stats returns counters and the current state.
func (cb *CircuitBreaker) Stats() BreakerStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	s := BreakerStats{
		Name:                cb.cfg.Name,
		State:               cb.observe().String(),
		ConsecutiveFailures: cb.streak,
		Failures:            cb.failures,
		Ignored:             cb.ignored,
		Rejected:            cb.rejected,
	}
	if cb.state == StateOpen {
		s.OpenUntil = cb.openedAt.Add(cb.cfg.Timeout)
	}
	return s
}

// Reset closes the circuit.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.moveTo(StateClosed)
	cb.streak = 0
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.observe() {
	case StateOpen:
		cb.rejected++
		return ErrCircuitOpen
	case StateHalfOpen:
		if cb.trials >= cb.cfg.HalfOpenMaxCalls {
			cb.rejected++
			return ErrCircuitOpen
		}
		cb.trials++
	}
	return nil
}

func (cb *CircuitBreaker) settle(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	state := cb.observe()
	switch {
	case err != nil && cb.cfg.IsFailure != nil && !cb.cfg.IsFailure(err):
		cb.ignored++
		if state == StateHalfOpen && cb.trials > 0 {
			cb.trials--
		}
	case err != nil:
		cb.failures++
		cb.streak++
		if state == StateHalfOpen || cb.streak >= cb.cfg.MaxFailures {
			cb.moveTo(StateOpen)
		}
	case state == StateHalfOpen:
		cb.passed++
		if cb.passed >= cb.cfg.HalfOpenMaxCalls {
			cb.moveTo(StateClosed)
		}
	default:
		cb.streak = 0
	}
}

// observe must be called with mu held.
func (cb *CircuitBreaker) observe() State {
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.cfg.Timeout {
		cb.moveTo(StateHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) moveTo(to State) {
	if cb.state == to {
		return
	}
	from := cb.state
	cb.state = to
	cb.trials, cb.passed = 0, 0
	switch to {
	case StateOpen:
		cb.openedAt = cb.now()
	case StateClosed:
		cb.streak = 0
	}
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(cb.cfg.Name, from, to)
	}
}
