package resilience

import (
	"sync"
	"time"

	"llm-dev-ops/connector-hub/pkg/providers"
)

// State is a circuit breaker state.
type State int

const (
	// StateClosed lets calls through.
	StateClosed State = iota

	// StateOpen rejects calls until the cooldown elapses.
	StateOpen

	// StateHalfOpen admits a single trial call.
	StateHalfOpen
)

// String returns the state name.
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

// Outcome is the verdict reported for an admitted call.
type Outcome int

const (
	// OutcomeSuccess resets the failure count.
	OutcomeSuccess Outcome = iota

	// OutcomeFailure counts towards opening the circuit.
	OutcomeFailure

	// OutcomeIgnore gives no verdict, as for a caller cancellation or a
	// rejected request.
	OutcomeIgnore
)

// Default breaker settings.
const (
	DefaultFailureThreshold = 5
	DefaultFailureWindow    = time.Minute
	DefaultCooldown         = 30 * time.Second
)

// BreakerConfig configures a Breaker.
type BreakerConfig struct {
	// FailureThreshold is the number of consecutive failures that opens the circuit
	FailureThreshold int

	// FailureWindow restarts the count when the previous failure is older than it.
	// Zero means failures never age out.
	FailureWindow time.Duration

	// Cooldown is how long the circuit stays open
	Cooldown time.Duration
}

func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = DefaultFailureThreshold
	}
	if c.Cooldown <= 0 {
		c.Cooldown = DefaultCooldown
	}
	return c
}

// CircuitState is a snapshot of one breaker.
type CircuitState struct {
	Key         string    `json:"key"`
	State       string    `json:"state"`
	Failures    int       `json:"consecutive_failures"`
	OpenUntil   time.Time `json:"open_until,omitempty"`
	LastFailure time.Time `json:"last_failure,omitempty"`
	Opens       int64     `json:"opens"`
}

// Breaker is the state machine for one key. It is safe for concurrent use.
type Breaker struct {
	key      string
	cfg      BreakerConfig
	now      func() time.Time
	onChange func(key string, from, to State)

	mu          sync.Mutex
	state       State
	generation  uint64
	failures    int
	lastFailure time.Time
	openUntil   time.Time
	trial       bool
	opens       int64
}

// NewBreaker creates a closed breaker for key.
func NewBreaker(key string, cfg BreakerConfig) *Breaker {
	return &Breaker{key: key, cfg: cfg.withDefaults(), now: time.Now}
}

// Allow asks to make a call. On admission it returns done, which must be
// called exactly once with the call's outcome; extra calls are ignored.
// Otherwise it returns a *providers.CircuitOpenError.
func (b *Breaker) Allow() (done func(Outcome), err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	switch b.state {
	case StateOpen:
		if now.Before(b.openUntil) {
			return nil, &providers.CircuitOpenError{Key: b.key, RetryAfter: b.openUntil.Sub(now)}
		}
		b.transition(StateHalfOpen)
		b.trial = true
		return b.doneFunc(b.generation, true), nil

	case StateHalfOpen:
		if b.trial {
			return nil, &providers.CircuitOpenError{Key: b.key, RetryAfter: b.cfg.Cooldown}
		}
		b.trial = true
		return b.doneFunc(b.generation, true), nil

	default:
		return b.doneFunc(b.generation, false), nil
	}
}

func (b *Breaker) doneFunc(gen uint64, trial bool) func(Outcome) {
	var once sync.Once
	return func(o Outcome) {
		once.Do(func() { b.record(gen, trial, o) })
	}
}

func (b *Breaker) record(gen uint64, trial bool, o Outcome) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Verdicts from calls admitted before the last transition are stale.
	if gen != b.generation {
		return
	}
	now := b.now()

	if trial {
		switch o {
		case OutcomeSuccess:
			b.failures = 0
			b.transition(StateClosed)
		case OutcomeFailure:
			b.failures++
			b.lastFailure = now
			b.open(now)
		default:
			b.trial = false
		}
		return
	}

	switch o {
	case OutcomeSuccess:
		b.failures = 0
	case OutcomeFailure:
		if b.cfg.FailureWindow > 0 && !b.lastFailure.IsZero() && now.Sub(b.lastFailure) > b.cfg.FailureWindow {
			b.failures = 0
		}
		b.failures++
		b.lastFailure = now
		if b.failures >= b.cfg.FailureThreshold {
			b.open(now)
		}
	}
}

func (b *Breaker) open(now time.Time) {
	b.openUntil = now.Add(b.cfg.Cooldown)
	b.opens++
	b.transition(StateOpen)
}

func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to
	b.generation++
	b.trial = false
	if to == StateClosed {
		b.openUntil = time.Time{}
	}
	if b.onChange != nil && from != to {
		b.onChange(b.key, from, to)
	}
}

// State returns the current state without triggering the lazy half-open move.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Snapshot returns the breaker's current state.
func (b *Breaker) Snapshot() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return CircuitState{
		Key:         b.key,
		State:       b.state.String(),
		Failures:    b.failures,
		OpenUntil:   b.openUntil,
		LastFailure: b.lastFailure,
		Opens:       b.opens,
	}
}
