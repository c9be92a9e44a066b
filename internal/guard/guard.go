// Package guard provides a per-operation circuit breaker. Breakers are
// looked up by operation name in a registry; all callers using the same
// name share one state machine, which is how backpressure accumulates
// across repeated calls to the same downstream dependency.
package guard

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrServiceUnavailable is the stable failure every non-ignored
	// error is rewrapped into before reaching the caller.
	ErrServiceUnavailable = errors.New("service unavailable, please try again later")

	// ErrCircuitOpen is the cause recorded when a call is rejected
	// without invoking the wrapped operation.
	ErrCircuitOpen = errors.New("circuit open")
)

// unavailableError hides the underlying failure behind a generic message
// while keeping it reachable through errors.Unwrap for diagnostics.
type unavailableError struct {
	cause error
}

func (e *unavailableError) Error() string {
	return ErrServiceUnavailable.Error()
}

func (e *unavailableError) Unwrap() error { return e.cause }

func (e *unavailableError) Is(target error) bool { return target == ErrServiceUnavailable }

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

type outcome uint8

const (
	outcomeSuccess outcome = iota
	outcomeFailure
	outcomeSlow
)

// Settings configures a breaker. Zero values fall back to the defaults
// in parentheses.
type Settings struct {
	WindowSize           int           // sliding window of recorded outcomes (10)
	MinCalls             int           // samples required before the rate is evaluated (5)
	FailureRateThreshold float64       // failure+slow ratio that opens the circuit (0.5)
	OpenTimeout          time.Duration // wait before open moves to half-open (10s)
	HalfOpenMaxCalls     int           // trial calls permitted while half-open (3)
	SlowCallThreshold    time.Duration // calls slower than this count as slow (30s)

	// IgnoredErrors propagate to the caller unchanged and are excluded
	// from the failure-ratio accounting. Matched with errors.Is.
	IgnoredErrors []error

	// OnStateChange, when set, is invoked on every state transition.
	OnStateChange func(name string, from, to State)
}

func (s Settings) withDefaults() Settings {
	if s.WindowSize <= 0 {
		s.WindowSize = 10
	}
	if s.MinCalls <= 0 {
		s.MinCalls = 5
	}
	if s.FailureRateThreshold <= 0 {
		s.FailureRateThreshold = 0.5
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 10 * time.Second
	}
	if s.HalfOpenMaxCalls <= 0 {
		s.HalfOpenMaxCalls = 3
	}
	if s.SlowCallThreshold <= 0 {
		s.SlowCallThreshold = 30 * time.Second
	}
	return s
}

// Breaker is the state machine for one operation name. All fields
// behind mu; now is replaceable in tests.
type Breaker struct {
	name     string
	settings Settings
	now      func() time.Time

	mu                sync.Mutex
	state             State
	window            []outcome
	head              int
	size              int
	failures          int
	openedAt          time.Time
	halfOpenInFlight  int
	halfOpenSuccesses int
}

func newBreaker(name string, settings Settings) *Breaker {
	settings = settings.withDefaults()
	return &Breaker{
		name:     name,
		settings: settings,
		now:      time.Now,
		window:   make([]outcome, settings.WindowSize),
	}
}

// Name returns the operation name this breaker guards.
func (b *Breaker) Name() string { return b.name }

// State returns a snapshot of the current state. An elapsed open
// timeout is only acted on by the next call, so a breaker past its
// wait still reports open here.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// acquire decides whether a call may proceed. It performs the
// open -> half-open transition once the wait duration has elapsed.
func (b *Breaker) acquire() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.settings.OpenTimeout {
			return ErrCircuitOpen
		}
		b.transition(StateHalfOpen)
		b.halfOpenInFlight = 1
		return nil
	default: // StateHalfOpen
		if b.halfOpenInFlight >= b.settings.HalfOpenMaxCalls {
			return ErrCircuitOpen
		}
		b.halfOpenInFlight++
		return nil
	}
}

// release returns a half-open permit without recording an outcome.
// Used for ignored errors, which must not shift state.
func (b *Breaker) release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateHalfOpen && b.halfOpenInFlight > 0 {
		b.halfOpenInFlight--
	}
}

func (b *Breaker) record(err error, elapsed time.Duration) {
	out := outcomeSuccess
	if err != nil {
		out = outcomeFailure
	} else if elapsed > b.settings.SlowCallThreshold {
		out = outcomeSlow
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		b.push(out)
		if b.size >= b.settings.MinCalls && b.failureRate() >= b.settings.FailureRateThreshold {
			b.transition(StateOpen)
		}
	case StateHalfOpen:
		if out == outcomeSuccess {
			b.halfOpenSuccesses++
			if b.halfOpenSuccesses >= b.settings.HalfOpenMaxCalls {
				b.transition(StateClosed)
			}
		} else {
			b.transition(StateOpen)
		}
	case StateOpen:
		// call was admitted before the circuit opened; outcome no longer counts
	}
}

// push appends an outcome to the ring buffer, evicting the oldest
// entry once the window is full.
func (b *Breaker) push(out outcome) {
	if b.size == len(b.window) {
		if b.window[b.head] != outcomeSuccess {
			b.failures--
		}
	} else {
		b.size++
	}
	b.window[b.head] = out
	if out != outcomeSuccess {
		b.failures++
	}
	b.head = (b.head + 1) % len(b.window)
}

func (b *Breaker) failureRate() float64 {
	if b.size == 0 {
		return 0
	}
	return float64(b.failures) / float64(b.size)
}

func (b *Breaker) transition(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to

	switch to {
	case StateOpen:
		b.openedAt = b.now()
	case StateClosed, StateHalfOpen:
		b.resetWindow()
	}
	b.halfOpenInFlight = 0
	b.halfOpenSuccesses = 0

	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, from, to)
	}
}

func (b *Breaker) resetWindow() {
	b.head = 0
	b.size = 0
	b.failures = 0
}

func (b *Breaker) isIgnored(err error) bool {
	for _, ignored := range b.settings.IgnoredErrors {
		if errors.Is(err, ignored) {
			return true
		}
	}
	return false
}

// Execute runs op through the breaker. Rejected and failed calls come
// back as ErrServiceUnavailable wrapping the cause; ignored errors pass
// through unchanged and leave the breaker state untouched.
func Execute[T any](ctx context.Context, b *Breaker, op func(context.Context) (T, error)) (T, error) {
	var zero T

	if err := b.acquire(); err != nil {
		return zero, &unavailableError{cause: err}
	}

	start := b.now()
	result, err := op(ctx)
	elapsed := b.now().Sub(start)

	if err != nil && b.isIgnored(err) {
		b.release()
		return zero, err
	}

	b.record(err, elapsed)
	if err != nil {
		return zero, &unavailableError{cause: err}
	}
	return result, nil
}

// Registry hands out breakers by operation name. Settings apply on
// first use of a name; later lookups share the existing breaker.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*Breaker
}

func NewRegistry() *Registry {
	return &Registry{breakers: make(map[string]*Breaker)}
}

func (r *Registry) Get(name string, settings Settings) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[name]; ok {
		return b
	}
	b := newBreaker(name, settings)
	r.breakers[name] = b
	return b
}
