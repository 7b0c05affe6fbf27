// Package resilience guards calls to the hosted completion and identity APIs.
package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned when the breaker is rejecting calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

// State is the externally visible breaker state.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half-open"
)

// Breaker opens after maxFailures consecutive failures and stays open for
// cooldown before letting a single probe call through. Calls aborted by the
// caller's context and errors marked with Rejected do not count as failures.
type Breaker struct {
	name        string
	maxFailures int
	cooldown    time.Duration

	mu       sync.Mutex
	state    State
	failures int
	openedAt time.Time
	probing  bool
	now      func() time.Time
}

// NewBreaker creates a named breaker. The name appears in logs and health
// output.
func NewBreaker(name string, maxFailures int, cooldown time.Duration) *Breaker {
	if maxFailures < 1 {
		maxFailures = 1
	}
	return &Breaker{
		name:        name,
		maxFailures: maxFailures,
		cooldown:    cooldown,
		state:       StateClosed,
		now:         time.Now,
	}
}

// Name returns the breaker's name.
func (b *Breaker) Name() string { return b.name }

// State reports the current state, promoting open to half-open once the
// cooldown has elapsed.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.cooldown {
		return StateHalfOpen
	}
	return b.state
}

// Execute runs fn unless the breaker is open.
func (b *Breaker) Execute(ctx context.Context, fn func(context.Context) error) error {
	if !b.allow() {
		return ErrCircuitOpen
	}

	err := fn(ctx)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.probing = false
	switch {
	case err == nil, isRejected(err):
		b.succeed()
	case ctx.Err() != nil:
		// Caller gave up; says nothing about the remote side.
	default:
		b.fail()
	}
	return err
}

// rejectedError is an answer the remote side gave to a bad request.
type rejectedError struct{ err error }

func (e rejectedError) Error() string { return e.err.Error() }
func (e rejectedError) Unwrap() error { return e.err }

// Rejected marks err as the remote side refusing the request itself, such as
// a 4xx answer. The remote side is healthy, so Execute counts it as a success
// while still returning the error. Rejected(nil) is nil.
func Rejected(err error) error {
	if err == nil {
		return nil
	}
	return rejectedError{err}
}

func isRejected(err error) bool {
	var re rejectedError
	return errors.As(err, &re)
}

func (b *Breaker) allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return true
	case StateOpen:
		if b.now().Sub(b.openedAt) < b.cooldown {
			return false
		}
		b.transition(StateHalfOpen)
		b.probing = true
		return true
	case StateHalfOpen:
		if b.probing {
			return false
		}
		b.probing = true
		return true
	}
	return false
}

// fail must be called with b.mu held.
func (b *Breaker) fail() {
	b.failures++
	if b.state == StateHalfOpen || b.failures >= b.maxFailures {
		b.openedAt = b.now()
		b.transition(StateOpen)
	}
}

// succeed must be called with b.mu held.
func (b *Breaker) succeed() {
	b.failures = 0
	b.transition(StateClosed)
}

// transition must be called with b.mu held.
func (b *Breaker) transition(to State) {
	if b.state == to {
		return
	}
	slog.Warn("circuit breaker state change", "breaker", b.name, "from", b.state, "to", to, "failures", b.failures)
	b.state = to
}
