// Package resilience provides a circuit breaker for calls to remote services.
package resilience

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"google.golang.org/api/googleapi"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// State is the position of a breaker.
type State int

const (
	StateClosed   State = iota // calls pass through
	StateOpen                  // calls are rejected
	StateHalfOpen              // a limited number of trial calls pass
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

// ErrOpen is returned without calling through while the breaker is open.
// The returned error also wraps the failure that opened the breaker.
var ErrOpen = errors.New("resilience: circuit open")

// Options configures a Breaker.
type Options struct {
	// Threshold is how many consecutive failures open the breaker.
	Threshold int
	// Cooldown is how long the breaker stays open before probing.
	Cooldown time.Duration
	// HalfOpenMax is the number of calls admitted while half-open.
	HalfOpenMax int
	// Counts reports whether an error counts as a failure. Defaults to Transient.
	Counts func(error) bool
	// OnChange is called after every state transition.
	OnChange func(from, to State)
}

// DefaultOptions are used for zero fields.
var DefaultOptions = Options{
	Threshold:   5,
	Cooldown:    30 * time.Second,
	HalfOpenMax: 1,
}

// Breaker trips open after repeated failures and rejects calls until a
// cooldown has passed.
type Breaker struct {
	mu       sync.Mutex
	opts     Options
	state    State
	failures int
	openedAt time.Time
	trials   int
	last     error
	now      func() time.Time
}

// New creates a closed breaker.
func New(opts Options) *Breaker {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultOptions.Threshold
	}
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultOptions.Cooldown
	}
	if opts.HalfOpenMax <= 0 {
		opts.HalfOpenMax = DefaultOptions.HalfOpenMax
	}
	if opts.Counts == nil {
		opts.Counts = Transient
	}
	return &Breaker{opts: opts, now: time.Now}
}

// State returns the current state.
func (b *Breaker) State() State {
	b.mu.Lock()
	from, to := b.advance()
	b.mu.Unlock()
	b.notify(from, to)
	return to
}

// advance moves open to half-open once the cooldown elapsed. Must hold mu.
func (b *Breaker) advance() (from, to State) {
	from = b.state
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.opts.Cooldown {
		b.state = StateHalfOpen
		b.trials = 0
	}
	return from, b.state
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	from, to := b.advance()
	var err error
	switch to {
	case StateOpen:
		err = b.openErr()
	case StateHalfOpen:
		if b.trials >= b.opts.HalfOpenMax {
			err = b.openErr()
		} else {
			b.trials++
		}
	}
	b.mu.Unlock()
	b.notify(from, to)
	return err
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	from := b.state
	if err == nil || !b.opts.Counts(err) {
		b.failures = 0
		if b.state == StateHalfOpen {
			b.state = StateClosed
		}
	} else {
		b.failures++
		if b.state == StateHalfOpen || b.failures >= b.opts.Threshold {
			b.state = StateOpen
			b.last = err
			b.openedAt = b.now()
			b.failures = 0
			b.trials = 0
		}
	}
	to := b.state
	b.mu.Unlock()
	b.notify(from, to)
}

// openErr must be called with mu held.
func (b *Breaker) openErr() error {
	if b.last == nil {
		return ErrOpen
	}
	return fmt.Errorf("%w after: %w", ErrOpen, b.last)
}

func (b *Breaker) notify(from, to State) {
	if from != to && b.opts.OnChange != nil {
		b.opts.OnChange(from, to)
	}
}

// Do runs f through the breaker. A nil breaker calls f directly.
func Do[T any](ctx context.Context, b *Breaker, f func(context.Context) (T, error)) (T, error) {
	if b == nil {
		return f(ctx)
	}
	if err := b.admit(); err != nil {
		var zero T
		return zero, err
	}
	v, err := f(ctx)
	b.record(err)
	return v, err
}

// Transient reports whether err signals an unavailable service rather than a
// rejected request. Caller cancellation never counts. HTTP API errors count
// only for 5xx and 429; gRPC errors by status code. Errors carrying neither
// (broken connections, timeouts) count.
func Transient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code >= http.StatusInternalServerError || gerr.Code == http.StatusTooManyRequests
	}
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted, codes.Internal, codes.Unknown:
		return true
	}
	return false
}
