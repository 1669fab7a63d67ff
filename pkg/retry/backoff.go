package retry

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"
)

// BackoffStrategy defines the interface for different backoff strategies
type BackoffStrategy interface {
	// NextDelay returns the delay before the given attempt (1-based)
	NextDelay(attempt int) time.Duration
	// Reset resets the backoff strategy to initial state
	Reset()
}

// ExponentialBackoff implements exponential backoff with optional jitter
type ExponentialBackoff struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
	// Multiplier is the factor by which delay increases
	Multiplier float64
	// JitterFactor adds +/- randomness as a fraction of the delay (0.0 to 1.0)
	JitterFactor float64
}

// DefaultExponentialBackoff returns a backoff with sensible defaults
func DefaultExponentialBackoff() *ExponentialBackoff {
	return &ExponentialBackoff{
		BaseDelay:    1 * time.Second,
		MaxDelay:     60 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	}
}

// NextDelay returns min(base * multiplier^(attempt-1), max) with jitter applied
func (eb *ExponentialBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	delay := float64(eb.BaseDelay) * math.Pow(eb.Multiplier, float64(attempt-1))
	if delay > float64(eb.MaxDelay) {
		delay = float64(eb.MaxDelay)
	}

	if eb.JitterFactor > 0 {
		jitter := delay * eb.JitterFactor
		delay += (rand.Float64() * 2 * jitter) - jitter
	}

	if delay < 0 {
		delay = 0
	}

	return time.Duration(delay)
}

// Reset is a no-op; ExponentialBackoff derives everything from the attempt number
func (eb *ExponentialBackoff) Reset() {}

// ConstantBackoff implements constant delay backoff
type ConstantBackoff struct {
	Delay time.Duration
}

// NextDelay returns a constant delay
func (cb *ConstantBackoff) NextDelay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return cb.Delay
}

// Reset resets the backoff (no-op for constant backoff)
func (cb *ConstantBackoff) Reset() {}

// Escalating is a stateful delay that doubles each time it is used and falls
// back to a floor once the caller sees a success. A fresh Escalating starts at
// Initial, so the Nth consecutive use sleeps min(Initial*2^(N-1), Ceiling).
type Escalating struct {
	Initial time.Duration
	Floor   time.Duration
	Ceiling time.Duration

	mu      sync.Mutex
	current time.Duration
}

// NewEscalating creates an escalating delay starting at initial
func NewEscalating(initial, floor, ceiling time.Duration) *Escalating {
	return &Escalating{
		Initial: initial,
		Floor:   floor,
		Ceiling: ceiling,
		current: initial,
	}
}

// Current returns the delay the next Escalate call will hand out
func (e *Escalating) Current() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.current
}

// Escalate returns the delay to sleep now and doubles the stored delay up to the ceiling
func (e *Escalating) Escalate() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()

	delay := e.current
	next := delay * 2
	if next > e.Ceiling || next <= 0 {
		next = e.Ceiling
	}
	e.current = next
	return delay
}

// Reset drops the delay to the floor
func (e *Escalating) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.current = e.Floor
}

// Sleeper pauses for d or until ctx is done. Components take a Sleeper so
// tests can run backoff schedules without real waiting.
type Sleeper func(ctx context.Context, d time.Duration) error

// Wait waits for the specified duration or until context is cancelled
func Wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
