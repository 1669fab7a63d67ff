package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errs "postharvest/pkg/errors"
)

func recordingSleeper(slept *[]time.Duration) Sleeper {
	return func(ctx context.Context, d time.Duration) error {
		*slept = append(*slept, d)
		return ctx.Err()
	}
}

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    100 * time.Millisecond,
		MaxDelay:     1 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1 * time.Second},
		{6, 1 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, backoff.NextDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestExponentialBackoffJitterStaysInRange(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    time.Second,
		MaxDelay:     time.Minute,
		Multiplier:   2.0,
		JitterFactor: 0.3,
	}

	for i := 0; i < 100; i++ {
		d := backoff.NextDelay(2)
		assert.GreaterOrEqual(t, d, 1400*time.Millisecond)
		assert.LessOrEqual(t, d, 2600*time.Millisecond)
	}
}

func TestEscalatingGrowth(t *testing.T) {
	initial, ceiling := 10*time.Second, 60*time.Second
	e := NewEscalating(initial, 5*time.Second, ceiling)

	for n := 1; n <= 8; n++ {
		want := initial * time.Duration(1<<(n-1))
		if want > ceiling {
			want = ceiling
		}
		assert.Equal(t, want, e.Escalate(), "use %d", n)
	}
	assert.Equal(t, ceiling, e.Current())
}

func TestEscalatingResetToFloor(t *testing.T) {
	e := NewEscalating(10*time.Second, 5*time.Second, 60*time.Second)
	e.Escalate()
	e.Escalate()

	e.Reset()
	assert.Equal(t, 5*time.Second, e.Current())
	assert.Equal(t, 5*time.Second, e.Escalate())
	assert.Equal(t, 10*time.Second, e.Escalate())
}

func TestDoRetriesUntilSuccess(t *testing.T) {
	var slept []time.Duration
	attempts := 0

	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errs.New(errs.ErrorTypeServerError, 503, "model loading")
		}
		return nil
	}, &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: 2 * time.Second},
		Sleep:       recordingSleeper(&slept),
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, slept)
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	attempts := 0
	fatal := errs.Wrap(errs.ErrorTypeIO, errors.New("disk full"), "append")

	err := Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return fatal
	}, &Config{MaxAttempts: 5, Backoff: &ConstantBackoff{Delay: time.Millisecond}})

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, attempts)
}

func TestDoMaxAttempts(t *testing.T) {
	var slept []time.Duration
	boom := errors.New("boom")

	err := Do(context.Background(), func(ctx context.Context) error { return boom }, &Config{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: time.Second},
		Sleep:       recordingSleeper(&slept),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "max retry attempts (3)")
	assert.Len(t, slept, 3)
}

func TestDoCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Do(ctx, func(ctx context.Context) error { return errors.New("flaky") }, &Config{
		Backoff: &ConstantBackoff{Delay: time.Hour},
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	got, err := DoWithResult(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("once")
		}
		return "ok", nil
	}, &Config{MaxAttempts: 2, Backoff: &ConstantBackoff{}, Sleep: func(context.Context, time.Duration) error { return nil }})

	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestWait(t *testing.T) {
	require.NoError(t, Wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait(ctx, time.Hour), context.Canceled)
}

func TestDefaultRetryIf(t *testing.T) {
	assert.False(t, DefaultRetryIf(nil))
	assert.False(t, DefaultRetryIf(context.Canceled))
	assert.True(t, DefaultRetryIf(errors.New("transport")))
	assert.True(t, DefaultRetryIf(errs.New(errs.ErrorTypeRateLimit, 429, "slow")))
	assert.False(t, DefaultRetryIf(errs.New(errs.ErrorTypeIO, 0, "disk")))
}
