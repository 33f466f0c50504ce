package governor

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testGovernor returns a governor that never actually sleeps and has an
// effectively unlimited rate, recording requested backoffs into sleeps.
func testGovernor(cfg Config, sleeps *[]time.Duration) *Governor {
	if cfg.CallsPerSecond == 0 {
		cfg.CallsPerSecond = 1e9
	}
	g := New(cfg)
	g.sleep = func(ctx context.Context, d time.Duration) error {
		if sleeps != nil {
			*sleeps = append(*sleeps, d)
		}
		return nil
	}
	return g
}

var errTransient = errors.New("503 service unavailable")

func TestBreakerStaysClosedBelowThreshold(t *testing.T) {
	g := testGovernor(Config{MaxAttempts: 1, TripThreshold: 5}, nil)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		err := g.Do(ctx, "proj", "call", func(context.Context) error { return errTransient })
		require.Error(t, err)
		assert.False(t, g.Tripped(), "breaker must stay closed at %d/5 failures", i+1)
	}
	assert.Equal(t, 4, g.ConsecutiveErrors())
}

func TestBreakerTripsAtThresholdAndLatches(t *testing.T) {
	g := testGovernor(Config{MaxAttempts: 1, TripThreshold: 3}, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = g.Do(ctx, "proj", "call", func(context.Context) error { return errTransient })
	}
	require.True(t, g.Tripped())

	// Every later call fails fast; the underlying fn is never invoked, so
	// even a would-be success cannot reset the breaker.
	called := false
	err := g.Do(ctx, "proj", "call", func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
	assert.True(t, g.Tripped(), "breaker must stay tripped for the process lifetime")

	// Callers on other projects are blocked too.
	err = g.Do(ctx, "other", "call", func(context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
}

func TestSuccessResetsErrorStreak(t *testing.T) {
	g := testGovernor(Config{MaxAttempts: 1, TripThreshold: 3}, nil)
	ctx := context.Background()

	_ = g.Do(ctx, "proj", "call", func(context.Context) error { return errTransient })
	_ = g.Do(ctx, "proj", "call", func(context.Context) error { return errTransient })
	require.NoError(t, g.Do(ctx, "proj", "call", func(context.Context) error { return nil }))
	assert.Equal(t, 0, g.ConsecutiveErrors())

	_ = g.Do(ctx, "proj", "call", func(context.Context) error { return errTransient })
	_ = g.Do(ctx, "proj", "call", func(context.Context) error { return errTransient })
	assert.False(t, g.Tripped(), "streak must restart after a success")
}

func TestNonRetryableErrorPropagatesImmediately(t *testing.T) {
	g := testGovernor(Config{MaxAttempts: 5, TripThreshold: 10}, nil)
	ctx := context.Background()

	badRequest := errors.New("400 invalid request: missing field")
	calls := 0
	err := g.Do(ctx, "proj", "call", func(context.Context) error {
		calls++
		return badRequest
	})

	assert.ErrorIs(t, err, badRequest)
	assert.Equal(t, 1, calls, "non-retryable errors must not consume retry slots")
	assert.Equal(t, 1, g.ConsecutiveErrors(), "non-retryable errors still count toward the breaker")
}

func TestBackoffIsExponentialAndCapped(t *testing.T) {
	var sleeps []time.Duration
	g := testGovernor(Config{
		MaxAttempts:    5,
		InitialBackoff: 4 * time.Second,
		MaxBackoff:     10 * time.Second,
		TripThreshold:  100,
	}, &sleeps)

	err := g.Do(context.Background(), "proj", "call", func(context.Context) error { return errTransient })
	require.Error(t, err)

	// Four retries follow the first attempt: 4s, 8s, then capped at 10s.
	assert.Equal(t, []time.Duration{
		4 * time.Second,
		8 * time.Second,
		10 * time.Second,
		10 * time.Second,
	}, sleeps)
}

func TestQuotaEnforcedPerProject(t *testing.T) {
	g := testGovernor(Config{MaxAttempts: 1, TripThreshold: 10, MaxCallsPerProject: 2}, nil)
	ctx := context.Background()

	ok := func(context.Context) error { return nil }
	require.NoError(t, g.Do(ctx, "alpha", "call", ok))
	require.NoError(t, g.Do(ctx, "alpha", "call", ok))

	assert.False(t, g.CheckQuota("alpha"))
	assert.Equal(t, 2, g.CallCount("alpha"))

	called := false
	err := g.Do(ctx, "alpha", "call", func(context.Context) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrQuotaExceeded)
	assert.False(t, called, "no governed call may be issued once the quota is hit")

	// Other projects keep their own counters.
	assert.True(t, g.CheckQuota("beta"))
	require.NoError(t, g.Do(ctx, "beta", "call", ok))
}

type fakeNetErr struct{}

func (fakeNetErr) Error() string   { return "dial tcp: i/o problem" }
func (fakeNetErr) Timeout() bool   { return true }
func (fakeNetErr) Temporary() bool { return true }

var _ net.Error = fakeNetErr{}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", context.DeadlineExceeded, true},
		{"net error", fakeNetErr{}, true},
		{"rate limited", errors.New("429 rate limit exceeded"), true},
		{"server error", errors.New("500 internal server error"), true},
		{"overloaded", errors.New("api overloaded, please retry"), true},
		{"connection refused", errors.New("dial tcp 127.0.0.1:443: connection refused"), true},
		{"bad request", errors.New("400 invalid request"), false},
		{"auth failure", errors.New("401 authentication error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
