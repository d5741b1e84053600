package health

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Helpers
// =============================================================================

// scriptedProber fails until passAt, then passes. passAt=0 never passes.
type scriptedProber struct {
	passAt int
	calls  int
}

func (p *scriptedProber) Probe(ctx context.Context) error {
	p.calls++
	if p.passAt != 0 && p.calls >= p.passAt {
		return nil
	}
	return errors.New("connection refused")
}

// fakeSleeper records sleeps without waiting.
type fakeSleeper struct {
	slept []time.Duration
	err   error
}

func (s *fakeSleeper) sleep(ctx context.Context, d time.Duration) error {
	s.slept = append(s.slept, d)
	return s.err
}

func newTestVerifier(p Prober, cfg Config, s *fakeSleeper) *Verifier {
	return NewVerifier(p, cfg, slog.Default(), WithSleeper(s.sleep))
}

// =============================================================================
// Config Tests
// =============================================================================

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 30, cfg.MaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.Interval)
}

func TestNewVerifier_ZeroConfigUsesDefaults(t *testing.T) {
	v := NewVerifier(&scriptedProber{}, Config{}, nil)
	assert.Equal(t, 30, v.config.MaxAttempts)
	assert.Equal(t, 10*time.Second, v.config.Interval)
}

// =============================================================================
// State Machine Tests
// =============================================================================

func TestRun_PassesOnFirstAttempt(t *testing.T) {
	prober := &scriptedProber{passAt: 1}
	sleeper := &fakeSleeper{}
	v := newTestVerifier(prober, Config{MaxAttempts: 30, Interval: 10 * time.Second}, sleeper)

	verdict, trace := v.Run(context.Background())

	assert.Equal(t, VerdictPassed, verdict)
	require.Len(t, trace, 1)
	assert.True(t, trace[0].Passed)
	assert.Equal(t, 1, trace[0].Attempt)
	assert.Empty(t, sleeper.slept, "no sleep before or after a first-attempt pass")
}

func TestRun_PassesOnNthAttempt(t *testing.T) {
	for _, n := range []int{2, 3, 15, 30} {
		prober := &scriptedProber{passAt: n}
		sleeper := &fakeSleeper{}
		v := newTestVerifier(prober, Config{MaxAttempts: 30, Interval: 10 * time.Second}, sleeper)

		verdict, trace := v.Run(context.Background())

		assert.Equal(t, VerdictPassed, verdict, "passAt=%d", n)
		require.Len(t, trace, n)
		for i := 0; i < n-1; i++ {
			assert.False(t, trace[i].Passed)
			assert.Error(t, trace[i].Err)
			assert.Equal(t, i+1, trace[i].Attempt)
		}
		assert.True(t, trace[n-1].Passed)
		assert.Len(t, sleeper.slept, n-1, "one sleep per failed non-final attempt")
	}
}

func TestRun_ExhaustedAfterMaxAttempts(t *testing.T) {
	prober := &scriptedProber{} // never passes
	sleeper := &fakeSleeper{}
	v := newTestVerifier(prober, Config{MaxAttempts: 30, Interval: 10 * time.Second}, sleeper)

	verdict, trace := v.Run(context.Background())

	assert.Equal(t, VerdictExhausted, verdict)
	assert.Len(t, trace, 30)
	assert.Equal(t, 30, prober.calls)

	// Deterministic total wait: 29 sleeps of the interval, none after the last
	// attempt.
	require.Len(t, sleeper.slept, 29)
	for _, d := range sleeper.slept {
		assert.Equal(t, 10*time.Second, d)
	}
}

func TestRun_TraceAttemptsAreSequential(t *testing.T) {
	prober := &scriptedProber{}
	sleeper := &fakeSleeper{}
	v := newTestVerifier(prober, Config{MaxAttempts: 5, Interval: time.Second}, sleeper)

	_, trace := v.Run(context.Background())

	require.Len(t, trace, 5)
	for i, o := range trace {
		assert.Equal(t, i+1, o.Attempt)
	}
}

func TestRun_InjectedClockStampsOutcomes(t *testing.T) {
	base := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	tick := 0
	prober := &scriptedProber{passAt: 3}
	sleeper := &fakeSleeper{}
	v := NewVerifier(prober, Config{MaxAttempts: 5, Interval: time.Second}, slog.Default(),
		WithSleeper(sleeper.sleep),
		WithClock(func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Second)
		}),
	)

	_, trace := v.Run(context.Background())

	require.Len(t, trace, 3)
	assert.Equal(t, base.Add(1*time.Second), trace[0].ObservedAt)
	assert.Equal(t, base.Add(3*time.Second), trace[2].ObservedAt)
}

func TestRun_CanceledContextStopsPolling(t *testing.T) {
	prober := &scriptedProber{}
	sleeper := &fakeSleeper{err: context.Canceled}
	v := newTestVerifier(prober, Config{MaxAttempts: 30, Interval: 10 * time.Second}, sleeper)

	verdict, trace := v.Run(context.Background())

	assert.Equal(t, VerdictExhausted, verdict)
	assert.Len(t, trace, 1, "interrupted after the first failed attempt")
}

func TestSleepContext_ReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := sleepContext(ctx, time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProbeFunc_Adapts(t *testing.T) {
	called := false
	p := ProbeFunc(func(ctx context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, p.Probe(context.Background()))
	assert.True(t, called)
}
