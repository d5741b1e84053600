// Package health implements the post-start verification loop as an explicit
// bounded state machine. The prober, clock, and sleeper are injected so the
// attempt count and termination condition are testable without wall-clock
// sleeping.
package health

import (
	"context"
	"log/slog"
	"time"
)

// =============================================================================
// Collaborator Interfaces
// =============================================================================

// Prober performs a single liveness probe. A nil error means the endpoint
// answered 2xx; any other outcome (non-2xx, connection refused, timeout) is
// an error and counts as a failed attempt.
type Prober interface {
	Probe(ctx context.Context) error
}

// ProbeFunc adapts a function to the Prober interface.
type ProbeFunc func(ctx context.Context) error

func (f ProbeFunc) Probe(ctx context.Context) error { return f(ctx) }

// =============================================================================
// Outcomes
// =============================================================================

// Verdict is the terminal state of a verification run.
type Verdict string

const (
	// VerdictPassed: a probe answered within the bound.
	VerdictPassed Verdict = "passed"
	// VerdictExhausted: every attempt failed.
	VerdictExhausted Verdict = "exhausted"
)

// Outcome records a single probe attempt. The sequence of outcomes for one
// deployment forms the verification trace.
type Outcome struct {
	Attempt    int // 1-based
	Passed     bool
	ObservedAt time.Time
	Err        error // probe error when Passed is false
}

// =============================================================================
// Verifier
// =============================================================================

// Config bounds the verification loop.
type Config struct {
	// MaxAttempts is the hard ceiling on probes. Default: 30.
	MaxAttempts int

	// Interval is the pause between attempts. There is no pause after the
	// final attempt. Default: 10s.
	Interval time.Duration
}

// DefaultConfig returns the standard 30x10s bound (300s ceiling).
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 30,
		Interval:    10 * time.Second,
	}
}

// Verifier polls a liveness endpoint until it passes or the attempt bound is
// exhausted. Polling is a blocking loop; probes are never concurrent.
type Verifier struct {
	prober Prober
	config Config
	logger *slog.Logger

	// now and sleep are swappable for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// Option customizes a Verifier.
type Option func(*Verifier)

// WithClock replaces the wall clock.
func WithClock(now func() time.Time) Option {
	return func(v *Verifier) { v.now = now }
}

// WithSleeper replaces the inter-attempt sleep.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(v *Verifier) { v.sleep = sleep }
}

// NewVerifier creates a Verifier. Zero config fields fall back to defaults.
func NewVerifier(prober Prober, config Config, logger *slog.Logger, opts ...Option) *Verifier {
	if config.MaxAttempts == 0 {
		config.MaxAttempts = DefaultConfig().MaxAttempts
	}
	if config.Interval == 0 {
		config.Interval = DefaultConfig().Interval
	}
	if logger == nil {
		logger = slog.Default()
	}

	v := &Verifier{
		prober: prober,
		config: config,
		logger: logger.With("component", "health_verifier"),
		now:    time.Now,
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Run executes the verification loop.
//
// States: Polling(attempt) -> Passed | Polling(attempt+1) | Exhausted.
// The loop short-circuits on the first passing probe and sleeps only between
// attempts, so a full failure costs (MaxAttempts-1) x Interval of waiting.
// A canceled context ends the run early with VerdictExhausted.
func (v *Verifier) Run(ctx context.Context) (Verdict, []Outcome) {
	trace := make([]Outcome, 0, v.config.MaxAttempts)

	for attempt := 1; attempt <= v.config.MaxAttempts; attempt++ {
		err := v.prober.Probe(ctx)

		outcome := Outcome{
			Attempt:    attempt,
			Passed:     err == nil,
			ObservedAt: v.now(),
			Err:        err,
		}
		trace = append(trace, outcome)

		if outcome.Passed {
			v.logger.Info("health check passed",
				"attempt", attempt,
				"max_attempts", v.config.MaxAttempts,
			)
			return VerdictPassed, trace
		}

		v.logger.Warn("health check failed",
			"attempt", attempt,
			"max_attempts", v.config.MaxAttempts,
			"error", err,
		)

		// No sleep after the final attempt.
		if attempt == v.config.MaxAttempts {
			break
		}
		if err := v.sleep(ctx, v.config.Interval); err != nil {
			v.logger.Warn("health verification interrupted", "error", err)
			break
		}
	}

	return VerdictExhausted, trace
}

// sleepContext sleeps for d or until ctx is canceled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
