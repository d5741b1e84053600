// Package deployer sequences a single-host rollout: validate the environment,
// fetch the target image, cycle the service group, and verify liveness. Each
// stage returns a tagged result; nothing here terminates the process.
package deployer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bohyunshin/yamyam-ops/internal/core/compose"
	"github.com/bohyunshin/yamyam-ops/internal/core/env"
	"github.com/bohyunshin/yamyam-ops/internal/core/health"
	"github.com/bohyunshin/yamyam-ops/internal/core/release"
	"github.com/bohyunshin/yamyam-ops/internal/shell/docker"
	"github.com/bohyunshin/yamyam-ops/internal/shell/stack"
	"github.com/bohyunshin/yamyam-ops/internal/shell/store"
)

// =============================================================================
// Collaborator Interfaces
// =============================================================================

// ImagePuller fetches an image from the registry.
type ImagePuller interface {
	Pull(ctx context.Context, imageRef string) error
}

// ServiceGroup is the composition collaborator: tear down, bring up, snapshot
// logs.
type ServiceGroup interface {
	Down(ctx context.Context) error
	Up(ctx context.Context, spec *compose.Spec, releaseID string) error
	Logs(ctx context.Context, tailLines int) (string, error)
}

// HealthVerifier produces the post-start verdict.
type HealthVerifier interface {
	Run(ctx context.Context) (health.Verdict, []health.Outcome)
}

// Journal records finished runs. Best-effort; may be nil.
type Journal interface {
	Append(ctx context.Context, rec store.Record) error
}

// Reporter surfaces operator-facing progress alongside structured logs.
type Reporter interface {
	Stage(format string, args ...any)
	Warn(format string, args ...any)
	Success(format string, args ...any)
	Failure(format string, args ...any)
}

// nopReporter discards all progress output.
type nopReporter struct{}

func (nopReporter) Stage(string, ...any)   {}
func (nopReporter) Warn(string, ...any)    {}
func (nopReporter) Success(string, ...any) {}
func (nopReporter) Failure(string, ...any) {}

// =============================================================================
// Docker Puller
// =============================================================================

// DockerPuller implements ImagePuller on the Docker client.
type DockerPuller struct {
	client docker.Client
}

// NewDockerPuller wraps a Docker client as an ImagePuller.
func NewDockerPuller(client docker.Client) *DockerPuller {
	return &DockerPuller{client: client}
}

// Pull fetches the image. Invoked exactly once per rollout.
func (p *DockerPuller) Pull(ctx context.Context, imageRef string) error {
	return p.client.PullImage(ctx, imageRef, docker.PullOptions{})
}

// =============================================================================
// Orchestrator
// =============================================================================

// Options configure a rollout.
type Options struct {
	// Repository is the image repository under the registry namespace.
	// Default: "yamyam-backend".
	Repository string

	// LogTailLines bounds the diagnostic snapshot. Default: 50.
	LogTailLines int
}

// DefaultOptions returns the standard rollout options.
func DefaultOptions() Options {
	return Options{
		Repository:   "yamyam-backend",
		LogTailLines: 50,
	}
}

// Orchestrator runs one rollout from validation through verification.
// It assumes at most one run against a given host at a time; concurrent runs
// are an invocation-layer concern.
type Orchestrator struct {
	configSet   env.ConfigSet
	composeYAML string
	puller      ImagePuller
	group       ServiceGroup
	verifier    HealthVerifier
	journal     Journal
	reporter    Reporter
	options     Options
	logger      *slog.Logger

	now func() time.Time
}

// New creates an Orchestrator. journal and reporter may be nil.
func New(
	configSet env.ConfigSet,
	composeYAML string,
	puller ImagePuller,
	group ServiceGroup,
	verifier HealthVerifier,
	journal Journal,
	reporter Reporter,
	options Options,
	logger *slog.Logger,
) *Orchestrator {
	if options.Repository == "" {
		options.Repository = DefaultOptions().Repository
	}
	if options.LogTailLines == 0 {
		options.LogTailLines = DefaultOptions().LogTailLines
	}
	if reporter == nil {
		reporter = nopReporter{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		configSet:   configSet,
		composeYAML: composeYAML,
		puller:      puller,
		group:       group,
		verifier:    verifier,
		journal:     journal,
		reporter:    reporter,
		options:     options,
		logger:      logger.With("component", "orchestrator"),
		now:         time.Now,
	}
}

// Deploy runs the full sequence for one request and returns the terminal
// result. Fatal stage failures abort immediately; later stages never run.
func (o *Orchestrator) Deploy(ctx context.Context, req release.Request) release.Result {
	startedAt := o.now()
	logger := o.logger.With("release_id", req.ID, "image_tag", req.ImageTag)
	logger.Info("deployment started")

	result := o.run(ctx, req, logger)

	o.record(ctx, req, result, startedAt, logger)

	if result.Failed() {
		logger.Error("deployment failed", "reason", result.Reason(), "attempts", result.Attempts)
	} else {
		logger.Info("deployment succeeded", "attempts", result.Attempts)
	}
	return result
}

// run executes the stage pipeline.
func (o *Orchestrator) run(ctx context.Context, req release.Request, logger *slog.Logger) release.Result {
	// Stage 1: environment validation. Nothing mutates before this passes.
	o.reporter.Stage("Validating environment")
	if err := env.Validate(o.configSet); err != nil {
		o.reporter.Failure("Environment invalid: %v", err)
		return release.Failure(release.NewStageError(release.FailureConfiguration,
			fmt.Errorf("%w: %w", release.ErrFatalConfiguration, err)), 0)
	}

	// Resolve the service group definition with the rollout bindings. A
	// broken definition is a precondition failure: no image has been pulled
	// and nothing has been stopped yet.
	bindings := o.configSet.Values()
	bindings["IMAGE_TAG"] = req.ImageTag
	spec, err := compose.Parse(o.composeYAML, bindings)
	if err != nil {
		o.reporter.Failure("Service group definition invalid: %v", err)
		return release.Failure(release.NewStageError(release.FailureConfiguration,
			fmt.Errorf("%w: %w", release.ErrFatalConfiguration, err)), 0)
	}

	// Stage 2: fetch the target image. Failure halts before any teardown so
	// the running group is never stopped for an artifact we don't have.
	imageRef := release.ImageRef(o.configSet.Get("REGISTRY_USERNAME"), o.options.Repository, req.ImageTag)
	o.reporter.Stage("Pulling image %s", imageRef)
	if err := o.puller.Pull(ctx, imageRef); err != nil {
		o.reporter.Failure("Image pull failed: %v", err)
		return release.Failure(release.NewStageError(release.FailureFetch,
			fmt.Errorf("%w: %w", release.ErrFetchFailed, err)), 0)
	}

	// Stage 3: stop the current group. Failure is a warning, never fatal:
	// the common case is that nothing was deployed before.
	o.reporter.Stage("Stopping current service group")
	if err := o.group.Down(ctx); err != nil {
		if errors.Is(err, stack.ErrNothingRunning) {
			o.reporter.Warn("No service group was running (first deployment?)")
			logger.Warn("nothing was running", "error", err)
		} else {
			o.reporter.Warn("Stop reported an error, continuing: %v", err)
			logger.Warn("stop failed, continuing", "error", err)
		}
	}

	// Stage 4: start the new group. Failure is fatal; verification is
	// pointless against a group that never came up.
	o.reporter.Stage("Starting service group with tag %s", req.ImageTag)
	if err := o.group.Up(ctx, spec, req.ID); err != nil {
		o.reporter.Failure("Service group start failed: %v", err)
		return release.Failure(release.NewStageError(release.FailureStart,
			fmt.Errorf("%w: %w", release.ErrStartFailed, err)), 0)
	}

	// Stage 5: verify, then capture one diagnostic snapshot either way.
	o.reporter.Stage("Verifying health endpoint")
	verdict, trace := o.verifier.Run(ctx)
	attempts := len(trace)

	o.captureDiagnostics(ctx, logger)

	if verdict != health.VerdictPassed {
		o.reporter.Failure("Health check exhausted after %d attempts", attempts)
		return release.Failure(release.NewStageError(release.FailureHealth,
			release.ErrHealthExhausted), attempts)
	}

	o.reporter.Success("Deployment verified healthy on attempt %d", attempts)
	return release.Success(attempts)
}

// captureDiagnostics requests the bounded log snapshot. Invoked exactly once
// per verification verdict; its own failure is never fatal.
func (o *Orchestrator) captureDiagnostics(ctx context.Context, logger *slog.Logger) {
	out, err := o.group.Logs(ctx, o.options.LogTailLines)
	if err != nil {
		logger.Warn("diagnostic log capture failed", "error", err)
		return
	}
	o.reporter.Stage("Recent service logs (last %d lines per container):\n%s", o.options.LogTailLines, out)
}

// record appends the run to the journal, best-effort.
func (o *Orchestrator) record(ctx context.Context, req release.Request, result release.Result, startedAt time.Time, logger *slog.Logger) {
	if o.journal == nil {
		return
	}
	rec := store.Record{
		ID:         req.ID,
		ImageTag:   req.ImageTag,
		ImageRef:   release.ImageRef(o.configSet.Get("REGISTRY_USERNAME"), o.options.Repository, req.ImageTag),
		Result:     string(result.Outcome),
		Reason:     result.Reason(),
		Attempts:   result.Attempts,
		StartedAt:  startedAt,
		FinishedAt: o.now(),
	}
	if err := o.journal.Append(ctx, rec); err != nil {
		logger.Warn("failed to record deployment in journal", "error", err)
	}
}
