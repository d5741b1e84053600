package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fatih/color"

	"github.com/bohyunshin/yamyam-ops/internal/core/env"
	"github.com/bohyunshin/yamyam-ops/internal/core/health"
	"github.com/bohyunshin/yamyam-ops/internal/core/release"
	"github.com/bohyunshin/yamyam-ops/internal/shell/deployer"
	"github.com/bohyunshin/yamyam-ops/internal/shell/docker"
	"github.com/bohyunshin/yamyam-ops/internal/shell/probe"
	"github.com/bohyunshin/yamyam-ops/internal/shell/stack"
	"github.com/bohyunshin/yamyam-ops/internal/shell/store"
)

// =============================================================================
// Exit Codes
// =============================================================================

const (
	ExitSuccess = 0
	ExitFailure = 1
)

// =============================================================================
// Console Reporter
// =============================================================================

// consoleReporter prints operator-facing progress to stdout with color.
type consoleReporter struct {
	stage   *color.Color
	warn    *color.Color
	success *color.Color
	failure *color.Color
}

func newConsoleReporter() *consoleReporter {
	return &consoleReporter{
		stage:   color.New(color.FgCyan),
		warn:    color.New(color.FgYellow),
		success: color.New(color.FgGreen, color.Bold),
		failure: color.New(color.FgRed, color.Bold),
	}
}

func (r *consoleReporter) Stage(format string, args ...any) {
	r.stage.Printf("==> "+format+"\n", args...)
}

func (r *consoleReporter) Warn(format string, args ...any) {
	r.warn.Printf("warning: "+format+"\n", args...)
}

func (r *consoleReporter) Success(format string, args ...any) {
	r.success.Printf(format+"\n", args...)
}

func (r *consoleReporter) Failure(format string, args ...any) {
	r.failure.Printf("error: "+format+"\n", args...)
}

// =============================================================================
// Deployment Wiring
// =============================================================================

// Deployment assembles the orchestrator and its collaborators from config.
type Deployment struct {
	orchestrator *deployer.Orchestrator
	dockerClient *docker.SDKClient
	journal      *store.Journal
	logger       *slog.Logger
}

// NewDeployment wires the full pipeline. Close must be called when done.
func NewDeployment(cfg *Config, logger *slog.Logger) (*Deployment, error) {
	composeYAML, err := os.ReadFile(cfg.Compose.File)
	if err != nil {
		return nil, fmt.Errorf("failed to read service group definition %s: %w", cfg.Compose.File, err)
	}

	dockerClient, err := docker.NewSDKClient(cfg.Docker.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	if err := dockerClient.Ping(context.Background()); err != nil {
		dockerClient.Close()
		return nil, fmt.Errorf("docker daemon unreachable: %w", err)
	}

	// The journal is best-effort: an unopenable database downgrades to a
	// warning and the rollout proceeds without history.
	var journal *store.Journal
	if cfg.Journal.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.Journal.Path), 0o755); err != nil {
			logger.Warn("failed to create journal directory, continuing without journal", "error", err)
		} else if j, err := store.Open(cfg.Journal.Path); err != nil {
			logger.Warn("failed to open deployment journal, continuing without journal", "error", err)
		} else {
			journal = j
		}
	}

	configSet := env.Collect(os.LookupEnv)

	group := stack.New(dockerClient, cfg.Compose.Project, logger)
	prober := probe.NewHTTPProber(cfg.Health.URL, cfg.Health.ProbeTimeout)
	verifier := health.NewVerifier(prober, health.Config{
		MaxAttempts: cfg.Health.MaxAttempts,
		Interval:    cfg.Health.Interval,
	}, logger)

	options := deployer.DefaultOptions()
	options.Repository = cfg.Registry.Repository

	// Journal may be a typed-nil *store.Journal; pass the interface as nil
	// explicitly in that case.
	var journalIface deployer.Journal
	if journal != nil {
		journalIface = journal
	}

	orchestrator := deployer.New(
		configSet,
		string(composeYAML),
		deployer.NewDockerPuller(dockerClient),
		group,
		verifier,
		journalIface,
		newConsoleReporter(),
		options,
		logger,
	)

	return &Deployment{
		orchestrator: orchestrator,
		dockerClient: dockerClient,
		journal:      journal,
		logger:       logger,
	}, nil
}

// Run executes one rollout for the given image tag.
func (d *Deployment) Run(ctx context.Context, imageTag string) release.Result {
	req := release.NewRequest(imageTag)
	return d.orchestrator.Deploy(ctx, req)
}

// Close releases the Docker client and journal.
func (d *Deployment) Close() {
	if d.journal != nil {
		if err := d.journal.Close(); err != nil {
			d.logger.Warn("failed to close journal", "error", err)
		}
	}
	if err := d.dockerClient.Close(); err != nil {
		d.logger.Warn("failed to close docker client", "error", err)
	}
}
