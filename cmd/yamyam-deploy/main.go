// Command yamyam-deploy rolls out one tagged build of the yamyam backend to
// the local Docker host: validate the environment, pull the image, cycle the
// service group, and verify the health endpoint.
//
// Usage:
//
//	yamyam-deploy [flags] [image-tag]
//
// The image tag defaults to "latest".
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bohyunshin/yamyam-ops/internal/core/env"
)

// Version information (set by build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run())
}

func usage() {
	fmt.Fprintf(os.Stderr, `yamyam-deploy - single-host deployment for the yamyam backend

Usage:
  yamyam-deploy [flags] [image-tag]

The image tag selects which build to roll out (default "latest").

Flags:
`)
	flag.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Required environment variables:
  %s
`, strings.Join(env.Required, "\n  "))
}

func run() int {
	configPath := flag.String("config", "", "Path to config file")
	showVersion := flag.Bool("version", false, "Print version and exit")
	flag.Usage = usage
	flag.Parse()

	if *showVersion {
		fmt.Printf("yamyam-deploy %s (built %s)\n", Version, BuildTime)
		return ExitSuccess
	}

	imageTag := flag.Arg(0)

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return ExitFailure
	}

	logger := SetupLogger(cfg)
	logger.Info("starting yamyam-deploy",
		"version", Version,
		"config", *configPath,
	)

	deployment, err := NewDeployment(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		logger.Error("failed to assemble deployment", "error", err)
		return ExitFailure
	}
	defer deployment.Close()

	// SIGINT/SIGTERM cancel the run; the health loop observes the context and
	// the run ends with a failure result.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result := deployment.Run(ctx, imageTag)
	if result.Failed() {
		return ExitFailure
	}
	return ExitSuccess
}
