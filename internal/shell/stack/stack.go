// Package stack runs a service group on a single Docker host: bring it up,
// tear it down, and capture its logs. It is the composition collaborator the
// deployment orchestrator drives.
package stack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bohyunshin/yamyam-ops/internal/core/compose"
	"github.com/bohyunshin/yamyam-ops/internal/shell/docker"
)

// =============================================================================
// Errors
// =============================================================================

// ErrNothingRunning is returned by Down when no service group containers
// exist. Callers treat this as "already stopped", not as a failure.
var ErrNothingRunning = errors.New("no service group is running")

// =============================================================================
// Stack
// =============================================================================

const (
	stopTimeout    = 10 * time.Second
	cleanupTimeout = 5 * time.Second
)

// Stack manages the lifecycle of one named service group.
type Stack struct {
	docker  docker.Client
	project string
	logger  *slog.Logger
}

// New creates a Stack for the given project name. All Docker resources it
// creates carry com.yamyam.* labels keyed by that name.
func New(dockerClient docker.Client, project string, logger *slog.Logger) *Stack {
	if project == "" {
		project = "yamyam"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Stack{
		docker:  dockerClient,
		project: project,
		logger:  logger.With("component", "stack", "project", project),
	}
}

// =============================================================================
// Up
// =============================================================================

// Up brings the service group up in detached mode: network, named volumes,
// then containers in dependency order. releaseID tags every container with
// the orchestration run that created it.
//
// Any container create or start failure tears down what this call created and
// returns the error; partially-started groups are not left behind by Up
// itself.
func (s *Stack) Up(ctx context.Context, spec *compose.Spec, releaseID string) error {
	s.logger.Info("starting service group",
		"services", len(spec.Services),
		"release_id", releaseID,
	)

	networkName := compose.NetworkName(s.project)
	if err := s.ensureNetwork(ctx, networkName); err != nil {
		return fmt.Errorf("failed to create network: %w", err)
	}

	for _, vol := range spec.Volumes {
		if vol.External {
			continue
		}
		if err := s.ensureVolume(ctx, compose.VolumeName(s.project, vol.Name)); err != nil {
			return fmt.Errorf("failed to create volume %s: %w", vol.Name, err)
		}
	}

	// Pull any image that is not cached locally. The rollout target has
	// already been fetched by the image fetcher stage; this covers sidecars
	// like postgres and redis on a fresh host. Pull failures are downgraded:
	// the create below surfaces the real error if the image truly is absent.
	for _, svc := range spec.Services {
		exists, _ := s.docker.ImageExists(ctx, svc.Image)
		if !exists {
			s.logger.Info("pulling image", "service", svc.Name, "image", svc.Image)
			if err := s.docker.PullImage(ctx, svc.Image, docker.PullOptions{}); err != nil {
				s.logger.Warn("failed to pull image, trying anyway", "image", svc.Image, "error", err)
			}
		}
	}

	created := make(map[string]string) // service name -> container ID

	for _, svc := range compose.StartOrder(spec.Services) {
		containerSpec := s.buildContainerSpec(svc, networkName, releaseID)

		containerID, err := s.createContainer(ctx, containerSpec)
		if err != nil {
			s.cleanup(ctx, created)
			return fmt.Errorf("failed to create container for %s: %w", svc.Name, err)
		}
		created[svc.Name] = containerID

		if err := s.docker.StartContainer(ctx, containerID); err != nil {
			if !errors.Is(err, docker.ErrContainerAlreadyRunning) {
				s.cleanup(ctx, created)
				return fmt.Errorf("failed to start %s: %w", svc.Name, err)
			}
		}
		s.logger.Debug("started service", "service", svc.Name, "container_id", shortID(containerID))
	}

	s.logger.Info("service group started", "containers", len(created))
	return nil
}

// createContainer creates a container, replacing a stale one left behind by a
// previous release under the same name.
func (s *Stack) createContainer(ctx context.Context, spec docker.ContainerSpec) (string, error) {
	containerID, err := s.docker.CreateContainer(ctx, spec)
	if err == nil {
		return containerID, nil
	}
	if !errors.Is(err, docker.ErrContainerAlreadyExists) {
		return "", err
	}

	s.logger.Warn("replacing stale container", "name", spec.Name)
	timeout := cleanupTimeout
	_ = s.docker.StopContainer(ctx, spec.Name, &timeout)
	if err := s.docker.RemoveContainer(ctx, spec.Name, docker.RemoveOptions{Force: true}); err != nil {
		return "", err
	}
	return s.docker.CreateContainer(ctx, spec)
}

// =============================================================================
// Down
// =============================================================================

// Down tears down the running service group. Containers are found by project
// label, stopped, and removed. The network and named volumes stay behind so
// data survives rollouts.
//
// Returns ErrNothingRunning when no group containers exist. Individual stop
// failures are logged and skipped; removal proceeds regardless.
func (s *Stack) Down(ctx context.Context) error {
	containers, err := s.docker.ListContainers(ctx, docker.ListOptions{
		All:     true,
		Filters: s.projectFilter(),
	})
	if err != nil {
		return fmt.Errorf("failed to list containers: %w", err)
	}

	if len(containers) == 0 {
		return ErrNothingRunning
	}

	s.logger.Info("stopping service group", "containers", len(containers))

	timeout := stopTimeout
	for _, c := range containers {
		if c.Status == docker.ContainerStatusRunning {
			if err := s.docker.StopContainer(ctx, c.ID, &timeout); err != nil {
				s.logger.Warn("failed to stop container", "container_id", shortID(c.ID), "error", err)
			}
		}
		if err := s.docker.RemoveContainer(ctx, c.ID, docker.RemoveOptions{Force: true}); err != nil {
			s.logger.Warn("failed to remove container", "container_id", shortID(c.ID), "error", err)
		}
	}

	s.logger.Info("service group stopped")
	return nil
}

// =============================================================================
// Logs
// =============================================================================

// Logs captures a bounded tail of log output from every container in the
// group, running or stopped, for operator inspection. Per-container log
// failures are noted inline rather than failing the whole snapshot.
func (s *Stack) Logs(ctx context.Context, tailLines int) (string, error) {
	containers, err := s.docker.ListContainers(ctx, docker.ListOptions{
		All:     true,
		Filters: s.projectFilter(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to list containers: %w", err)
	}
	if len(containers) == 0 {
		return "", ErrNothingRunning
	}

	// Stable output order by service name.
	sort.Slice(containers, func(i, j int) bool {
		return containers[i].Labels[docker.LabelService] < containers[j].Labels[docker.LabelService]
	})

	var b strings.Builder
	for _, c := range containers {
		service := c.Labels[docker.LabelService]
		if service == "" {
			service = c.Name
		}
		fmt.Fprintf(&b, "==> %s <==\n", service)

		reader, err := s.docker.ContainerLogs(ctx, c.ID, docker.LogOptions{
			Tail:       strconv.Itoa(tailLines),
			Timestamps: true,
		})
		if err != nil {
			fmt.Fprintf(&b, "(logs unavailable: %v)\n", err)
			continue
		}
		buf := make([]byte, 64*1024)
		n, _ := reader.Read(buf)
		reader.Close()
		b.Write(buf[:n])
		if n == 0 || buf[n-1] != '\n' {
			b.WriteByte('\n')
		}
	}

	return b.String(), nil
}

// =============================================================================
// Helpers
// =============================================================================

func (s *Stack) projectFilter() map[string]string {
	return map[string]string{
		"label": fmt.Sprintf("%s=%s", docker.LabelProject, s.project),
	}
}

// ensureNetwork creates the group network, reusing one that already exists.
func (s *Stack) ensureNetwork(ctx context.Context, name string) error {
	_, err := s.docker.CreateNetwork(ctx, docker.NetworkSpec{
		Name:   name,
		Driver: "bridge",
		Labels: map[string]string{
			docker.LabelManaged: "true",
			docker.LabelProject: s.project,
		},
	})
	if err != nil {
		if errors.Is(err, docker.ErrNetworkAlreadyExists) {
			s.logger.Debug("network already exists, reusing", "network", name)
			return nil
		}
		return err
	}
	return nil
}

// ensureVolume creates a named volume, reusing one that already exists.
func (s *Stack) ensureVolume(ctx context.Context, name string) error {
	_, err := s.docker.CreateVolume(ctx, docker.VolumeSpec{
		Name: name,
		Labels: map[string]string{
			docker.LabelManaged: "true",
			docker.LabelProject: s.project,
		},
	})
	if err != nil && strings.Contains(err.Error(), "already exists") {
		s.logger.Debug("volume already exists, reusing", "volume", name)
		return nil
	}
	return err
}

// buildContainerSpec maps a compose service onto a container spec.
func (s *Stack) buildContainerSpec(svc compose.Service, networkName, releaseID string) docker.ContainerSpec {
	spec := docker.ContainerSpec{
		Name:       compose.ContainerName(s.project, svc.Name),
		Image:      svc.Image,
		Command:    svc.Command,
		Entrypoint: svc.Entrypoint,
		Env:        make(map[string]string, len(svc.Environment)),
		Labels: map[string]string{
			docker.LabelManaged: "true",
			docker.LabelProject: s.project,
			docker.LabelService: svc.Name,
			docker.LabelRelease: releaseID,
		},
		Networks: []string{networkName},
		NetworkAliases: map[string][]string{
			// Service name resolves as DNS inside the group network.
			networkName: {svc.Name},
		},
	}

	for k, v := range svc.Environment {
		spec.Env[k] = v
	}

	for _, p := range svc.Ports {
		spec.Ports = append(spec.Ports, docker.PortBinding{
			ContainerPort: int(p.Target),
			HostPort:      int(p.Published),
			Protocol:      p.Protocol,
			HostIP:        p.HostIP,
		})
	}

	for _, v := range svc.Volumes {
		source := v.Source
		if v.Type == compose.MountTypeVolume {
			source = compose.VolumeName(s.project, v.Source)
		}
		spec.Volumes = append(spec.Volumes, docker.VolumeMount{
			Source:   source,
			Target:   v.Target,
			ReadOnly: v.ReadOnly,
		})
	}

	switch svc.Restart {
	case compose.RestartAlways:
		spec.RestartPolicy = docker.RestartPolicy{Name: "always"}
	case compose.RestartOnFailure:
		spec.RestartPolicy = docker.RestartPolicy{Name: "on-failure"}
	case compose.RestartUnlessStopped:
		spec.RestartPolicy = docker.RestartPolicy{Name: "unless-stopped"}
	default:
		spec.RestartPolicy = docker.RestartPolicy{Name: "no"}
	}

	if svc.HealthCheck != nil {
		spec.HealthCheck = &docker.HealthCheck{
			Test:    svc.HealthCheck.Test,
			Retries: svc.HealthCheck.Retries,
		}
		if d, err := time.ParseDuration(svc.HealthCheck.Interval); err == nil {
			spec.HealthCheck.Interval = d
		}
		if d, err := time.ParseDuration(svc.HealthCheck.Timeout); err == nil {
			spec.HealthCheck.Timeout = d
		}
		if d, err := time.ParseDuration(svc.HealthCheck.StartPeriod); err == nil {
			spec.HealthCheck.StartPeriod = d
		}
	}

	for k, v := range svc.Labels {
		spec.Labels[k] = v
	}

	return spec
}

// cleanup stops and removes containers created by a failed Up.
func (s *Stack) cleanup(ctx context.Context, containers map[string]string) {
	timeout := cleanupTimeout
	for name, id := range containers {
		_ = s.docker.StopContainer(ctx, id, &timeout)
		_ = s.docker.RemoveContainer(ctx, id, docker.RemoveOptions{Force: true})
		s.logger.Debug("cleaned up container", "service", name, "container_id", shortID(id))
	}
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
