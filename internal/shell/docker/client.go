package docker

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/mount"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/api/types/volume"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
)

// =============================================================================
// SDK Client
// =============================================================================

// SDKClient implements Client using the Docker SDK.
type SDKClient struct {
	cli *client.Client
}

// NewSDKClient creates a Docker client. If host is empty the default Docker
// host from the environment is used.
func NewSDKClient(host string) (*SDKClient, error) {
	opts := []client.Opt{
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, NewDockerError("NewSDKClient", "", "", "failed to create client", ErrConnectionFailed)
	}

	return &SDKClient{cli: cli}, nil
}

// Ping checks if the Docker daemon is reachable.
func (d *SDKClient) Ping(ctx context.Context) error {
	if _, err := d.cli.Ping(ctx); err != nil {
		return NewDockerError("Ping", "", "", fmt.Sprintf("failed to ping docker: %v", err), ErrConnectionFailed)
	}
	return nil
}

// Close closes the Docker client connection.
func (d *SDKClient) Close() error {
	return d.cli.Close()
}

// =============================================================================
// Container Operations
// =============================================================================

// CreateContainer creates a new container from the given spec.
func (d *SDKClient) CreateContainer(ctx context.Context, spec ContainerSpec) (string, error) {
	config := &container.Config{
		Image:      spec.Image,
		Cmd:        spec.Command,
		Entrypoint: spec.Entrypoint,
		Labels:     spec.Labels,
	}

	for k, v := range spec.Env {
		config.Env = append(config.Env, fmt.Sprintf("%s=%s", k, v))
	}

	hostConfig := &container.HostConfig{}

	if len(spec.Ports) > 0 {
		portBindings := nat.PortMap{}
		exposedPorts := nat.PortSet{}

		for _, p := range spec.Ports {
			proto := p.Protocol
			if proto == "" {
				proto = "tcp"
			}
			containerPort := nat.Port(fmt.Sprintf("%d/%s", p.ContainerPort, proto))
			exposedPorts[containerPort] = struct{}{}

			hostPort := ""
			if p.HostPort != 0 {
				hostPort = fmt.Sprintf("%d", p.HostPort)
			}
			portBindings[containerPort] = []nat.PortBinding{
				{HostIP: p.HostIP, HostPort: hostPort},
			}
		}

		config.ExposedPorts = exposedPorts
		hostConfig.PortBindings = portBindings
	}

	for _, v := range spec.Volumes {
		mountType := mount.TypeVolume
		if strings.HasPrefix(v.Source, "/") {
			mountType = mount.TypeBind
		}
		hostConfig.Mounts = append(hostConfig.Mounts, mount.Mount{
			Type:     mountType,
			Source:   v.Source,
			Target:   v.Target,
			ReadOnly: v.ReadOnly,
		})
	}

	if spec.RestartPolicy.Name != "" {
		hostConfig.RestartPolicy = container.RestartPolicy{
			Name:              container.RestartPolicyMode(spec.RestartPolicy.Name),
			MaximumRetryCount: spec.RestartPolicy.MaximumRetryCount,
		}
	}

	if spec.HealthCheck != nil {
		config.Healthcheck = &container.HealthConfig{
			Test:        spec.HealthCheck.Test,
			Interval:    spec.HealthCheck.Interval,
			Timeout:     spec.HealthCheck.Timeout,
			Retries:     spec.HealthCheck.Retries,
			StartPeriod: spec.HealthCheck.StartPeriod,
		}
	}

	var networkConfig *network.NetworkingConfig
	if len(spec.Networks) > 0 {
		networkConfig = &network.NetworkingConfig{
			EndpointsConfig: map[string]*network.EndpointSettings{},
		}
		for _, n := range spec.Networks {
			endpoint := &network.EndpointSettings{}
			if aliases, ok := spec.NetworkAliases[n]; ok {
				endpoint.Aliases = aliases
			}
			networkConfig.EndpointsConfig[n] = endpoint
		}
	}

	resp, err := d.cli.ContainerCreate(ctx, config, hostConfig, networkConfig, nil, spec.Name)
	if err != nil {
		if strings.Contains(err.Error(), "Conflict") {
			return "", NewDockerError("CreateContainer", "container", spec.Name, "container already exists", ErrContainerAlreadyExists)
		}
		if strings.Contains(err.Error(), "port is already allocated") {
			return "", NewDockerError("CreateContainer", "container", spec.Name, err.Error(), ErrPortAlreadyAllocated)
		}
		return "", NewDockerError("CreateContainer", "container", spec.Name, err.Error(), err)
	}

	return resp.ID, nil
}

// StartContainer starts a created or stopped container.
func (d *SDKClient) StartContainer(ctx context.Context, containerID string) error {
	err := d.cli.ContainerStart(ctx, containerID, container.StartOptions{})
	if err != nil {
		if client.IsErrNotFound(err) {
			return NewDockerError("StartContainer", "container", containerID, "container not found", ErrContainerNotFound)
		}
		if strings.Contains(err.Error(), "is already running") {
			return NewDockerError("StartContainer", "container", containerID, "container is already running", ErrContainerAlreadyRunning)
		}
		return NewDockerError("StartContainer", "container", containerID, err.Error(), err)
	}
	return nil
}

// StopContainer stops a running container.
func (d *SDKClient) StopContainer(ctx context.Context, containerID string, timeout *time.Duration) error {
	stopOptions := container.StopOptions{}
	if timeout != nil {
		seconds := int(timeout.Seconds())
		stopOptions.Timeout = &seconds
	}

	err := d.cli.ContainerStop(ctx, containerID, stopOptions)
	if err != nil {
		if client.IsErrNotFound(err) {
			return NewDockerError("StopContainer", "container", containerID, "container not found", ErrContainerNotFound)
		}
		if strings.Contains(err.Error(), "is not running") {
			return NewDockerError("StopContainer", "container", containerID, "container is not running", ErrContainerNotRunning)
		}
		return NewDockerError("StopContainer", "container", containerID, err.Error(), err)
	}
	return nil
}

// RemoveContainer removes a container.
func (d *SDKClient) RemoveContainer(ctx context.Context, containerID string, opts RemoveOptions) error {
	err := d.cli.ContainerRemove(ctx, containerID, container.RemoveOptions{
		Force:         opts.Force,
		RemoveVolumes: opts.RemoveVolumes,
	})
	if err != nil {
		if client.IsErrNotFound(err) {
			return NewDockerError("RemoveContainer", "container", containerID, "container not found", ErrContainerNotFound)
		}
		return NewDockerError("RemoveContainer", "container", containerID, err.Error(), err)
	}
	return nil
}

// InspectContainer returns details about a container.
func (d *SDKClient) InspectContainer(ctx context.Context, containerID string) (*ContainerInfo, error) {
	resp, err := d.cli.ContainerInspect(ctx, containerID)
	if err != nil {
		if client.IsErrNotFound(err) {
			return nil, NewDockerError("InspectContainer", "container", containerID, "container not found", ErrContainerNotFound)
		}
		return nil, NewDockerError("InspectContainer", "container", containerID, err.Error(), err)
	}

	createdAt, _ := time.Parse(time.RFC3339Nano, resp.Created)

	var ports []PortBinding
	for containerPort, bindings := range resp.NetworkSettings.Ports {
		port, proto := nat.Port(containerPort).Port(), nat.Port(containerPort).Proto()
		for _, binding := range bindings {
			var hostPort, containerPortInt int
			if binding.HostPort != "" {
				fmt.Sscanf(binding.HostPort, "%d", &hostPort)
			}
			fmt.Sscanf(port, "%d", &containerPortInt)
			ports = append(ports, PortBinding{
				ContainerPort: containerPortInt,
				HostPort:      hostPort,
				Protocol:      proto,
				HostIP:        binding.HostIP,
			})
		}
	}

	health := ""
	if resp.State.Health != nil {
		health = resp.State.Health.Status
	}

	return &ContainerInfo{
		ID:        resp.ID,
		Name:      strings.TrimPrefix(resp.Name, "/"),
		Image:     resp.Config.Image,
		Status:    ContainerStatus(resp.State.Status),
		Health:    health,
		CreatedAt: createdAt,
		Ports:     ports,
		Labels:    resp.Config.Labels,
		ExitCode:  resp.State.ExitCode,
	}, nil
}

// ListContainers returns containers matching the given options.
func (d *SDKClient) ListContainers(ctx context.Context, opts ListOptions) ([]ContainerInfo, error) {
	listOpts := container.ListOptions{All: opts.All}

	if len(opts.Filters) > 0 {
		f := filters.NewArgs()
		for k, v := range opts.Filters {
			f.Add(k, v)
		}
		listOpts.Filters = f
	}

	containers, err := d.cli.ContainerList(ctx, listOpts)
	if err != nil {
		return nil, NewDockerError("ListContainers", "container", "", err.Error(), err)
	}

	var result []ContainerInfo
	for _, c := range containers {
		name := ""
		if len(c.Names) > 0 {
			name = strings.TrimPrefix(c.Names[0], "/")
		}

		var ports []PortBinding
		for _, p := range c.Ports {
			ports = append(ports, PortBinding{
				ContainerPort: int(p.PrivatePort),
				HostPort:      int(p.PublicPort),
				Protocol:      p.Type,
				HostIP:        p.IP,
			})
		}

		result = append(result, ContainerInfo{
			ID:        c.ID,
			Name:      name,
			Image:     c.Image,
			Status:    ContainerStatus(c.State),
			CreatedAt: time.Unix(c.Created, 0),
			Ports:     ports,
			Labels:    c.Labels,
		})
	}

	return result, nil
}

// ContainerLogs returns logs from a container.
func (d *SDKClient) ContainerLogs(ctx context.Context, containerID string, opts LogOptions) (io.ReadCloser, error) {
	reader, err := d.cli.ContainerLogs(ctx, containerID, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Tail:       opts.Tail,
		Timestamps: opts.Timestamps,
	})
	if err != nil {
		if client.IsErrNotFound(err) {
			return nil, NewDockerError("ContainerLogs", "container", containerID, "container not found", ErrContainerNotFound)
		}
		return nil, NewDockerError("ContainerLogs", "container", containerID, err.Error(), err)
	}
	return reader, nil
}

// =============================================================================
// Network Operations
// =============================================================================

// CreateNetwork creates a Docker network.
func (d *SDKClient) CreateNetwork(ctx context.Context, spec NetworkSpec) (string, error) {
	driver := spec.Driver
	if driver == "" {
		driver = "bridge"
	}

	resp, err := d.cli.NetworkCreate(ctx, spec.Name, network.CreateOptions{
		Driver: driver,
		Labels: spec.Labels,
	})
	if err != nil {
		if strings.Contains(err.Error(), "already exists") {
			return "", NewDockerError("CreateNetwork", "network", spec.Name, "network already exists", ErrNetworkAlreadyExists)
		}
		return "", NewDockerError("CreateNetwork", "network", spec.Name, err.Error(), err)
	}
	return resp.ID, nil
}

// RemoveNetwork removes a Docker network.
func (d *SDKClient) RemoveNetwork(ctx context.Context, networkID string) error {
	err := d.cli.NetworkRemove(ctx, networkID)
	if err != nil {
		if client.IsErrNotFound(err) {
			return NewDockerError("RemoveNetwork", "network", networkID, "network not found", ErrNetworkNotFound)
		}
		if strings.Contains(err.Error(), "has active endpoints") {
			return NewDockerError("RemoveNetwork", "network", networkID, "network has active endpoints", ErrNetworkInUse)
		}
		return NewDockerError("RemoveNetwork", "network", networkID, err.Error(), err)
	}
	return nil
}

// =============================================================================
// Volume Operations
// =============================================================================

// CreateVolume creates a Docker volume.
func (d *SDKClient) CreateVolume(ctx context.Context, spec VolumeSpec) (string, error) {
	driver := spec.Driver
	if driver == "" {
		driver = "local"
	}

	resp, err := d.cli.VolumeCreate(ctx, volume.CreateOptions{
		Name:   spec.Name,
		Driver: driver,
		Labels: spec.Labels,
	})
	if err != nil {
		return "", NewDockerError("CreateVolume", "volume", spec.Name, err.Error(), err)
	}
	return resp.Name, nil
}

// =============================================================================
// Image Operations
// =============================================================================

// PullImage pulls an image from the registry. The pull is complete when the
// response stream has been drained.
func (d *SDKClient) PullImage(ctx context.Context, imageName string, opts PullOptions) error {
	pullOpts := image.PullOptions{}
	if opts.Platform != "" {
		pullOpts.Platform = opts.Platform
	}

	reader, err := d.cli.ImagePull(ctx, imageName, pullOpts)
	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "not found") ||
			strings.Contains(errStr, "manifest unknown") ||
			strings.Contains(errStr, "repository does not exist") ||
			strings.Contains(errStr, "pull access denied") {
			return NewDockerError("PullImage", "image", imageName, "image not found", ErrImageNotFound)
		}
		return NewDockerError("PullImage", "image", imageName, err.Error(), ErrImagePullFailed)
	}
	defer reader.Close()

	if _, err := io.Copy(io.Discard, reader); err != nil {
		return NewDockerError("PullImage", "image", imageName, err.Error(), ErrImagePullFailed)
	}
	return nil
}

// ImageExists checks if an image exists locally.
func (d *SDKClient) ImageExists(ctx context.Context, imageName string) (bool, error) {
	_, _, err := d.cli.ImageInspectWithRaw(ctx, imageName)
	if err != nil {
		if client.IsErrNotFound(err) {
			return false, nil
		}
		return false, NewDockerError("ImageExists", "image", imageName, err.Error(), err)
	}
	return true, nil
}
