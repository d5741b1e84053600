// Package docker adapts the Docker SDK for service group lifecycle management.
package docker

import (
	"context"
	"io"
	"time"
)

// =============================================================================
// Container Types
// =============================================================================

// ContainerSpec defines a container to create.
type ContainerSpec struct {
	Name           string
	Image          string
	Command        []string
	Entrypoint     []string
	Env            map[string]string
	Labels         map[string]string
	Ports          []PortBinding
	Volumes        []VolumeMount
	Networks       []string
	NetworkAliases map[string][]string // network name -> aliases (service DNS names)
	RestartPolicy  RestartPolicy
	HealthCheck    *HealthCheck
}

// PortBinding defines a port mapping.
type PortBinding struct {
	ContainerPort int
	HostPort      int    // 0 for auto-assign
	Protocol      string // "tcp" or "udp"
	HostIP        string // "" for 0.0.0.0
}

// VolumeMount defines a volume mount.
type VolumeMount struct {
	Source   string // volume name or host path
	Target   string // container path
	ReadOnly bool
}

// RestartPolicy defines the container restart policy.
type RestartPolicy struct {
	Name              string // "no", "always", "on-failure", "unless-stopped"
	MaximumRetryCount int
}

// HealthCheck defines container health check configuration.
type HealthCheck struct {
	Test        []string
	Interval    time.Duration
	Timeout     time.Duration
	Retries     int
	StartPeriod time.Duration
}

// =============================================================================
// Container Info
// =============================================================================

// ContainerStatus represents the container status.
type ContainerStatus string

const (
	ContainerStatusCreated    ContainerStatus = "created"
	ContainerStatusRunning    ContainerStatus = "running"
	ContainerStatusPaused     ContainerStatus = "paused"
	ContainerStatusRestarting ContainerStatus = "restarting"
	ContainerStatusRemoving   ContainerStatus = "removing"
	ContainerStatusExited     ContainerStatus = "exited"
	ContainerStatusDead       ContainerStatus = "dead"
)

// ContainerInfo describes an existing container.
type ContainerInfo struct {
	ID        string
	Name      string
	Image     string
	Status    ContainerStatus
	Health    string // "healthy", "unhealthy", "starting", ""
	CreatedAt time.Time
	Ports     []PortBinding
	Labels    map[string]string
	ExitCode  int
}

// =============================================================================
// Options
// =============================================================================

// RemoveOptions defines options for removing containers.
type RemoveOptions struct {
	Force         bool
	RemoveVolumes bool
}

// ListOptions defines options for listing containers.
type ListOptions struct {
	All     bool              // include stopped containers
	Filters map[string]string // e.g. {"label": "com.yamyam.project=yamyam"}
}

// LogOptions defines options for container logs.
type LogOptions struct {
	Tail       string // "all" or a line count
	Timestamps bool
}

// PullOptions defines options for pulling images.
type PullOptions struct {
	Platform string // e.g. "linux/amd64"
}

// NetworkSpec defines a network to create.
type NetworkSpec struct {
	Name   string
	Driver string
	Labels map[string]string
}

// VolumeSpec defines a volume to create.
type VolumeSpec struct {
	Name   string
	Driver string
	Labels map[string]string
}

// =============================================================================
// Client Interface
// =============================================================================

// Client is the Docker surface the service group runner needs.
type Client interface {
	// Container operations
	CreateContainer(ctx context.Context, spec ContainerSpec) (containerID string, err error)
	StartContainer(ctx context.Context, containerID string) error
	StopContainer(ctx context.Context, containerID string, timeout *time.Duration) error
	RemoveContainer(ctx context.Context, containerID string, opts RemoveOptions) error
	InspectContainer(ctx context.Context, containerID string) (*ContainerInfo, error)
	ListContainers(ctx context.Context, opts ListOptions) ([]ContainerInfo, error)
	ContainerLogs(ctx context.Context, containerID string, opts LogOptions) (io.ReadCloser, error)

	// Network operations
	CreateNetwork(ctx context.Context, spec NetworkSpec) (networkID string, err error)
	RemoveNetwork(ctx context.Context, networkID string) error

	// Volume operations
	CreateVolume(ctx context.Context, spec VolumeSpec) (volumeName string, err error)

	// Image operations
	PullImage(ctx context.Context, image string, opts PullOptions) error
	ImageExists(ctx context.Context, image string) (bool, error)

	// Daemon operations
	Ping(ctx context.Context) error
	Close() error
}

// =============================================================================
// Label Constants
// =============================================================================

const (
	LabelManaged = "com.yamyam.managed"
	LabelProject = "com.yamyam.project"
	LabelService = "com.yamyam.service"
	LabelRelease = "com.yamyam.release"
)
