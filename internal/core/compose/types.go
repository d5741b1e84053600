package compose

// =============================================================================
// Spec - Parsed Service Group Definition
// =============================================================================

// Spec is the parsed definition of one service group, decoupled from
// compose-go types.
type Spec struct {
	Services []Service
	Networks []Network
	Volumes  []Volume
}

// Service returns the service with the given name, or nil.
func (s *Spec) Service(name string) *Service {
	for i := range s.Services {
		if s.Services[i].Name == name {
			return &s.Services[i]
		}
	}
	return nil
}

// =============================================================================
// Service Types
// =============================================================================

// Service is a single member of the service group.
type Service struct {
	Name        string
	Image       string
	Command     []string
	Entrypoint  []string
	Environment map[string]string
	Ports       []Port
	Volumes     []VolumeMount
	Networks    []string
	DependsOn   []string
	Restart     RestartPolicy
	HealthCheck *HealthCheck
	Labels      map[string]string
}

// Port is a port mapping.
type Port struct {
	Target    uint32 // container port
	Published uint32 // host port, 0 = dynamic
	Protocol  string
	HostIP    string
}

// VolumeMount mounts a named volume or host path into a service.
type VolumeMount struct {
	Type     MountType
	Source   string
	Target   string
	ReadOnly bool
}

// MountType distinguishes bind mounts from named volumes.
type MountType string

const (
	MountTypeBind   MountType = "bind"
	MountTypeVolume MountType = "volume"
	MountTypeTmpfs  MountType = "tmpfs"
)

// RestartPolicy is the service restart policy.
type RestartPolicy string

const (
	RestartNo            RestartPolicy = "no"
	RestartAlways        RestartPolicy = "always"
	RestartOnFailure     RestartPolicy = "on-failure"
	RestartUnlessStopped RestartPolicy = "unless-stopped"
)

// HealthCheck is the container-level health check from the compose file.
// This is advisory container state; the rollout verdict comes from the HTTP
// liveness probe, not from here.
type HealthCheck struct {
	Test        []string
	Interval    string
	Timeout     string
	Retries     int
	StartPeriod string
}

// =============================================================================
// Network / Volume Types
// =============================================================================

// Network is a network definition.
type Network struct {
	Name     string
	Driver   string
	External bool
	Labels   map[string]string
}

// Volume is a named volume definition.
type Volume struct {
	Name     string
	Driver   string
	External bool
	Labels   map[string]string
}
