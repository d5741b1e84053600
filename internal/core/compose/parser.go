package compose

import (
	"context"
	"strconv"
	"strings"

	"github.com/compose-spec/compose-go/v2/loader"
	"github.com/compose-spec/compose-go/v2/types"
	"gopkg.in/yaml.v3"
)

// =============================================================================
// Parsing
// =============================================================================

// Parse parses a Docker Compose YAML document into a Spec.
//
// bindings feeds compose interpolation: ${IMAGE_TAG} and the rest of the
// deployment environment are resolved here, at parse time, which is how the
// image tag reaches the service group launch.
func Parse(yamlContent string, bindings map[string]string) (*Spec, error) {
	if strings.TrimSpace(yamlContent) == "" {
		return nil, ErrEmptyInput
	}

	// Pre-parse so YAML syntax errors surface as such instead of as loader
	// noise.
	var dict map[string]interface{}
	if err := yaml.Unmarshal([]byte(yamlContent), &dict); err != nil || dict == nil {
		return nil, NewParseError("", "invalid YAML syntax", ErrInvalidYAML)
	}

	project, err := loadProject(yamlContent, dict, bindings)
	if err != nil {
		return nil, err
	}

	if err := rejectUnsupported(project); err != nil {
		return nil, err
	}

	if len(project.Services) == 0 {
		return nil, ErrNoServices
	}

	spec := &Spec{
		Services: make([]Service, 0, len(project.Services)),
		Networks: make([]Network, 0, len(project.Networks)),
		Volumes:  make([]Volume, 0, len(project.Volumes)),
	}

	for _, svc := range project.Services {
		converted, err := convertService(svc)
		if err != nil {
			return nil, err
		}
		spec.Services = append(spec.Services, converted)
	}

	if err := detectCycle(spec.Services); err != nil {
		return nil, err
	}

	for name, net := range project.Networks {
		spec.Networks = append(spec.Networks, Network{
			Name:     name,
			Driver:   net.Driver,
			External: bool(net.External),
			Labels:   net.Labels,
		})
	}
	for name, vol := range project.Volumes {
		spec.Volumes = append(spec.Volumes, Volume{
			Name:     name,
			Driver:   vol.Driver,
			External: bool(vol.External),
			Labels:   vol.Labels,
		})
	}

	return spec, nil
}

// loadProject runs the compose-go loader with interpolation bound to the
// deployment environment.
func loadProject(yamlContent string, dict map[string]interface{}, bindings map[string]string) (*types.Project, error) {
	environment := types.Mapping{}
	for k, v := range bindings {
		environment[k] = v
	}

	project, err := loader.LoadWithContext(context.Background(), types.ConfigDetails{
		ConfigFiles: []types.ConfigFile{
			{
				Content: []byte(yamlContent),
				Config:  dict,
			},
		},
		Environment: environment,
	}, func(opts *loader.Options) {
		opts.SetProjectName("yamyam", false)
		opts.SkipValidation = false
		opts.SkipInterpolation = false
		opts.SkipNormalization = true
		opts.SkipExtends = true
	})
	if err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "dependency cycle detected") {
			return nil, NewParseError("", "circular dependency detected", ErrCircularDependency)
		}
		return nil, NewParseError("", errStr, ErrInvalidYAML)
	}

	return project, nil
}

// rejectUnsupported refuses definitions using features the runner does not
// implement. Builds belong to the image pipeline, not to a rollout.
func rejectUnsupported(project *types.Project) error {
	if len(project.Secrets) > 0 {
		return NewParseError("secrets", "secrets are not supported", ErrUnsupportedFeature)
	}
	if len(project.Configs) > 0 {
		return NewParseError("configs", "configs are not supported", ErrUnsupportedFeature)
	}
	for _, svc := range project.Services {
		if svc.Build != nil {
			return NewParseError("services."+svc.Name+".build", "build is not supported, reference a pushed image", ErrUnsupportedFeature)
		}
		if svc.Extends != nil && svc.Extends.File != "" {
			return NewParseError("services."+svc.Name+".extends", "extends is not supported", ErrUnsupportedFeature)
		}
	}
	return nil
}

// convertService maps a compose-go service onto our Service type.
func convertService(svc types.ServiceConfig) (Service, error) {
	service := Service{
		Name:        svc.Name,
		Image:       svc.Image,
		Command:     svc.Command,
		Entrypoint:  svc.Entrypoint,
		Environment: make(map[string]string),
		Labels:      make(map[string]string),
	}

	if service.Image == "" {
		return Service{}, NewParseError("services."+svc.Name, "service must have an image", ErrServiceNoImage)
	}

	for _, p := range svc.Ports {
		var published uint32
		if p.Published != "" {
			if pub, err := strconv.ParseUint(p.Published, 10, 32); err == nil {
				published = uint32(pub)
			}
		}
		service.Ports = append(service.Ports, Port{
			Target:    p.Target,
			Published: published,
			Protocol:  p.Protocol,
			HostIP:    p.HostIP,
		})
	}

	for k, v := range svc.Environment {
		if v != nil {
			service.Environment[k] = *v
		}
	}

	for _, v := range svc.Volumes {
		mount := VolumeMount{
			Source:   v.Source,
			Target:   v.Target,
			ReadOnly: v.ReadOnly,
		}
		switch v.Type {
		case "bind":
			mount.Type = MountTypeBind
		case "volume":
			mount.Type = MountTypeVolume
		case "tmpfs":
			mount.Type = MountTypeTmpfs
		default:
			if strings.HasPrefix(v.Source, "./") || strings.HasPrefix(v.Source, "/") || strings.HasPrefix(v.Source, "~") {
				mount.Type = MountTypeBind
			} else {
				mount.Type = MountTypeVolume
			}
		}
		service.Volumes = append(service.Volumes, mount)
	}

	for net := range svc.Networks {
		service.Networks = append(service.Networks, net)
	}
	for dep := range svc.DependsOn {
		service.DependsOn = append(service.DependsOn, dep)
	}

	service.Restart = RestartPolicy(svc.Restart)

	for k, v := range svc.Labels {
		service.Labels[k] = v
	}

	if svc.HealthCheck != nil && !svc.HealthCheck.Disable {
		service.HealthCheck = &HealthCheck{
			Test: svc.HealthCheck.Test,
		}
		if svc.HealthCheck.Retries != nil {
			service.HealthCheck.Retries = int(*svc.HealthCheck.Retries)
		}
		if svc.HealthCheck.Interval != nil {
			service.HealthCheck.Interval = svc.HealthCheck.Interval.String()
		}
		if svc.HealthCheck.Timeout != nil {
			service.HealthCheck.Timeout = svc.HealthCheck.Timeout.String()
		}
		if svc.HealthCheck.StartPeriod != nil {
			service.HealthCheck.StartPeriod = svc.HealthCheck.StartPeriod.String()
		}
	}

	return service, nil
}

// detectCycle rejects dependency cycles with a DFS over depends_on edges.
func detectCycle(services []Service) error {
	deps := make(map[string][]string)
	for _, svc := range services {
		deps[svc.Name] = svc.DependsOn
	}

	visited := make(map[string]bool)
	onStack := make(map[string]bool)

	var walk func(node string) bool
	walk = func(node string) bool {
		visited[node] = true
		onStack[node] = true
		for _, dep := range deps[node] {
			if dep == node {
				return true
			}
			if !visited[dep] {
				if walk(dep) {
					return true
				}
			} else if onStack[dep] {
				return true
			}
		}
		onStack[node] = false
		return false
	}

	for _, svc := range services {
		if !visited[svc.Name] && walk(svc.Name) {
			return ErrCircularDependency
		}
	}
	return nil
}
