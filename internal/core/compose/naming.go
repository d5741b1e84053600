package compose

import "fmt"

// =============================================================================
// Resource Naming
// =============================================================================

// Docker resources created for a service group share the project prefix so
// Down and Logs can also find them by name when labels are unavailable.

// ContainerName generates the container name for a service.
// Pattern: {project}_{service}, e.g. "yamyam_api".
func ContainerName(project, service string) string {
	return fmt.Sprintf("%s_%s", project, service)
}

// NetworkName generates the network name for the service group.
// Pattern: {project}_default.
func NetworkName(project string) string {
	return fmt.Sprintf("%s_default", project)
}

// VolumeName generates the name for a named volume.
// Pattern: {project}_{volume}, e.g. "yamyam_postgres_data".
func VolumeName(project, volume string) string {
	return fmt.Sprintf("%s_%s", project, volume)
}
