package compose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Parse Tests
// =============================================================================

const groupYAML = `
services:
  api:
    image: ${REGISTRY_USERNAME}/yamyam-backend:${IMAGE_TAG}
    ports:
      - "8000:8000"
    environment:
      DATABASE_URL: ${DATABASE_URL}
      CACHE_URL: redis://redis:6379
    depends_on:
      - postgres
      - redis
    restart: unless-stopped
  postgres:
    image: postgres:16-alpine
    environment:
      POSTGRES_USER: ${DB_USER}
    volumes:
      - postgres_data:/var/lib/postgresql/data
  redis:
    image: redis:7-alpine
volumes:
  postgres_data:
`

func testBindings() map[string]string {
	return map[string]string{
		"REGISTRY_USERNAME": "bohyunshin",
		"IMAGE_TAG":         "v1.4.2",
		"DATABASE_URL":      "postgresql://yamyam:pw@postgres:5432/yamyamdb",
		"DB_USER":           "yamyam",
	}
}

func TestParse_InterpolatesBindings(t *testing.T) {
	spec, err := Parse(groupYAML, testBindings())
	require.NoError(t, err)
	require.Len(t, spec.Services, 3)

	api := spec.Service("api")
	require.NotNil(t, api)
	assert.Equal(t, "bohyunshin/yamyam-backend:v1.4.2", api.Image)
	assert.Equal(t, "postgresql://yamyam:pw@postgres:5432/yamyamdb", api.Environment["DATABASE_URL"])
	assert.Equal(t, "redis://redis:6379", api.Environment["CACHE_URL"])
}

func TestParse_ServiceShape(t *testing.T) {
	spec, err := Parse(groupYAML, testBindings())
	require.NoError(t, err)

	api := spec.Service("api")
	require.NotNil(t, api)
	require.Len(t, api.Ports, 1)
	assert.Equal(t, uint32(8000), api.Ports[0].Target)
	assert.Equal(t, uint32(8000), api.Ports[0].Published)
	assert.ElementsMatch(t, []string{"postgres", "redis"}, api.DependsOn)
	assert.Equal(t, RestartUnlessStopped, api.Restart)

	pg := spec.Service("postgres")
	require.NotNil(t, pg)
	require.Len(t, pg.Volumes, 1)
	assert.Equal(t, MountTypeVolume, pg.Volumes[0].Type)
	assert.Equal(t, "postgres_data", pg.Volumes[0].Source)
	assert.Equal(t, "/var/lib/postgresql/data", pg.Volumes[0].Target)

	require.Len(t, spec.Volumes, 1)
	assert.Equal(t, "postgres_data", spec.Volumes[0].Name)
}

func TestParse_EmptyInput(t *testing.T) {
	_, err := Parse("  \n ", nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestParse_InvalidYAML(t *testing.T) {
	_, err := Parse("services: [unclosed", nil)
	assert.ErrorIs(t, err, ErrInvalidYAML)
}

func TestParse_NoServices(t *testing.T) {
	_, err := Parse("volumes:\n  data:\n", nil)
	assert.Error(t, err)
}

func TestParse_RejectsBuild(t *testing.T) {
	yaml := `
services:
  api:
    build: .
`
	_, err := Parse(yaml, nil)
	assert.ErrorIs(t, err, ErrUnsupportedFeature)
}

func TestParse_RejectsSecrets(t *testing.T) {
	yaml := `
services:
  api:
    image: nginx
secrets:
  db_password:
    file: ./secret.txt
`
	_, err := Parse(yaml, nil)
	assert.ErrorIs(t, err, ErrUnsupportedFeature)
}

func TestParse_CircularDependency(t *testing.T) {
	yaml := `
services:
  a:
    image: nginx
    depends_on: [b]
  b:
    image: nginx
    depends_on: [a]
`
	_, err := Parse(yaml, nil)
	assert.Error(t, err)
}

func TestParse_BindMountInferred(t *testing.T) {
	yaml := `
services:
  api:
    image: nginx
    volumes:
      - ./uploads:/app/uploads
`
	spec, err := Parse(yaml, nil)
	require.NoError(t, err)
	require.Len(t, spec.Services[0].Volumes, 1)
	assert.Equal(t, MountTypeBind, spec.Services[0].Volumes[0].Type)
}

// =============================================================================
// Ordering Tests
// =============================================================================

func TestStartOrder_DependenciesFirst(t *testing.T) {
	services := []Service{
		{Name: "api", DependsOn: []string{"postgres", "redis"}},
		{Name: "postgres"},
		{Name: "redis"},
	}

	ordered := StartOrder(services)
	require.Len(t, ordered, 3)
	assert.Equal(t, "api", ordered[2].Name)
}

func TestStartOrder_Chain(t *testing.T) {
	services := []Service{
		{Name: "web", DependsOn: []string{"api"}},
		{Name: "api", DependsOn: []string{"db"}},
		{Name: "db"},
	}

	ordered := StartOrder(services)
	require.Len(t, ordered, 3)
	assert.Equal(t, "db", ordered[0].Name)
	assert.Equal(t, "api", ordered[1].Name)
	assert.Equal(t, "web", ordered[2].Name)
}

func TestStartOrder_NoDependencies(t *testing.T) {
	services := []Service{{Name: "a"}, {Name: "b"}}
	ordered := StartOrder(services)
	assert.Len(t, ordered, 2)
}

func TestStartOrder_Empty(t *testing.T) {
	assert.Empty(t, StartOrder(nil))
}

func TestStopOrder_ReversesStartOrder(t *testing.T) {
	services := []Service{
		{Name: "api", DependsOn: []string{"db"}},
		{Name: "db"},
	}

	ordered := StopOrder(services)
	require.Len(t, ordered, 2)
	assert.Equal(t, "api", ordered[0].Name)
	assert.Equal(t, "db", ordered[1].Name)
}

// =============================================================================
// Naming Tests
// =============================================================================

func TestNaming(t *testing.T) {
	assert.Equal(t, "yamyam_api", ContainerName("yamyam", "api"))
	assert.Equal(t, "yamyam_default", NetworkName("yamyam"))
	assert.Equal(t, "yamyam_postgres_data", VolumeName("yamyam", "postgres_data"))
}
