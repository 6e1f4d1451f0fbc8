package quadlet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnitFileName(t *testing.T) {
	tests := []struct {
		name string
		in   Input
		want string
	}{
		{
			name: "container strips leading slash",
			in:   Input{Kind: KindContainer, Container: &ContainerInspection{Name: "/web-1"}},
			want: "web-1.container",
		},
		{
			name: "image uses repository base name",
			in:   Input{Kind: KindImage, Image: &ImageInspection{Reference: "quay.io/podman/hello:latest"}},
			want: "hello.image",
		},
		{
			name: "kube uses file stem",
			in:   Input{Kind: KindKube, Kube: &KubeSpec{YAMLPath: "/srv/kube/app.yaml"}},
			want: "app.kube",
		},
		{
			name: "unsafe characters are escaped",
			in:   Input{Kind: KindVolume, Volume: &VolumeInspection{Name: "data vol"}},
			want: `data\x20vol.volume`,
		},
		{
			name: "network",
			in:   Input{Kind: KindNetwork, Network: &NetworkInspection{Name: "backend"}},
			want: "backend.network",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := UnitFileName(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUnitFileName_Errors(t *testing.T) {
	_, err := UnitFileName(Input{Kind: "build"})
	assert.True(t, IsUnsupportedKindError(err))

	_, err = UnitFileName(Input{Kind: KindPod, Pod: &PodInspection{}})
	assert.True(t, IsMappingError(err))
}

func TestServiceName(t *testing.T) {
	assert.Equal(t, "web.service", ServiceName("web.container"))
	assert.Equal(t, "app.service", ServiceName("app.kube"))
	assert.Equal(t, "media-pod.service", ServiceName("media.pod"))
	assert.Equal(t, "data-volume.service", ServiceName("data.volume"))
	assert.Equal(t, "backend-network.service", ServiceName("backend.network"))
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind("pod")
	require.NoError(t, err)
	assert.Equal(t, KindPod, k)

	_, err = ParseKind("Container")
	assert.True(t, IsUnsupportedKindError(err))
}

func TestSectionName(t *testing.T) {
	assert.Equal(t, "Container", SectionName(KindContainer))
	assert.Equal(t, "Kube", SectionName(KindKube))
}

func TestServiceKey(t *testing.T) {
	assert.Equal(t, "web", ServiceKey(&ContainerInspection{Name: "/web"}))
	assert.Equal(t, "db", ServiceKey(&ContainerInspection{
		Name:   "shop-db-1",
		Labels: map[string]string{"com.docker.compose.service": "db"},
	}))
}

func TestDependsOn(t *testing.T) {
	assert.Equal(t, []string{"db", "cache"}, DependsOn(&ContainerInspection{
		Labels: map[string]string{"com.docker.compose.depends_on": "db:service_started:false,cache:service_healthy:false"},
	}))
	assert.Nil(t, DependsOn(&ContainerInspection{}))
}
