package quadlet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractPorts(t *testing.T) {
	t.Run("normalizes protocol and drops auto-assigned", func(t *testing.T) {
		ports, err := extractPorts("ports", []PortBinding{
			{HostPort: 80, ContainerPort: 8080, Protocol: "TCP"},
			{HostPort: 0, ContainerPort: 9090},
			{HostPort: 53, ContainerPort: 53, Protocol: ProtocolUDP},
			{HostPort: 53, ContainerPort: 53, Protocol: ProtocolTCP},
		})
		require.NoError(t, err)
		assert.Equal(t, []PortBinding{
			{HostPort: 80, ContainerPort: 8080, Protocol: ProtocolTCP},
			{HostPort: 53, ContainerPort: 53, Protocol: ProtocolUDP},
			{HostPort: 53, ContainerPort: 53, Protocol: ProtocolTCP},
		}, ports)
	})

	t.Run("rejects malformed bindings", func(t *testing.T) {
		_, err := extractPorts("ports", []PortBinding{
			{HostPort: 80, ContainerPort: 0},
			{HostPort: 81, ContainerPort: 81, Protocol: "icmp"},
			{HostIP: "not-an-ip", HostPort: 82, ContainerPort: 82},
			{HostPort: 83, ContainerPort: 83},
			{HostIP: "127.0.0.1", HostPort: 83, ContainerPort: 84},
		})
		require.Error(t, err)
		var fields []string
		for _, e := range MappingErrorsOf(err) {
			fields = append(fields, e.Field)
		}
		assert.Equal(t, []string{
			"ports[0].containerPort",
			"ports[1].protocol",
			"ports[2].hostIP",
			"ports[4].hostPort",
		}, fields)
	})
}

func TestFormatPort(t *testing.T) {
	assert.Equal(t, "8080:80", formatPort(PortBinding{HostPort: 8080, ContainerPort: 80, Protocol: ProtocolTCP}))
	assert.Equal(t, "8080:80", formatPort(PortBinding{HostIP: "0.0.0.0", HostPort: 8080, ContainerPort: 80}))
	assert.Equal(t, "10.0.0.1:53:53/udp", formatPort(PortBinding{HostIP: "10.0.0.1", HostPort: 53, ContainerPort: 53, Protocol: ProtocolUDP}))
	assert.Equal(t, "[fd00::1]:443:443", formatPort(PortBinding{HostIP: "fd00::1", HostPort: 443, ContainerPort: 443}))
}

func TestExtractMounts(t *testing.T) {
	mounts, err := extractMounts([]MountSpec{
		{Source: "/host/data", Destination: "/data"},
		{Source: "cache", Destination: "/cache"},
		{Destination: "/anon"},
		{Type: MountTypeTmpfs, Destination: "/tmp"},
		{Type: MountTypeVolume, Source: "/looks/like/path", Destination: "/v"},
	})
	require.NoError(t, err)

	types := make([]MountType, 0, len(mounts))
	for _, m := range mounts {
		types = append(types, m.Type)
	}
	assert.Equal(t, []MountType{MountTypeBind, MountTypeVolume, MountTypeVolume, MountTypeTmpfs, MountTypeVolume}, types)

	_, err = extractMounts([]MountSpec{
		{Source: "/a"},
		{Source: "/b", Destination: "relative"},
		{Type: MountTypeBind, Source: "named", Destination: "/c"},
		{Type: "npipe", Destination: "/d"},
	})
	require.Error(t, err)
	var fields []string
	for _, e := range MappingErrorsOf(err) {
		fields = append(fields, e.Field)
	}
	assert.Equal(t, []string{"mounts[0].destination", "mounts[1].destination", "mounts[2].source", "mounts[3].type"}, fields)
}

func TestFormatMount(t *testing.T) {
	assert.Equal(t, "/h:/c:ro,Z", formatMount(MountSpec{Type: MountTypeBind, Source: "/h", Destination: "/c", ReadOnly: true, Options: []string{"ro", "Z"}}))
	assert.Equal(t, "vol:/c", formatMount(MountSpec{Type: MountTypeVolume, Source: "vol", Destination: "/c"}))
	assert.Equal(t, "/c", formatMount(MountSpec{Type: MountTypeVolume, Destination: "/c"}))
	assert.Equal(t, "/tmp:ro,size=1g", formatMount(MountSpec{Type: MountTypeTmpfs, Source: "tmpfs", Destination: "/tmp", ReadOnly: true, Options: []string{"size=1g"}}))
}

func TestParseEnv(t *testing.T) {
	entries, err := parseEnv("env", []string{"A=1", "EMPTY=", "EQ=a=b", "A=2"})
	require.NoError(t, err)
	assert.Equal(t, []EnvEntry{
		{Key: "A", Value: "2"},
		{Key: "EMPTY", Value: ""},
		{Key: "EQ", Value: "a=b"},
	}, entries)

	_, err = parseEnv("env", []string{"NOVALUE", "=x", "A B=1"})
	require.Error(t, err)
	assert.Len(t, MappingErrorsOf(err), 3)
}

func TestExtractResources(t *testing.T) {
	got, err := extractResources(Resources{
		MemoryLimit: 1 << 30,
		CPUShares:   defaultCPUShares,
		CPUQuota:    0,
		CPUPeriod:   50000,
		PidsLimit:   -1,
		ShmSize:     defaultShmSize,
	})
	require.NoError(t, err)
	assert.Equal(t, Resources{MemoryLimit: 1 << 30, PidsLimit: -1}, got)

	_, err = extractResources(Resources{MemoryLimit: -5, CPUQuota: -1})
	require.Error(t, err)
	assert.Len(t, MappingErrorsOf(err), 2)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "2g", formatBytes(2<<30))
	assert.Equal(t, "256m", formatBytes(256<<20))
	assert.Equal(t, "64k", formatBytes(64<<10))
	assert.Equal(t, "1000", formatBytes(1000))
}

func TestExtractNetworks(t *testing.T) {
	t.Run("mode replaces attachments", func(t *testing.T) {
		mode, nets, err := extractNetworks("host", []NetworkAttachment{{Name: "x"}}, "c", "")
		require.NoError(t, err)
		assert.Equal(t, "host", mode)
		assert.Nil(t, nets)
	})

	t.Run("container namespace", func(t *testing.T) {
		mode, _, err := extractNetworks("container:abc123", nil, "c", "")
		require.NoError(t, err)
		assert.Equal(t, "container:abc123", mode)
	})

	t.Run("unknown mode", func(t *testing.T) {
		_, _, err := extractNetworks("weird", nil, "c", "")
		require.Error(t, err)
		assert.True(t, IsMappingError(err))
	})

	t.Run("default network with static address is kept", func(t *testing.T) {
		_, nets, err := extractNetworks("bridge", []NetworkAttachment{
			{Name: "podman", IPv4: "10.88.0.5"},
			{Name: "app", IPv6: "fd00::5", Aliases: []string{"api", "api"}},
		}, "api-1", "")
		require.NoError(t, err)
		require.Len(t, nets, 2)
		assert.Equal(t, "app:ip6=fd00::5,alias=api", formatNetwork(nets[0]))
		assert.Equal(t, "podman:ip=10.88.0.5", formatNetwork(nets[1]))
	})

	t.Run("invalid addresses", func(t *testing.T) {
		_, _, err := extractNetworks("", []NetworkAttachment{
			{Name: "a", IPv4: "fd00::1"},
			{Name: "b", IPv6: "10.0.0.1"},
			{Name: ""},
		}, "c", "")
		require.Error(t, err)
		assert.Len(t, MappingErrorsOf(err), 3)
	})
}

func TestExtractSecurity(t *testing.T) {
	s, err := extractSecurity(SecurityOptions{
		Privileged: true,
		SecurityOpt: []string{
			"no-new-privileges:true",
			"label=disable",
			"label=level:s0:c100,c200",
			"seccomp=/etc/seccomp.json",
			"mask=/proc/acpi",
		},
	})
	require.NoError(t, err)
	assert.True(t, s.privileged)
	assert.True(t, s.noNewPrivileges)
	assert.True(t, s.labelDisable)
	assert.Equal(t, "s0:c100,c200", s.labelLevel)
	assert.Equal(t, "/etc/seccomp.json", s.seccompProfile)
	assert.Equal(t, []string{"mask=/proc/acpi"}, s.securityOpts)

	_, err = extractSecurity(SecurityOptions{SecurityOpt: []string{""}, CapAdd: []string{""}})
	require.Error(t, err)
	assert.Len(t, MappingErrorsOf(err), 2)
}

func TestExtractLabels(t *testing.T) {
	labels, err := extractLabels("labels", map[string]string{
		"b":                         "2",
		"a":                         "1",
		"same":                      "image",
		"changed":                   "container",
		"io.podman.compose.project": "demo",
		"PODMAN_SYSTEMD_UNIT":       "x.service",
	}, map[string]string{"same": "image", "changed": "image"})
	require.NoError(t, err)
	assert.Equal(t, []Label{{"a", "1"}, {"b", "2"}, {"changed", "container"}}, labels)

	t.Run("rejects malformed keys", func(t *testing.T) {
		tests := []struct {
			key   string
			field string
		}{
			{key: "a=b", field: "labels[a=b]"},
			{key: "has space", field: "labels[has space]"},
			{key: "", field: "labels"},
		}
		for _, tt := range tests {
			_, err := extractLabels("labels", map[string]string{tt.key: "c", "ok": "1"}, nil)
			errs := MappingErrorsOf(err)
			require.Len(t, errs, 1, tt.key)
			assert.Equal(t, tt.field, errs[0].Field)
		}
	})
}

func TestExtractEnv_RuntimeInjected(t *testing.T) {
	c := &ContainerInspection{
		Name:     "/web",
		Hostname: "web",
		Env: []string{
			"container=podman",
			"HOME=/root",
			"PATH=" + defaultPath,
			"HOSTNAME=web",
			"TERM=xterm",
			"HOME=/home/app",
		},
	}

	got, err := extractEnv(c, &ImageInspection{})
	require.NoError(t, err)
	assert.Equal(t, []EnvEntry{
		{Key: "HOME", Value: "/home/app"},
		{Key: "TERM", Value: "xterm"},
	}, got)
}

func TestExtractAutoUpdate(t *testing.T) {
	v, err := extractAutoUpdate(map[string]string{labelAutoUpdate: "local"})
	require.NoError(t, err)
	assert.Equal(t, "local", v)

	v, err = extractAutoUpdate(nil)
	require.NoError(t, err)
	assert.Empty(t, v)

	_, err = extractAutoUpdate(map[string]string{labelAutoUpdate: "always"})
	assert.True(t, IsMappingError(err))
}

func TestExtractDependencies(t *testing.T) {
	assert.Nil(t, extractDependencies(nil))
	assert.Equal(t, []string{"db", "cache"}, extractDependencies(map[string]string{
		labelDependsOn: "db:service_started:false, cache:service_healthy:true,db:service_started:false",
	}))
}

func TestExtractExposedPorts(t *testing.T) {
	c := &ContainerInspection{ExposedPorts: []string{"80/tcp", "53/udp", "8443", "9000/tcp"}}
	img := &ImageInspection{ExposedPorts: []string{"80/tcp"}}
	got, err := extractExposedPorts(c, img, []PortBinding{{HostPort: 9000, ContainerPort: 9000, Protocol: ProtocolTCP}})
	require.NoError(t, err)
	assert.Equal(t, []string{"53/udp", "8443"}, got)

	_, err = extractExposedPorts(&ContainerInspection{ExposedPorts: []string{"http/tcp", "70000"}}, &ImageInspection{}, nil)
	require.Error(t, err)
	assert.Len(t, MappingErrorsOf(err), 2)
}

func TestExtractStop(t *testing.T) {
	signal, timeout := extractStop(&ContainerInspection{StopSignal: "SIGTERM", StopTimeout: 10}, &ImageInspection{})
	assert.Empty(t, signal)
	assert.Zero(t, timeout)

	signal, timeout = extractStop(&ContainerInspection{StopSignal: "SIGTERM", StopTimeout: 60}, &ImageInspection{StopSignal: "SIGQUIT"})
	assert.Equal(t, "SIGTERM", signal)
	assert.Equal(t, uint(60), timeout)
}

func TestExtractUserAndWorkingDir(t *testing.T) {
	assert.Empty(t, extractUser(&ContainerInspection{User: "root"}, &ImageInspection{}))
	assert.Empty(t, extractUser(&ContainerInspection{User: "nginx"}, &ImageInspection{User: "nginx"}))
	assert.Equal(t, "1000", extractUser(&ContainerInspection{User: "1000"}, &ImageInspection{User: "nginx"}))

	assert.Empty(t, extractWorkingDir(&ContainerInspection{WorkingDir: "/"}, &ImageInspection{}))
	assert.Equal(t, "/", extractWorkingDir(&ContainerInspection{WorkingDir: "/"}, &ImageInspection{WorkingDir: "/app"}))
}
