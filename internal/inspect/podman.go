package inspect

import (
	"cmp"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"syscall"

	nettypes "github.com/containers/common/libnetwork/types"
	"github.com/containers/image/v5/manifest"
	"github.com/containers/podman/v5/libpod/define"
	podmaninspect "github.com/containers/podman/v5/pkg/inspect"
	"github.com/docker/go-connections/nat"
	"golang.org/x/sys/unix"

	"github.com/trly/quadlet-gen/internal/quadlet"
)

// mountOptionNoise are options podman reports for every mount of a kind.
var mountOptionNoise = []string{
	"rbind", "bind", "rprivate", "private",
	"nosuid", "nodev", "noexec",
	"rw", "ro", "tmpcopyup",
}

// FromPodmanContainer converts podman container inspect data.
//
// Runtime-assigned state such as network addresses is not carried over.
// Ports and networks of a pod member belong to the pod and are dropped.
func FromPodmanContainer(data *define.InspectContainerData) (quadlet.ContainerInspection, error) {
	if data == nil || data.Config == nil || data.HostConfig == nil {
		return quadlet.ContainerInspection{}, errors.New("container inspect data has no config")
	}
	cfg, host := data.Config, data.HostConfig

	c := quadlet.ContainerInspection{
		ID:           data.ID,
		Name:         data.Name,
		Image:        cmp.Or(data.ImageName, cfg.Image),
		Hostname:     cfg.Hostname,
		Pod:          data.Pod,
		Entrypoint:   cfg.Entrypoint,
		Command:      cfg.Cmd,
		WorkingDir:   cfg.WorkingDir,
		User:         cfg.User,
		Env:          cfg.Env,
		ExposedPorts: sortedKeys(cfg.ExposedPorts),
		Mounts:       fromMounts(data.Mounts, host.Tmpfs),
		Labels:       cfg.Labels,
		StopSignal:   signalName(cfg.StopSignal),
		StopTimeout:  cfg.StopTimeout,
		HealthCheck:  fromHealthConfig(cfg.Healthcheck),
		Resources: quadlet.Resources{
			MemoryLimit: host.Memory,
			CPUQuota:    host.CpuQuota,
			CPUPeriod:   int64(host.CpuPeriod), //nolint:gosec // kernel limits keep this far below MaxInt64
			CPUShares:   int64(host.CpuShares), //nolint:gosec // kernel limits keep this far below MaxInt64
			PidsLimit:   host.PidsLimit,
			ShmSize:     host.ShmSize,
		},
		RestartPolicy: fromRestartPolicy(host.RestartPolicy),
		Security: quadlet.SecurityOptions{
			Privileged:  host.Privileged,
			ReadOnly:    host.ReadonlyRootfs,
			CapAdd:      host.CapAdd,
			CapDrop:     host.CapDrop,
			SecurityOpt: host.SecurityOpt,
		},
	}

	if data.Pod != "" {
		return c, nil
	}

	ports, err := fromPortMap(host.PortBindings)
	if err != nil {
		return quadlet.ContainerInspection{}, fmt.Errorf("container %s: %w", data.Name, err)
	}
	c.Ports = ports
	c.NetworkMode = host.NetworkMode
	if data.NetworkSettings != nil {
		c.Networks = fromNetworkSettings(data.NetworkSettings.Networks)
	}

	return c, nil
}

// FromPodmanImage converts podman image inspect data. The first repository
// tag becomes the reference.
func FromPodmanImage(data *podmaninspect.ImageData) quadlet.ImageInspection {
	if data == nil {
		return quadlet.ImageInspection{}
	}

	img := quadlet.ImageInspection{
		ID:          data.ID,
		Labels:      data.Labels,
		HealthCheck: fromHealthConfig(data.HealthCheck),
	}
	if len(data.RepoTags) > 0 {
		img.Reference = data.RepoTags[0]
	}

	if cfg := data.Config; cfg != nil {
		img.Entrypoint = cfg.Entrypoint
		img.Command = cfg.Cmd
		img.WorkingDir = cfg.WorkingDir
		img.User = cfg.User
		img.Env = cfg.Env
		img.ExposedPorts = sortedKeys(cfg.ExposedPorts)
		img.StopSignal = cfg.StopSignal
		if img.Labels == nil {
			img.Labels = cfg.Labels
		}
	}

	return img
}

// FromPodmanPod converts podman pod inspect data. Published ports and
// networks come from the infra container configuration.
func FromPodmanPod(data *define.InspectPodData) (quadlet.PodInspection, error) {
	if data == nil {
		return quadlet.PodInspection{}, errors.New("pod inspect data is empty")
	}

	p := quadlet.PodInspection{
		Name:     data.Name,
		Hostname: data.Hostname,
		Labels:   data.Labels,
	}

	if infra := data.InfraConfig; infra != nil {
		ports, err := fromPortMap(infra.PortBindings)
		if err != nil {
			return quadlet.PodInspection{}, fmt.Errorf("pod %s: %w", data.Name, err)
		}
		p.Ports = ports

		for _, name := range slices.Sorted(slices.Values(infra.Networks)) {
			p.Networks = append(p.Networks, quadlet.NetworkAttachment{Name: name})
		}
	}

	return p, nil
}

// FromPodmanVolume converts podman volume inspect data.
func FromPodmanVolume(data *define.InspectVolumeData) quadlet.VolumeInspection {
	if data == nil {
		return quadlet.VolumeInspection{}
	}
	return quadlet.VolumeInspection{
		Name:    data.Name,
		Driver:  data.Driver,
		Options: data.Options,
		Labels:  data.Labels,
	}
}

// FromPodmanNetwork converts a libnetwork network definition.
func FromPodmanNetwork(n *nettypes.Network) quadlet.NetworkInspection {
	if n == nil {
		return quadlet.NetworkInspection{}
	}

	out := quadlet.NetworkInspection{
		Name:       n.Name,
		Driver:     n.Driver,
		Internal:   n.Internal,
		IPv6:       n.IPv6Enabled,
		DNSEnabled: n.DNSEnabled,
		Options:    n.Options,
		Labels:     n.Labels,
	}
	for _, s := range n.Subnets {
		subnet := quadlet.Subnet{Subnet: s.Subnet.String()}
		if len(s.Gateway) > 0 {
			subnet.Gateway = s.Gateway.String()
		}
		out.Subnets = append(out.Subnets, subnet)
	}

	return out
}

// fromPortMap flattens podman's "port/proto" keyed bindings. An empty host
// port means the engine picked one at start.
func fromPortMap(m map[string][]define.InspectHostPort) ([]quadlet.PortBinding, error) {
	var out []quadlet.PortBinding
	for key, hostPorts := range m {
		proto, port := nat.SplitProtoPort(key)
		containerPort, err := nat.ParsePort(port)
		if err != nil || containerPort == 0 {
			return nil, fmt.Errorf("invalid port key %q", key)
		}

		for _, hp := range hostPorts {
			hostPort, err := nat.ParsePort(hp.HostPort)
			if err != nil {
				return nil, fmt.Errorf("invalid host port %q for %s: %w", hp.HostPort, key, err)
			}
			out = append(out, quadlet.PortBinding{
				HostIP:        hp.HostIP,
				HostPort:      uint16(hostPort),      //nolint:gosec // nat.ParsePort limits to 16 bits
				ContainerPort: uint16(containerPort), //nolint:gosec // nat.ParsePort limits to 16 bits
				Protocol:      quadlet.Protocol(proto),
			})
		}
	}

	slices.SortFunc(out, func(a, b quadlet.PortBinding) int {
		return cmp.Or(
			cmp.Compare(a.ContainerPort, b.ContainerPort),
			cmp.Compare(a.Protocol, b.Protocol),
			cmp.Compare(a.HostIP, b.HostIP),
			cmp.Compare(a.HostPort, b.HostPort),
		)
	})
	return out, nil
}

func fromNetworkSettings(networks map[string]*define.InspectAdditionalNetwork) []quadlet.NetworkAttachment {
	var out []quadlet.NetworkAttachment
	for _, name := range sortedKeys(networks) {
		a := quadlet.NetworkAttachment{Name: name}
		if n := networks[name]; n != nil {
			a.Aliases = n.Aliases
		}
		out = append(out, a)
	}
	return out
}

func fromMounts(mounts []define.InspectMount, tmpfs map[string]string) []quadlet.MountSpec {
	out := make([]quadlet.MountSpec, 0, len(mounts)+len(tmpfs))
	seen := make(map[string]bool)

	for _, m := range mounts {
		spec := quadlet.MountSpec{
			Type:        quadlet.MountType(m.Type),
			Destination: m.Destination,
			ReadOnly:    !m.RW,
			Options:     mountOptions(m.Options),
		}
		switch spec.Type {
		case quadlet.MountTypeVolume:
			if !isAnonymousVolume(m.Name) {
				spec.Source = m.Name
			}
		case quadlet.MountTypeTmpfs:
		default:
			spec.Source = m.Source
		}
		if m.Mode != "" && !slices.Contains(spec.Options, m.Mode) {
			spec.Options = append(spec.Options, m.Mode)
		}
		if m.Propagation != "" && !slices.Contains(mountOptionNoise, m.Propagation) {
			spec.Options = append(spec.Options, m.Propagation)
		}
		seen[m.Destination] = true
		out = append(out, spec)
	}

	for _, dest := range sortedKeys(tmpfs) {
		if seen[dest] {
			continue
		}
		opts := strings.Split(tmpfs[dest], ",")
		out = append(out, quadlet.MountSpec{
			Type:        quadlet.MountTypeTmpfs,
			Destination: dest,
			ReadOnly:    slices.Contains(opts, "ro"),
			Options:     mountOptions(opts),
		})
	}

	return out
}

func mountOptions(opts []string) []string {
	var out []string
	for _, o := range opts {
		if o == "" || slices.Contains(mountOptionNoise, o) {
			continue
		}
		out = append(out, o)
	}
	return out
}

// isAnonymousVolume reports whether name is an engine-generated volume ID.
func isAnonymousVolume(name string) bool {
	if len(name) != 64 {
		return false
	}
	for _, r := range name {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return false
		}
	}
	return true
}

func fromRestartPolicy(p *define.InspectRestartPolicy) quadlet.RestartPolicy {
	if p == nil || p.Name == "" {
		return quadlet.RestartPolicy{Name: quadlet.RestartNo}
	}
	return quadlet.RestartPolicy{
		Name:       quadlet.RestartPolicyName(p.Name),
		MaxRetries: int(p.MaximumRetryCount), //nolint:gosec // retry counts are small
	}
}

func fromHealthConfig(h *manifest.Schema2HealthConfig) *quadlet.HealthCheck {
	if h == nil || len(h.Test) == 0 {
		return nil
	}
	return &quadlet.HealthCheck{
		Test:        h.Test,
		Interval:    h.Interval,
		Timeout:     h.Timeout,
		StartPeriod: h.StartPeriod,
		Retries:     h.Retries,
	}
}

// signalName renders a stop signal by name. Older podman releases report
// the signal number.
func signalName(v any) string {
	s := fmt.Sprint(v)
	n, err := strconv.Atoi(s)
	if err != nil {
		return s
	}
	if n <= 0 {
		return ""
	}
	return unix.SignalName(syscall.Signal(n))
}

func sortedKeys[V any](m map[string]V) []string {
	if len(m) == 0 {
		return nil
	}
	return slices.Sorted(maps.Keys(m))
}
