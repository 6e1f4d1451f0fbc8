// Package quadlet translates container engine inspection records into
// Quadlet unit files.
//
// The package is pure: it performs no I/O, keeps no mutable state and never
// logs. Identical inputs always render byte-identical units.
package quadlet

import "time"

// Kind identifies the Quadlet resource kind being generated.
type Kind string

// Supported resource kinds.
const (
	KindContainer Kind = "container"
	KindPod       Kind = "pod"
	KindVolume    Kind = "volume"
	KindNetwork   Kind = "network"
	KindImage     Kind = "image"
	KindKube      Kind = "kube"
)

// Kinds lists every supported kind in a stable order.
var Kinds = []Kind{KindContainer, KindPod, KindVolume, KindNetwork, KindImage, KindKube}

// ParseKind returns the Kind named by s or an UnsupportedKindError.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", &UnsupportedKindError{Kind: s}
}

// Protocol names a transport protocol of a published port.
type Protocol string

// Known port protocols.
const (
	ProtocolTCP  Protocol = "tcp"
	ProtocolUDP  Protocol = "udp"
	ProtocolSCTP Protocol = "sctp"
)

// MountType distinguishes how a mount is provided to the container.
type MountType string

// Mount types. An empty type is inferred from the source.
const (
	MountTypeBind   MountType = "bind"
	MountTypeVolume MountType = "volume"
	MountTypeTmpfs  MountType = "tmpfs"
)

// RestartPolicyName is the engine restart policy name.
type RestartPolicyName string

// Restart policy names as reported by the engine.
const (
	RestartNo            RestartPolicyName = "no"
	RestartOnFailure     RestartPolicyName = "on-failure"
	RestartAlways        RestartPolicyName = "always"
	RestartUnlessStopped RestartPolicyName = "unless-stopped"
)

// PortBinding publishes a container port on the host.
type PortBinding struct {
	HostIP        string   `json:"hostIP,omitempty"`
	HostPort      uint16   `json:"hostPort"`
	ContainerPort uint16   `json:"containerPort"`
	Protocol      Protocol `json:"protocol,omitempty"`
}

// MountSpec is a single mount as reported by the engine.
type MountSpec struct {
	Type        MountType `json:"type,omitempty"`
	Source      string    `json:"source,omitempty"`
	Destination string    `json:"destination"`
	ReadOnly    bool      `json:"readOnly,omitempty"`
	Options     []string  `json:"options,omitempty"`
}

// EnvEntry is one environment variable.
type EnvEntry struct {
	Key   string
	Value string
}

// Label is one key/value label.
type Label struct {
	Key   string
	Value string
}

// NetworkAttachment connects a container or pod to a named network.
type NetworkAttachment struct {
	Name    string   `json:"name"`
	IPv4    string   `json:"ipv4,omitempty"`
	IPv6    string   `json:"ipv6,omitempty"`
	Aliases []string `json:"aliases,omitempty"`
}

// Resources holds resource limits. Zero means unset.
type Resources struct {
	MemoryLimit int64 `json:"memoryLimit,omitempty"`
	CPUQuota    int64 `json:"cpuQuota,omitempty"`
	CPUPeriod   int64 `json:"cpuPeriod,omitempty"`
	CPUShares   int64 `json:"cpuShares,omitempty"`
	PidsLimit   int64 `json:"pidsLimit,omitempty"`
	ShmSize     int64 `json:"shmSize,omitempty"`
}

// RestartPolicy is the engine restart policy of a container.
type RestartPolicy struct {
	Name       RestartPolicyName `json:"name,omitempty"`
	MaxRetries int               `json:"maxRetries,omitempty"`
}

// HealthCheck describes a container health probe.
//
// Test uses the engine form: ["CMD", args...], ["CMD-SHELL", command] or
// ["NONE"] to disable a check inherited from the image.
type HealthCheck struct {
	Test        []string      `json:"test,omitempty"`
	Interval    time.Duration `json:"interval,omitempty"`
	Timeout     time.Duration `json:"timeout,omitempty"`
	StartPeriod time.Duration `json:"startPeriod,omitempty"`
	Retries     int           `json:"retries,omitempty"`
}

// SecurityOptions holds privilege and confinement settings.
type SecurityOptions struct {
	Privileged  bool     `json:"privileged,omitempty"`
	ReadOnly    bool     `json:"readOnly,omitempty"`
	CapAdd      []string `json:"capAdd,omitempty"`
	CapDrop     []string `json:"capDrop,omitempty"`
	SecurityOpt []string `json:"securityOpt,omitempty"`
}

// ContainerInspection is the normalized container inspection record.
type ContainerInspection struct {
	ID            string              `json:"id,omitempty"`
	Name          string              `json:"name"`
	Image         string              `json:"image"`
	Hostname      string              `json:"hostname,omitempty"`
	Pod           string              `json:"pod,omitempty"`
	Entrypoint    []string            `json:"entrypoint,omitempty"`
	Command       []string            `json:"command,omitempty"`
	WorkingDir    string              `json:"workingDir,omitempty"`
	User          string              `json:"user,omitempty"`
	Env           []string            `json:"env,omitempty"`
	ExposedPorts  []string            `json:"exposedPorts,omitempty"`
	Ports         []PortBinding       `json:"ports,omitempty"`
	Mounts        []MountSpec         `json:"mounts,omitempty"`
	NetworkMode   string              `json:"networkMode,omitempty"`
	Networks      []NetworkAttachment `json:"networks,omitempty"`
	Resources     Resources           `json:"resources"`
	RestartPolicy RestartPolicy       `json:"restartPolicy"`
	HealthCheck   *HealthCheck        `json:"healthCheck,omitempty"`
	Labels        map[string]string   `json:"labels,omitempty"`
	Security      SecurityOptions     `json:"security"`
	StopSignal    string              `json:"stopSignal,omitempty"`
	StopTimeout   uint                `json:"stopTimeout,omitempty"`
}

// ImageInspection is the normalized image inspection record. It supplies the
// defaults a container inherits.
type ImageInspection struct {
	ID           string            `json:"id,omitempty"`
	Reference    string            `json:"reference,omitempty"`
	Entrypoint   []string          `json:"entrypoint,omitempty"`
	Command      []string          `json:"command,omitempty"`
	WorkingDir   string            `json:"workingDir,omitempty"`
	User         string            `json:"user,omitempty"`
	ExposedPorts []string          `json:"exposedPorts,omitempty"`
	Env          []string          `json:"env,omitempty"`
	Labels       map[string]string `json:"labels,omitempty"`
	HealthCheck  *HealthCheck      `json:"healthCheck,omitempty"`
	StopSignal   string            `json:"stopSignal,omitempty"`
}

// PodInspection is the normalized pod inspection record.
type PodInspection struct {
	Name     string              `json:"name"`
	Hostname string              `json:"hostname,omitempty"`
	Ports    []PortBinding       `json:"ports,omitempty"`
	Networks []NetworkAttachment `json:"networks,omitempty"`
	Labels   map[string]string   `json:"labels,omitempty"`
}

// VolumeInspection is the normalized volume inspection record.
type VolumeInspection struct {
	Name    string            `json:"name"`
	Driver  string            `json:"driver,omitempty"`
	Options map[string]string `json:"options,omitempty"`
	Labels  map[string]string `json:"labels,omitempty"`
}

// Subnet is one address range of a network.
type Subnet struct {
	Subnet  string `json:"subnet"`
	Gateway string `json:"gateway,omitempty"`
}

// NetworkInspection is the normalized network inspection record.
type NetworkInspection struct {
	Name       string            `json:"name"`
	Driver     string            `json:"driver,omitempty"`
	Subnets    []Subnet          `json:"subnets,omitempty"`
	Internal   bool              `json:"internal,omitempty"`
	IPv6       bool              `json:"ipv6,omitempty"`
	DNSEnabled bool              `json:"dnsEnabled,omitempty"`
	Options    map[string]string `json:"options,omitempty"`
	Labels     map[string]string `json:"labels,omitempty"`
}

// KubeSpec references a Kubernetes YAML file played by Quadlet.
type KubeSpec struct {
	YAMLPath string        `json:"yamlPath"`
	Networks []string      `json:"networks,omitempty"`
	Ports    []PortBinding `json:"ports,omitempty"`
}

// Input bundles the records needed to generate one unit. Only the records
// the Kind requires are consulted.
type Input struct {
	Kind      Kind                 `json:"kind"`
	Container *ContainerInspection `json:"container,omitempty"`
	Image     *ImageInspection     `json:"image,omitempty"`
	Pod       *PodInspection       `json:"pod,omitempty"`
	Volume    *VolumeInspection    `json:"volume,omitempty"`
	Network   *NetworkInspection   `json:"network,omitempty"`
	Kube      *KubeSpec            `json:"kube,omitempty"`
}

// Name returns the resource name of the input, used for unit file naming.
func (in Input) Name() string {
	switch in.Kind {
	case KindContainer:
		if in.Container != nil {
			return in.Container.Name
		}
	case KindPod:
		if in.Pod != nil {
			return in.Pod.Name
		}
	case KindVolume:
		if in.Volume != nil {
			return in.Volume.Name
		}
	case KindNetwork:
		if in.Network != nil {
			return in.Network.Name
		}
	case KindImage:
		if in.Image != nil {
			return in.Image.Reference
		}
	case KindKube:
		if in.Kube != nil {
			return in.Kube.YAMLPath
		}
	}
	return ""
}
