package quadlet

import (
	"fmt"
	"net/netip"
	"path"
	"slices"
	"strings"
)

// containerFields are the normalized values rendered into a .container
// unit.
type containerFields struct {
	image       string
	name        string
	hostname    string
	pod         string
	ports       []PortBinding
	exposed     []string
	mounts      []MountSpec
	networkMode string
	networks    []NetworkAttachment
	env         []EnvEntry
	labels      []Label
	autoUpdate  string
	resources   Resources
	health      *HealthCheck
	restart     RestartPolicy
	security    securitySettings
	user        string
	workingDir  string
	entrypoint  []string
	command     []string
	stopSignal  string
	stopTimeout uint
	dependsOn   []string
}

// collectContainer runs every container extractor. Extractors are
// independent; all of them run even when earlier ones fail.
func collectContainer(c *ContainerInspection, img *ImageInspection, errs *collector) *containerFields {
	f := &containerFields{
		name:     c.Name,
		hostname: extractHostname(c),
		pod:      podUnitName(c.Pod),
	}
	var err error

	f.image, err = extractImage("image", c.Image)
	errs.merge(err)

	f.ports, err = extractPorts("ports", c.Ports)
	errs.merge(err)

	f.exposed, err = extractExposedPorts(c, img, f.ports)
	errs.merge(err)

	f.mounts, err = extractMounts(c.Mounts)
	errs.merge(err)

	f.networkMode, f.networks, err = extractNetworks(c.NetworkMode, c.Networks, c.Name, c.ID)
	errs.merge(err)

	f.env, err = extractEnv(c, img)
	errs.merge(err)

	f.labels, err = extractLabels("labels", c.Labels, img.Labels)
	errs.merge(err)

	f.autoUpdate, err = extractAutoUpdate(c.Labels)
	errs.merge(err)

	f.dependsOn = extractDependencies(c.Labels)

	f.resources, err = extractResources(c.Resources)
	errs.merge(err)

	f.health, err = extractHealthCheck(c, img)
	errs.merge(err)

	f.restart, err = extractRestartPolicy(c.RestartPolicy)
	errs.merge(err)

	f.security, err = extractSecurity(c.Security)
	errs.merge(err)

	f.user = extractUser(c, img)
	f.workingDir = extractWorkingDir(c, img)
	f.entrypoint, f.command = extractEntrypointCommand(c, img)
	f.stopSignal, f.stopTimeout = extractStop(c, img)

	return f
}

// podUnitName refers to the .pod unit generated for a pod.
func podUnitName(pod string) string {
	if pod == "" || strings.HasSuffix(pod, ".pod") {
		return pod
	}
	return pod + ".pod"
}

type podFields struct {
	name     string
	hostname string
	ports    []PortBinding
	networks []NetworkAttachment
	labels   []Label
}

func collectPod(p *PodInspection, errs *collector) *podFields {
	f := &podFields{name: p.Name}
	if p.Hostname != p.Name {
		f.hostname = p.Hostname
	}
	var err error

	f.ports, err = extractPorts("ports", p.Ports)
	errs.merge(err)

	_, f.networks, err = extractNetworks("", p.Networks, p.Name, "")
	errs.merge(err)

	f.labels, err = extractLabels("labels", p.Labels, nil)
	errs.merge(err)

	return f
}

type volumeFields struct {
	name         string
	driver       string
	fsType       string
	device       string
	mountOptions string
	extraOptions []Label
	labels       []Label
}

func collectVolume(v *VolumeInspection, errs *collector) *volumeFields {
	f := &volumeFields{name: v.Name}
	if v.Name == "" {
		errs.add("name", "volume name is required")
	}
	if v.Driver != "local" {
		f.driver = v.Driver
	}

	for _, k := range sortedKeys(v.Options) {
		value := v.Options[k]
		switch k {
		case "type":
			f.fsType = value
		case "device":
			f.device = value
		case "o":
			f.mountOptions = value
		default:
			f.extraOptions = append(f.extraOptions, Label{Key: k, Value: value})
		}
	}

	var err error
	f.labels, err = extractLabels("labels", v.Labels, nil)
	errs.merge(err)

	return f
}

type networkFields struct {
	name       string
	driver     string
	subnets    []Subnet
	internal   bool
	ipv6       bool
	disableDNS bool
	options    []Label
	labels     []Label
}

func subnetField(i int, name string) string {
	return fmt.Sprintf("subnets[%d].%s", i, name)
}

func collectNetwork(n *NetworkInspection, errs *collector) *networkFields {
	f := &networkFields{
		name:       n.Name,
		internal:   n.Internal,
		ipv6:       n.IPv6,
		disableDNS: !n.DNSEnabled,
	}
	if n.Name == "" {
		errs.add("name", "network name is required")
	}
	if n.Driver != "bridge" {
		f.driver = n.Driver
	}

	for i, s := range n.Subnets {
		if _, err := netip.ParsePrefix(s.Subnet); err != nil {
			errs.add(subnetField(i, "subnet"), "invalid subnet %q", s.Subnet)
			continue
		}
		if s.Gateway != "" {
			if _, err := netip.ParseAddr(s.Gateway); err != nil {
				errs.add(subnetField(i, "gateway"), "invalid gateway %q", s.Gateway)
				continue
			}
		}
		f.subnets = append(f.subnets, s)
	}

	for _, k := range sortedKeys(n.Options) {
		f.options = append(f.options, Label{Key: k, Value: n.Options[k]})
	}

	var err error
	f.labels, err = extractLabels("labels", n.Labels, nil)
	errs.merge(err)

	return f
}

type imageFields struct {
	reference string
}

func collectImage(img *ImageInspection, errs *collector) *imageFields {
	ref, err := extractImage("reference", img.Reference)
	errs.merge(err)
	return &imageFields{reference: ref}
}

type kubeFields struct {
	yamlPath string
	networks []string
	ports    []PortBinding
}

func collectKube(k *KubeSpec, errs *collector) *kubeFields {
	f := &kubeFields{yamlPath: k.YAMLPath}
	if k.YAMLPath == "" {
		errs.add("yamlPath", "kube YAML path is required")
	} else if ext := path.Ext(k.YAMLPath); ext != ".yaml" && ext != ".yml" {
		errs.add("yamlPath", "%q is not a YAML file", k.YAMLPath)
	}

	for i, n := range k.Networks {
		if n == "" {
			errs.add(fmt.Sprintf("networks[%d]", i), "network name is required")
			continue
		}
		f.networks = append(f.networks, n)
	}

	var err error
	f.ports, err = extractPorts("ports", k.Ports)
	errs.merge(err)

	return f
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
