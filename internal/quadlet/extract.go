package quadlet

import (
	"fmt"
	"net/netip"
	"path"
	"slices"
	"strings"
	"time"
	"unicode"

	"github.com/distribution/reference"
	"github.com/docker/go-connections/nat"
)

// extractImage validates the image reference the container runs.
func extractImage(field, ref string) (string, error) {
	if ref == "" {
		return "", &MappingError{Field: field, Reason: "image reference is required"}
	}
	if _, err := reference.ParseAnyReference(ref); err != nil {
		return "", &MappingError{Field: field, Reason: fmt.Sprintf("invalid image reference %q: %v", ref, err)}
	}
	return ref, nil
}

// extractHostname returns the hostname unless the engine derived it from
// the container identity.
func extractHostname(c *ContainerInspection) string {
	h := c.Hostname
	if h == "" || h == strings.TrimPrefix(c.Name, "/") {
		return ""
	}
	if len(h) >= 12 && strings.HasPrefix(c.ID, h) {
		return ""
	}
	return h
}

func normalizeProtocol(p Protocol) (Protocol, bool) {
	switch Protocol(strings.ToLower(string(p))) {
	case "", ProtocolTCP:
		return ProtocolTCP, true
	case ProtocolUDP:
		return ProtocolUDP, true
	case ProtocolSCTP:
		return ProtocolSCTP, true
	}
	return p, false
}

// extractPorts validates port bindings and drops those with an
// auto-assigned host port, which cannot be reproduced declaratively.
func extractPorts(field string, bindings []PortBinding) ([]PortBinding, error) {
	var errs collector
	seen := make(map[string]int, len(bindings))
	ports := make([]PortBinding, 0, len(bindings))

	for i, p := range bindings {
		f := fmt.Sprintf("%s[%d]", field, i)

		proto, ok := normalizeProtocol(p.Protocol)
		if !ok {
			errs.add(f+".protocol", "unknown protocol %q", p.Protocol)
			continue
		}
		if p.ContainerPort == 0 {
			errs.add(f+".containerPort", "port must be between 1 and 65535")
			continue
		}
		if p.HostIP != "" {
			if _, err := netip.ParseAddr(p.HostIP); err != nil {
				errs.add(f+".hostIP", "invalid address %q", p.HostIP)
				continue
			}
		}
		if p.HostPort == 0 {
			continue
		}

		key := fmt.Sprintf("%d/%s", p.HostPort, proto)
		if first, dup := seen[key]; dup {
			errs.add(f+".hostPort", "host port %s is already bound by %s[%d]", key, field, first)
			continue
		}
		seen[key] = i

		p.Protocol = proto
		ports = append(ports, p)
	}

	return ports, errs.err()
}

// extractExposedPorts returns ports the container exposes beyond the image
// defaults, skipping those already published.
func extractExposedPorts(c *ContainerInspection, img *ImageInspection, published []PortBinding) ([]string, error) {
	var errs collector
	imagePorts := make(map[string]bool)
	for _, raw := range img.ExposedPorts {
		if proto, port, err := splitExposedPort(raw); err == nil {
			imagePorts[port+"/"+proto] = true
		}
	}
	for _, p := range published {
		imagePorts[fmt.Sprintf("%d/%s", p.ContainerPort, p.Protocol)] = true
	}

	var exposed []string
	for i, raw := range c.ExposedPorts {
		proto, port, err := splitExposedPort(raw)
		if err != nil {
			errs.add(fmt.Sprintf("exposedPorts[%d]", i), "%v", err)
			continue
		}
		if imagePorts[port+"/"+proto] {
			continue
		}
		imagePorts[port+"/"+proto] = true
		if proto == string(ProtocolTCP) {
			exposed = append(exposed, port)
		} else {
			exposed = append(exposed, port+"/"+proto)
		}
	}
	return exposed, errs.err()
}

func splitExposedPort(raw string) (string, string, error) {
	proto, port := nat.SplitProtoPort(raw)
	if port == "" {
		return "", "", fmt.Errorf("invalid port %q", raw)
	}
	n, err := nat.ParsePort(port)
	if err != nil || n == 0 {
		return "", "", fmt.Errorf("invalid port %q", raw)
	}
	p, ok := normalizeProtocol(Protocol(proto))
	if !ok {
		return "", "", fmt.Errorf("unknown protocol %q", proto)
	}
	return string(p), fmt.Sprint(n), nil
}

// extractMounts validates mounts and resolves their type. An explicit type
// wins; otherwise an absolute source is a bind mount, an empty source an
// anonymous volume and anything else a named volume.
func extractMounts(mounts []MountSpec) ([]MountSpec, error) {
	var errs collector
	out := make([]MountSpec, 0, len(mounts))

	for i, m := range mounts {
		f := fmt.Sprintf("mounts[%d]", i)
		if m.Destination == "" {
			errs.add(f+".destination", "destination is required")
			continue
		}
		if !path.IsAbs(m.Destination) {
			errs.add(f+".destination", "destination %q is not an absolute path", m.Destination)
			continue
		}

		switch m.Type {
		case "":
			if m.Source != "" && path.IsAbs(m.Source) {
				m.Type = MountTypeBind
			} else {
				m.Type = MountTypeVolume
			}
		case MountTypeBind:
			if !path.IsAbs(m.Source) {
				errs.add(f+".source", "bind source %q is not an absolute path", m.Source)
				continue
			}
		case MountTypeVolume, MountTypeTmpfs:
		default:
			errs.add(f+".type", "unknown mount type %q", m.Type)
			continue
		}

		m.Options = slices.Clone(m.Options)
		out = append(out, m)
	}

	return out, errs.err()
}

// parseEnv splits KEY=VALUE entries. When a key repeats, the last value wins
// and the entry keeps the position of its first occurrence.
func parseEnv(field string, raw []string) ([]EnvEntry, error) {
	var errs collector
	index := make(map[string]int, len(raw))
	entries := make([]EnvEntry, 0, len(raw))

	for i, kv := range raw {
		f := fmt.Sprintf("%s[%d]", field, i)
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			errs.add(f, "entry %q is not of the form KEY=VALUE", kv)
			continue
		}
		if key == "" {
			errs.add(f, "empty variable name")
			continue
		}
		if strings.IndexFunc(key, unicode.IsSpace) >= 0 {
			errs.add(f, "variable name %q contains whitespace", key)
			continue
		}
		if pos, dup := index[key]; dup {
			entries[pos].Value = value
			continue
		}
		index[key] = len(entries)
		entries = append(entries, EnvEntry{Key: key, Value: value})
	}

	return entries, errs.err()
}

// envMap indexes image environment entries. Malformed image entries are
// ignored since they cannot be overridden anyway.
func envMap(raw []string) map[string]string {
	m := make(map[string]string, len(raw))
	for _, kv := range raw {
		if key, value, ok := strings.Cut(kv, "="); ok && key != "" {
			m[key] = value
		}
	}
	return m
}

// extractEnv keeps variables absent from the image environment or
// overridden to a different value. Variables injected by the engine at run
// time are dropped.
func extractEnv(c *ContainerInspection, img *ImageInspection) ([]EnvEntry, error) {
	entries, err := parseEnv("env", c.Env)
	imageEnv := envMap(img.Env)

	kept := make([]EnvEntry, 0, len(entries))
	for _, e := range entries {
		if v, ok := imageEnv[e.Key]; ok {
			if v == e.Value {
				continue
			}
		} else if v, ok := runtimeEnv[e.Key]; ok && v == e.Value {
			continue
		}
		if e.Key == "HOSTNAME" && (e.Value == c.Hostname || e.Value == strings.TrimPrefix(c.Name, "/")) {
			continue
		}
		kept = append(kept, e)
	}
	return kept, err
}

// extractEntrypointCommand omits each of entrypoint and command when it
// restates the image default. An overridden entrypoint resets the image
// command, so a non-empty command is then always carried.
func extractEntrypointCommand(c *ContainerInspection, img *ImageInspection) ([]string, []string) {
	var entrypoint, command []string
	if len(c.Entrypoint) > 0 && !sameStrings(c.Entrypoint, img.Entrypoint) {
		entrypoint = slices.Clone(c.Entrypoint)
	}
	if len(c.Command) > 0 && (entrypoint != nil || !sameStrings(c.Command, img.Command)) {
		command = slices.Clone(c.Command)
	}
	return entrypoint, command
}

func extractWorkingDir(c *ContainerInspection, img *ImageInspection) string {
	if inherited(c.WorkingDir, img.WorkingDir) {
		return ""
	}
	if img.WorkingDir == "" && c.WorkingDir == "/" {
		return ""
	}
	return c.WorkingDir
}

func extractUser(c *ContainerInspection, img *ImageInspection) string {
	if inherited(c.User, img.User) {
		return ""
	}
	if img.User == "" && slices.Contains([]string{"root", "0", "0:0", "root:root"}, c.User) {
		return ""
	}
	return c.User
}

// extractRestartPolicy defaults to "no" when the record carries no policy.
func extractRestartPolicy(rp RestartPolicy) (RestartPolicy, error) {
	if rp.Name == "" {
		rp.Name = RestartNo
	}
	switch rp.Name {
	case RestartNo, RestartOnFailure, RestartAlways, RestartUnlessStopped:
	default:
		return RestartPolicy{Name: RestartNo}, &MappingError{Field: "restartPolicy.name", Reason: fmt.Sprintf("unknown restart policy %q", rp.Name)}
	}
	if rp.MaxRetries < 0 {
		return RestartPolicy{Name: RestartNo}, &MappingError{Field: "restartPolicy.maxRetries", Reason: "retry count must not be negative"}
	}
	if rp.MaxRetries > 0 && rp.Name != RestartOnFailure {
		return RestartPolicy{Name: RestartNo}, &MappingError{Field: "restartPolicy.maxRetries", Reason: fmt.Sprintf("retry count only applies to %s", RestartOnFailure)}
	}
	return rp, nil
}

// extractResources keeps only values that differ from the engine defaults.
// A pids limit of -1 means unlimited and is carried.
func extractResources(r Resources) (Resources, error) {
	var errs collector
	var out Resources

	check := func(field string, v int64) bool {
		if v < 0 {
			errs.add("resources."+field, "value must not be negative")
			return false
		}
		return v > 0
	}

	if check("memoryLimit", r.MemoryLimit) {
		out.MemoryLimit = r.MemoryLimit
	}
	if check("cpuShares", r.CPUShares) && r.CPUShares != defaultCPUShares {
		out.CPUShares = r.CPUShares
	}
	if check("cpuQuota", r.CPUQuota) {
		out.CPUQuota = r.CPUQuota
	}
	if check("cpuPeriod", r.CPUPeriod) && out.CPUQuota > 0 && r.CPUPeriod != 100000 {
		out.CPUPeriod = r.CPUPeriod
	}
	if r.PidsLimit == -1 {
		out.PidsLimit = -1
	} else if check("pidsLimit", r.PidsLimit) && r.PidsLimit != defaultPidsLimit {
		out.PidsLimit = r.PidsLimit
	}
	if check("shmSize", r.ShmSize) && r.ShmSize != defaultShmSize {
		out.ShmSize = r.ShmSize
	}

	return out, errs.err()
}

// Health check values podman applies when a unit sets only HealthCmd.
const (
	defaultHealthInterval = 30 * time.Second
	defaultHealthTimeout  = 30 * time.Second
	defaultHealthRetries  = 3
)

func sameHealthCheck(a, b *HealthCheck) bool {
	if a == nil || b == nil {
		return a == b
	}
	return sameStrings(a.Test, b.Test) &&
		a.Interval == b.Interval &&
		a.Timeout == b.Timeout &&
		a.StartPeriod == b.StartPeriod &&
		a.Retries == b.Retries
}

func isDisabledHealthCheck(h *HealthCheck) bool {
	return h != nil && len(h.Test) > 0 && strings.EqualFold(h.Test[0], "NONE")
}

// extractHealthCheck returns nil when the container declares no check or
// restates the image check. A container disabling an image check yields a
// check whose Test is ["NONE"].
func extractHealthCheck(c *ContainerInspection, img *ImageInspection) (*HealthCheck, error) {
	hc := c.HealthCheck
	if hc == nil || len(hc.Test) == 0 {
		return nil, nil
	}
	if isDisabledHealthCheck(hc) {
		if img.HealthCheck != nil && !isDisabledHealthCheck(img.HealthCheck) {
			return &HealthCheck{Test: []string{"NONE"}}, nil
		}
		return nil, nil
	}
	if sameHealthCheck(hc, img.HealthCheck) {
		return nil, nil
	}

	var errs collector
	switch hc.Test[0] {
	case "CMD":
		if len(hc.Test) < 2 {
			errs.add("healthCheck.test", "CMD form requires a command")
		}
	case "CMD-SHELL":
		if len(hc.Test) != 2 {
			errs.add("healthCheck.test", "CMD-SHELL form takes exactly one command string")
		}
	default:
		errs.add("healthCheck.test", "unknown test form %q", hc.Test[0])
	}
	durations := []struct {
		name string
		d    time.Duration
	}{
		{"interval", hc.Interval},
		{"timeout", hc.Timeout},
		{"startPeriod", hc.StartPeriod},
	}
	for _, d := range durations {
		if d.d < 0 {
			errs.add("healthCheck."+d.name, "duration must not be negative")
		}
	}
	if hc.Retries < 0 {
		errs.add("healthCheck.retries", "retry count must not be negative")
	}
	if err := errs.err(); err != nil {
		return nil, err
	}

	out := &HealthCheck{Test: slices.Clone(hc.Test)}
	if hc.Interval != defaultHealthInterval {
		out.Interval = hc.Interval
	}
	if hc.Timeout != defaultHealthTimeout {
		out.Timeout = hc.Timeout
	}
	if hc.Retries != defaultHealthRetries {
		out.Retries = hc.Retries
	}
	out.StartPeriod = hc.StartPeriod
	return out, nil
}

// extractLabels returns labels sorted by key, excluding those equal to the
// image default and bookkeeping labels written by tooling.
func extractLabels(field string, labels, imageLabels map[string]string) ([]Label, error) {
	var errs collector
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	out := make([]Label, 0, len(keys))
	for _, k := range keys {
		v := labels[k]
		if k == "" {
			errs.add(field, "empty label key")
			continue
		}
		if strings.IndexFunc(k, unicode.IsSpace) >= 0 {
			errs.add(fmt.Sprintf("%s[%s]", field, k), "label key contains whitespace")
			continue
		}
		if strings.Contains(k, "=") {
			errs.add(fmt.Sprintf("%s[%s]", field, k), "label key contains '='")
			continue
		}
		if isRuntimeLabel(k) {
			continue
		}
		if iv, ok := imageLabels[k]; ok && iv == v {
			continue
		}
		out = append(out, Label{Key: k, Value: v})
	}
	return out, errs.err()
}

// extractAutoUpdate reads the auto-update policy label.
func extractAutoUpdate(labels map[string]string) (string, error) {
	v, ok := labels[labelAutoUpdate]
	if !ok || v == "" || v == "disabled" {
		return "", nil
	}
	if v != "registry" && v != "local" {
		return "", &MappingError{Field: "labels[" + labelAutoUpdate + "]", Reason: fmt.Sprintf("unknown auto-update policy %q", v)}
	}
	return v, nil
}

// extractDependencies reads service names from the compose depends_on
// label, formatted as "svc:condition:restart" entries separated by commas.
func extractDependencies(labels map[string]string) []string {
	raw := labels[labelDependsOn]
	if raw == "" {
		return nil
	}
	var deps []string
	for _, entry := range strings.Split(raw, ",") {
		name, _, _ := strings.Cut(strings.TrimSpace(entry), ":")
		if name == "" || slices.Contains(deps, name) {
			continue
		}
		deps = append(deps, name)
	}
	return deps
}

// extractNetworks returns either a network mode or the named networks to
// join, sorted by name. Implicit default networks without static addresses
// or aliases are omitted. Aliases derived from the container identity are
// dropped.
func extractNetworks(mode string, attachments []NetworkAttachment, name, id string) (string, []NetworkAttachment, error) {
	switch {
	case mode == "" || isDefaultNetwork(mode):
	case isNetworkMode(mode):
		return mode, nil, nil
	default:
		return "", nil, &MappingError{Field: "networkMode", Reason: fmt.Sprintf("unknown network mode %q", mode)}
	}

	var errs collector
	short := strings.TrimPrefix(name, "/")
	out := make([]NetworkAttachment, 0, len(attachments))
	for i, a := range attachments {
		f := fmt.Sprintf("networks[%d]", i)
		if a.Name == "" {
			errs.add(f+".name", "network name is required")
			continue
		}
		if a.IPv4 != "" {
			if addr, err := netip.ParseAddr(a.IPv4); err != nil || !addr.Is4() {
				errs.add(f+".ipv4", "invalid IPv4 address %q", a.IPv4)
				continue
			}
		}
		if a.IPv6 != "" {
			if addr, err := netip.ParseAddr(a.IPv6); err != nil || !addr.Is6() {
				errs.add(f+".ipv6", "invalid IPv6 address %q", a.IPv6)
				continue
			}
		}

		var aliases []string
		for _, alias := range a.Aliases {
			if alias == "" || alias == short || (id != "" && len(alias) >= 12 && strings.HasPrefix(id, alias)) {
				continue
			}
			if !slices.Contains(aliases, alias) {
				aliases = append(aliases, alias)
			}
		}
		a.Aliases = aliases

		if isDefaultNetwork(a.Name) && a.IPv4 == "" && a.IPv6 == "" && len(a.Aliases) == 0 {
			continue
		}
		out = append(out, a)
	}

	slices.SortStableFunc(out, func(a, b NetworkAttachment) int {
		return strings.Compare(a.Name, b.Name)
	})
	return "", out, errs.err()
}

// securitySettings is the normalized form of SecurityOptions.
type securitySettings struct {
	privileged      bool
	readOnly        bool
	noNewPrivileges bool
	labelDisable    bool
	labelType       string
	labelLevel      string
	seccompProfile  string
	capAdd          []string
	capDrop         []string
	securityOpts    []string
}

// extractSecurity splits security options into those with a dedicated
// directive and the remainder passed through to podman.
func extractSecurity(s SecurityOptions) (securitySettings, error) {
	var errs collector
	out := securitySettings{
		privileged: s.Privileged,
		readOnly:   s.ReadOnly,
		capAdd:     slices.Clone(s.CapAdd),
		capDrop:    slices.Clone(s.CapDrop),
	}

	for i, opt := range s.SecurityOpt {
		f := fmt.Sprintf("security.securityOpt[%d]", i)
		name, value, hasValue := cutOption(opt)
		switch {
		case opt == "":
			errs.add(f, "empty security option")
		case name == "no-new-privileges" && (!hasValue || value == "true"):
			out.noNewPrivileges = true
		case name == "no-new-privileges" && value == "false":
		case name == "label" && value == "disable":
			out.labelDisable = true
		case name == "label" && strings.HasPrefix(value, "type:"):
			out.labelType = strings.TrimPrefix(value, "type:")
		case name == "label" && strings.HasPrefix(value, "level:"):
			out.labelLevel = strings.TrimPrefix(value, "level:")
		case name == "seccomp" && hasValue && value != "":
			out.seccompProfile = value
		default:
			out.securityOpts = append(out.securityOpts, opt)
		}
	}

	for i, c := range out.capAdd {
		if c == "" {
			errs.add(fmt.Sprintf("security.capAdd[%d]", i), "empty capability")
		}
	}
	for i, c := range out.capDrop {
		if c == "" {
			errs.add(fmt.Sprintf("security.capDrop[%d]", i), "empty capability")
		}
	}
	return out, errs.err()
}

// cutOption splits "name=value" or the legacy "name:value" form.
func cutOption(opt string) (string, string, bool) {
	if name, value, ok := strings.Cut(opt, "="); ok {
		return name, value, true
	}
	return strings.Cut(opt, ":")
}

// extractStop returns the stop signal and timeout when they differ from the
// image and engine defaults.
func extractStop(c *ContainerInspection, img *ImageInspection) (string, uint) {
	signal := c.StopSignal
	if inherited(signal, img.StopSignal) || (img.StopSignal == "" && (signal == defaultStopSignal || signal == "15")) {
		signal = ""
	}
	timeout := c.StopTimeout
	if timeout == defaultStopTimeout {
		timeout = 0
	}
	return signal, timeout
}
