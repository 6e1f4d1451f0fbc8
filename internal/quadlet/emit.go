package quadlet

import (
	"encoding/json"
	"fmt"
	"net/netip"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/alessio/shellescape"
)

// emitter accumulates the directives of one section group. Emission
// failures are recorded rather than returned so every group runs.
type emitter struct {
	errs *collector
	dirs []Directive
}

// scalar emits key=value with escaping. Empty values emit nothing.
func (e *emitter) scalar(field, key, value string) {
	if value == "" {
		return
	}
	escaped, err := Escape(field, value)
	if err != nil {
		e.errs.merge(err)
		return
	}
	e.dirs = append(e.dirs, Directive{Key: key, Value: escaped})
}

// raw emits a value already formatted for its directive, such as a JSON
// array or shell-quoted words. Only line breaks are rejected.
func (e *emitter) raw(field, key, value string) {
	if value == "" {
		return
	}
	if strings.ContainsAny(value, "\n\r") {
		e.errs.add(field, "value contains a line break")
		return
	}
	e.dirs = append(e.dirs, Directive{Key: key, Value: value})
}

// pair emits a KEY=VALUE directive such as Environment= or Label=.
func (e *emitter) pair(field, key, k, v string) {
	escaped, err := EscapePair(field, k, v)
	if err != nil {
		e.errs.merge(err)
		return
	}
	e.dirs = append(e.dirs, Directive{Key: key, Value: escaped})
}

// repeated emits one escaped directive per value, in order.
func (e *emitter) repeated(field, key string, values []string) {
	for i, v := range values {
		e.scalar(fmt.Sprintf("%s[%d]", field, i), key, v)
	}
}

func (e *emitter) flag(key string, on bool) {
	if on {
		e.dirs = append(e.dirs, Directive{Key: key, Value: "yes"})
	}
}

func (e *emitter) number(key string, v int64) {
	if v != 0 {
		e.dirs = append(e.dirs, Directive{Key: key, Value: strconv.FormatInt(v, 10)})
	}
}

// formatHostIP brackets IPv6 addresses and drops the wildcard address.
func formatHostIP(ip string) string {
	if ip == "" || ip == "0.0.0.0" {
		return ""
	}
	if addr, err := netip.ParseAddr(ip); err == nil && addr.Is6() {
		return "[" + ip + "]"
	}
	return ip
}

// formatPort renders [hostIP:]hostPort:containerPort[/protocol].
func formatPort(p PortBinding) string {
	s := fmt.Sprintf("%d:%d", p.HostPort, p.ContainerPort)
	if ip := formatHostIP(p.HostIP); ip != "" {
		s = ip + ":" + s
	}
	if p.Protocol != "" && p.Protocol != ProtocolTCP {
		s += "/" + string(p.Protocol)
	}
	return s
}

func emitPorts(e *emitter, field string, ports []PortBinding) {
	values := make([]string, 0, len(ports))
	for _, p := range ports {
		values = append(values, formatPort(p))
	}
	e.repeated(field, "PublishPort", values)
}

func mountOptions(m MountSpec) []string {
	var opts []string
	if m.ReadOnly {
		opts = append(opts, "ro")
	}
	for _, o := range m.Options {
		if o == "" || (m.ReadOnly && o == "ro") || slices.Contains(opts, o) {
			continue
		}
		opts = append(opts, o)
	}
	return opts
}

// formatMount renders [source:]destination[:options].
func formatMount(m MountSpec) string {
	s := m.Destination
	if m.Type != MountTypeTmpfs && m.Source != "" {
		s = m.Source + ":" + s
	}
	if opts := mountOptions(m); len(opts) > 0 {
		s += ":" + strings.Join(opts, ",")
	}
	return s
}

// emitMounts renders volumes before tmpfs mounts, each in input order.
func emitMounts(e *emitter, mounts []MountSpec) {
	var volumes, tmpfs []string
	for _, m := range mounts {
		if m.Type == MountTypeTmpfs {
			tmpfs = append(tmpfs, formatMount(m))
		} else {
			volumes = append(volumes, formatMount(m))
		}
	}
	e.repeated("mounts", "Volume", volumes)
	e.repeated("mounts", "Tmpfs", tmpfs)
}

// formatNetwork renders name[:ip=...,ip6=...,alias=...].
func formatNetwork(a NetworkAttachment) string {
	var opts []string
	if a.IPv4 != "" {
		opts = append(opts, "ip="+a.IPv4)
	}
	if a.IPv6 != "" {
		opts = append(opts, "ip6="+a.IPv6)
	}
	for _, alias := range a.Aliases {
		opts = append(opts, "alias="+alias)
	}
	if len(opts) == 0 {
		return a.Name
	}
	return a.Name + ":" + strings.Join(opts, ",")
}

func emitNetworks(e *emitter, mode string, networks []NetworkAttachment) {
	e.scalar("networkMode", "Network", mode)
	for i, a := range networks {
		e.scalar(fmt.Sprintf("networks[%d]", i), "Network", formatNetwork(a))
	}
}

func emitEnv(e *emitter, env []EnvEntry) {
	for _, kv := range env {
		e.pair("env["+kv.Key+"]", "Environment", kv.Key, kv.Value)
	}
}

func emitLabels(e *emitter, field string, labels []Label) {
	for _, l := range labels {
		e.pair(field+"["+l.Key+"]", "Label", l.Key, l.Value)
	}
}

// formatBytes renders a byte count with the largest exact unit suffix.
func formatBytes(n int64) string {
	switch {
	case n%(1<<30) == 0:
		return fmt.Sprintf("%dg", n>>30)
	case n%(1<<20) == 0:
		return fmt.Sprintf("%dm", n>>20)
	case n%(1<<10) == 0:
		return fmt.Sprintf("%dk", n>>10)
	}
	return strconv.FormatInt(n, 10)
}

func emitResources(e *emitter, r Resources) {
	if r.MemoryLimit > 0 {
		e.scalar("resources.memoryLimit", "Memory", formatBytes(r.MemoryLimit))
	}
	if r.ShmSize > 0 {
		e.scalar("resources.shmSize", "ShmSize", formatBytes(r.ShmSize))
	}
	e.number("PidsLimit", r.PidsLimit)
	if r.CPUShares > 0 {
		e.raw("resources.cpuShares", "PodmanArgs", fmt.Sprintf("--cpu-shares %d", r.CPUShares))
	}
	if r.CPUQuota > 0 {
		e.raw("resources.cpuQuota", "PodmanArgs", fmt.Sprintf("--cpu-quota %d", r.CPUQuota))
	}
	if r.CPUPeriod > 0 {
		e.raw("resources.cpuPeriod", "PodmanArgs", fmt.Sprintf("--cpu-period %d", r.CPUPeriod))
	}
}

// formatDuration renders d with the largest unit that represents it
// exactly, falling back to Go duration syntax.
func formatDuration(d time.Duration) string {
	switch {
	case d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour)
	case d%time.Minute == 0:
		return fmt.Sprintf("%dm", d/time.Minute)
	case d%time.Second == 0:
		return fmt.Sprintf("%ds", d/time.Second)
	}
	return d.String()
}

// emitHealthCheck renders the CMD form as a JSON array, which podman reads
// as an exec-form command, and the CMD-SHELL form as a plain string.
func emitHealthCheck(e *emitter, hc *HealthCheck) {
	if hc == nil {
		return
	}
	if isDisabledHealthCheck(hc) {
		e.raw("healthCheck.test", "HealthCmd", "none")
		return
	}

	switch hc.Test[0] {
	case "CMD":
		e.raw("healthCheck.test", "HealthCmd", jsonArray(hc.Test[1:]))
	case "CMD-SHELL":
		e.scalar("healthCheck.test", "HealthCmd", hc.Test[1])
	}
	if hc.Interval > 0 {
		e.raw("healthCheck.interval", "HealthInterval", formatDuration(hc.Interval))
	}
	if hc.Timeout > 0 {
		e.raw("healthCheck.timeout", "HealthTimeout", formatDuration(hc.Timeout))
	}
	e.number("HealthRetries", int64(hc.Retries))
	if hc.StartPeriod > 0 {
		e.raw("healthCheck.startPeriod", "HealthStartPeriod", formatDuration(hc.StartPeriod))
	}
}

// emitRestart renders the [Service] restart directive. The engine's
// unless-stopped has no systemd equivalent and maps to always.
func emitRestart(e *emitter, rp RestartPolicy) {
	switch rp.Name {
	case RestartOnFailure:
		e.raw("restartPolicy.name", "Restart", "on-failure")
	case RestartAlways, RestartUnlessStopped:
		e.raw("restartPolicy.name", "Restart", "always")
	}
}

// emitStartLimit bounds an on-failure policy to the first start plus
// MaxRetries restarts. The window never resets, so the unit gives up for
// good once the budget is spent. Zero retries means no bound.
func emitStartLimit(e *emitter, rp RestartPolicy) {
	if rp.Name != RestartOnFailure || rp.MaxRetries <= 0 {
		return
	}
	e.raw("restartPolicy.maxRetries", "StartLimitIntervalSec", "infinity")
	e.number("StartLimitBurst", int64(rp.MaxRetries)+1)
}

func emitSecurity(e *emitter, s securitySettings) {
	e.flag("ReadOnly", s.readOnly)
	e.flag("NoNewPrivileges", s.noNewPrivileges)
	e.flag("SecurityLabelDisable", s.labelDisable)
	e.scalar("security.securityOpt", "SecurityLabelType", s.labelType)
	e.scalar("security.securityOpt", "SecurityLabelLevel", s.labelLevel)
	e.scalar("security.securityOpt", "SeccompProfile", s.seccompProfile)
	e.repeated("security.capAdd", "AddCapability", s.capAdd)
	e.repeated("security.capDrop", "DropCapability", s.capDrop)
	if s.privileged {
		e.raw("security.privileged", "PodmanArgs", "--privileged")
	}
	for i, opt := range s.securityOpts {
		e.raw(fmt.Sprintf("security.securityOpt[%d]", i), "PodmanArgs", "--security-opt="+shellescape.Quote(opt))
	}
}

// jsonArray renders words as a JSON array without HTML escaping.
func jsonArray(words []string) string {
	var b strings.Builder
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	// Encoding a string slice cannot fail.
	_ = enc.Encode(words)
	return strings.TrimSuffix(b.String(), "\n")
}

// emitExecution renders the user, working directory, entrypoint and
// command. A single-word entrypoint is a plain value; longer ones use the
// JSON array form podman accepts for --entrypoint. Command words are shell
// quoted so that systemd word splitting restores them.
func emitExecution(e *emitter, user, workingDir string, entrypoint, command []string) {
	e.scalar("user", "User", user)
	e.scalar("workingDir", "WorkingDir", workingDir)
	switch len(entrypoint) {
	case 0:
	case 1:
		e.scalar("entrypoint", "Entrypoint", entrypoint[0])
	default:
		e.raw("entrypoint", "Entrypoint", jsonArray(entrypoint))
	}
	if len(command) > 0 {
		words := make([]string, 0, len(command))
		for _, w := range command {
			words = append(words, shellescape.Quote(w))
		}
		e.raw("command", "Exec", strings.Join(words, " "))
	}
}

func emitStop(e *emitter, signal string, timeout uint) {
	e.scalar("stopSignal", "StopSignal", signal)
	e.number("StopTimeout", int64(timeout))
}

func emitDependencies(e *emitter, deps []string) {
	units := make([]string, 0, len(deps))
	for _, d := range deps {
		units = append(units, d+".service")
	}
	e.repeated("labels["+labelDependsOn+"]", "Requires", units)
	e.repeated("labels["+labelDependsOn+"]", "After", units)
}
