package quadlet

import (
	"slices"
	"strings"
)

// Engine defaults. A container reporting one of these values did not ask
// for it, so no directive is emitted.
const (
	defaultCPUShares   = 1024
	defaultPidsLimit   = 2048
	defaultShmSize     = 65536000
	defaultStopSignal  = "SIGTERM"
	defaultStopTimeout = 10
)

// defaultPath is the PATH podman injects when the image does not set one.
const defaultPath = "/usr/local/sbin:/usr/local/bin:/usr/sbin:/usr/bin:/sbin:/bin"

// runtimeEnv lists variables the engine injects into every container when
// the image does not define them. TERM is only injected for terminals and
// is carried like any other variable.
var runtimeEnv = map[string]string{
	"container": "podman",
	"HOME":      "/root",
	"PATH":      defaultPath,
}

// Label keys consumed by dedicated directives.
const (
	labelAutoUpdate = "io.containers.autoupdate"
	labelDependsOn  = "com.docker.compose.depends_on"
	labelService    = "com.docker.compose.service"
)

// runtimeLabelKeys are bookkeeping labels written by tooling at run time.
var runtimeLabelKeys = []string{
	"PODMAN_SYSTEMD_UNIT",
	labelAutoUpdate,
}

// runtimeLabelPrefixes mark label families owned by orchestration tools.
var runtimeLabelPrefixes = []string{
	"com.docker.compose.",
	"io.podman.compose.",
	"io.kubernetes.",
}

// defaultNetworks are the engine's implicit networks.
var defaultNetworks = []string{"podman", "bridge", "default"}

// networkModes are network settings that replace named attachments.
var networkModes = []string{"host", "none", "private", "pasta", "slirp4netns"}

// networkModePrefixes are network settings that take an argument.
var networkModePrefixes = []string{"container:", "ns:", "pasta:", "slirp4netns:"}

// sameStrings reports whether two sequences are equal element by element.
// A nil and an empty sequence are equal.
func sameStrings(a, b []string) bool {
	return slices.Equal(a, b)
}

// inherited reports whether a container value restates the image default.
// An empty container value is treated as inherited.
func inherited[T comparable](container, image T) bool {
	var zero T
	return container == zero || container == image
}

func isRuntimeLabel(key string) bool {
	if slices.Contains(runtimeLabelKeys, key) {
		return true
	}
	for _, p := range runtimeLabelPrefixes {
		if strings.HasPrefix(key, p) {
			return true
		}
	}
	return false
}

func isDefaultNetwork(name string) bool {
	return slices.Contains(defaultNetworks, name)
}

func isNetworkMode(mode string) bool {
	if slices.Contains(networkModes, mode) {
		return true
	}
	for _, p := range networkModePrefixes {
		if strings.HasPrefix(mode, p) {
			return true
		}
	}
	return false
}
