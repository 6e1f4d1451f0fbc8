package quadlet

import (
	"path"
	"strings"

	"github.com/coreos/go-systemd/v22/unit"
	"github.com/distribution/reference"
)

const unitNameChars = "-:_.abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// UnitFileName returns the Quadlet file name for in, e.g. "web.container".
// Names containing characters systemd does not accept in unit names are
// escaped the way systemd-escape does.
func UnitFileName(in Input) (string, error) {
	if !isKnownKind(in.Kind) {
		return "", &UnsupportedKindError{Kind: string(in.Kind)}
	}

	name := in.Name()
	switch in.Kind {
	case KindContainer:
		name = strings.TrimPrefix(name, "/")
	case KindImage:
		name = imageBaseName(name)
	case KindKube:
		name = strings.TrimSuffix(path.Base(name), path.Ext(name))
	}
	if name == "" || name == "." || name == "/" {
		return "", &MappingError{Field: "name", Reason: "cannot derive a unit name"}
	}

	if strings.Trim(name, unitNameChars) != "" || strings.HasPrefix(name, ".") {
		name = unit.UnitNameEscape(name)
	}
	return name + "." + string(in.Kind), nil
}

// ServiceName returns the systemd service Quadlet generates for a unit
// file name. Pods and volumes get a kind suffix, matching Quadlet.
func ServiceName(fileName string) string {
	ext := path.Ext(fileName)
	base := strings.TrimSuffix(fileName, ext)
	switch ext {
	case ".container", ".kube":
		return base + ".service"
	case ".pod":
		return base + "-pod.service"
	default:
		return base + "-" + strings.TrimPrefix(ext, ".") + ".service"
	}
}

func isKnownKind(k Kind) bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// imageBaseName returns the last path component of an image reference
// without tag or digest.
func imageBaseName(ref string) string {
	named, err := reference.ParseNormalizedNamed(ref)
	if err != nil {
		return ref
	}
	return path.Base(reference.Path(named))
}

// ServiceKey names a container within a batch: its compose service when
// labelled, otherwise the container name.
func ServiceKey(c *ContainerInspection) string {
	if svc := c.Labels[labelService]; svc != "" {
		return svc
	}
	return strings.TrimPrefix(c.Name, "/")
}

// DependsOn returns the services a container declares it depends on, in
// label order.
func DependsOn(c *ContainerInspection) []string {
	return extractDependencies(c.Labels)
}
