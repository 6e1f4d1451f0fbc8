// Package inspect fetches engine inspection records and normalizes them for
// the quadlet generator.
package inspect

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/trly/quadlet-gen/internal/quadlet"
)

// Source provides normalized inspection records by name.
type Source interface {
	Container(ctx context.Context, name string) (quadlet.ContainerInspection, error)
	Image(ctx context.Context, ref string) (quadlet.ImageInspection, error)
	Pod(ctx context.Context, name string) (quadlet.PodInspection, error)
	Volume(ctx context.Context, name string) (quadlet.VolumeInspection, error)
	Network(ctx context.Context, name string) (quadlet.NetworkInspection, error)
}

// Load fetches every record the kind needs to generate one unit.
//
// A container's image is looked up by reference; when the image is gone the
// container is generated without image defaults. A pod ID on the container
// is resolved to the pod name.
func Load(ctx context.Context, src Source, kind quadlet.Kind, name string) (quadlet.Input, error) {
	in := quadlet.Input{Kind: kind}

	switch kind {
	case quadlet.KindContainer:
		c, err := src.Container(ctx, name)
		if err != nil {
			return in, err
		}
		if c.Pod != "" {
			pod, err := src.Pod(ctx, c.Pod)
			switch {
			case err == nil:
				c.Pod = pod.Name
			case !IsNotFoundError(err):
				return in, fmt.Errorf("resolving pod of container %s: %w", name, err)
			}
		}
		in.Container = &c

		img, err := src.Image(ctx, c.Image)
		switch {
		case err == nil:
			in.Image = &img
		case !IsNotFoundError(err):
			return in, fmt.Errorf("inspecting image of container %s: %w", name, err)
		}

	case quadlet.KindImage:
		img, err := src.Image(ctx, name)
		if err != nil {
			return in, err
		}
		if !strings.HasPrefix(img.ID, name) {
			img.Reference = name
		}
		in.Image = &img

	case quadlet.KindPod:
		pod, err := src.Pod(ctx, name)
		if err != nil {
			return in, err
		}
		in.Pod = &pod

	case quadlet.KindVolume:
		vol, err := src.Volume(ctx, name)
		if err != nil {
			return in, err
		}
		in.Volume = &vol

	case quadlet.KindNetwork:
		n, err := src.Network(ctx, name)
		if err != nil {
			return in, err
		}
		in.Network = &n

	case quadlet.KindKube:
		path, err := filepath.Abs(name)
		if err != nil {
			return in, fmt.Errorf("resolving kube file %s: %w", name, err)
		}
		in.Kube = &quadlet.KubeSpec{YAMLPath: path}

	default:
		return in, &quadlet.UnsupportedKindError{Kind: string(kind)}
	}

	return in, nil
}
