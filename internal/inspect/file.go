package inspect

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	nettypes "github.com/containers/common/libnetwork/types"
	"github.com/containers/podman/v5/libpod/define"
	podmaninspect "github.com/containers/podman/v5/pkg/inspect"

	"github.com/trly/quadlet-gen/internal/quadlet"
)

// FileSource reads saved podman inspect JSON. Names are file paths.
//
// Image lookups by reference are answered from ImagePath and pod lookups
// from PodPath; when those are unset the lookup reports NotFoundError.
type FileSource struct {
	ImagePath string
	PodPath   string
}

// Container implements Source.
func (s *FileSource) Container(_ context.Context, path string) (quadlet.ContainerInspection, error) {
	data, err := readInspect[define.InspectContainerData]("container", path)
	if err != nil {
		return quadlet.ContainerInspection{}, err
	}
	return FromPodmanContainer(data)
}

// Image implements Source. When ImagePath is set it is read regardless of
// ref.
func (s *FileSource) Image(_ context.Context, ref string) (quadlet.ImageInspection, error) {
	path := s.ImagePath
	if path == "" {
		if _, err := os.Stat(ref); err != nil {
			return quadlet.ImageInspection{}, &NotFoundError{Kind: "image", Name: ref}
		}
		path = ref
	}
	data, err := readInspect[podmaninspect.ImageData]("image", path)
	if err != nil {
		return quadlet.ImageInspection{}, err
	}
	return FromPodmanImage(data), nil
}

// Pod implements Source.
func (s *FileSource) Pod(_ context.Context, name string) (quadlet.PodInspection, error) {
	path := name
	if s.PodPath != "" {
		path = s.PodPath
	}
	data, err := readInspect[define.InspectPodData]("pod", path)
	if err != nil {
		return quadlet.PodInspection{}, err
	}
	return FromPodmanPod(data)
}

// Volume implements Source.
func (s *FileSource) Volume(_ context.Context, path string) (quadlet.VolumeInspection, error) {
	data, err := readInspect[define.InspectVolumeData]("volume", path)
	if err != nil {
		return quadlet.VolumeInspection{}, err
	}
	return FromPodmanVolume(data), nil
}

// Network implements Source.
func (s *FileSource) Network(_ context.Context, path string) (quadlet.NetworkInspection, error) {
	data, err := readInspect[nettypes.Network]("network", path)
	if err != nil {
		return quadlet.NetworkInspection{}, err
	}
	return FromPodmanNetwork(data), nil
}

func readInspect[T any](kind, path string) (*T, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // path is supplied by the operator
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Kind: kind, Name: path}
		}
		return nil, fmt.Errorf("reading %s inspect file: %w", kind, err)
	}
	return decodeFirst[T](kind, path, raw)
}
