package inspect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	nettypes "github.com/containers/common/libnetwork/types"
	"github.com/containers/podman/v5/libpod/define"
	podmaninspect "github.com/containers/podman/v5/pkg/inspect"

	"github.com/trly/quadlet-gen/internal/execx"
	"github.com/trly/quadlet-gen/internal/log"
	"github.com/trly/quadlet-gen/internal/quadlet"
)

// DefaultPodmanBinary is the podman executable looked up on PATH.
const DefaultPodmanBinary = "podman"

// ExecSource inspects objects by running the podman CLI.
type ExecSource struct {
	runner execx.Runner
	binary string
	logger log.Logger
}

// NewExecSource creates an ExecSource running binary through runner.
func NewExecSource(runner execx.Runner, binary string, logger log.Logger) *ExecSource {
	if binary == "" {
		binary = DefaultPodmanBinary
	}
	return &ExecSource{runner: runner, binary: binary, logger: logger}
}

// Container implements Source.
func (s *ExecSource) Container(ctx context.Context, name string) (quadlet.ContainerInspection, error) {
	data, err := execInspect[define.InspectContainerData](ctx, s, "container", name)
	if err != nil {
		return quadlet.ContainerInspection{}, err
	}
	return FromPodmanContainer(data)
}

// Image implements Source.
func (s *ExecSource) Image(ctx context.Context, ref string) (quadlet.ImageInspection, error) {
	data, err := execInspect[podmaninspect.ImageData](ctx, s, "image", ref)
	if err != nil {
		return quadlet.ImageInspection{}, err
	}
	return FromPodmanImage(data), nil
}

// Pod implements Source.
func (s *ExecSource) Pod(ctx context.Context, name string) (quadlet.PodInspection, error) {
	data, err := execInspect[define.InspectPodData](ctx, s, "pod", name)
	if err != nil {
		return quadlet.PodInspection{}, err
	}
	return FromPodmanPod(data)
}

// Volume implements Source.
func (s *ExecSource) Volume(ctx context.Context, name string) (quadlet.VolumeInspection, error) {
	data, err := execInspect[define.InspectVolumeData](ctx, s, "volume", name)
	if err != nil {
		return quadlet.VolumeInspection{}, err
	}
	return FromPodmanVolume(data), nil
}

// Network implements Source.
func (s *ExecSource) Network(ctx context.Context, name string) (quadlet.NetworkInspection, error) {
	data, err := execInspect[nettypes.Network](ctx, s, "network", name)
	if err != nil {
		return quadlet.NetworkInspection{}, err
	}
	return FromPodmanNetwork(data), nil
}

func execInspect[T any](ctx context.Context, s *ExecSource, kind, name string) (*T, error) {
	s.logger.Debug("Inspecting object", "kind", kind, "name", name)

	out, err := s.runner.Output(ctx, s.binary, kind, "inspect", name)
	if err != nil {
		if isNoSuchObject(err.Error()) {
			return nil, &NotFoundError{Kind: kind, Name: name}
		}
		return nil, fmt.Errorf("%s %s inspect %s: %w", s.binary, kind, name, err)
	}

	return decodeFirst[T](kind, name, out)
}

// decodeFirst decodes the first element of an inspect array. A bare object
// is accepted as well.
func decodeFirst[T any](kind, name string, data []byte) (*T, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, &NotFoundError{Kind: kind, Name: name}
	}

	if data[0] != '[' {
		v := new(T)
		if err := json.Unmarshal(data, v); err != nil {
			return nil, &DecodeError{Kind: kind, Name: name, Err: err}
		}
		return v, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, &DecodeError{Kind: kind, Name: name, Err: err}
	}
	if len(items) == 0 {
		return nil, &NotFoundError{Kind: kind, Name: name}
	}

	v := new(T)
	if err := json.Unmarshal(items[0], v); err != nil {
		return nil, &DecodeError{Kind: kind, Name: name, Err: err}
	}
	return v, nil
}

// noSuchObjectMarkers are fragments of podman's lookup failure messages.
var noSuchObjectMarkers = []string{"no such", "not found", "not known"}

func isNoSuchObject(msg string) bool {
	msg = strings.ToLower(msg)
	for _, m := range noSuchObjectMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}
