package inspect

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/containers/podman/v5/pkg/bindings"
	"github.com/containers/podman/v5/pkg/bindings/containers"
	"github.com/containers/podman/v5/pkg/bindings/images"
	"github.com/containers/podman/v5/pkg/errorhandling"

	"github.com/trly/quadlet-gen/internal/log"
	"github.com/trly/quadlet-gen/internal/quadlet"
)

// BindingsSource inspects containers and images through the podman REST
// API. Other kinds are delegated to a fallback source.
type BindingsSource struct {
	conn     context.Context
	fallback Source
	logger   log.Logger
}

// NewBindingsSource connects to the podman service at uri.
func NewBindingsSource(ctx context.Context, uri string, fallback Source, logger log.Logger) (*BindingsSource, error) {
	logger.Debug("Connecting to podman API", "uri", uri)

	conn, err := bindings.NewConnection(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("connecting to podman API at %s: %w", uri, err)
	}
	return &BindingsSource{conn: conn, fallback: fallback, logger: logger}, nil
}

// Container implements Source. The connection context carries the request
// lifetime.
func (s *BindingsSource) Container(_ context.Context, name string) (quadlet.ContainerInspection, error) {
	data, err := containers.Inspect(s.conn, name, nil)
	if err != nil {
		return quadlet.ContainerInspection{}, apiError("container", name, err)
	}
	return FromPodmanContainer(data)
}

// Image implements Source.
func (s *BindingsSource) Image(_ context.Context, ref string) (quadlet.ImageInspection, error) {
	report, err := images.GetImage(s.conn, ref, nil)
	if err != nil {
		return quadlet.ImageInspection{}, apiError("image", ref, err)
	}
	return FromPodmanImage(report.ImageData), nil
}

// Pod implements Source.
func (s *BindingsSource) Pod(ctx context.Context, name string) (quadlet.PodInspection, error) {
	return s.fallback.Pod(ctx, name)
}

// Volume implements Source.
func (s *BindingsSource) Volume(ctx context.Context, name string) (quadlet.VolumeInspection, error) {
	return s.fallback.Volume(ctx, name)
}

// Network implements Source.
func (s *BindingsSource) Network(ctx context.Context, name string) (quadlet.NetworkInspection, error) {
	return s.fallback.Network(ctx, name)
}

func apiError(kind, name string, err error) error {
	var model *errorhandling.ErrorModel
	if errors.As(err, &model) && model.ResponseCode == http.StatusNotFound {
		return &NotFoundError{Kind: kind, Name: name}
	}
	return fmt.Errorf("inspecting %s %s: %w", kind, name, err)
}
