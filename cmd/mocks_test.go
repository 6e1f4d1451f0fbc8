package cmd

import (
	"context"
	"slices"
	"sync"
	"testing"

	"github.com/benbjohnson/clock"

	"github.com/trly/quadlet-gen/internal/config"
	"github.com/trly/quadlet-gen/internal/fs"
	"github.com/trly/quadlet-gen/internal/history"
	"github.com/trly/quadlet-gen/internal/inspect"
	"github.com/trly/quadlet-gen/internal/quadlet"
	"github.com/trly/quadlet-gen/internal/testutil"
	"github.com/trly/quadlet-gen/internal/testutil/fakerunner"
)

// MockValidator implements PodmanValidator for testing.
type MockValidator struct {
	PodmanAvailableFunc func(ctx context.Context, binary string) (string, error)
	calls               int
}

func (m *MockValidator) PodmanAvailable(ctx context.Context, binary string) (string, error) {
	m.calls++
	if m.PodmanAvailableFunc != nil {
		return m.PodmanAvailableFunc(ctx, binary)
	}
	return "5.5.0", nil
}

// MockSource implements inspect.Source from in-memory records.
type MockSource struct {
	Containers map[string]quadlet.ContainerInspection
	Images     map[string]quadlet.ImageInspection
	Pods       map[string]quadlet.PodInspection
	Volumes    map[string]quadlet.VolumeInspection
	Networks   map[string]quadlet.NetworkInspection
}

func lookup[T any](records map[string]T, kind, name string) (T, error) {
	if v, ok := records[name]; ok {
		return v, nil
	}
	var zero T
	return zero, &inspect.NotFoundError{Kind: kind, Name: name}
}

func (m *MockSource) Container(_ context.Context, name string) (quadlet.ContainerInspection, error) {
	return lookup(m.Containers, "container", name)
}

func (m *MockSource) Image(_ context.Context, ref string) (quadlet.ImageInspection, error) {
	return lookup(m.Images, "image", ref)
}

func (m *MockSource) Pod(_ context.Context, name string) (quadlet.PodInspection, error) {
	return lookup(m.Pods, "pod", name)
}

func (m *MockSource) Volume(_ context.Context, name string) (quadlet.VolumeInspection, error) {
	return lookup(m.Volumes, "volume", name)
}

func (m *MockSource) Network(_ context.Context, name string) (quadlet.NetworkInspection, error) {
	return lookup(m.Networks, "network", name)
}

var _ inspect.Source = (*MockSource)(nil)

// MockHistory implements history.Repository in memory.
type MockHistory struct {
	mu      sync.Mutex
	clock   clock.Clock
	entries []history.Entry
}

func (m *MockHistory) Record(entry *history.Entry) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.ID = int64(len(m.entries) + 1)
	if m.clock != nil {
		entry.CreatedAt = m.clock.Now().UTC()
	}
	m.entries = append(m.entries, *entry)
	return entry.ID, nil
}

func (m *MockHistory) Latest(name, kind string) (history.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range slices.Backward(m.entries) {
		if e.Name == name && e.Kind == kind {
			return e, nil
		}
	}
	return history.Entry{}, history.ErrNoHistory
}

func (m *MockHistory) List() ([]history.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := slices.Clone(m.entries)
	slices.Reverse(out)
	return out, nil
}

func (m *MockHistory) FindByName(name string) ([]history.Entry, error) {
	all, _ := m.List()
	var out []history.Entry
	for _, e := range all {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *MockHistory) Changed(name, kind, content string) (bool, error) {
	latest, err := m.Latest(name, kind)
	if err != nil {
		return true, nil
	}
	return latest.ContentHash != fs.ContentHash(content), nil
}

var _ history.Repository = (*MockHistory)(nil)

// AppBuilder assembles an App for command tests.
type AppBuilder struct {
	opts      []testutil.ConfigOption
	validator PodmanValidator
	source    inspect.Source
	history   history.Repository
	clock     clock.Clock
}

func NewAppBuilder(_ *testing.T) *AppBuilder {
	return &AppBuilder{
		validator: &MockValidator{},
		clock:     clock.NewMock(),
		// Units go to stdout unless a test sets an output directory.
		opts: []testutil.ConfigOption{testutil.WithOutputDir("")},
	}
}

func (b *AppBuilder) WithValidator(v PodmanValidator) *AppBuilder {
	b.validator = v
	return b
}

func (b *AppBuilder) WithConfig(opts ...testutil.ConfigOption) *AppBuilder {
	b.opts = append(b.opts, opts...)
	return b
}

func (b *AppBuilder) WithSource(s inspect.Source) *AppBuilder {
	b.source = s
	return b
}

func (b *AppBuilder) WithHistory(h history.Repository) *AppBuilder {
	b.history = h
	return b
}

func (b *AppBuilder) Build(t *testing.T) *App {
	provider := testutil.NewMockConfig(t, b.opts...)
	logger := testutil.NewTestLogger(t)
	return &App{
		Logger:         logger,
		Config:         provider.GetConfig(),
		ConfigProvider: provider,
		Runner:         fakerunner.New(),
		FSService:      fs.NewServiceWithLogger(provider, logger),
		Validator:      b.validator,
		Clock:          b.clock,
		source:         b.source,
		history:        b.history,
	}
}

// withNoInstall drops the [Install] section so units match the bare
// translation.
func withNoInstall() testutil.ConfigOption {
	return func(cfg *config.Settings) {
		cfg.NoInstall = true
	}
}
