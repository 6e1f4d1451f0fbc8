package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trly/quadlet-gen/internal/config"
	"github.com/trly/quadlet-gen/internal/log"
	"github.com/trly/quadlet-gen/internal/quadlet"
)

func newProvider(dir string) config.Provider {
	provider := config.NewDefaultConfigProvider()
	provider.SetConfig(&config.Settings{OutputDir: dir})
	return provider
}

func TestUnitPath(t *testing.T) {
	tests := []struct {
		name     string
		in       quadlet.Input
		expected string
	}{
		{
			name:     "container unit",
			in:       quadlet.Input{Kind: quadlet.KindContainer, Container: &quadlet.ContainerInspection{Name: "/web"}},
			expected: "/test/units/web.container",
		},
		{
			name:     "volume unit",
			in:       quadlet.Input{Kind: quadlet.KindVolume, Volume: &quadlet.VolumeInspection{Name: "data"}},
			expected: "/test/units/data.volume",
		},
		{
			name:     "network unit",
			in:       quadlet.Input{Kind: quadlet.KindNetwork, Network: &quadlet.NetworkInspection{Name: "backend"}},
			expected: "/test/units/backend.network",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewServiceWithLogger(newProvider("/test/units"), log.Nop())
			result, err := service.UnitPath(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}

	t.Run("unsupported kind", func(t *testing.T) {
		service := NewServiceWithLogger(newProvider("/test/units"), log.Nop())
		_, err := service.UnitPath(quadlet.Input{Kind: "build"})
		assert.True(t, quadlet.IsUnsupportedKindError(err))
	})
}

func TestHasUnitChanged(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name            string
		existingContent string
		newContent      string
		fileExists      bool
		expected        bool
	}{
		{
			name:       "file doesn't exist",
			newContent: "new content",
			expected:   true,
		},
		{
			name:            "content unchanged",
			existingContent: "same content",
			newContent:      "same content",
			fileExists:      true,
			expected:        false,
		},
		{
			name:            "content changed",
			existingContent: "old content",
			newContent:      "new content",
			fileExists:      true,
			expected:        true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unitPath := filepath.Join(tempDir, "test.container")
			t.Cleanup(func() { _ = os.Remove(unitPath) })

			if tt.fileExists {
				require.NoError(t, os.WriteFile(unitPath, []byte(tt.existingContent), 0600))
			}

			service := NewServiceWithLogger(newProvider(tempDir), log.Nop())
			assert.Equal(t, tt.expected, service.HasUnitChanged(unitPath, tt.newContent))
		})
	}
}

func TestWriteUnitFile(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name     string
		unitPath string
		content  string
	}{
		{
			name:     "successful write",
			unitPath: filepath.Join(tempDir, "test.container"),
			content:  "[Container]\nImage=nginx\n",
		},
		{
			name:     "write with subdirectory creation",
			unitPath: filepath.Join(tempDir, "subdir", "test.container"),
			content:  "[Volume]\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewServiceWithLogger(newProvider(tempDir), log.Nop())
			require.NoError(t, service.WriteUnitFile(tt.unitPath, tt.content))

			writtenContent, err := os.ReadFile(tt.unitPath)
			require.NoError(t, err)
			assert.Equal(t, tt.content, string(writtenContent))

			info, err := os.Stat(tt.unitPath)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0644), info.Mode().Perm())
		})
	}
}

func TestContentHash(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{
			name:     "empty content",
			content:  "",
			expected: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
		},
		{
			name:     "simple content",
			content:  "hello world",
			expected: "b94d27b9934d3e08a52e52d7da7dabfac484efe37a5380ee9088f7ace2efcde9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ContentHash(tt.content))
		})
	}
}

func TestServiceWithConfigProvider(t *testing.T) {
	fsService := NewService(newProvider("/test/custom/units"))
	assert.Equal(t, "/test/custom/units", fsService.UnitDirectory())

	unitPath, err := fsService.UnitPath(quadlet.Input{Kind: quadlet.KindPod, Pod: &quadlet.PodInspection{Name: "media"}})
	require.NoError(t, err)
	assert.Equal(t, "/test/custom/units/media.pod", unitPath)
}
