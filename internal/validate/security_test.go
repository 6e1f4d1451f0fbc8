package validate

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trly/quadlet-gen/internal/quadlet"
)

func TestSanitizeForLogging(t *testing.T) {
	tests := []struct {
		key, value, expected string
	}{
		{"DB_PASSWORD", "hunter22", "hu****22"},
		{"API_TOKEN", "abc", "[REDACTED]"},
		{"TZ", "Europe/Berlin", "Europe/Berlin"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeForLogging(tt.key, tt.value))
		})
	}
}

func TestSensitiveEnvironment(t *testing.T) {
	doc, err := quadlet.Build(quadlet.Input{
		Kind: quadlet.KindContainer,
		Container: &quadlet.ContainerInspection{
			Name:  "db",
			Image: "docker.io/library/postgres:16",
			Env:   []string{"POSTGRES_PASSWORD=changeme", "PGDATA=/var/lib/postgresql/data", "AWS_ACCESS_KEY=AKIA"},
		},
	}, quadlet.Options{})
	require.NoError(t, err)

	assert.Equal(t, []string{"POSTGRES_PASSWORD", "AWS_ACCESS_KEY"}, SensitiveEnvironment(doc))
}

func TestPathWithinBase(t *testing.T) {
	base := t.TempDir()

	got, err := PathWithinBase("web.container", base)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "web.container"), got)

	got, err = PathWithinBase(filepath.Join(base, "nested", "db.container"), base)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(base, "nested", "db.container"), got)

	_, err = PathWithinBase("../escape.container", base)
	require.Error(t, err)

	_, err = PathWithinBase("/etc/passwd", base)
	require.Error(t, err)

	_, err = PathWithinBase("", base)
	require.Error(t, err)
}
