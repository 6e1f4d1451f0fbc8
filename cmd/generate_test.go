package cmd

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trly/quadlet-gen/internal/quadlet"
	"github.com/trly/quadlet-gen/internal/testutil"
)

const dependsOnLabel = "com.docker.compose.depends_on"

func testSource() *MockSource {
	return &MockSource{
		Containers: map[string]quadlet.ContainerInspection{
			"web": {
				Name:   "web",
				Image:  "docker.io/library/nginx:1.27",
				Labels: map[string]string{dependsOnLabel: "db:service_started:false"},
			},
			"db": {
				Name:  "db",
				Image: "docker.io/library/postgres:17",
			},
			"bad": {
				Name:          "bad",
				Image:         "docker.io/library/alpine:3",
				RestartPolicy: quadlet.RestartPolicy{Name: "sometimes"},
			},
		},
		Volumes: map[string]quadlet.VolumeInspection{
			"data": {Name: "data"},
		},
	}
}

func newGenerateCmd(t *testing.T, app *App) func(args ...string) (string, error) {
	t.Helper()
	return func(args ...string) (string, error) {
		cmd := NewGenerateCommand().GetCobraCommand()
		SetupCommandContext(cmd, app)
		return ExecuteCommandWithCapture(t, cmd, args)
	}
}

func TestGenerateCommand_SingleUnit(t *testing.T) {
	app := NewAppBuilder(t).WithSource(testSource()).WithConfig(withNoInstall()).Build(t)

	out, err := newGenerateCmd(t, app)("db")
	require.NoError(t, err)

	want := "[Container]\nImage=docker.io/library/postgres:17\nContainerName=db\n"
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("unit mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerateCommand_BatchIsOrderedAndLabelled(t *testing.T) {
	app := NewAppBuilder(t).WithSource(testSource()).Build(t)

	out, err := newGenerateCmd(t, app)("web", "db")
	require.NoError(t, err)

	db := strings.Index(out, "# db.container\n")
	web := strings.Index(out, "# web.container\n")
	require.GreaterOrEqual(t, db, 0, out)
	require.Greater(t, web, db, "dependencies come first")
	assert.True(t, strings.HasPrefix(out, "# db.container\n[Container]\n"))
	assert.Contains(t, out, "\n\n# web.container\n")
	assert.Contains(t, out, "WantedBy=default.target")
}

func TestGenerateCommand_InstallOptions(t *testing.T) {
	app := NewAppBuilder(t).WithSource(testSource()).Build(t)
	run := newGenerateCmd(t, app)

	out, err := run("--wanted-by", "multi-user.target", "--description", "Database %N", "db")
	require.NoError(t, err)
	assert.Contains(t, out, "[Unit]\nDescription=Database %N\n")
	assert.Contains(t, out, "[Install]\nWantedBy=multi-user.target\n")

	out, err = run("--no-install", "db")
	require.NoError(t, err)
	assert.NotContains(t, out, "[Install]")
}

func TestGenerateCommand_OtherKinds(t *testing.T) {
	app := NewAppBuilder(t).WithSource(testSource()).WithConfig(withNoInstall()).Build(t)

	out, err := newGenerateCmd(t, app)("--kind", "volume", "data")
	require.NoError(t, err)
	assert.Equal(t, "[Volume]\nVolumeName=data\n", out)
}

func TestGenerateCommand_OutputDir(t *testing.T) {
	dir := t.TempDir()
	app := NewAppBuilder(t).WithSource(testSource()).Build(t)
	run := newGenerateCmd(t, app)

	out, err := run("--output-dir", dir, "web", "db")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+filepath.Join(dir, "db.container"))
	assert.Contains(t, out, "wrote "+filepath.Join(dir, "web.container"))

	content, err := os.ReadFile(filepath.Join(dir, "db.container"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(content), "[Container]\nImage=docker.io/library/postgres:17\n"))

	info, err := os.Stat(filepath.Join(dir, "db.container"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0644), info.Mode().Perm())

	out, err = run("--output-dir", dir, "db")
	require.NoError(t, err)
	assert.Contains(t, out, "unchanged "+filepath.Join(dir, "db.container"))
}

func TestGenerateCommand_Record(t *testing.T) {
	hist := &MockHistory{}
	app := NewAppBuilder(t).WithSource(testSource()).WithHistory(hist).Build(t)
	run := newGenerateCmd(t, app)

	_, err := run("--record", "db")
	require.NoError(t, err)
	_, err = run("--record", "db")
	require.NoError(t, err)

	entries, err := hist.List()
	require.NoError(t, err)
	require.Len(t, entries, 1, "unchanged units are recorded once")
	assert.Equal(t, "db", entries[0].Name)
	assert.Equal(t, "container", entries[0].Kind)
	assert.Len(t, entries[0].InputHash, 64)

	_, err = run("--record", "--wanted-by", "multi-user.target", "db")
	require.NoError(t, err)
	entries, _ = hist.List()
	assert.Len(t, entries, 2)
}

func TestGenerateCommand_MappingErrors(t *testing.T) {
	app := NewAppBuilder(t).WithSource(testSource()).WithConfig(withNoInstall()).Build(t)

	out, err := newGenerateCmd(t, app)("db", "bad")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrGenerationFailed))
	assert.Contains(t, err.Error(), "1 of 2 units")
	assert.Contains(t, out, "Image=docker.io/library/postgres:17", "valid units are still printed")
	assert.NotContains(t, out, "alpine")
}

func TestGenerateCommand_Errors(t *testing.T) {
	app := NewAppBuilder(t).WithSource(testSource()).Build(t)

	t.Run("unknown container", func(t *testing.T) {
		cmd := NewGenerateCommand().GetCobraCommand()
		SetupCommandContext(cmd, app)
		AssertCommandFailure(t, cmd, []string{"ghost"}, "no such container: ghost")
	})

	t.Run("invalid kind", func(t *testing.T) {
		cmd := NewGenerateCommand().GetCobraCommand()
		SetupCommandContext(cmd, app)
		AssertCommandFailure(t, cmd, []string{"--kind", "service", "web"}, "invalid kind: service")
	})

	t.Run("missing name", func(t *testing.T) {
		cmd := NewGenerateCommand().GetCobraCommand()
		SetupCommandContext(cmd, app)
		AssertCommandFailure(t, cmd, []string{}, "requires at least 1 arg")
	})
}

func TestGenerateCommand_Preflight(t *testing.T) {
	validator := &MockValidator{
		PodmanAvailableFunc: func(_ context.Context, _ string) (string, error) {
			return "", errors.New("podman not found")
		},
	}
	app := NewAppBuilder(t).WithSource(testSource()).WithValidator(validator).Build(t)

	cmd := NewGenerateCommand().GetCobraCommand()
	SetupCommandContext(cmd, app)
	AssertCommandFailure(t, cmd, []string{"db"}, "podman not found")
	assert.Equal(t, 1, validator.calls)

	cmd = NewGenerateCommand().GetCobraCommand()
	SetupCommandContext(cmd, app)
	_, err := ExecuteCommandWithCapture(t, cmd, []string{"--kind", "kube", "app.yaml"})
	require.NoError(t, err)
	assert.Equal(t, 1, validator.calls, "kube units need no podman")
}

func TestGenerateCommand_FileSource(t *testing.T) {
	app := NewAppBuilder(t).WithConfig(testutil.WithSource("file")).Build(t)
	testdata := filepath.Join("..", "internal", "inspect", "testdata")

	out, err := newGenerateCmd(t, app)(
		"--image-file", filepath.Join(testdata, "image.json"),
		filepath.Join(testdata, "container.json"),
	)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "[Unit]\n") || strings.HasPrefix(out, "[Container]\n"), out)
	assert.Contains(t, out, "Memory=256m")
	assert.Contains(t, out, "PublishPort=8080:80")
}

func TestGenerateCommand_UnitOptions(t *testing.T) {
	app := NewAppBuilder(t).Build(t)
	app.Config.Description = "configured"
	c := NewGenerateCommand()

	opts := c.unitOptions(app, GenerateOptions{})
	assert.Equal(t, quadlet.Options{Description: "configured", WantedBy: []string{"default.target"}}, opts)

	opts = c.unitOptions(app, GenerateOptions{Description: "flag", WantedBy: []string{"multi-user.target"}})
	assert.Equal(t, quadlet.Options{Description: "flag", WantedBy: []string{"multi-user.target"}}, opts)

	app.Config.NoInstall = true
	opts = c.unitOptions(app, GenerateOptions{WantedBy: []string{"multi-user.target"}})
	assert.Nil(t, opts.WantedBy)
}
