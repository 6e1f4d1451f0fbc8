package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trly/quadlet-gen/internal/config"
)

// TestRootCommandFlags verifies flag parsing.
func TestRootCommandFlags(t *testing.T) {
	cmd := NewRootCommand().GetCobraCommand()

	for _, name := range []string{"user", "verbose"} {
		flag := cmd.PersistentFlags().Lookup(name)
		require.NotNil(t, flag, name)
		assert.Equal(t, "false", flag.DefValue)
	}
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("db-path"))

	var names []string
	for _, sub := range cmd.Commands() {
		names = append(names, sub.Name())
	}
	assert.Subset(t, names, []string{"generate", "diff", "history", "config", "version", "update"})
}

func TestRootCommand_BuildsApp(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	t.Chdir(tmp)

	dbPath := filepath.Join(tmp, "gen.db")
	cmd := NewRootCommand().GetCobraCommand()
	out, err := ExecuteCommandWithCapture(t, cmd, []string{"--db-path", dbPath, "-u", "config", "show"})
	require.NoError(t, err)

	assert.Contains(t, out, "dbPath: "+dbPath)
	assert.Contains(t, out, "userMode: true")
	assert.Equal(t, dbPath, config.GetConfig().DBPath)
}

func TestRootCommand_ConfigFlag(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	tmp := t.TempDir()
	t.Setenv("HOME", tmp)
	t.Chdir(tmp)

	path := filepath.Join(tmp, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("source: file\noutputDir: /srv/units\n"), 0600))

	cmd := NewRootCommand().GetCobraCommand()
	out, err := ExecuteCommandWithCapture(t, cmd, []string{"--config", path, "config", "show"})
	require.NoError(t, err)

	assert.Contains(t, out, "source: file")
	assert.Contains(t, out, "outputDir: /srv/units")
}
