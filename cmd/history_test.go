package cmd

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trly/quadlet-gen/internal/history"
)

func TestHistoryCommand_List(t *testing.T) {
	clk := clock.NewMock()
	clk.Set(time.Now().Add(-2 * time.Hour))
	hist := &MockHistory{clock: clk}
	_, _ = hist.Record(&history.Entry{Name: "web", Kind: "container", InputHash: "0123456789abcdef", ContentHash: "fedcba9876543210"})
	_, _ = hist.Record(&history.Entry{Name: "data", Kind: "volume", InputHash: "aaaa", ContentHash: "bbbb"})

	app := NewAppBuilder(t).WithHistory(hist).Build(t)

	cmd := NewHistoryCommand().GetCobraCommand()
	SetupCommandContext(cmd, app)
	AssertCommandOutput(t, cmd, []string{}, "Name", "Recorded", "web", "data", "volume", "fedcba987654", "hours ago")
}

func TestHistoryCommand_FilterByName(t *testing.T) {
	hist := &MockHistory{}
	_, _ = hist.Record(&history.Entry{Name: "web", Kind: "container", CreatedAt: time.Now()})
	_, _ = hist.Record(&history.Entry{Name: "data", Kind: "volume", CreatedAt: time.Now()})

	app := NewAppBuilder(t).WithHistory(hist).Build(t)

	cmd := NewHistoryCommand().GetCobraCommand()
	SetupCommandContext(cmd, app)
	out, err := ExecuteCommandWithCapture(t, cmd, []string{"data"})
	require.NoError(t, err)
	assert.Contains(t, out, "data")
	assert.NotContains(t, out, "web")
}

func TestHistoryCommand_OpensDatabase(t *testing.T) {
	app := NewAppBuilder(t).Build(t)
	t.Cleanup(func() { _ = app.Close() })

	cmd := NewHistoryCommand().GetCobraCommand()
	SetupCommandContext(cmd, app)
	AssertCommandOutput(t, cmd, []string{}, "ID", "Kind")
	assert.FileExists(t, app.Config.HistoryPath())
}
