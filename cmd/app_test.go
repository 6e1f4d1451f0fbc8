package cmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trly/quadlet-gen/internal/inspect"
	"github.com/trly/quadlet-gen/internal/testutil"
)

func TestApp_Source(t *testing.T) {
	ctx := context.Background()

	t.Run("exec by default", func(t *testing.T) {
		app := NewAppBuilder(t).Build(t)
		src, err := app.Source(ctx, SourceOptions{})
		require.NoError(t, err)
		assert.IsType(t, &inspect.ExecSource{}, src)

		again, err := app.Source(ctx, SourceOptions{Source: "file"})
		require.NoError(t, err)
		assert.Same(t, src, again, "the source is built once")
	})

	t.Run("file", func(t *testing.T) {
		app := NewAppBuilder(t).Build(t)
		src, err := app.Source(ctx, SourceOptions{Source: "file", ImageFile: "image.json"})
		require.NoError(t, err)
		assert.Equal(t, &inspect.FileSource{ImagePath: "image.json"}, src)
	})

	t.Run("configured source", func(t *testing.T) {
		app := NewAppBuilder(t).WithConfig(testutil.WithSource("file")).Build(t)
		src, err := app.Source(ctx, SourceOptions{})
		require.NoError(t, err)
		assert.IsType(t, &inspect.FileSource{}, src)
	})

	t.Run("invalid", func(t *testing.T) {
		app := NewAppBuilder(t).Build(t)
		_, err := app.Source(ctx, SourceOptions{Source: "docker"})
		assert.ErrorContains(t, err, "invalid source: docker")
	})
}

func TestApp_History(t *testing.T) {
	app := NewAppBuilder(t).Build(t)

	repo, err := app.History()
	require.NoError(t, err)
	again, err := app.History()
	require.NoError(t, err)
	assert.Same(t, repo, again)

	require.NoError(t, app.Close())
	require.NoError(t, app.Close())
}
