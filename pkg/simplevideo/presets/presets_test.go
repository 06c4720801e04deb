package presets_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-video/pkg/simplevideo"
	"github.com/tendant/simple-video/pkg/simplevideo/presets"
	"golang.org/x/sync/errgroup"
)

func TestNewDevelopment(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "dev-data")

	stack, cleanup, err := presets.NewDevelopment(presets.WithDevDataDir(dataDir))
	require.NoError(t, err)

	ctx := context.Background()
	asset, err := stack.Engine.CreateAsset(ctx, simplevideo.CreateAssetRequest{
		Title:         "Dev Clip",
		FileSizeBytes: 64,
		FileFormat:    "mp4",
	}, "dev")
	require.NoError(t, err)

	_, err = stack.Engine.AddVersion(ctx, simplevideo.AddVersionRequest{
		AssetID: asset.ID,
		Reader:  strings.NewReader("development bytes"),
	}, "dev")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dataDir, "catalog.db"))
	assert.NoError(t, err)

	cleanup()

	_, err = os.Stat(dataDir)
	assert.True(t, os.IsNotExist(err), "data directory should be removed after cleanup")
}

func TestNewTesting(t *testing.T) {
	stack := presets.NewTesting(t, presets.WithTestMaxVersionRetries(100))
	ctx := context.Background()

	asset, err := stack.Engine.CreateAsset(ctx, simplevideo.CreateAssetRequest{
		Title:         "Test Clip",
		FileSizeBytes: 64,
	}, "")
	require.NoError(t, err)

	var g errgroup.Group
	for i := 0; i < 5; i++ {
		g.Go(func() error {
			_, err := stack.Engine.AddVersion(ctx, simplevideo.AddVersionRequest{
				AssetID: asset.ID,
				Reader:  strings.NewReader("concurrent"),
			}, "")
			return err
		})
	}
	require.NoError(t, g.Wait())

	versions, err := stack.Engine.ListVersions(ctx, asset.ID)
	require.NoError(t, err)
	assert.Len(t, versions, 5)

	_, body, err := stack.Engine.OpenActive(ctx, asset.ID)
	require.NoError(t, err)
	defer body.Close()
	data, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "concurrent", string(data))
}

func TestNewTestingIsolated(t *testing.T) {
	first := presets.NewTesting(t)
	second := presets.NewTesting(t)

	_, err := first.Engine.CreateAsset(context.Background(), simplevideo.CreateAssetRequest{Title: "Only here", FileSizeBytes: 1}, "")
	require.NoError(t, err)

	page, err := second.Query.Query(context.Background(), simplevideo.QueryRequest{})
	require.NoError(t, err)
	assert.Zero(t, page.TotalCount)
}

func TestNewProductionRejectsMemoryBackends(t *testing.T) {
	t.Run("memory catalog", func(t *testing.T) {
		t.Setenv("PV_DATABASE_URL", "memory")
		t.Setenv("PV_CONTENT_URL", "file://"+t.TempDir())

		_, err := presets.NewProduction(context.Background(), presets.WithEnvPrefix("PV_"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "PV_DATABASE_URL")
	})

	t.Run("memory content", func(t *testing.T) {
		t.Setenv("PV_DATABASE_URL", "sqlite://"+filepath.Join(t.TempDir(), "catalog.db"))
		t.Setenv("PV_CONTENT_URL", "memory://")

		_, err := presets.NewProduction(context.Background(), presets.WithEnvPrefix("PV_"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "PV_CONTENT_URL")
	})
}

func TestNewProduction(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PV_DATABASE_URL", "sqlite://"+filepath.Join(dir, "catalog.db"))
	t.Setenv("PV_CONTENT_URL", "file://"+filepath.Join(dir, "content"))

	stack, err := presets.NewProduction(context.Background(), presets.WithEnvPrefix("PV_"))
	require.NoError(t, err)
	defer stack.Close()

	_, err = stack.Engine.CreateAsset(context.Background(), simplevideo.CreateAssetRequest{Title: "Release", FileSizeBytes: 10}, "ops")
	require.NoError(t, err)
}
