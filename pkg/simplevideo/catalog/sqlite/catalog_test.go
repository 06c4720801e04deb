package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-video/pkg/simplevideo"
	"github.com/tendant/simple-video/pkg/simplevideo/catalog/catalogtest"
	"github.com/tendant/simple-video/pkg/simplevideo/catalog/sqlite"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openTestCatalog(t *testing.T) *sqlite.Catalog {
	t.Helper()

	catalog, err := sqlite.Open(context.Background(), sqlite.Config{
		Path: filepath.Join(t.TempDir(), "catalog.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		catalog.Close()
	})
	return catalog
}

func TestCatalogContract(t *testing.T) {
	catalogtest.Run(t, func(t *testing.T) simplevideo.CatalogStore {
		return openTestCatalog(t)
	})
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := sqlite.Open(context.Background(), sqlite.Config{})
	assert.Error(t, err)
}

func TestReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.db")

	first, err := sqlite.Open(ctx, sqlite.Config{Path: path})
	require.NoError(t, err)

	asset := catalogtest.NewAsset("persistent", 0)
	require.NoError(t, first.CreateAsset(ctx, asset, &simplevideo.Metadata{AssetID: asset.ID, Tags: simplevideo.Tags{"kept"}}))
	require.NoError(t, first.AppendVersion(ctx, catalogtest.NewVersion(asset.ID, 1)))
	require.NoError(t, first.Close())

	// Migrating an existing database is a no-op
	second, err := sqlite.Open(ctx, sqlite.Config{Path: path})
	require.NoError(t, err)
	defer second.Close()

	found, err := second.FindAssetWithVersions(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, "persistent", found.Asset.Title)
	assert.Equal(t, simplevideo.Tags{"kept"}, found.Metadata.Tags)
	require.Len(t, found.Versions, 1)
	assert.True(t, found.Versions[0].IsActive)
}

func TestOpenBackfillsSearchColumns(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.db")

	first, err := sqlite.Open(ctx, sqlite.Config{Path: path})
	require.NoError(t, err)
	asset := catalogtest.NewAsset("ÉCOLE Tour", 0)
	require.NoError(t, first.CreateAsset(ctx, asset, &simplevideo.Metadata{AssetID: asset.ID}))
	require.NoError(t, first.Close())

	// Rows written before the folded columns existed carry empty values
	raw, err := gorm.Open(gormsqlite.Open(path), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, raw.Exec(`UPDATE assets SET title_fold = '', description_fold = '', original_file_name_fold = ''`).Error)
	rawDB, err := raw.DB()
	require.NoError(t, err)
	require.NoError(t, rawDB.Close())

	second, err := sqlite.Open(ctx, sqlite.Config{Path: path})
	require.NoError(t, err)
	defer second.Close()

	summaries, total, err := second.ListAssets(ctx, simplevideo.ListParams{Search: "école", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, summaries, 1)
	assert.Equal(t, asset.ID, summaries[0].ID)
}
