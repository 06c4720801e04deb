package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-video/pkg/simplevideo"
	"github.com/tendant/simple-video/pkg/simplevideo/catalog/catalogtest"
	"github.com/tendant/simple-video/pkg/simplevideo/catalog/memory"
)

func TestCatalogContract(t *testing.T) {
	catalogtest.Run(t, func(t *testing.T) simplevideo.CatalogStore {
		return memory.New()
	})
}

func TestCatalogReturnsCopies(t *testing.T) {
	c := memory.New()
	ctx := context.Background()

	asset := catalogtest.NewAsset("original", 0)
	meta := &simplevideo.Metadata{AssetID: asset.ID, Tags: simplevideo.Tags{"a"}}
	require.NoError(t, c.CreateAsset(ctx, asset, meta))

	// Mutating the caller's values does not reach the store
	asset.Title = "mutated"
	meta.Tags[0] = "z"

	got, err := c.GetAsset(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", got.Title)

	got.Title = "mutated again"
	gotMeta, err := c.GetMetadata(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, simplevideo.Tags{"a"}, gotMeta.Tags)
	gotMeta.Tags[0] = "y"

	again, err := c.GetAsset(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, "original", again.Title)

	againMeta, err := c.GetMetadata(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, simplevideo.Tags{"a"}, againMeta.Tags)

	v := catalogtest.NewVersion(asset.ID, 1)
	require.NoError(t, c.AppendVersion(ctx, v))
	v.Location = "elsewhere"

	stored, err := c.GetVersion(ctx, asset.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, simplevideo.ContentLocation(asset.ID, 1), stored.Location)
}
