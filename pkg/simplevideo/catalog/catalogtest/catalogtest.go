// Package catalogtest holds behavior tests shared by every
// simplevideo.CatalogStore implementation.
package catalogtest

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-video/pkg/simplevideo"
)

// Factory returns an empty catalog for one subtest.
type Factory func(t *testing.T) simplevideo.CatalogStore

// Run exercises a catalog implementation against the store contract.
func Run(t *testing.T, newCatalog Factory) {
	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newCatalog(t)) })
	t.Run("UpdateAsset", func(t *testing.T) { testUpdateAsset(t, newCatalog(t)) })
	t.Run("UpdateAssetPartial", func(t *testing.T) { testUpdateAssetPartial(t, newCatalog(t)) })
	t.Run("TechnicalMetadata", func(t *testing.T) { testTechnicalMetadata(t, newCatalog(t)) })
	t.Run("SoftDelete", func(t *testing.T) { testSoftDelete(t, newCatalog(t)) })
	t.Run("IncrementView", func(t *testing.T) { testIncrementView(t, newCatalog(t)) })
	t.Run("AppendVersion", func(t *testing.T) { testAppendVersion(t, newCatalog(t)) })
	t.Run("ConcurrentAppend", func(t *testing.T) { testConcurrentAppend(t, newCatalog(t)) })
	t.Run("ListAssets", func(t *testing.T) { testListAssets(t, newCatalog(t)) })
	t.Run("UnicodeSearch", func(t *testing.T) { testUnicodeSearch(t, newCatalog(t)) })
}

var baseTime = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

// NewAsset returns an active asset created offset after a fixed instant.
func NewAsset(title string, offset time.Duration) *simplevideo.Asset {
	return &simplevideo.Asset{
		ID:               uuid.New(),
		Title:            title,
		Description:      "about " + title,
		OriginalFileName: title + ".mp4",
		FileSizeBytes:    1000,
		FileFormat:       "mp4",
		DurationSeconds:  12.5,
		Status:           simplevideo.AssetStatusActive,
		CreatedAt:        baseTime.Add(offset),
		CreatedBy:        "tester",
	}
}

// NewVersion returns an active version numbered n for assetID.
func NewVersion(assetID uuid.UUID, n int) *simplevideo.Version {
	return &simplevideo.Version{
		ID:                uuid.New(),
		AssetID:           assetID,
		Number:            n,
		Location:          simplevideo.ContentLocation(assetID, n),
		SizeBytes:         int64(100 * n),
		Hash:              fmt.Sprintf("%064x", n),
		ChangeDescription: fmt.Sprintf("revision %d", n),
		CreatedBy:         "tester",
		CreatedAt:         baseTime.Add(time.Duration(n) * time.Minute),
		IsActive:          true,
	}
}

func create(t *testing.T, c simplevideo.CatalogStore, asset *simplevideo.Asset, tags ...string) {
	t.Helper()
	meta := &simplevideo.Metadata{AssetID: asset.ID, Tags: simplevideo.NewTags(tags...)}
	require.NoError(t, c.CreateAsset(context.Background(), asset, meta))
}

func testCreateAndGet(t *testing.T, c simplevideo.CatalogStore) {
	ctx := context.Background()
	asset := NewAsset("launch", 0)
	create(t, c, asset, "promo", "2024")

	got, err := c.GetAsset(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, asset.ID, got.ID)
	assert.Equal(t, asset.Title, got.Title)
	assert.Equal(t, asset.Description, got.Description)
	assert.Equal(t, asset.OriginalFileName, got.OriginalFileName)
	assert.Equal(t, asset.FileSizeBytes, got.FileSizeBytes)
	assert.Equal(t, asset.DurationSeconds, got.DurationSeconds)
	assert.Equal(t, simplevideo.AssetStatusActive, got.Status)
	assert.True(t, asset.CreatedAt.Equal(got.CreatedAt))
	assert.Nil(t, got.UpdatedAt)
	assert.Nil(t, got.DeletedAt)

	meta, err := c.GetMetadata(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, asset.ID, meta.AssetID)
	assert.Equal(t, simplevideo.Tags{"promo", "2024"}, meta.Tags)
	assert.Zero(t, meta.ViewCount)
	assert.Nil(t, meta.LastViewedAt)

	latest, err := c.MaxVersionNumber(ctx, asset.ID)
	require.NoError(t, err)
	assert.Zero(t, latest)

	versions, err := c.ListVersions(ctx, asset.ID)
	require.NoError(t, err)
	assert.Empty(t, versions)

	_, err = c.GetAsset(ctx, uuid.New())
	assert.ErrorIs(t, err, simplevideo.ErrAssetNotFound)

	_, err = c.GetMetadata(ctx, uuid.New())
	assert.ErrorIs(t, err, simplevideo.ErrNotFound)

	err = c.CreateAsset(ctx, asset, &simplevideo.Metadata{AssetID: asset.ID})
	assert.ErrorIs(t, err, simplevideo.ErrConflict)
}

func testUpdateAsset(t *testing.T, c simplevideo.CatalogStore) {
	ctx := context.Background()
	asset := NewAsset("draft", 0)
	create(t, c, asset, "one")

	updatedAt := baseTime.Add(time.Hour)
	title, description := "final", "edited"
	updated, err := c.UpdateAsset(ctx, simplevideo.AssetUpdate{
		ID:          asset.ID,
		Title:       &title,
		Description: &description,
		UpdatedAt:   updatedAt,
		UpdatedBy:   "editor",
	})
	require.NoError(t, err)
	assert.Equal(t, "final", updated.Title)
	assert.Equal(t, "edited", updated.Description)
	assert.Equal(t, asset.OriginalFileName, updated.OriginalFileName)

	got, err := c.GetAsset(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, "final", got.Title)
	assert.Equal(t, "edited", got.Description)
	assert.Equal(t, "editor", got.UpdatedBy)
	require.NotNil(t, got.UpdatedAt)
	assert.True(t, updatedAt.Equal(*got.UpdatedAt))

	meta, err := c.GetMetadata(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, simplevideo.Tags{"one"}, meta.Tags)

	_, err = c.UpdateAsset(ctx, simplevideo.AssetUpdate{ID: asset.ID, Tags: simplevideo.Tags{"two", "three"}, UpdatedAt: updatedAt, UpdatedBy: "editor"})
	require.NoError(t, err)
	meta, err = c.GetMetadata(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, simplevideo.Tags{"two", "three"}, meta.Tags)

	_, err = c.UpdateAsset(ctx, simplevideo.AssetUpdate{ID: asset.ID, Tags: simplevideo.Tags{}, UpdatedAt: updatedAt, UpdatedBy: "editor"})
	require.NoError(t, err)
	meta, err = c.GetMetadata(ctx, asset.ID)
	require.NoError(t, err)
	assert.Empty(t, meta.Tags)

	_, err = c.UpdateAsset(ctx, simplevideo.AssetUpdate{ID: uuid.New(), Title: &title, UpdatedAt: updatedAt})
	assert.ErrorIs(t, err, simplevideo.ErrAssetNotFound)
}

// Edits of different fields must not overwrite each other, whatever order
// they commit in.
func testUpdateAssetPartial(t *testing.T, c simplevideo.CatalogStore) {
	ctx := context.Background()
	asset := NewAsset("split", 0)
	create(t, c, asset)

	at := baseTime.Add(time.Hour)
	var wg sync.WaitGroup
	errs := make([]error, 20)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			update := simplevideo.AssetUpdate{ID: asset.ID, UpdatedAt: at, UpdatedBy: "editor"}
			if i%2 == 0 {
				title := "title edit"
				update.Title = &title
			} else {
				description := "description edit"
				update.Description = &description
			}
			_, errs[i] = c.UpdateAsset(ctx, update)
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	got, err := c.GetAsset(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, "title edit", got.Title)
	assert.Equal(t, "description edit", got.Description)
}

func testUnicodeSearch(t *testing.T, c simplevideo.CatalogStore) {
	ctx := context.Background()

	summer := NewAsset("ÉTÉ Festival", 0)
	news := NewAsset("evening", time.Minute)
	news.Description = "Обзор НОВОСТЕЙ"
	source := NewAsset("interview", 2*time.Minute)
	source.OriginalFileName = "ÇA_VA.mov"
	for _, a := range []*simplevideo.Asset{summer, news, source} {
		create(t, c, a)
	}

	tests := []struct {
		search   string
		expected []uuid.UUID
	}{
		{"été", []uuid.UUID{summer.ID}},
		{"ÉTÉ", []uuid.UUID{summer.ID}},
		{"Été fest", []uuid.UUID{summer.ID}},
		{"новостей", []uuid.UUID{news.ID}},
		{"ça_va", []uuid.UUID{source.ID}},
		{"ete", nil},
	}
	for _, tt := range tests {
		t.Run(tt.search, func(t *testing.T) {
			summaries, total, err := c.ListAssets(ctx, simplevideo.ListParams{Search: tt.search, Limit: 10})
			require.NoError(t, err)
			assert.Equal(t, int64(len(tt.expected)), total)
			assert.ElementsMatch(t, tt.expected, ids(summaries))
		})
	}

	t.Run("renamed title is searchable", func(t *testing.T) {
		title := "ÖL Stand"
		_, err := c.UpdateAsset(ctx, simplevideo.AssetUpdate{ID: summer.ID, Title: &title, UpdatedAt: baseTime, UpdatedBy: "editor"})
		require.NoError(t, err)

		summaries, _, err := c.ListAssets(ctx, simplevideo.ListParams{Search: "öl st", Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, []uuid.UUID{summer.ID}, ids(summaries))

		_, total, err := c.ListAssets(ctx, simplevideo.ListParams{Search: "été", Limit: 10})
		require.NoError(t, err)
		assert.Zero(t, total)
	})
}

func testTechnicalMetadata(t *testing.T, c simplevideo.CatalogStore) {
	ctx := context.Background()
	asset := NewAsset("inspected", 0)
	create(t, c, asset, "tagged")

	width, height := 3840, 2160
	frameRate := 59.94
	bitRate := int64(45_000_000)
	tech := simplevideo.TechnicalMetadata{
		Width:           &width,
		Height:          &height,
		Resolution:      "3840x2160",
		FrameRate:       &frameRate,
		VideoCodec:      "hevc",
		AudioCodec:      "aac",
		BitRate:         &bitRate,
		AspectRatio:     "16:9",
		ColorSpace:      "bt709",
		AudioChannels:   "stereo",
		AudioSampleRate: "48000",
		Container:       "mp4",
	}
	require.NoError(t, c.SetTechnicalMetadata(ctx, asset.ID, tech))

	meta, err := c.GetMetadata(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, tech, meta.TechnicalMetadata)
	assert.Equal(t, simplevideo.Tags{"tagged"}, meta.Tags)

	// Setting again replaces every attribute
	require.NoError(t, c.SetTechnicalMetadata(ctx, asset.ID, simplevideo.TechnicalMetadata{Container: "mkv"}))
	meta, err = c.GetMetadata(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, simplevideo.TechnicalMetadata{Container: "mkv"}, meta.TechnicalMetadata)

	assert.ErrorIs(t, c.SetTechnicalMetadata(ctx, uuid.New(), tech), simplevideo.ErrNotFound)
}

func testSoftDelete(t *testing.T, c simplevideo.CatalogStore) {
	ctx := context.Background()
	asset := NewAsset("doomed", 0)
	create(t, c, asset)
	require.NoError(t, c.AppendVersion(ctx, NewVersion(asset.ID, 1)))

	deletedAt := baseTime.Add(2 * time.Hour)
	require.NoError(t, c.SoftDelete(ctx, asset.ID, deletedAt, "janitor"))

	_, err := c.GetAsset(ctx, asset.ID)
	assert.ErrorIs(t, err, simplevideo.ErrAssetNotFound)
	_, err = c.GetMetadata(ctx, asset.ID)
	assert.ErrorIs(t, err, simplevideo.ErrNotFound)
	_, err = c.GetActiveVersion(ctx, asset.ID)
	assert.ErrorIs(t, err, simplevideo.ErrNotFound)
	_, err = c.ListVersions(ctx, asset.ID)
	assert.ErrorIs(t, err, simplevideo.ErrNotFound)
	_, err = c.FindAssetWithVersions(ctx, asset.ID)
	assert.ErrorIs(t, err, simplevideo.ErrNotFound)
	_, err = c.IncrementView(ctx, asset.ID, deletedAt)
	assert.ErrorIs(t, err, simplevideo.ErrNotFound)
	err = c.AppendVersion(ctx, NewVersion(asset.ID, 2))
	assert.ErrorIs(t, err, simplevideo.ErrNotFound)

	summaries, total, err := c.ListAssets(ctx, simplevideo.ListParams{Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, summaries)

	stored, err := c.GetAssetIncludingDeleted(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, simplevideo.AssetStatusDeleted, stored.Status)
	require.NotNil(t, stored.DeletedAt)
	assert.True(t, deletedAt.Equal(*stored.DeletedAt))
	assert.Equal(t, "janitor", stored.UpdatedBy)

	assert.ErrorIs(t, c.SoftDelete(ctx, asset.ID, deletedAt, "janitor"), simplevideo.ErrAssetNotFound)
	assert.ErrorIs(t, c.SoftDelete(ctx, uuid.New(), deletedAt, "janitor"), simplevideo.ErrAssetNotFound)
}

func testIncrementView(t *testing.T, c simplevideo.CatalogStore) {
	ctx := context.Background()
	asset := NewAsset("viewed", 0)
	create(t, c, asset)

	const viewers = 20
	var wg sync.WaitGroup
	errs := make(chan error, viewers)
	for i := 0; i < viewers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.IncrementView(ctx, asset.ID, baseTime); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	count, err := c.IncrementView(ctx, asset.ID, baseTime.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(viewers+1), count)

	meta, err := c.GetMetadata(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(viewers+1), meta.ViewCount)
	require.NotNil(t, meta.LastViewedAt)
	assert.True(t, baseTime.Add(time.Minute).Equal(*meta.LastViewedAt))

	_, err = c.IncrementView(ctx, uuid.New(), baseTime)
	assert.ErrorIs(t, err, simplevideo.ErrNotFound)
}

func testAppendVersion(t *testing.T, c simplevideo.CatalogStore) {
	ctx := context.Background()
	asset := NewAsset("versioned", 0)
	create(t, c, asset)

	for n := 1; n <= 3; n++ {
		require.NoError(t, c.AppendVersion(ctx, NewVersion(asset.ID, n)))
	}

	latest, err := c.MaxVersionNumber(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, latest)

	active, err := c.GetActiveVersion(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, active.Number)
	assert.True(t, active.IsActive)

	second, err := c.GetVersion(ctx, asset.ID, 2)
	require.NoError(t, err)
	expected := NewVersion(asset.ID, 2)
	assert.Equal(t, expected.Location, second.Location)
	assert.Equal(t, expected.SizeBytes, second.SizeBytes)
	assert.Equal(t, expected.Hash, second.Hash)
	assert.Equal(t, expected.ChangeDescription, second.ChangeDescription)
	assert.Equal(t, "tester", second.CreatedBy)
	assert.True(t, expected.CreatedAt.Equal(second.CreatedAt))
	assert.False(t, second.IsActive)

	_, err = c.GetVersion(ctx, asset.ID, 9)
	assert.ErrorIs(t, err, simplevideo.ErrVersionNotFound)

	versions, err := c.ListVersions(ctx, asset.ID)
	require.NoError(t, err)
	require.Len(t, versions, 3)
	activeCount := 0
	for i, v := range versions {
		assert.Equal(t, i+1, v.Number)
		if v.IsActive {
			activeCount++
		}
	}
	assert.Equal(t, 1, activeCount)

	// Stale and skipped numbers are rejected without side effects
	assert.ErrorIs(t, c.AppendVersion(ctx, NewVersion(asset.ID, 3)), simplevideo.ErrConflict)
	assert.ErrorIs(t, c.AppendVersion(ctx, NewVersion(asset.ID, 5)), simplevideo.ErrConflict)

	active, err = c.GetActiveVersion(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, active.Number)

	found, err := c.FindAssetWithVersions(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, asset.ID, found.Asset.ID)
	assert.NotNil(t, found.Metadata)
	assert.Len(t, found.Versions, 3)

	err = c.AppendVersion(ctx, NewVersion(uuid.New(), 1))
	assert.ErrorIs(t, err, simplevideo.ErrAssetNotFound)
}

func testConcurrentAppend(t *testing.T, c simplevideo.CatalogStore) {
	ctx := context.Background()
	asset := NewAsset("contended", 0)
	create(t, c, asset)

	const writers = 8
	results := make(chan error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- c.AppendVersion(ctx, NewVersion(asset.ID, 1))
		}()
	}
	wg.Wait()
	close(results)

	succeeded := 0
	for err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.Equal(t, simplevideo.KindConflict, simplevideo.Kind(err), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)

	versions, err := c.ListVersions(ctx, asset.ID)
	require.NoError(t, err)
	assert.Len(t, versions, 1)
}

func testListAssets(t *testing.T, c simplevideo.CatalogStore) {
	ctx := context.Background()

	alpha := NewAsset("Alpha Trailer", 1*time.Hour)
	alpha.FileSizeBytes = 300
	alpha.DurationSeconds = 90
	bravo := NewAsset("bravo_interview", 2*time.Hour)
	bravo.FileSizeBytes = 100
	bravo.DurationSeconds = 30
	charlie := NewAsset("Charlie Demo", 3*time.Hour)
	charlie.FileSizeBytes = 200
	charlie.DurationSeconds = 60
	charlie.Description = "100% trailer footage"
	deleted := NewAsset("Alpha Deleted", 4*time.Hour)

	create(t, c, alpha, "promo")
	create(t, c, bravo)
	create(t, c, charlie)
	create(t, c, deleted)
	require.NoError(t, c.SoftDelete(ctx, deleted.ID, baseTime, "tester"))

	require.NoError(t, c.AppendVersion(ctx, NewVersion(alpha.ID, 1)))
	require.NoError(t, c.AppendVersion(ctx, NewVersion(alpha.ID, 2)))
	_, err := c.IncrementView(ctx, alpha.ID, baseTime)
	require.NoError(t, err)

	t.Run("newest first by default", func(t *testing.T) {
		summaries, total, err := c.ListAssets(ctx, simplevideo.ListParams{Descending: true, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Equal(t, []uuid.UUID{charlie.ID, bravo.ID, alpha.ID}, ids(summaries))
	})

	t.Run("summary fields", func(t *testing.T) {
		summaries, _, err := c.ListAssets(ctx, simplevideo.ListParams{Search: "alpha", Limit: 10})
		require.NoError(t, err)
		require.Len(t, summaries, 1)
		s := summaries[0]
		assert.Equal(t, alpha.Title, s.Title)
		assert.Equal(t, 2, s.VersionCount)
		require.NotNil(t, s.ActiveVersion)
		assert.Equal(t, 2, *s.ActiveVersion)
		assert.Equal(t, 2, s.CurrentVersion())
		assert.Equal(t, simplevideo.Tags{"promo"}, s.Tags)
		assert.Equal(t, int64(1), s.ViewCount)
	})

	t.Run("asset without versions", func(t *testing.T) {
		summaries, _, err := c.ListAssets(ctx, simplevideo.ListParams{Search: "bravo", Limit: 10})
		require.NoError(t, err)
		require.Len(t, summaries, 1)
		assert.Zero(t, summaries[0].VersionCount)
		assert.Nil(t, summaries[0].ActiveVersion)
		assert.Equal(t, 1, summaries[0].CurrentVersion())
	})

	t.Run("search is case insensitive across fields", func(t *testing.T) {
		summaries, total, err := c.ListAssets(ctx, simplevideo.ListParams{Search: "TRAILER", Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.ElementsMatch(t, []uuid.UUID{alpha.ID, charlie.ID}, ids(summaries))
	})

	t.Run("search treats wildcards literally", func(t *testing.T) {
		_, total, err := c.ListAssets(ctx, simplevideo.ListParams{Search: "100%", Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)

		_, total, err = c.ListAssets(ctx, simplevideo.ListParams{Search: "o_i", Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)

		_, total, err = c.ListAssets(ctx, simplevideo.ListParams{Search: "a_t", Limit: 10})
		require.NoError(t, err)
		assert.Zero(t, total)
	})

	t.Run("sort keys", func(t *testing.T) {
		tests := []struct {
			sort     simplevideo.SortKey
			desc     bool
			expected []uuid.UUID
		}{
			{simplevideo.SortByTitle, false, []uuid.UUID{alpha.ID, bravo.ID, charlie.ID}},
			{simplevideo.SortBySize, true, []uuid.UUID{alpha.ID, charlie.ID, bravo.ID}},
			{simplevideo.SortByDuration, false, []uuid.UUID{bravo.ID, charlie.ID, alpha.ID}},
			{simplevideo.SortByCreatedDate, false, []uuid.UUID{alpha.ID, bravo.ID, charlie.ID}},
		}
		for _, tt := range tests {
			summaries, _, err := c.ListAssets(ctx, simplevideo.ListParams{Sort: tt.sort, Descending: tt.desc, Limit: 10})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, ids(summaries), "sort %s desc=%v", tt.sort, tt.desc)
		}
	})

	t.Run("date range is inclusive", func(t *testing.T) {
		from := alpha.CreatedAt
		to := bravo.CreatedAt
		summaries, total, err := c.ListAssets(ctx, simplevideo.ListParams{CreatedFrom: &from, CreatedTo: &to, Limit: 10})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Equal(t, []uuid.UUID{alpha.ID, bravo.ID}, ids(summaries))
	})

	t.Run("offset and limit", func(t *testing.T) {
		summaries, total, err := c.ListAssets(ctx, simplevideo.ListParams{Sort: simplevideo.SortByTitle, Offset: 1, Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Equal(t, []uuid.UUID{bravo.ID}, ids(summaries))

		summaries, total, err = c.ListAssets(ctx, simplevideo.ListParams{Offset: 10, Limit: 5})
		require.NoError(t, err)
		assert.Equal(t, int64(3), total)
		assert.Empty(t, summaries)
	})

	t.Run("ties break by id", func(t *testing.T) {
		first := NewAsset("twin", 10*time.Hour)
		second := NewAsset("twin", 10*time.Hour)
		create(t, c, first)
		create(t, c, second)

		summaries, _, err := c.ListAssets(ctx, simplevideo.ListParams{Search: "twin", Sort: simplevideo.SortByCreatedDate, Descending: true, Limit: 10})
		require.NoError(t, err)
		require.Len(t, summaries, 2)
		assert.Negative(t, compareIDs(summaries[0].ID, summaries[1].ID))
	})
}

func compareIDs(a, b uuid.UUID) int {
	as, bs := a.String(), b.String()
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func ids(summaries []*simplevideo.AssetSummary) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(summaries))
	for _, s := range summaries {
		out = append(out, s.ID)
	}
	return out
}
