package simplevideo_test

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-video/pkg/simplevideo"
	memorycatalog "github.com/tendant/simple-video/pkg/simplevideo/catalog/memory"
	memorycontent "github.com/tendant/simple-video/pkg/simplevideo/content/memory"
	"golang.org/x/sync/errgroup"
)

func TestEngineCreation(t *testing.T) {
	tests := []struct {
		name        string
		options     []simplevideo.Option
		expectError bool
	}{
		{
			name:        "no options should fail",
			options:     []simplevideo.Option{},
			expectError: true,
		},
		{
			name: "catalog only should fail",
			options: []simplevideo.Option{
				simplevideo.WithCatalog(memorycatalog.New()),
			},
			expectError: true,
		},
		{
			name: "catalog and content should succeed",
			options: []simplevideo.Option{
				simplevideo.WithCatalog(memorycatalog.New()),
				simplevideo.WithContent(memorycontent.New()),
			},
			expectError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, err := simplevideo.NewEngine(tt.options...)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, engine)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, engine)
			}
		})
	}
}

func TestCreateAsset(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	asset, err := s.engine.CreateAsset(ctx, simplevideo.CreateAssetRequest{
		Title:            "Product Launch",
		Description:      "Keynote recording",
		OriginalFileName: "launch.mp4",
		FileSizeBytes:    2048,
		FileFormat:       "mp4",
		DurationSeconds:  42.5,
		Tags:             []string{" launch ", "keynote", "launch", ""},
	}, "")
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, asset.ID)
	assert.Equal(t, simplevideo.AssetStatusActive, asset.Status)
	assert.Equal(t, simplevideo.DefaultActor, asset.CreatedBy)
	assert.Nil(t, asset.UpdatedAt)
	assert.Nil(t, asset.DeletedAt)

	meta, err := s.engine.GetMetadata(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, simplevideo.Tags{"launch", "keynote"}, meta.Tags)
	assert.Zero(t, meta.ViewCount)

	versions, err := s.engine.ListVersions(ctx, asset.ID)
	require.NoError(t, err)
	assert.Empty(t, versions)

	_, err = s.engine.GetActiveVersion(ctx, asset.ID)
	assert.ErrorIs(t, err, simplevideo.ErrVersionNotFound)
}

func TestCreateAssetValidation(t *testing.T) {
	valid := simplevideo.CreateAssetRequest{
		Title:         "Valid",
		FileSizeBytes: 1,
	}

	tests := []struct {
		name   string
		mutate func(*simplevideo.CreateAssetRequest)
		field  string
	}{
		{
			name:   "empty title",
			mutate: func(r *simplevideo.CreateAssetRequest) { r.Title = "" },
			field:  "title",
		},
		{
			name:   "whitespace title",
			mutate: func(r *simplevideo.CreateAssetRequest) { r.Title = "   " },
			field:  "title",
		},
		{
			name:   "title too long",
			mutate: func(r *simplevideo.CreateAssetRequest) { r.Title = strings.Repeat("a", simplevideo.MaxTitleLength+1) },
			field:  "title",
		},
		{
			name:   "description too long",
			mutate: func(r *simplevideo.CreateAssetRequest) { r.Description = strings.Repeat("d", simplevideo.MaxDescriptionLength+1) },
			field:  "description",
		},
		{
			name:   "zero size",
			mutate: func(r *simplevideo.CreateAssetRequest) { r.FileSizeBytes = 0 },
			field:  "file_size_bytes",
		},
		{
			name:   "negative duration",
			mutate: func(r *simplevideo.CreateAssetRequest) { r.DurationSeconds = -1 },
			field:  "duration_seconds",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := setupTestStore(t)
			req := valid
			tt.mutate(&req)

			asset, err := s.engine.CreateAsset(context.Background(), req, "tester")
			require.Error(t, err)
			assert.Nil(t, asset)
			assert.ErrorIs(t, err, simplevideo.ErrValidation)

			var validationErr *simplevideo.ValidationError
			require.True(t, errors.As(err, &validationErr))
			assert.Equal(t, tt.field, validationErr.Field)

			page, err := s.query.Query(context.Background(), simplevideo.QueryRequest{})
			require.NoError(t, err)
			assert.Zero(t, page.TotalCount)
		})
	}

	t.Run("boundary lengths are accepted", func(t *testing.T) {
		s := setupTestStore(t)
		req := valid
		req.Title = strings.Repeat("a", simplevideo.MaxTitleLength)
		req.Description = strings.Repeat("d", simplevideo.MaxDescriptionLength)

		_, err := s.engine.CreateAsset(context.Background(), req, "tester")
		assert.NoError(t, err)
	})
}

func TestAddVersionSequence(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	asset := s.createAsset(t, "Sequence")

	payloads := []string{"first cut", "second cut", "final cut"}
	for i, payload := range payloads {
		version := s.addVersion(t, asset.ID, payload)

		expectedHash, err := simplevideo.Hash(strings.NewReader(payload))
		require.NoError(t, err)

		assert.Equal(t, i+1, version.Number)
		assert.True(t, version.IsActive)
		assert.Equal(t, int64(len(payload)), version.SizeBytes)
		assert.Equal(t, expectedHash, version.Hash)
		assert.Equal(t, simplevideo.ContentLocation(asset.ID, i+1), version.Location)
		assert.Equal(t, "tester", version.CreatedBy)
	}

	versions, err := s.engine.ListVersions(ctx, asset.ID)
	require.NoError(t, err)
	require.Len(t, versions, 3)

	active := 0
	for i, v := range versions {
		assert.Equal(t, i+1, v.Number)
		if v.IsActive {
			active++
			assert.Equal(t, 3, v.Number)
		}
	}
	assert.Equal(t, 1, active)

	// Every version remains readable after it is superseded
	for i, payload := range payloads {
		_, rc, err := s.engine.OpenVersion(ctx, asset.ID, i+1)
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		rc.Close()
		require.NoError(t, err)
		assert.Equal(t, payload, string(data))
	}

	version, rc, err := s.engine.OpenActive(ctx, asset.ID)
	require.NoError(t, err)
	defer rc.Close()
	assert.Equal(t, 3, version.Number)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "final cut", string(data))

	_, err = s.engine.GetVersion(ctx, asset.ID, 4)
	assert.ErrorIs(t, err, simplevideo.ErrVersionNotFound)
}

func TestAddVersionStreamsNonSeekableReader(t *testing.T) {
	s := setupTestStore(t)
	asset := s.createAsset(t, "Streamed")

	// io.MultiReader hides Seek, forcing the upload to be spooled
	reader := io.MultiReader(strings.NewReader("part one, "), strings.NewReader("part two"))
	version, err := s.engine.AddVersion(context.Background(), simplevideo.AddVersionRequest{
		AssetID:           asset.ID,
		Reader:            reader,
		ChangeDescription: "spooled upload",
	}, "tester")
	require.NoError(t, err)

	assert.Equal(t, int64(len("part one, part two")), version.SizeBytes)
	assert.Equal(t, "spooled upload", version.ChangeDescription)
}

// droppedUpload hands out one chunk, then cancels its context and fails
// like a connection closed by the client.
type droppedUpload struct {
	cancel context.CancelFunc
	sent   bool
}

func (d *droppedUpload) Read(p []byte) (int, error) {
	if d.sent {
		d.cancel()
		return 0, io.ErrUnexpectedEOF
	}
	d.sent = true
	return copy(p, "first chunk"), nil
}

func TestAddVersionCanceledUpload(t *testing.T) {
	s := setupTestStore(t)
	asset := s.createAsset(t, "Dropped")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err := s.engine.AddVersion(ctx, simplevideo.AddVersionRequest{
		AssetID: asset.ID,
		Reader:  &droppedUpload{cancel: cancel},
	}, "tester")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, simplevideo.ErrStorage)
	assert.Equal(t, simplevideo.KindCanceled, simplevideo.Kind(err))

	versions, err := s.engine.ListVersions(context.Background(), asset.ID)
	require.NoError(t, err)
	assert.Empty(t, versions)
}

func TestAddVersionRejectsBadInput(t *testing.T) {
	ctx := context.Background()

	t.Run("empty content", func(t *testing.T) {
		s := setupTestStore(t)
		asset := s.createAsset(t, "Empty")

		_, err := s.engine.AddVersion(ctx, simplevideo.AddVersionRequest{
			AssetID: asset.ID,
			Reader:  strings.NewReader(""),
		}, "tester")
		assert.ErrorIs(t, err, simplevideo.ErrValidation)
		assert.Zero(t, s.content.Len())

		versions, err := s.engine.ListVersions(ctx, asset.ID)
		require.NoError(t, err)
		assert.Empty(t, versions)
	})

	t.Run("nil reader", func(t *testing.T) {
		s := setupTestStore(t)
		asset := s.createAsset(t, "Nil")

		_, err := s.engine.AddVersion(ctx, simplevideo.AddVersionRequest{AssetID: asset.ID}, "tester")
		assert.ErrorIs(t, err, simplevideo.ErrValidation)
	})

	t.Run("unknown asset", func(t *testing.T) {
		s := setupTestStore(t)

		_, err := s.engine.AddVersion(ctx, simplevideo.AddVersionRequest{
			AssetID: uuid.New(),
			Reader:  strings.NewReader("bytes"),
		}, "tester")
		assert.ErrorIs(t, err, simplevideo.ErrAssetNotFound)
		assert.Equal(t, simplevideo.KindNotFound, simplevideo.Kind(err))
		assert.Zero(t, s.content.Len())
	})

	t.Run("deleted asset", func(t *testing.T) {
		s := setupTestStore(t)
		asset := s.createAsset(t, "Deleted")
		require.NoError(t, s.engine.SoftDelete(ctx, asset.ID, "tester"))

		_, err := s.engine.AddVersion(ctx, simplevideo.AddVersionRequest{
			AssetID: asset.ID,
			Reader:  strings.NewReader("bytes"),
		}, "tester")
		assert.ErrorIs(t, err, simplevideo.ErrNotFound)
		assert.Zero(t, s.content.Len())
	})
}

func TestAddVersionConcurrent(t *testing.T) {
	s := setupTestStore(t, simplevideo.WithMaxVersionRetries(200))
	asset := s.createAsset(t, "Contended")

	const writers = 10
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < writers; i++ {
		payload := strings.Repeat("x", i+1)
		g.Go(func() error {
			_, err := s.engine.AddVersion(ctx, simplevideo.AddVersionRequest{
				AssetID: asset.ID,
				Reader:  strings.NewReader(payload),
			}, "writer")
			return err
		})
	}
	require.NoError(t, g.Wait())

	versions, err := s.engine.ListVersions(context.Background(), asset.ID)
	require.NoError(t, err)
	require.Len(t, versions, writers)

	seen := make(map[int]bool)
	active := 0
	for _, v := range versions {
		assert.False(t, seen[v.Number], "duplicate version number %d", v.Number)
		seen[v.Number] = true
		if v.IsActive {
			active++
			assert.Equal(t, writers, v.Number)
		}
	}
	for n := 1; n <= writers; n++ {
		assert.True(t, seen[n], "missing version number %d", n)
	}
	assert.Equal(t, 1, active)

	// Losing attempts remove their content, so nothing is orphaned
	assert.Equal(t, writers, s.content.Len())
}

// conflictingCatalog rejects the first n appends as if another writer won.
type conflictingCatalog struct {
	*memorycatalog.Catalog

	mu        sync.Mutex
	conflicts int
	err       error
}

func (c *conflictingCatalog) AppendVersion(ctx context.Context, v *simplevideo.Version) error {
	c.mu.Lock()
	if c.conflicts != 0 {
		if c.conflicts > 0 {
			c.conflicts--
		}
		c.mu.Unlock()
		return c.err
	}
	c.mu.Unlock()
	return c.Catalog.AppendVersion(ctx, v)
}

func TestAddVersionRetriesAfterConflict(t *testing.T) {
	mem := memorycatalog.New()
	catalog := &conflictingCatalog{Catalog: mem, conflicts: 2, err: simplevideo.ErrConflict}
	s := setupTestStoreWithCatalog(t, mem, catalog)
	asset := s.createAsset(t, "Retry")

	version := s.addVersion(t, asset.ID, "eventually stored")
	assert.Equal(t, 1, version.Number)
	assert.Equal(t, 1, s.content.Len())
}

func TestAddVersionRetriesExhausted(t *testing.T) {
	mem := memorycatalog.New()
	catalog := &conflictingCatalog{Catalog: mem, conflicts: -1, err: simplevideo.ErrConflict}
	s := setupTestStoreWithCatalog(t, mem, catalog, simplevideo.WithMaxVersionRetries(3))
	asset := s.createAsset(t, "Exhausted")

	_, err := s.engine.AddVersion(context.Background(), simplevideo.AddVersionRequest{
		AssetID: asset.ID,
		Reader:  strings.NewReader("never committed"),
	}, "tester")
	require.Error(t, err)
	assert.ErrorIs(t, err, simplevideo.ErrRetriesExhausted)
	assert.Equal(t, simplevideo.KindConflict, simplevideo.Kind(err))
	assert.Zero(t, s.content.Len())
}

func TestAddVersionCommitFailureRemovesContent(t *testing.T) {
	mem := memorycatalog.New()
	catalog := &conflictingCatalog{Catalog: mem, conflicts: -1, err: errors.New("connection reset")}
	s := setupTestStoreWithCatalog(t, mem, catalog)
	asset := s.createAsset(t, "Broken")

	_, err := s.engine.AddVersion(context.Background(), simplevideo.AddVersionRequest{
		AssetID: asset.ID,
		Reader:  strings.NewReader("orphan candidate"),
	}, "tester")
	require.Error(t, err)
	assert.ErrorIs(t, err, simplevideo.ErrPersistence)
	assert.Zero(t, s.content.Len())

	var assetErr *simplevideo.AssetError
	require.True(t, errors.As(err, &assetErr))
	assert.Equal(t, asset.ID, assetErr.AssetID)
	assert.Equal(t, "add_version", assetErr.Op)
}

func TestUploadAsset(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	// io.MultiReader hides Seek, so the size comes from the spooled copy
	asset, version, err := s.engine.UploadAsset(ctx, simplevideo.UploadAssetRequest{
		Title:            "Keynote",
		Description:      "main stage",
		OriginalFileName: "Keynote.MOV",
		Tags:             []string{"event", " event ", "2024"},
		Reader:           io.MultiReader(strings.NewReader("keynote "), strings.NewReader("frames")),
	}, "")
	require.NoError(t, err)

	assert.Equal(t, "Keynote.MOV", asset.OriginalFileName)
	assert.Equal(t, "mov", asset.FileFormat)
	assert.Equal(t, int64(len("keynote frames")), asset.FileSizeBytes)
	assert.Equal(t, simplevideo.DefaultActor, asset.CreatedBy)

	assert.Equal(t, 1, version.Number)
	assert.True(t, version.IsActive)
	assert.Equal(t, asset.FileSizeBytes, version.SizeBytes)
	assert.Equal(t, simplevideo.InitialUploadDescription, version.ChangeDescription)

	detail, err := s.query.Get(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, simplevideo.Tags{"event", "2024"}, detail.Tags)
	assert.Equal(t, 1, detail.VersionCount)
}

func TestUploadAssetRejectsBadInput(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  simplevideo.UploadAssetRequest
	}{
		{"no reader", simplevideo.UploadAssetRequest{Title: "Clip"}},
		{"empty content", simplevideo.UploadAssetRequest{Title: "Clip", Reader: strings.NewReader("")}},
		{"missing title", simplevideo.UploadAssetRequest{Reader: strings.NewReader("frames")}},
		{"long description", simplevideo.UploadAssetRequest{Title: "Clip", Description: strings.Repeat("d", 2001), Reader: strings.NewReader("frames")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := s.engine.UploadAsset(ctx, tt.req, "tester")
			assert.ErrorIs(t, err, simplevideo.ErrValidation)
		})
	}

	page, err := s.query.Query(ctx, simplevideo.QueryRequest{})
	require.NoError(t, err)
	assert.Zero(t, page.TotalCount)
	assert.Zero(t, s.content.Len())
}

func TestUploadAssetWithdrawnWhenContentFails(t *testing.T) {
	mem := memorycatalog.New()
	catalog := &conflictingCatalog{Catalog: mem, conflicts: -1, err: errors.New("connection reset")}
	s := setupTestStoreWithCatalog(t, mem, catalog)
	ctx := context.Background()

	_, _, err := s.engine.UploadAsset(ctx, simplevideo.UploadAssetRequest{
		Title:            "Doomed",
		OriginalFileName: "doomed.mp4",
		Reader:           strings.NewReader("never committed"),
	}, "tester")
	require.Error(t, err)
	assert.ErrorIs(t, err, simplevideo.ErrPersistence)
	assert.Zero(t, s.content.Len())

	page, err := s.query.Query(ctx, simplevideo.QueryRequest{})
	require.NoError(t, err)
	assert.Zero(t, page.TotalCount, "the half-created asset must not be listed")
}

func TestUpdateAsset(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()

	asset, err := s.engine.CreateAsset(ctx, simplevideo.CreateAssetRequest{
		Title:         "Original",
		Description:   "before",
		FileSizeBytes: 10,
		Tags:          []string{"a", "b"},
	}, "creator")
	require.NoError(t, err)

	title := "Renamed"
	updated, err := s.engine.UpdateAsset(ctx, asset.ID, simplevideo.UpdateAssetRequest{Title: &title}, "editor")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "before", updated.Description)
	assert.Equal(t, "editor", updated.UpdatedBy)
	require.NotNil(t, updated.UpdatedAt)

	// nil tags leave the set alone
	meta, err := s.engine.GetMetadata(ctx, asset.ID)
	require.NoError(t, err)
	assert.True(t, simplevideo.Tags{"b", "a"}.Equal(meta.Tags))

	_, err = s.engine.UpdateAsset(ctx, asset.ID, simplevideo.UpdateAssetRequest{Tags: []string{}}, "editor")
	require.NoError(t, err)
	meta, err = s.engine.GetMetadata(ctx, asset.ID)
	require.NoError(t, err)
	assert.Empty(t, meta.Tags)

	empty := ""
	_, err = s.engine.UpdateAsset(ctx, asset.ID, simplevideo.UpdateAssetRequest{Title: &empty}, "editor")
	assert.ErrorIs(t, err, simplevideo.ErrValidation)

	_, err = s.engine.UpdateAsset(ctx, uuid.New(), simplevideo.UpdateAssetRequest{Title: &title}, "editor")
	assert.ErrorIs(t, err, simplevideo.ErrAssetNotFound)
}

func TestUpdateAssetConcurrentFieldEdits(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	asset := s.createAsset(t, "Shared")

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < 10; i++ {
		g.Go(func() error {
			title := "New title"
			_, err := s.engine.UpdateAsset(gctx, asset.ID, simplevideo.UpdateAssetRequest{Title: &title}, "alice")
			return err
		})
		g.Go(func() error {
			description := "New description"
			_, err := s.engine.UpdateAsset(gctx, asset.ID, simplevideo.UpdateAssetRequest{Description: &description}, "bob")
			return err
		})
	}
	require.NoError(t, g.Wait())

	got, err := s.engine.GetAsset(ctx, asset.ID)
	require.NoError(t, err)
	assert.Equal(t, "New title", got.Title)
	assert.Equal(t, "New description", got.Description)
}

func TestSetTechnicalMetadata(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	asset := s.createAsset(t, "Inspected")

	width, height := 1920, 1080
	frameRate := 29.97
	meta, err := s.engine.SetTechnicalMetadata(ctx, asset.ID, simplevideo.TechnicalMetadata{
		Width:      &width,
		Height:     &height,
		Resolution: "1920x1080",
		FrameRate:  &frameRate,
		VideoCodec: "h264",
	})
	require.NoError(t, err)

	require.NotNil(t, meta.Width)
	assert.Equal(t, 1920, *meta.Width)
	assert.Equal(t, "1920x1080", meta.Resolution)
	assert.Equal(t, "h264", meta.VideoCodec)
	assert.Nil(t, meta.BitRate)
}

func TestSoftDelete(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	asset := s.createAsset(t, "Doomed")
	s.addVersion(t, asset.ID, "keep my bytes")

	require.NoError(t, s.engine.SoftDelete(ctx, asset.ID, "janitor"))

	_, err := s.engine.GetAsset(ctx, asset.ID)
	assert.ErrorIs(t, err, simplevideo.ErrAssetNotFound)

	_, err = s.engine.ListVersions(ctx, asset.ID)
	assert.ErrorIs(t, err, simplevideo.ErrNotFound)

	_, err = s.query.Get(ctx, asset.ID)
	assert.ErrorIs(t, err, simplevideo.ErrNotFound)

	page, err := s.query.Query(ctx, simplevideo.QueryRequest{})
	require.NoError(t, err)
	assert.Zero(t, page.TotalCount)

	err = s.engine.SoftDelete(ctx, asset.ID, "janitor")
	assert.ErrorIs(t, err, simplevideo.ErrAssetNotFound)

	stored, err := s.catalog.GetAssetIncludingDeleted(ctx, asset.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsDeleted())
	assert.NotNil(t, stored.DeletedAt)
	assert.Equal(t, "janitor", stored.UpdatedBy)

	// Content is retained
	assert.Equal(t, 1, s.content.Len())
}

func TestIncrementViewConcurrent(t *testing.T) {
	s := setupTestStore(t)
	asset := s.createAsset(t, "Popular")

	const viewers = 50
	g, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < viewers; i++ {
		g.Go(func() error {
			_, err := s.engine.IncrementView(ctx, asset.ID)
			return err
		})
	}
	require.NoError(t, g.Wait())

	meta, err := s.engine.GetMetadata(context.Background(), asset.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(viewers), meta.ViewCount)
	assert.NotNil(t, meta.LastViewedAt)

	_, err = s.engine.IncrementView(context.Background(), uuid.New())
	assert.ErrorIs(t, err, simplevideo.ErrAssetNotFound)
}

type recordingSink struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (r *recordingSink) record(event string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return r.err
}

func (r *recordingSink) AssetCreated(ctx context.Context, asset *simplevideo.Asset) error {
	return r.record("created")
}

func (r *recordingSink) AssetUpdated(ctx context.Context, asset *simplevideo.Asset) error {
	return r.record("updated")
}

func (r *recordingSink) AssetDeleted(ctx context.Context, assetID uuid.UUID) error {
	return r.record("deleted")
}

func (r *recordingSink) VersionAdded(ctx context.Context, version *simplevideo.Version) error {
	return r.record("version_added")
}

func (r *recordingSink) AssetViewed(ctx context.Context, assetID uuid.UUID, viewCount int64) error {
	return r.record("viewed")
}

func TestEventSink(t *testing.T) {
	for _, sinkErr := range []error{nil, errors.New("sink unavailable")} {
		sink := &recordingSink{err: sinkErr}
		s := setupTestStore(t, simplevideo.WithEventSink(sink))
		ctx := context.Background()

		asset := s.createAsset(t, "Observed")
		s.addVersion(t, asset.ID, "bytes")
		title := "Observed again"
		_, err := s.engine.UpdateAsset(ctx, asset.ID, simplevideo.UpdateAssetRequest{Title: &title}, "tester")
		require.NoError(t, err)
		_, err = s.engine.IncrementView(ctx, asset.ID)
		require.NoError(t, err)
		require.NoError(t, s.engine.SoftDelete(ctx, asset.ID, "tester"))

		assert.Equal(t, []string{"created", "version_added", "updated", "viewed", "deleted"}, sink.events)
	}
}
