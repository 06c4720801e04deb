package fs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-video/pkg/simplevideo"
	"github.com/tendant/simple-video/pkg/simplevideo/content/contenttest"
	"github.com/tendant/simple-video/pkg/simplevideo/content/fs"
)

func newTestStore(t *testing.T) (*fs.Store, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := fs.New(fs.Config{BaseDir: dir})
	require.NoError(t, err)
	return store, dir
}

func TestStoreContract(t *testing.T) {
	store, _ := newTestStore(t)
	contenttest.Run(t, store)
}

func TestNewRequiresBaseDir(t *testing.T) {
	_, err := fs.New(fs.Config{})
	assert.Error(t, err)
}

func TestPutLayout(t *testing.T) {
	store, dir := newTestStore(t)
	ctx := context.Background()
	assetID := uuid.New()

	location, err := store.Put(ctx, assetID, 3, strings.NewReader("on disk"))
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(location)))
	require.NoError(t, err)
	assert.Equal(t, "on disk", string(data))

	// No temp files are left behind
	entries, err := os.ReadDir(filepath.Join(dir, ".incoming"))
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = store.Delete(ctx, location)
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "videos", assetID.String()))
	assert.True(t, os.IsNotExist(err), "empty asset directory should be removed")
}

func TestRejectsEscapingLocations(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "../outside")
	assert.ErrorIs(t, err, simplevideo.ErrValidation)

	_, err = store.Delete(ctx, "videos/../../outside")
	assert.ErrorIs(t, err, simplevideo.ErrValidation)
}

func TestPutCanceledContext(t *testing.T) {
	store, dir := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assetID := uuid.New()
	_, err := store.Put(ctx, assetID, 1, strings.NewReader("never written"))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, simplevideo.ErrStorage)
	assert.Equal(t, simplevideo.KindCanceled, simplevideo.Kind(err))

	_, err = store.Get(context.Background(), simplevideo.ContentLocation(assetID, 1))
	assert.ErrorIs(t, err, simplevideo.ErrContentNotFound)

	entries, err := os.ReadDir(filepath.Join(dir, ".incoming"))
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// cancelingReader cancels its context once the first chunk has been read,
// the way a client that drops mid-upload does.
type cancelingReader struct {
	cancel context.CancelFunc
	sent   bool
}

func (r *cancelingReader) Read(p []byte) (int, error) {
	if r.sent {
		return 0, errors.New("connection reset by peer")
	}
	r.sent = true
	r.cancel()
	return copy(p, "partial"), nil
}

func TestPutCanceledMidStream(t *testing.T) {
	store, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	assetID := uuid.New()
	_, err := store.Put(ctx, assetID, 1, &cancelingReader{cancel: cancel})
	require.Error(t, err)
	assert.Equal(t, simplevideo.KindCanceled, simplevideo.Kind(err))

	_, err = store.Get(context.Background(), simplevideo.ContentLocation(assetID, 1))
	assert.ErrorIs(t, err, simplevideo.ErrContentNotFound)
}
