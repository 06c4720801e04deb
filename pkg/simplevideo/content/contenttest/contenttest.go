// Package contenttest holds behavior tests shared by every
// simplevideo.ContentStore implementation.
package contenttest

import (
	"bytes"
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-video/pkg/simplevideo"
)

// Run exercises store against the content store contract.
func Run(t *testing.T, store simplevideo.ContentStore) {
	t.Run("PutGetDelete", func(t *testing.T) { testPutGetDelete(t, store) })
	t.Run("NeverOverwrites", func(t *testing.T) { testNeverOverwrites(t, store) })
	t.Run("ConcurrentPut", func(t *testing.T) { testConcurrentPut(t, store) })
	t.Run("Missing", func(t *testing.T) { testMissing(t, store) })
	t.Run("LargeContent", func(t *testing.T) { testLargeContent(t, store) })
}

func read(t *testing.T, store simplevideo.ContentStore, location string) []byte {
	t.Helper()
	rc, err := store.Get(context.Background(), location)
	require.NoError(t, err)
	defer rc.Close()
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	return data
}

func testPutGetDelete(t *testing.T, store simplevideo.ContentStore) {
	ctx := context.Background()
	assetID := uuid.New()

	location, err := store.Put(ctx, assetID, 1, strings.NewReader("frame data"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(location, simplevideo.ContentLocation(assetID, 1)), "unexpected location %s", location)
	assert.Equal(t, "frame data", string(read(t, store, location)))

	second, err := store.Put(ctx, assetID, 2, strings.NewReader("more frames"))
	require.NoError(t, err)
	assert.NotEqual(t, location, second)

	deleted, err := store.Delete(ctx, location)
	require.NoError(t, err)
	assert.True(t, deleted)

	_, err = store.Get(ctx, location)
	assert.ErrorIs(t, err, simplevideo.ErrContentNotFound)

	// Deleting one version leaves its siblings alone
	assert.Equal(t, "more frames", string(read(t, store, second)))

	deleted, err = store.Delete(ctx, location)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func testNeverOverwrites(t *testing.T, store simplevideo.ContentStore) {
	ctx := context.Background()
	assetID := uuid.New()

	location, err := store.Put(ctx, assetID, 1, strings.NewReader("original"))
	require.NoError(t, err)

	_, err = store.Put(ctx, assetID, 1, strings.NewReader("replacement"))
	assert.ErrorIs(t, err, simplevideo.ErrContentExists)
	assert.Equal(t, simplevideo.KindConflict, simplevideo.Kind(err))

	assert.Equal(t, "original", string(read(t, store, location)))
}

func testConcurrentPut(t *testing.T, store simplevideo.ContentStore) {
	ctx := context.Background()
	assetID := uuid.New()

	const writers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	var locations []string
	for i := 0; i < writers; i++ {
		payload := bytes.Repeat([]byte{byte('a' + i)}, 4096)
		wg.Add(1)
		go func() {
			defer wg.Done()
			location, err := store.Put(ctx, assetID, 1, bytes.NewReader(payload))
			if err != nil {
				assert.ErrorIs(t, err, simplevideo.ErrContentExists)
				return
			}
			mu.Lock()
			locations = append(locations, location)
			mu.Unlock()
		}()
	}
	wg.Wait()
	require.Len(t, locations, 1)

	// The stored bytes come from exactly one writer
	data := read(t, store, locations[0])
	require.Len(t, data, 4096)
	assert.Equal(t, bytes.Repeat(data[:1], 4096), data)
}

func testMissing(t *testing.T, store simplevideo.ContentStore) {
	ctx := context.Background()

	_, err := store.Get(ctx, simplevideo.ContentLocation(uuid.New(), 1))
	assert.ErrorIs(t, err, simplevideo.ErrContentNotFound)
	assert.Equal(t, simplevideo.KindNotFound, simplevideo.Kind(err))

	deleted, err := store.Delete(ctx, simplevideo.ContentLocation(uuid.New(), 1))
	require.NoError(t, err)
	assert.False(t, deleted)
}

func testLargeContent(t *testing.T, store simplevideo.ContentStore) {
	ctx := context.Background()
	payload := bytes.Repeat([]byte("0123456789abcdef"), 1<<16) // 1 MiB

	location, err := store.Put(ctx, uuid.New(), 1, bytes.NewReader(payload))
	require.NoError(t, err)
	assert.Equal(t, payload, read(t, store, location))
}
