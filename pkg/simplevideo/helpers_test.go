package simplevideo_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-video/pkg/simplevideo"
	memorycatalog "github.com/tendant/simple-video/pkg/simplevideo/catalog/memory"
	memorycontent "github.com/tendant/simple-video/pkg/simplevideo/content/memory"
)

// stepClock advances by step on every call so creation order is strict.
type stepClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func newStepClock() *stepClock {
	return &stepClock{
		now:  time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
		step: time.Second,
	}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.step)
	return c.now
}

type testStore struct {
	catalog *memorycatalog.Catalog
	content *memorycontent.Store
	engine  *simplevideo.Engine
	query   *simplevideo.QueryService
	clock   *stepClock
}

func setupTestStore(t *testing.T, options ...simplevideo.Option) *testStore {
	t.Helper()

	catalog := memorycatalog.New()
	return setupTestStoreWithCatalog(t, catalog, catalog, options...)
}

func setupTestStoreWithCatalog(t *testing.T, mem *memorycatalog.Catalog, catalog simplevideo.CatalogStore, options ...simplevideo.Option) *testStore {
	t.Helper()

	content := memorycontent.New()
	clock := newStepClock()

	opts := []simplevideo.Option{
		simplevideo.WithCatalog(catalog),
		simplevideo.WithContent(content),
		simplevideo.WithClock(clock.Now),
		simplevideo.WithSpoolDir(t.TempDir()),
	}
	opts = append(opts, options...)

	engine, err := simplevideo.NewEngine(opts...)
	require.NoError(t, err)

	query, err := simplevideo.NewQueryService(catalog)
	require.NoError(t, err)

	return &testStore{
		catalog: mem,
		content: content,
		engine:  engine,
		query:   query,
		clock:   clock,
	}
}

func (s *testStore) createAsset(t *testing.T, title string) *simplevideo.Asset {
	t.Helper()

	asset, err := s.engine.CreateAsset(context.Background(), simplevideo.CreateAssetRequest{
		Title:            title,
		OriginalFileName: strings.ReplaceAll(strings.ToLower(title), " ", "_") + ".mp4",
		FileSizeBytes:    1024,
		FileFormat:       "mp4",
		DurationSeconds:  60,
	}, "tester")
	require.NoError(t, err)
	return asset
}

func (s *testStore) addVersion(t *testing.T, assetID uuid.UUID, data string) *simplevideo.Version {
	t.Helper()

	version, err := s.engine.AddVersion(context.Background(), simplevideo.AddVersionRequest{
		AssetID: assetID,
		Reader:  strings.NewReader(data),
	}, "tester")
	require.NoError(t, err)
	return version
}
