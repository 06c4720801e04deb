package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-video/pkg/simplevideo"
)

// Catalog implements simplevideo.CatalogStore in memory. A single lock
// serializes writers, which trivially gives per-asset serialization.
type Catalog struct {
	mu       sync.RWMutex
	assets   map[uuid.UUID]*simplevideo.Asset
	metadata map[uuid.UUID]*simplevideo.Metadata
	versions map[uuid.UUID][]*simplevideo.Version // asset_id -> versions by number
}

// New creates a new in-memory catalog
func New() *Catalog {
	return &Catalog{
		assets:   make(map[uuid.UUID]*simplevideo.Asset),
		metadata: make(map[uuid.UUID]*simplevideo.Metadata),
		versions: make(map[uuid.UUID][]*simplevideo.Version),
	}
}

var _ simplevideo.CatalogStore = (*Catalog)(nil)

// Asset operations

func (c *Catalog) CreateAsset(ctx context.Context, asset *simplevideo.Asset, meta *simplevideo.Metadata) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.assets[asset.ID]; exists {
		return simplevideo.ErrConflict
	}

	c.assets[asset.ID] = copyAsset(asset)
	m := copyMetadata(meta)
	m.AssetID = asset.ID
	c.metadata[asset.ID] = m
	return nil
}

func (c *Catalog) GetAsset(ctx context.Context, id uuid.UUID) (*simplevideo.Asset, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	asset, err := c.activeAsset(id)
	if err != nil {
		return nil, err
	}
	return copyAsset(asset), nil
}

func (c *Catalog) GetAssetIncludingDeleted(ctx context.Context, id uuid.UUID) (*simplevideo.Asset, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	asset, exists := c.assets[id]
	if !exists {
		return nil, simplevideo.ErrAssetNotFound
	}
	return copyAsset(asset), nil
}

func (c *Catalog) GetMetadata(ctx context.Context, id uuid.UUID) (*simplevideo.Metadata, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, err := c.activeAsset(id); err != nil {
		return nil, err
	}
	return copyMetadata(c.metadata[id]), nil
}

func (c *Catalog) UpdateAsset(ctx context.Context, update simplevideo.AssetUpdate) (*simplevideo.Asset, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored, err := c.activeAsset(update.ID)
	if err != nil {
		return nil, err
	}

	if update.Title != nil {
		stored.Title = *update.Title
	}
	if update.Description != nil {
		stored.Description = *update.Description
	}
	updatedAt := update.UpdatedAt
	stored.UpdatedAt = &updatedAt
	stored.UpdatedBy = update.UpdatedBy
	if update.Tags != nil {
		c.metadata[update.ID].Tags = simplevideo.NewTags(update.Tags...)
	}
	return copyAsset(stored), nil
}

func (c *Catalog) SetTechnicalMetadata(ctx context.Context, id uuid.UUID, tech simplevideo.TechnicalMetadata) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.activeAsset(id); err != nil {
		return err
	}
	c.metadata[id].TechnicalMetadata = copyTechnical(tech)
	return nil
}

func (c *Catalog) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time, actor string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	asset, err := c.activeAsset(id)
	if err != nil {
		return err
	}
	asset.Status = simplevideo.AssetStatusDeleted
	asset.DeletedAt = &at
	asset.UpdatedAt = &at
	asset.UpdatedBy = actor
	return nil
}

func (c *Catalog) IncrementView(ctx context.Context, id uuid.UUID, at time.Time) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.activeAsset(id); err != nil {
		return 0, err
	}
	meta := c.metadata[id]
	meta.ViewCount++
	meta.LastViewedAt = &at
	return meta.ViewCount, nil
}

// Version operations

func (c *Catalog) MaxVersionNumber(ctx context.Context, assetID uuid.UUID) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, err := c.activeAsset(assetID); err != nil {
		return 0, err
	}
	return c.maxNumber(assetID), nil
}

func (c *Catalog) AppendVersion(ctx context.Context, v *simplevideo.Version) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.activeAsset(v.AssetID); err != nil {
		return err
	}
	if v.Number != c.maxNumber(v.AssetID)+1 {
		return simplevideo.ErrConflict
	}

	for _, sibling := range c.versions[v.AssetID] {
		sibling.IsActive = false
	}
	stored := *v
	stored.IsActive = true
	c.versions[v.AssetID] = append(c.versions[v.AssetID], &stored)
	return nil
}

func (c *Catalog) GetVersion(ctx context.Context, assetID uuid.UUID, number int) (*simplevideo.Version, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, err := c.activeAsset(assetID); err != nil {
		return nil, err
	}
	for _, v := range c.versions[assetID] {
		if v.Number == number {
			versionCopy := *v
			return &versionCopy, nil
		}
	}
	return nil, simplevideo.ErrVersionNotFound
}

func (c *Catalog) GetActiveVersion(ctx context.Context, assetID uuid.UUID) (*simplevideo.Version, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, err := c.activeAsset(assetID); err != nil {
		return nil, err
	}
	for _, v := range c.versions[assetID] {
		if v.IsActive {
			versionCopy := *v
			return &versionCopy, nil
		}
	}
	return nil, simplevideo.ErrVersionNotFound
}

func (c *Catalog) ListVersions(ctx context.Context, assetID uuid.UUID) ([]*simplevideo.Version, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, err := c.activeAsset(assetID); err != nil {
		return nil, err
	}
	return c.copyVersions(assetID), nil
}

func (c *Catalog) FindAssetWithVersions(ctx context.Context, id uuid.UUID) (*simplevideo.AssetWithVersions, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	asset, err := c.activeAsset(id)
	if err != nil {
		return nil, err
	}
	return &simplevideo.AssetWithVersions{
		Asset:    copyAsset(asset),
		Metadata: copyMetadata(c.metadata[id]),
		Versions: c.copyVersions(id),
	}, nil
}

// Listing

func (c *Catalog) ListAssets(ctx context.Context, params simplevideo.ListParams) ([]*simplevideo.AssetSummary, int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	term := strings.ToLower(params.Search)
	var matched []*simplevideo.Asset
	for _, asset := range c.assets {
		if asset.IsDeleted() {
			continue
		}
		if term != "" && !matchesSearch(asset, term) {
			continue
		}
		if params.CreatedFrom != nil && asset.CreatedAt.Before(*params.CreatedFrom) {
			continue
		}
		if params.CreatedTo != nil && asset.CreatedAt.After(*params.CreatedTo) {
			continue
		}
		matched = append(matched, asset)
	}

	sort.Slice(matched, func(i, j int) bool {
		return less(matched[i], matched[j], params.Sort, params.Descending)
	})

	total := int64(len(matched))
	if params.Offset >= len(matched) {
		return []*simplevideo.AssetSummary{}, total, nil
	}
	end := len(matched)
	if params.Limit > 0 && params.Offset+params.Limit < end {
		end = params.Offset + params.Limit
	}

	summaries := make([]*simplevideo.AssetSummary, 0, end-params.Offset)
	for _, asset := range matched[params.Offset:end] {
		summaries = append(summaries, c.summary(asset))
	}
	return summaries, total, nil
}

// Helpers (callers hold the lock)

func (c *Catalog) activeAsset(id uuid.UUID) (*simplevideo.Asset, error) {
	asset, exists := c.assets[id]
	if !exists || asset.IsDeleted() {
		return nil, simplevideo.ErrAssetNotFound
	}
	return asset, nil
}

func (c *Catalog) maxNumber(assetID uuid.UUID) int {
	latest := 0
	for _, v := range c.versions[assetID] {
		if v.Number > latest {
			latest = v.Number
		}
	}
	return latest
}

func (c *Catalog) copyVersions(assetID uuid.UUID) []*simplevideo.Version {
	versions := make([]*simplevideo.Version, 0, len(c.versions[assetID]))
	for _, v := range c.versions[assetID] {
		versionCopy := *v
		versions = append(versions, &versionCopy)
	}
	return versions
}

func (c *Catalog) summary(asset *simplevideo.Asset) *simplevideo.AssetSummary {
	s := &simplevideo.AssetSummary{
		Asset:        *copyAsset(asset),
		VersionCount: len(c.versions[asset.ID]),
	}
	if meta, ok := c.metadata[asset.ID]; ok {
		s.Tags = meta.Tags.Clone()
		s.ViewCount = meta.ViewCount
	}
	for _, v := range c.versions[asset.ID] {
		if v.IsActive {
			number := v.Number
			s.ActiveVersion = &number
		}
	}
	return s
}

func matchesSearch(asset *simplevideo.Asset, term string) bool {
	return strings.Contains(strings.ToLower(asset.Title), term) ||
		strings.Contains(strings.ToLower(asset.Description), term) ||
		strings.Contains(strings.ToLower(asset.OriginalFileName), term)
}

// less orders by the sort key in the requested direction, then by id
// ascending so pages are stable.
func less(a, b *simplevideo.Asset, key simplevideo.SortKey, desc bool) bool {
	var cmp int
	switch key {
	case simplevideo.SortByTitle:
		cmp = strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title))
	case simplevideo.SortBySize:
		cmp = compare(a.FileSizeBytes, b.FileSizeBytes)
	case simplevideo.SortByDuration:
		cmp = compare(a.DurationSeconds, b.DurationSeconds)
	default:
		cmp = a.CreatedAt.Compare(b.CreatedAt)
	}
	if cmp != 0 {
		if desc {
			return cmp > 0
		}
		return cmp < 0
	}
	return strings.Compare(a.ID.String(), b.ID.String()) < 0
}

func compare[T int64 | float64](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyAsset(a *simplevideo.Asset) *simplevideo.Asset {
	assetCopy := *a
	assetCopy.UpdatedAt = copyTime(a.UpdatedAt)
	assetCopy.DeletedAt = copyTime(a.DeletedAt)
	return &assetCopy
}

func copyMetadata(m *simplevideo.Metadata) *simplevideo.Metadata {
	if m == nil {
		return &simplevideo.Metadata{Tags: simplevideo.Tags{}}
	}
	metaCopy := *m
	metaCopy.TechnicalMetadata = copyTechnical(m.TechnicalMetadata)
	metaCopy.Tags = m.Tags.Clone()
	metaCopy.LastViewedAt = copyTime(m.LastViewedAt)
	return &metaCopy
}

func copyTechnical(t simplevideo.TechnicalMetadata) simplevideo.TechnicalMetadata {
	if t.Width != nil {
		w := *t.Width
		t.Width = &w
	}
	if t.Height != nil {
		h := *t.Height
		t.Height = &h
	}
	if t.FrameRate != nil {
		f := *t.FrameRate
		t.FrameRate = &f
	}
	if t.BitRate != nil {
		b := *t.BitRate
		t.BitRate = &b
	}
	return t
}
