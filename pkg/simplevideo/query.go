package simplevideo

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultPageSize    = 20
	DefaultMaxPageSize = 100
)

// AssetView is the read model of an asset in listings.
type AssetView struct {
	Asset
	Tags           Tags  `json:"tags"`
	ViewCount      int64 `json:"view_count"`
	VersionCount   int   `json:"version_count"`
	CurrentVersion int   `json:"current_version"`
}

// AssetDetail is the read model of a single asset.
type AssetDetail struct {
	AssetView
	Metadata *Metadata  `json:"metadata"`
	Versions []*Version `json:"versions"`
}

// QueryService serves read models over a catalog store.
type QueryService struct {
	catalog         CatalogStore
	defaultPageSize int
	maxPageSize     int
}

// QueryOption configures a QueryService.
type QueryOption func(*QueryService)

// WithPageSizes sets the page size used when none is requested and the cap
// applied to every request.
func WithPageSizes(defaultSize, maxSize int) QueryOption {
	return func(q *QueryService) {
		if maxSize > 0 {
			q.maxPageSize = maxSize
		}
		if defaultSize > 0 {
			q.defaultPageSize = defaultSize
		}
	}
}

// NewQueryService creates a query service over catalog.
func NewQueryService(catalog CatalogStore, options ...QueryOption) (*QueryService, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog store is required")
	}

	q := &QueryService{
		catalog:         catalog,
		defaultPageSize: DefaultPageSize,
		maxPageSize:     DefaultMaxPageSize,
	}
	for _, option := range options {
		option(q)
	}
	if q.defaultPageSize > q.maxPageSize {
		q.defaultPageSize = q.maxPageSize
	}
	return q, nil
}

// ParseSortKey maps a caller supplied sort name to a SortKey. Matching is
// case-insensitive; anything unrecognized sorts by creation date.
func ParseSortKey(s string) SortKey {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "title", "name":
		return SortByTitle
	case "size", "filesize", "filesizebytes":
		return SortBySize
	case "duration", "durationseconds":
		return SortByDuration
	default:
		return SortByCreatedDate
	}
}

// Query returns one page of active assets. Page numbers below 1 become 1,
// page sizes are silently capped, and pages past the end are empty.
func (q *QueryService) Query(ctx context.Context, req QueryRequest) (*Page[*AssetView], error) {
	if req.CreatedFrom != nil && req.CreatedTo != nil && req.CreatedFrom.After(*req.CreatedTo) {
		return nil, &ValidationError{Field: "date_range", Reason: "start must not be after end"}
	}

	page, size := q.clampPage(req.Page, req.PageSize)
	params := ListParams{
		Search:      strings.TrimSpace(req.Search),
		CreatedFrom: utcPtr(req.CreatedFrom),
		CreatedTo:   utcPtr(req.CreatedTo),
		Sort:        ParseSortKey(req.SortBy),
		Descending:  !req.Ascending,
		Offset:      (page - 1) * size,
		Limit:       size,
	}

	summaries, total, err := q.catalog.ListAssets(ctx, params)
	if err != nil {
		return nil, q.wrap("query", err)
	}

	items := make([]*AssetView, 0, len(summaries))
	for _, s := range summaries {
		items = append(items, newAssetView(s))
	}

	totalPages := int(math.Ceil(float64(total) / float64(size)))
	return &Page[*AssetView]{
		Items:       items,
		TotalCount:  total,
		Page:        page,
		PageSize:    size,
		TotalPages:  totalPages,
		HasPrevious: page > 1,
		HasNext:     page < totalPages,
	}, nil
}

// SearchByText matches term case-insensitively against title, description
// and original file name.
func (q *QueryService) SearchByText(ctx context.Context, term string, page, pageSize int) (*Page[*AssetView], error) {
	return q.Query(ctx, QueryRequest{Search: term, Page: page, PageSize: pageSize})
}

// FilterByDateRange lists assets created within [from, to], newest first.
func (q *QueryService) FilterByDateRange(ctx context.Context, from, to time.Time, page, pageSize int) (*Page[*AssetView], error) {
	return q.Query(ctx, QueryRequest{CreatedFrom: &from, CreatedTo: &to, Page: page, PageSize: pageSize})
}

// ListRecent returns the n newest assets, n clamped to [1, max page size].
func (q *QueryService) ListRecent(ctx context.Context, n int) ([]*AssetView, error) {
	if n < 1 {
		n = 1
	}
	result, err := q.Query(ctx, QueryRequest{Page: 1, PageSize: n})
	if err != nil {
		return nil, err
	}
	return result.Items, nil
}

// Get returns one asset with its metadata and every version.
func (q *QueryService) Get(ctx context.Context, id uuid.UUID) (*AssetDetail, error) {
	found, err := q.catalog.FindAssetWithVersions(ctx, id)
	if err != nil {
		return nil, &AssetError{AssetID: id, Op: "get", Err: q.wrap("get", err)}
	}

	summary := &AssetSummary{
		Asset:        *found.Asset,
		VersionCount: len(found.Versions),
	}
	if found.Metadata != nil {
		summary.Tags = found.Metadata.Tags
		summary.ViewCount = found.Metadata.ViewCount
	}
	for _, v := range found.Versions {
		if v.IsActive {
			number := v.Number
			summary.ActiveVersion = &number
		}
	}

	versions := found.Versions
	if versions == nil {
		versions = []*Version{}
	}
	return &AssetDetail{
		AssetView: *newAssetView(summary),
		Metadata:  found.Metadata,
		Versions:  versions,
	}, nil
}

func (q *QueryService) clampPage(page, size int) (int, int) {
	if size <= 0 {
		size = q.defaultPageSize
	}
	if size > q.maxPageSize {
		size = q.maxPageSize
	}
	if page < 1 {
		page = 1
	}
	if maxPage := math.MaxInt32 / size; page > maxPage {
		page = maxPage
	}
	return page, size
}

func (q *QueryService) wrap(op string, err error) error {
	if Kind(err) == KindUnknown {
		return &PersistenceError{Op: op, Err: err}
	}
	return err
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func newAssetView(s *AssetSummary) *AssetView {
	return &AssetView{
		Asset:          s.Asset,
		Tags:           s.Tags.Clone(),
		ViewCount:      s.ViewCount,
		VersionCount:   s.VersionCount,
		CurrentVersion: s.CurrentVersion(),
	}
}
