package simplevideo

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// ContentStore persists raw version bytes. Keys are derived from
// (asset id, version number) and are never overwritten.
type ContentStore interface {
	// Put writes r under the key for (assetID, number) and returns its
	// location. It fails with ErrContentExists if the key is taken.
	Put(ctx context.Context, assetID uuid.UUID, number int, r io.Reader) (string, error)

	// Get opens the bytes at location. It fails with ErrContentNotFound if
	// nothing is stored there.
	Get(ctx context.Context, location string) (io.ReadCloser, error)

	// Delete removes location and reports whether anything was removed.
	Delete(ctx context.Context, location string) (bool, error)
}

// AssetUpdate is a partial edit of an asset. Nil fields are left as stored,
// so concurrent edits of different fields do not overwrite each other.
type AssetUpdate struct {
	ID          uuid.UUID
	Title       *string
	Description *string
	Tags        Tags
	UpdatedAt   time.Time
	UpdatedBy   string
}

// CatalogStore persists assets, versions and metadata. Every method except
// GetAssetIncludingDeleted treats soft-deleted assets as absent.
type CatalogStore interface {
	// CreateAsset inserts the asset and its metadata in one transaction.
	CreateAsset(ctx context.Context, asset *Asset, meta *Metadata) error
	GetAsset(ctx context.Context, id uuid.UUID) (*Asset, error)
	GetAssetIncludingDeleted(ctx context.Context, id uuid.UUID) (*Asset, error)
	GetMetadata(ctx context.Context, id uuid.UUID) (*Metadata, error)

	// UpdateAsset applies the non-nil fields of update in one transaction
	// and returns the asset as stored afterwards.
	UpdateAsset(ctx context.Context, update AssetUpdate) (*Asset, error)
	SetTechnicalMetadata(ctx context.Context, id uuid.UUID, tech TechnicalMetadata) error

	// SoftDelete flips an active asset to deleted. An already deleted asset
	// reports ErrAssetNotFound.
	SoftDelete(ctx context.Context, id uuid.UUID, at time.Time, actor string) error

	// IncrementView adds one to the view count and stamps the last viewed
	// time without a read-modify-write race.
	IncrementView(ctx context.Context, id uuid.UUID, at time.Time) (int64, error)

	// MaxVersionNumber returns the highest version number of the asset, or 0.
	MaxVersionNumber(ctx context.Context, assetID uuid.UUID) (int, error)

	// AppendVersion locks the asset, re-checks that v.Number is the next
	// number, deactivates every sibling and inserts v as active. All of it
	// commits together or not at all; a stale number reports ErrConflict.
	AppendVersion(ctx context.Context, v *Version) error

	GetVersion(ctx context.Context, assetID uuid.UUID, number int) (*Version, error)
	GetActiveVersion(ctx context.Context, assetID uuid.UUID) (*Version, error)
	ListVersions(ctx context.Context, assetID uuid.UUID) ([]*Version, error)
	FindAssetWithVersions(ctx context.Context, id uuid.UUID) (*AssetWithVersions, error)

	// ListAssets returns one page of summaries and the size of the whole
	// filtered set, read from a single snapshot.
	ListAssets(ctx context.Context, params ListParams) ([]*AssetSummary, int64, error)
}

// SortKey orders asset listings.
type SortKey string

const (
	SortByCreatedDate SortKey = "createdDate"
	SortByTitle       SortKey = "title"
	SortBySize        SortKey = "size"
	SortByDuration    SortKey = "duration"
)

// ListParams is the store-level listing request. The query service fills
// it in; stores apply it verbatim. Ties are broken by asset id.
type ListParams struct {
	Search      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Sort        SortKey
	Descending  bool
	Offset      int
	Limit       int
}

// EventSink receives lifecycle notifications after a mutation commits.
type EventSink interface {
	AssetCreated(ctx context.Context, asset *Asset) error
	AssetUpdated(ctx context.Context, asset *Asset) error
	AssetDeleted(ctx context.Context, assetID uuid.UUID) error
	VersionAdded(ctx context.Context, version *Version) error
	AssetViewed(ctx context.Context, assetID uuid.UUID, viewCount int64) error
}
