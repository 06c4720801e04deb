package simplevideo

import (
	"io"
	"time"

	"github.com/google/uuid"
)

// CreateAssetRequest contains parameters for registering a new asset
type CreateAssetRequest struct {
	Title            string
	Description      string
	OriginalFileName string
	FileSizeBytes    int64
	FileFormat       string
	DurationSeconds  float64
	ThumbnailPath    string
	Tags             []string
}

// UpdateAssetRequest contains the editable asset fields; nil leaves a field
// unchanged and an empty non-nil Tags clears the tag set
type UpdateAssetRequest struct {
	Title       *string
	Description *string
	Tags        []string
}

// UploadAssetRequest creates an asset and its first version from one file.
// Size and format are taken from the upload itself.
type UploadAssetRequest struct {
	Title             string
	Description       string
	OriginalFileName  string
	Tags              []string
	Reader            io.Reader
	ChangeDescription string // defaults to InitialUploadDescription
}

// AddVersionRequest contains parameters for uploading a new version
type AddVersionRequest struct {
	AssetID           uuid.UUID
	Reader            io.Reader
	ChangeDescription string
}

// QueryRequest contains listing parameters as received from a caller. Zero
// values select the defaults.
type QueryRequest struct {
	Search      string
	SortBy      string
	Ascending   bool
	Page        int
	PageSize    int
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// Page is one page of a listing.
type Page[T any] struct {
	Items       []T   `json:"items"`
	TotalCount  int64 `json:"total_count"`
	Page        int   `json:"page"`
	PageSize    int   `json:"page_size"`
	TotalPages  int   `json:"total_pages"`
	HasPrevious bool  `json:"has_previous"`
	HasNext     bool  `json:"has_next"`
}
