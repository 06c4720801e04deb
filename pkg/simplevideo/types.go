package simplevideo

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultActor is recorded when a caller does not identify itself.
const DefaultActor = "System"

// InitialUploadDescription labels the first version of an uploaded asset.
const InitialUploadDescription = "Initial upload"

// AssetStatus is the lifecycle state of an asset.
type AssetStatus string

const (
	AssetStatusActive  AssetStatus = "active"
	AssetStatusDeleted AssetStatus = "deleted"
)

// Asset is a logical video, independent of any stored file.
type Asset struct {
	ID               uuid.UUID   `json:"id"`
	Title            string      `json:"title"`
	Description      string      `json:"description,omitempty"`
	OriginalFileName string      `json:"original_file_name,omitempty"`
	FileSizeBytes    int64       `json:"file_size_bytes"`
	FileFormat       string      `json:"file_format,omitempty"`
	DurationSeconds  float64     `json:"duration_seconds"`
	ThumbnailPath    string      `json:"thumbnail_path,omitempty"`
	Status           AssetStatus `json:"status"`
	CreatedAt        time.Time   `json:"created_at"`
	CreatedBy        string      `json:"created_by"`
	UpdatedAt        *time.Time  `json:"updated_at,omitempty"`
	UpdatedBy        string      `json:"updated_by,omitempty"`
	DeletedAt        *time.Time  `json:"deleted_at,omitempty"`
}

// IsDeleted reports whether the asset has been soft-deleted.
func (a *Asset) IsDeleted() bool {
	return a.Status == AssetStatusDeleted
}

// Version is one immutable stored rendition of an asset's bytes.
type Version struct {
	ID                uuid.UUID `json:"id"`
	AssetID           uuid.UUID `json:"asset_id"`
	Number            int       `json:"number"`
	Location          string    `json:"location"`
	SizeBytes         int64     `json:"size_bytes"`
	Hash              string    `json:"hash"`
	ChangeDescription string    `json:"change_description,omitempty"`
	CreatedBy         string    `json:"created_by"`
	CreatedAt         time.Time `json:"created_at"`
	IsActive          bool      `json:"is_active"`
}

// Metadata holds technical and engagement attributes of an asset.
type Metadata struct {
	TechnicalMetadata

	AssetID      uuid.UUID  `json:"asset_id"`
	Tags         Tags       `json:"tags"`
	ViewCount    int64      `json:"view_count"`
	LastViewedAt *time.Time `json:"last_viewed_at,omitempty"`
}

// TechnicalMetadata is supplied by an external inspector; nothing in this
// package computes it.
type TechnicalMetadata struct {
	Width           *int     `json:"width,omitempty"`
	Height          *int     `json:"height,omitempty"`
	Resolution      string   `json:"resolution,omitempty"`
	FrameRate       *float64 `json:"frame_rate,omitempty"`
	VideoCodec      string   `json:"video_codec,omitempty"`
	AudioCodec      string   `json:"audio_codec,omitempty"`
	BitRate         *int64   `json:"bit_rate,omitempty"`
	AspectRatio     string   `json:"aspect_ratio,omitempty"`
	ColorSpace      string   `json:"color_space,omitempty"`
	AudioChannels   string   `json:"audio_channels,omitempty"`
	AudioSampleRate string   `json:"audio_sample_rate,omitempty"`
	Container       string   `json:"container,omitempty"`
}

// ContentLocation returns the deterministic content key for a version.
func ContentLocation(assetID uuid.UUID, number int) string {
	return fmt.Sprintf("videos/%s/versions/v%d", assetID, number)
}

// FileFormat returns the lower-case extension of name without its dot,
// e.g. "mp4" for "Clip.MP4".
func FileFormat(name string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
}

// AssetSummary is a listing row: the asset plus derived version facts.
type AssetSummary struct {
	Asset
	VersionCount  int   `json:"version_count"`
	ActiveVersion *int  `json:"active_version,omitempty"`
	Tags          Tags  `json:"tags"`
	ViewCount     int64 `json:"view_count"`
}

// CurrentVersion is the active version number, or 1 if no version exists yet.
func (s *AssetSummary) CurrentVersion() int {
	if s.ActiveVersion == nil {
		return 1
	}
	return *s.ActiveVersion
}

// AssetWithVersions is an asset joined with its metadata and full version set.
type AssetWithVersions struct {
	Asset    *Asset
	Metadata *Metadata
	Versions []*Version
}
