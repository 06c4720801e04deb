package sqlite

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-video/pkg/simplevideo"
	"gorm.io/datatypes"
)

type assetRow struct {
	ID               uuid.UUID  `gorm:"type:text;primaryKey"`
	Title            string     `gorm:"size:255;not null"`
	Description      string     `gorm:"size:2000;not null;default:''"`
	OriginalFileName string     `gorm:"not null;default:''"`
	FileSizeBytes    int64      `gorm:"not null"`
	FileFormat       string     `gorm:"not null;default:''"`
	DurationSeconds  float64    `gorm:"not null;default:0"`
	ThumbnailPath    string     `gorm:"not null;default:''"`
	Status           string     `gorm:"size:16;not null;default:'active';index:idx_assets_status_created_at,priority:1"`
	CreatedAt        time.Time  `gorm:"not null;index:idx_assets_status_created_at,priority:2"`
	CreatedBy        string     `gorm:"not null"`
	UpdatedAt        *time.Time `gorm:"autoUpdateTime:false"`
	UpdatedBy        string     `gorm:"not null;default:''"`
	DeletedAt        *time.Time

	// Lower-cased copies used for search and title ordering. SQLite's
	// LOWER only folds ASCII.
	TitleFold            string `gorm:"not null;default:''"`
	DescriptionFold      string `gorm:"not null;default:''"`
	OriginalFileNameFold string `gorm:"not null;default:''"`
}

func (assetRow) TableName() string { return "assets" }

type versionRow struct {
	ID                uuid.UUID `gorm:"type:text;primaryKey"`
	AssetID           uuid.UUID `gorm:"type:text;not null;uniqueIndex:uq_asset_versions_number,priority:1"`
	Number            int       `gorm:"not null;uniqueIndex:uq_asset_versions_number,priority:2"`
	Location          string    `gorm:"not null"`
	SizeBytes         int64     `gorm:"not null"`
	Hash              string    `gorm:"size:64;not null"`
	ChangeDescription string    `gorm:"not null;default:''"`
	CreatedBy         string    `gorm:"not null"`
	CreatedAt         time.Time `gorm:"not null"`
	IsActive          bool      `gorm:"not null;default:false"`
	Asset             *assetRow `gorm:"foreignKey:AssetID;constraint:OnDelete:CASCADE"`
}

func (versionRow) TableName() string { return "asset_versions" }

type metadataRow struct {
	AssetID         uuid.UUID `gorm:"type:text;primaryKey"`
	Width           *int
	Height          *int
	Resolution      string `gorm:"not null;default:''"`
	FrameRate       *float64
	VideoCodec      string `gorm:"not null;default:''"`
	AudioCodec      string `gorm:"not null;default:''"`
	BitRate         *int64
	AspectRatio     string         `gorm:"not null;default:''"`
	ColorSpace      string         `gorm:"not null;default:''"`
	AudioChannels   string         `gorm:"not null;default:''"`
	AudioSampleRate string         `gorm:"not null;default:''"`
	Container       string         `gorm:"not null;default:''"`
	Tags            datatypes.JSON `gorm:"not null"`
	ViewCount       int64          `gorm:"not null;default:0"`
	LastViewedAt    *time.Time
	Asset           *assetRow `gorm:"foreignKey:AssetID;constraint:OnDelete:CASCADE"`
}

func (metadataRow) TableName() string { return "asset_metadata" }

// summaryRow is the shape of a listing query result.
type summaryRow struct {
	Asset         assetRow `gorm:"embedded"`
	Tags          datatypes.JSON
	ViewCount     int64
	VersionCount  int
	ActiveVersion *int
}

func newAssetRow(a *simplevideo.Asset) *assetRow {
	return &assetRow{
		ID:               a.ID,
		Title:            a.Title,
		Description:      a.Description,
		OriginalFileName: a.OriginalFileName,
		FileSizeBytes:    a.FileSizeBytes,
		FileFormat:       a.FileFormat,
		DurationSeconds:  a.DurationSeconds,
		ThumbnailPath:    a.ThumbnailPath,
		Status:           string(a.Status),
		CreatedAt:        a.CreatedAt.UTC(),
		CreatedBy:        a.CreatedBy,
		UpdatedAt:        utc(a.UpdatedAt),
		UpdatedBy:        a.UpdatedBy,
		DeletedAt:        utc(a.DeletedAt),

		TitleFold:            fold(a.Title),
		DescriptionFold:      fold(a.Description),
		OriginalFileNameFold: fold(a.OriginalFileName),
	}
}

func fold(s string) string {
	return strings.ToLower(s)
}

func (r *assetRow) toAsset() *simplevideo.Asset {
	return &simplevideo.Asset{
		ID:               r.ID,
		Title:            r.Title,
		Description:      r.Description,
		OriginalFileName: r.OriginalFileName,
		FileSizeBytes:    r.FileSizeBytes,
		FileFormat:       r.FileFormat,
		DurationSeconds:  r.DurationSeconds,
		ThumbnailPath:    r.ThumbnailPath,
		Status:           simplevideo.AssetStatus(r.Status),
		CreatedAt:        r.CreatedAt.UTC(),
		CreatedBy:        r.CreatedBy,
		UpdatedAt:        utc(r.UpdatedAt),
		UpdatedBy:        r.UpdatedBy,
		DeletedAt:        utc(r.DeletedAt),
	}
}

func newVersionRow(v *simplevideo.Version) *versionRow {
	return &versionRow{
		ID:                v.ID,
		AssetID:           v.AssetID,
		Number:            v.Number,
		Location:          v.Location,
		SizeBytes:         v.SizeBytes,
		Hash:              v.Hash,
		ChangeDescription: v.ChangeDescription,
		CreatedBy:         v.CreatedBy,
		CreatedAt:         v.CreatedAt.UTC(),
		IsActive:          v.IsActive,
	}
}

func (r *versionRow) toVersion() *simplevideo.Version {
	return &simplevideo.Version{
		ID:                r.ID,
		AssetID:           r.AssetID,
		Number:            r.Number,
		Location:          r.Location,
		SizeBytes:         r.SizeBytes,
		Hash:              r.Hash,
		ChangeDescription: r.ChangeDescription,
		CreatedBy:         r.CreatedBy,
		CreatedAt:         r.CreatedAt.UTC(),
		IsActive:          r.IsActive,
	}
}

func newMetadataRow(assetID uuid.UUID, m *simplevideo.Metadata) (*metadataRow, error) {
	tags, err := encodeTags(m.Tags)
	if err != nil {
		return nil, err
	}
	row := &metadataRow{
		AssetID:   assetID,
		Tags:      tags,
		ViewCount: m.ViewCount,
	}
	row.setTechnical(m.TechnicalMetadata)
	return row, nil
}

func (r *metadataRow) setTechnical(t simplevideo.TechnicalMetadata) {
	r.Width = t.Width
	r.Height = t.Height
	r.Resolution = t.Resolution
	r.FrameRate = t.FrameRate
	r.VideoCodec = t.VideoCodec
	r.AudioCodec = t.AudioCodec
	r.BitRate = t.BitRate
	r.AspectRatio = t.AspectRatio
	r.ColorSpace = t.ColorSpace
	r.AudioChannels = t.AudioChannels
	r.AudioSampleRate = t.AudioSampleRate
	r.Container = t.Container
}

func (r *metadataRow) toMetadata() (*simplevideo.Metadata, error) {
	tags, err := decodeTags(r.Tags)
	if err != nil {
		return nil, err
	}
	return &simplevideo.Metadata{
		TechnicalMetadata: simplevideo.TechnicalMetadata{
			Width:           r.Width,
			Height:          r.Height,
			Resolution:      r.Resolution,
			FrameRate:       r.FrameRate,
			VideoCodec:      r.VideoCodec,
			AudioCodec:      r.AudioCodec,
			BitRate:         r.BitRate,
			AspectRatio:     r.AspectRatio,
			ColorSpace:      r.ColorSpace,
			AudioChannels:   r.AudioChannels,
			AudioSampleRate: r.AudioSampleRate,
			Container:       r.Container,
		},
		AssetID:      r.AssetID,
		Tags:         tags,
		ViewCount:    r.ViewCount,
		LastViewedAt: utc(r.LastViewedAt),
	}, nil
}

func (r *summaryRow) toSummary() (*simplevideo.AssetSummary, error) {
	tags, err := decodeTags(r.Tags)
	if err != nil {
		return nil, err
	}
	return &simplevideo.AssetSummary{
		Asset:         *r.Asset.toAsset(),
		VersionCount:  r.VersionCount,
		ActiveVersion: r.ActiveVersion,
		Tags:          tags,
		ViewCount:     r.ViewCount,
	}, nil
}

func encodeTags(tags simplevideo.Tags) (datatypes.JSON, error) {
	data, err := json.Marshal([]string(simplevideo.NewTags(tags...)))
	if err != nil {
		return nil, &simplevideo.PersistenceError{Op: "encode tags", Err: err}
	}
	return datatypes.JSON(data), nil
}

func decodeTags(data datatypes.JSON) (simplevideo.Tags, error) {
	if len(data) == 0 {
		return simplevideo.Tags{}, nil
	}
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, &simplevideo.PersistenceError{Op: "decode tags", Err: err}
	}
	return simplevideo.NewTags(values...), nil
}

func utc(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
