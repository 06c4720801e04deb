package sqlite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-video/pkg/simplevideo"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Config options for the SQLite catalog
type Config struct {
	Path        string        // Database file path
	BusyTimeout time.Duration // How long a writer waits for the database lock (default: 5s)
	LogLevel    logger.LogLevel
	Logger      *slog.Logger
}

// Catalog implements simplevideo.CatalogStore on SQLite through gorm.
// Transactions begin IMMEDIATE, so writers are serialized by the database
// lock and a version append can never interleave with another.
type Catalog struct {
	db *gorm.DB
}

// Open opens (creating if needed) the database at config.Path and migrates its schema.
func Open(ctx context.Context, config Config) (*Catalog, error) {
	if config.Path == "" {
		return nil, errors.New("database path is required")
	}
	if config.BusyTimeout == 0 {
		config.BusyTimeout = 5 * time.Second
	}
	if config.LogLevel == 0 {
		config.LogLevel = logger.Warn
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_txlock=immediate&_foreign_keys=on&_journal_mode=WAL",
		config.Path, config.BusyTimeout.Milliseconds())

	gormLogger := logger.New(slogWriter{logger: config.Logger}, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  config.LogLevel,
		IgnoreRecordNotFoundError: true,
	})

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
		NowFunc:        utcNow,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sqlite connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	catalog := New(db)
	if err := catalog.Migrate(ctx); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return catalog, nil
}

// New wraps an existing gorm handle. The schema must already exist; see Migrate.
func New(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

var _ simplevideo.CatalogStore = (*Catalog)(nil)

// slogWriter routes gorm's log output to slog.
type slogWriter struct {
	logger *slog.Logger
}

func (w slogWriter) Printf(format string, args ...interface{}) {
	w.logger.Warn(fmt.Sprintf(format, args...), "component", "gorm")
}

// Migrate creates or updates the catalog tables.
func (c *Catalog) Migrate(ctx context.Context) error {
	db := c.db.WithContext(ctx)
	if err := db.AutoMigrate(&assetRow{}, &versionRow{}, &metadataRow{}); err != nil {
		return fmt.Errorf("failed to migrate catalog schema: %w", err)
	}
	if err := db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS uq_asset_versions_active ON asset_versions (asset_id) WHERE is_active`).Error; err != nil {
		return fmt.Errorf("failed to create active version index: %w", err)
	}
	if err := backfillFolds(db); err != nil {
		return fmt.Errorf("failed to backfill search columns: %w", err)
	}
	return nil
}

// backfillFolds fills the folded search columns of rows written before
// they existed. Titles are never empty, so an empty title_fold marks them.
func backfillFolds(db *gorm.DB) error {
	var rows []assetRow
	if err := db.Select("id", "title", "description", "original_file_name").Where("title_fold = ''").Find(&rows).Error; err != nil {
		return err
	}
	for _, r := range rows {
		err := db.Model(&assetRow{}).Where("id = ?", r.ID).Updates(map[string]interface{}{
			"title_fold":              fold(r.Title),
			"description_fold":        fold(r.Description),
			"original_file_name_fold": fold(r.OriginalFileName),
		}).Error
		if err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying connection.
func (c *Catalog) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Asset operations

func (c *Catalog) CreateAsset(ctx context.Context, asset *simplevideo.Asset, meta *simplevideo.Metadata) error {
	metaRow, err := newMetadataRow(asset.ID, meta)
	if err != nil {
		return err
	}
	metaRow.ViewCount = 0

	err = c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(newAssetRow(asset)).Error; err != nil {
			return err
		}
		return tx.Create(metaRow).Error
	})
	return translate("create asset", err)
}

func (c *Catalog) GetAsset(ctx context.Context, id uuid.UUID) (*simplevideo.Asset, error) {
	row, err := activeAsset(c.db.WithContext(ctx), id)
	if err != nil {
		return nil, translate("get asset", err)
	}
	return row.toAsset(), nil
}

func (c *Catalog) GetAssetIncludingDeleted(ctx context.Context, id uuid.UUID) (*simplevideo.Asset, error) {
	var row assetRow
	if err := c.db.WithContext(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return nil, translate("get asset", notFound(err, simplevideo.ErrAssetNotFound))
	}
	return row.toAsset(), nil
}

func (c *Catalog) GetMetadata(ctx context.Context, id uuid.UUID) (*simplevideo.Metadata, error) {
	meta, err := getMetadata(c.db.WithContext(ctx), id)
	if err != nil {
		return nil, translate("get metadata", err)
	}
	return meta, nil
}

func (c *Catalog) UpdateAsset(ctx context.Context, update simplevideo.AssetUpdate) (*simplevideo.Asset, error) {
	columns := map[string]interface{}{
		"updated_at": update.UpdatedAt.UTC(),
		"updated_by": update.UpdatedBy,
	}
	if update.Title != nil {
		columns["title"] = *update.Title
		columns["title_fold"] = fold(*update.Title)
	}
	if update.Description != nil {
		columns["description"] = *update.Description
		columns["description_fold"] = fold(*update.Description)
	}

	var row *assetRow
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&assetRow{}).
			Where("id = ? AND status = ?", update.ID, simplevideo.AssetStatusActive).
			Updates(columns)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return simplevideo.ErrAssetNotFound
		}

		if update.Tags != nil {
			encoded, err := encodeTags(update.Tags)
			if err != nil {
				return err
			}
			if err := tx.Model(&metadataRow{}).Where("asset_id = ?", update.ID).Update("tags", encoded).Error; err != nil {
				return err
			}
		}

		var err error
		row, err = activeAsset(tx, update.ID)
		return err
	})
	if err != nil {
		return nil, translate("update asset", err)
	}
	return row.toAsset(), nil
}

func (c *Catalog) SetTechnicalMetadata(ctx context.Context, id uuid.UUID, tech simplevideo.TechnicalMetadata) error {
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := activeAsset(tx, id); err != nil {
			return err
		}
		var row metadataRow
		row.setTechnical(tech)
		return tx.Model(&metadataRow{}).
			Where("asset_id = ?", id).
			Select("width", "height", "resolution", "frame_rate", "video_codec", "audio_codec", "bit_rate",
				"aspect_ratio", "color_space", "audio_channels", "audio_sample_rate", "container").
			Updates(&row).Error
	})
	return translate("set technical metadata", err)
}

func (c *Catalog) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time, actor string) error {
	at = at.UTC()
	result := c.db.WithContext(ctx).Model(&assetRow{}).
		Where("id = ? AND status = ?", id, simplevideo.AssetStatusActive).
		Updates(map[string]interface{}{
			"status":     string(simplevideo.AssetStatusDeleted),
			"deleted_at": at,
			"updated_at": at,
			"updated_by": actor,
		})
	if result.Error != nil {
		return translate("soft delete asset", result.Error)
	}
	if result.RowsAffected == 0 {
		return simplevideo.ErrAssetNotFound
	}
	return nil
}

func (c *Catalog) IncrementView(ctx context.Context, id uuid.UUID, at time.Time) (int64, error) {
	var count int64
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&metadataRow{}).
			Where("asset_id = ? AND EXISTS (SELECT 1 FROM assets WHERE assets.id = asset_metadata.asset_id AND assets.status = ?)",
				id, simplevideo.AssetStatusActive).
			Updates(map[string]interface{}{
				"view_count":     gorm.Expr("view_count + 1"),
				"last_viewed_at": at.UTC(),
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return simplevideo.ErrAssetNotFound
		}
		return tx.Model(&metadataRow{}).Where("asset_id = ?", id).Pluck("view_count", &count).Error
	})
	if err != nil {
		return 0, translate("increment view", err)
	}
	return count, nil
}

// Version operations

func (c *Catalog) MaxVersionNumber(ctx context.Context, assetID uuid.UUID) (int, error) {
	db := c.db.WithContext(ctx)
	if _, err := activeAsset(db, assetID); err != nil {
		return 0, translate("max version number", err)
	}
	latest, err := maxNumber(db, assetID)
	if err != nil {
		return 0, translate("max version number", err)
	}
	return latest, nil
}

func (c *Catalog) AppendVersion(ctx context.Context, v *simplevideo.Version) error {
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var asset assetRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", v.AssetID).
			First(&asset).Error
		if err != nil {
			return notFound(err, simplevideo.ErrAssetNotFound)
		}
		if asset.Status != string(simplevideo.AssetStatusActive) {
			return simplevideo.ErrAssetNotFound
		}

		latest, err := maxNumber(tx, v.AssetID)
		if err != nil {
			return err
		}
		if v.Number != latest+1 {
			return fmt.Errorf("version %d is stale, next is %d: %w", v.Number, latest+1, simplevideo.ErrConflict)
		}

		if err := tx.Model(&versionRow{}).
			Where("asset_id = ? AND is_active = ?", v.AssetID, true).
			Update("is_active", false).Error; err != nil {
			return err
		}

		row := newVersionRow(v)
		row.IsActive = true
		return tx.Create(row).Error
	})
	if err != nil {
		return translate("append version", err)
	}
	v.IsActive = true
	return nil
}

func (c *Catalog) GetVersion(ctx context.Context, assetID uuid.UUID, number int) (*simplevideo.Version, error) {
	return c.getVersion(ctx, assetID, "number = ?", number)
}

func (c *Catalog) GetActiveVersion(ctx context.Context, assetID uuid.UUID) (*simplevideo.Version, error) {
	return c.getVersion(ctx, assetID, "is_active = ?", true)
}

func (c *Catalog) getVersion(ctx context.Context, assetID uuid.UUID, predicate string, arg interface{}) (*simplevideo.Version, error) {
	var row versionRow
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := activeAsset(tx, assetID); err != nil {
			return err
		}
		err := tx.Where("asset_id = ?", assetID).Where(predicate, arg).First(&row).Error
		return notFound(err, simplevideo.ErrVersionNotFound)
	})
	if err != nil {
		return nil, translate("get version", err)
	}
	return row.toVersion(), nil
}

func (c *Catalog) ListVersions(ctx context.Context, assetID uuid.UUID) ([]*simplevideo.Version, error) {
	var versions []*simplevideo.Version
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := activeAsset(tx, assetID); err != nil {
			return err
		}
		var err error
		versions, err = listVersions(tx, assetID)
		return err
	})
	if err != nil {
		return nil, translate("list versions", err)
	}
	return versions, nil
}

func (c *Catalog) FindAssetWithVersions(ctx context.Context, id uuid.UUID) (*simplevideo.AssetWithVersions, error) {
	var result *simplevideo.AssetWithVersions
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		asset, err := activeAsset(tx, id)
		if err != nil {
			return err
		}
		meta, err := getMetadata(tx, id)
		if err != nil {
			return err
		}
		versions, err := listVersions(tx, id)
		if err != nil {
			return err
		}
		result = &simplevideo.AssetWithVersions{Asset: asset.toAsset(), Metadata: meta, Versions: versions}
		return nil
	})
	if err != nil {
		return nil, translate("find asset with versions", err)
	}
	return result, nil
}

// Listing

func (c *Catalog) ListAssets(ctx context.Context, params simplevideo.ListParams) ([]*simplevideo.AssetSummary, int64, error) {
	var total int64
	var rows []summaryRow
	err := c.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := filtered(tx.Table("assets AS a"), params).Count(&total).Error; err != nil {
			return err
		}

		query := filtered(tx.Table("assets AS a"), params).
			Select(`a.*, COALESCE(m.tags, '[]') AS tags, COALESCE(m.view_count, 0) AS view_count,
				(SELECT COUNT(*) FROM asset_versions v WHERE v.asset_id = a.id) AS version_count,
				(SELECT v.number FROM asset_versions v WHERE v.asset_id = a.id AND v.is_active) AS active_version`).
			Joins("LEFT JOIN asset_metadata m ON m.asset_id = a.id").
			Order(orderBy(params)).
			Order("a.id ASC").
			Offset(params.Offset)
		if params.Limit > 0 {
			query = query.Limit(params.Limit)
		}
		return query.Scan(&rows).Error
	})
	if err != nil {
		return nil, 0, translate("list assets", err)
	}

	summaries := make([]*simplevideo.AssetSummary, 0, len(rows))
	for i := range rows {
		s, err := rows[i].toSummary()
		if err != nil {
			return nil, 0, err
		}
		summaries = append(summaries, s)
	}
	return summaries, total, nil
}

// filtered applies the listing predicate. Soft-deleted assets are always excluded.
func filtered(db *gorm.DB, params simplevideo.ListParams) *gorm.DB {
	db = db.Where("a.status = ?", simplevideo.AssetStatusActive)
	if params.Search != "" {
		pattern := "%" + escapeLike(fold(params.Search)) + "%"
		db = db.Where(`(a.title_fold LIKE ? ESCAPE '\' OR a.description_fold LIKE ? ESCAPE '\' OR a.original_file_name_fold LIKE ? ESCAPE '\')`,
			pattern, pattern, pattern)
	}
	if params.CreatedFrom != nil {
		db = db.Where("a.created_at >= ?", params.CreatedFrom.UTC())
	}
	if params.CreatedTo != nil {
		db = db.Where("a.created_at <= ?", params.CreatedTo.UTC())
	}
	return db
}

func orderBy(params simplevideo.ListParams) string {
	var column string
	switch params.Sort {
	case simplevideo.SortByTitle:
		column = "a.title_fold"
	case simplevideo.SortBySize:
		column = "a.file_size_bytes"
	case simplevideo.SortByDuration:
		column = "a.duration_seconds"
	default:
		column = "a.created_at"
	}
	if params.Descending {
		return column + " DESC"
	}
	return column + " ASC"
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Helpers

func activeAsset(db *gorm.DB, id uuid.UUID) (*assetRow, error) {
	var row assetRow
	err := db.Where("id = ? AND status = ?", id, simplevideo.AssetStatusActive).First(&row).Error
	if err != nil {
		return nil, notFound(err, simplevideo.ErrAssetNotFound)
	}
	return &row, nil
}

func getMetadata(db *gorm.DB, id uuid.UUID) (*simplevideo.Metadata, error) {
	if _, err := activeAsset(db, id); err != nil {
		return nil, err
	}
	var row metadataRow
	if err := db.Where("asset_id = ?", id).First(&row).Error; err != nil {
		return nil, notFound(err, simplevideo.ErrAssetNotFound)
	}
	return row.toMetadata()
}

func maxNumber(db *gorm.DB, assetID uuid.UUID) (int, error) {
	var latest int
	err := db.Model(&versionRow{}).
		Where("asset_id = ?", assetID).
		Select("COALESCE(MAX(number), 0)").
		Scan(&latest).Error
	return latest, err
}

func listVersions(db *gorm.DB, assetID uuid.UUID) ([]*simplevideo.Version, error) {
	var rows []versionRow
	if err := db.Where("asset_id = ?", assetID).Order("number ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	versions := make([]*simplevideo.Version, 0, len(rows))
	for i := range rows {
		versions = append(versions, rows[i].toVersion())
	}
	return versions, nil
}

func utcNow() time.Time {
	return time.Now().UTC()
}

func notFound(err, target error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return target
	}
	return err
}

// translate maps gorm and driver errors onto the store's error kinds.
func translate(operation string, err error) error {
	if err == nil {
		return nil
	}
	if simplevideo.Kind(err) != simplevideo.KindUnknown {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%s: duplicate entry: %w", operation, simplevideo.ErrConflict)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%s: %w", operation, simplevideo.ErrAssetNotFound)
	case strings.Contains(err.Error(), "database is locked"):
		return fmt.Errorf("%s: %v: %w", operation, err, simplevideo.ErrConflict)
	}
	return &simplevideo.PersistenceError{Op: operation, Err: err}
}
