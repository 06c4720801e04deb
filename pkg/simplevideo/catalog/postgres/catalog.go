package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/simple-video/pkg/simplevideo"
)

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// DB is a DBTX that can also open transactions, such as *pgxpool.Pool or *pgx.Conn.
type DB interface {
	DBTX
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// Catalog implements simplevideo.CatalogStore using PostgreSQL. Version
// appends lock the asset row, so concurrent appends to one asset queue
// while other assets proceed.
type Catalog struct {
	db DB
}

// New creates a new PostgreSQL catalog
func New(db DB) *Catalog {
	return &Catalog{db: db}
}

// NewWithPool creates a new PostgreSQL catalog with connection pool
func NewWithPool(pool *pgxpool.Pool) *Catalog {
	return &Catalog{db: pool}
}

var _ simplevideo.CatalogStore = (*Catalog)(nil)

const assetColumns = `a.id, a.title, a.description, a.original_file_name, a.file_size_bytes, a.file_format,
	a.duration_seconds, a.thumbnail_path, a.status, a.created_at, a.created_by, a.updated_at, a.updated_by, a.deleted_at`

const versionColumns = `id, asset_id, number, location, size_bytes, hash, change_description, created_by, created_at, is_active`

const metadataColumns = `asset_id, width, height, resolution, frame_rate, video_codec, audio_codec, bit_rate,
	aspect_ratio, color_space, audio_channels, audio_sample_rate, container, tags, view_count, last_viewed_at`

// Asset operations

func (c *Catalog) CreateAsset(ctx context.Context, asset *simplevideo.Asset, meta *simplevideo.Metadata) error {
	tags, err := encodeTags(meta.Tags)
	if err != nil {
		return err
	}

	err = pgx.BeginTxFunc(ctx, c.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO assets (id, title, description, original_file_name, file_size_bytes, file_format,
				duration_seconds, thumbnail_path, status, created_at, created_by, updated_at, updated_by, deleted_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
			asset.ID, asset.Title, asset.Description, asset.OriginalFileName, asset.FileSizeBytes, asset.FileFormat,
			asset.DurationSeconds, asset.ThumbnailPath, string(asset.Status), asset.CreatedAt, asset.CreatedBy,
			asset.UpdatedAt, asset.UpdatedBy, asset.DeletedAt)
		if err != nil {
			return err
		}

		tech := meta.TechnicalMetadata
		_, err = tx.Exec(ctx, `
			INSERT INTO asset_metadata (asset_id, width, height, resolution, frame_rate, video_codec, audio_codec,
				bit_rate, aspect_ratio, color_space, audio_channels, audio_sample_rate, container, tags, view_count)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14::jsonb, 0)`,
			asset.ID, tech.Width, tech.Height, tech.Resolution, tech.FrameRate, tech.VideoCodec, tech.AudioCodec,
			tech.BitRate, tech.AspectRatio, tech.ColorSpace, tech.AudioChannels, tech.AudioSampleRate, tech.Container,
			tags)
		return err
	})
	if err != nil {
		return handlePostgresError("create asset", err)
	}
	return nil
}

func (c *Catalog) GetAsset(ctx context.Context, id uuid.UUID) (*simplevideo.Asset, error) {
	return c.getAsset(ctx, c.db, id, false)
}

func (c *Catalog) GetAssetIncludingDeleted(ctx context.Context, id uuid.UUID) (*simplevideo.Asset, error) {
	return c.getAsset(ctx, c.db, id, true)
}

func (c *Catalog) getAsset(ctx context.Context, db DBTX, id uuid.UUID, includeDeleted bool) (*simplevideo.Asset, error) {
	query := `SELECT ` + assetColumns + ` FROM assets a WHERE a.id = $1`
	if !includeDeleted {
		query += ` AND a.status = 'active'`
	}

	asset, err := scanAsset(db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simplevideo.ErrAssetNotFound
		}
		return nil, handlePostgresError("get asset", err)
	}
	return asset, nil
}

func (c *Catalog) GetMetadata(ctx context.Context, id uuid.UUID) (*simplevideo.Metadata, error) {
	return c.getMetadata(ctx, c.db, id)
}

func (c *Catalog) getMetadata(ctx context.Context, db DBTX, id uuid.UUID) (*simplevideo.Metadata, error) {
	row := db.QueryRow(ctx, `
		SELECT `+metadataColumns+`
		FROM asset_metadata m
		WHERE m.asset_id = $1
		  AND EXISTS (SELECT 1 FROM assets a WHERE a.id = m.asset_id AND a.status = 'active')`, id)

	meta, err := scanMetadata(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simplevideo.ErrAssetNotFound
		}
		return nil, handlePostgresError("get metadata", err)
	}
	return meta, nil
}

func (c *Catalog) UpdateAsset(ctx context.Context, update simplevideo.AssetUpdate) (*simplevideo.Asset, error) {
	var encoded *string
	if update.Tags != nil {
		s, err := encodeTags(update.Tags)
		if err != nil {
			return nil, err
		}
		encoded = &s
	}

	var asset *simplevideo.Asset
	err := pgx.BeginTxFunc(ctx, c.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		// COALESCE keeps columns the caller left nil, evaluated under the row lock
		row := tx.QueryRow(ctx, `
			UPDATE assets AS a SET
				title = COALESCE($2::text, a.title),
				description = COALESCE($3::text, a.description),
				updated_at = $4, updated_by = $5
			WHERE a.id = $1 AND a.status = 'active'
			RETURNING `+assetColumns,
			update.ID, update.Title, update.Description, update.UpdatedAt, update.UpdatedBy)
		var err error
		asset, err = scanAsset(row)
		if errors.Is(err, pgx.ErrNoRows) {
			return simplevideo.ErrAssetNotFound
		}
		if err != nil {
			return err
		}

		if encoded != nil {
			if _, err := tx.Exec(ctx, `UPDATE asset_metadata SET tags = $2::jsonb WHERE asset_id = $1`, update.ID, *encoded); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, handlePostgresError("update asset", err)
	}
	return asset, nil
}

func (c *Catalog) SetTechnicalMetadata(ctx context.Context, id uuid.UUID, tech simplevideo.TechnicalMetadata) error {
	tag, err := c.db.Exec(ctx, `
		UPDATE asset_metadata m SET
			width = $2, height = $3, resolution = $4, frame_rate = $5, video_codec = $6, audio_codec = $7,
			bit_rate = $8, aspect_ratio = $9, color_space = $10, audio_channels = $11, audio_sample_rate = $12,
			container = $13
		FROM assets a
		WHERE m.asset_id = $1 AND a.id = m.asset_id AND a.status = 'active'`,
		id, tech.Width, tech.Height, tech.Resolution, tech.FrameRate, tech.VideoCodec, tech.AudioCodec,
		tech.BitRate, tech.AspectRatio, tech.ColorSpace, tech.AudioChannels, tech.AudioSampleRate, tech.Container)
	if err != nil {
		return handlePostgresError("set technical metadata", err)
	}
	if tag.RowsAffected() == 0 {
		return simplevideo.ErrAssetNotFound
	}
	return nil
}

func (c *Catalog) SoftDelete(ctx context.Context, id uuid.UUID, at time.Time, actor string) error {
	tag, err := c.db.Exec(ctx, `
		UPDATE assets SET status = 'deleted', deleted_at = $2, updated_at = $2, updated_by = $3
		WHERE id = $1 AND status = 'active'`, id, at, actor)
	if err != nil {
		return handlePostgresError("soft delete asset", err)
	}
	if tag.RowsAffected() == 0 {
		return simplevideo.ErrAssetNotFound
	}
	return nil
}

// IncrementView is a single UPDATE, so concurrent views never lose a count.
func (c *Catalog) IncrementView(ctx context.Context, id uuid.UUID, at time.Time) (int64, error) {
	var count int64
	err := c.db.QueryRow(ctx, `
		UPDATE asset_metadata m SET view_count = m.view_count + 1, last_viewed_at = $2
		FROM assets a
		WHERE m.asset_id = $1 AND a.id = m.asset_id AND a.status = 'active'
		RETURNING m.view_count`, id, at).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, simplevideo.ErrAssetNotFound
		}
		return 0, handlePostgresError("increment view", err)
	}
	return count, nil
}

// Version operations

func (c *Catalog) MaxVersionNumber(ctx context.Context, assetID uuid.UUID) (int, error) {
	var latest int
	var active bool
	err := c.db.QueryRow(ctx, `
		SELECT a.status = 'active', COALESCE((SELECT MAX(v.number) FROM asset_versions v WHERE v.asset_id = a.id), 0)
		FROM assets a WHERE a.id = $1`, assetID).Scan(&active, &latest)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, simplevideo.ErrAssetNotFound
		}
		return 0, handlePostgresError("max version number", err)
	}
	if !active {
		return 0, simplevideo.ErrAssetNotFound
	}
	return latest, nil
}

func (c *Catalog) AppendVersion(ctx context.Context, v *simplevideo.Version) error {
	err := pgx.BeginTxFunc(ctx, c.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var status string
		err := tx.QueryRow(ctx, `SELECT status FROM assets WHERE id = $1 FOR UPDATE`, v.AssetID).Scan(&status)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return simplevideo.ErrAssetNotFound
			}
			return err
		}
		if status != string(simplevideo.AssetStatusActive) {
			return simplevideo.ErrAssetNotFound
		}

		var latest int
		err = tx.QueryRow(ctx, `SELECT COALESCE(MAX(number), 0) FROM asset_versions WHERE asset_id = $1`, v.AssetID).Scan(&latest)
		if err != nil {
			return err
		}
		if v.Number != latest+1 {
			return fmt.Errorf("version %d is stale, next is %d: %w", v.Number, latest+1, simplevideo.ErrConflict)
		}

		if _, err := tx.Exec(ctx, `UPDATE asset_versions SET is_active = FALSE WHERE asset_id = $1 AND is_active`, v.AssetID); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO asset_versions (`+versionColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, TRUE)`,
			v.ID, v.AssetID, v.Number, v.Location, v.SizeBytes, v.Hash, v.ChangeDescription, v.CreatedBy, v.CreatedAt)
		return err
	})
	if err != nil {
		return handlePostgresError("append version", err)
	}
	v.IsActive = true
	return nil
}

func (c *Catalog) GetVersion(ctx context.Context, assetID uuid.UUID, number int) (*simplevideo.Version, error) {
	return c.getVersion(ctx, assetID, `v.number = $2`, number)
}

func (c *Catalog) GetActiveVersion(ctx context.Context, assetID uuid.UUID) (*simplevideo.Version, error) {
	return c.getVersion(ctx, assetID, `v.is_active`)
}

// getVersion distinguishes a missing asset from a missing version.
func (c *Catalog) getVersion(ctx context.Context, assetID uuid.UUID, predicate string, extra ...interface{}) (*simplevideo.Version, error) {
	if _, err := c.GetAsset(ctx, assetID); err != nil {
		return nil, err
	}

	args := append([]interface{}{assetID}, extra...)
	row := c.db.QueryRow(ctx, `
		SELECT `+prefixed("v", versionColumns)+`
		FROM asset_versions v
		JOIN assets a ON a.id = v.asset_id AND a.status = 'active'
		WHERE v.asset_id = $1 AND `+predicate, args...)

	version, err := scanVersion(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, simplevideo.ErrVersionNotFound
		}
		return nil, handlePostgresError("get version", err)
	}
	return version, nil
}

func (c *Catalog) ListVersions(ctx context.Context, assetID uuid.UUID) ([]*simplevideo.Version, error) {
	if _, err := c.GetAsset(ctx, assetID); err != nil {
		return nil, err
	}
	return c.listVersions(ctx, c.db, assetID)
}

func (c *Catalog) listVersions(ctx context.Context, db DBTX, assetID uuid.UUID) ([]*simplevideo.Version, error) {
	rows, err := db.Query(ctx, `SELECT `+versionColumns+` FROM asset_versions WHERE asset_id = $1 ORDER BY number`, assetID)
	if err != nil {
		return nil, handlePostgresError("list versions", err)
	}
	defer rows.Close()

	versions := []*simplevideo.Version{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, handlePostgresError("list versions", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, handlePostgresError("list versions", err)
	}
	return versions, nil
}

// FindAssetWithVersions reads the asset, its metadata and versions from one snapshot.
func (c *Catalog) FindAssetWithVersions(ctx context.Context, id uuid.UUID) (*simplevideo.AssetWithVersions, error) {
	var result *simplevideo.AssetWithVersions
	err := pgx.BeginTxFunc(ctx, c.db, readSnapshot, func(tx pgx.Tx) error {
		asset, err := c.getAsset(ctx, tx, id, false)
		if err != nil {
			return err
		}
		meta, err := c.getMetadata(ctx, tx, id)
		if err != nil {
			return err
		}
		versions, err := c.listVersions(ctx, tx, id)
		if err != nil {
			return err
		}
		result = &simplevideo.AssetWithVersions{Asset: asset, Metadata: meta, Versions: versions}
		return nil
	})
	if err != nil {
		return nil, handlePostgresError("find asset with versions", err)
	}
	return result, nil
}

// Listing

var readSnapshot = pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly}

func (c *Catalog) ListAssets(ctx context.Context, params simplevideo.ListParams) ([]*simplevideo.AssetSummary, int64, error) {
	where, args := buildListWhere(params)

	var total int64
	summaries := []*simplevideo.AssetSummary{}
	err := pgx.BeginTxFunc(ctx, c.db, readSnapshot, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM assets a WHERE `+where, args...).Scan(&total); err != nil {
			return err
		}

		limitArg := len(args) + 1
		query := fmt.Sprintf(`
			SELECT %s, COALESCE(m.tags, '[]'::jsonb), COALESCE(m.view_count, 0),
				(SELECT COUNT(*) FROM asset_versions v WHERE v.asset_id = a.id),
				(SELECT v.number FROM asset_versions v WHERE v.asset_id = a.id AND v.is_active)
			FROM assets a
			LEFT JOIN asset_metadata m ON m.asset_id = a.id
			WHERE %s
			ORDER BY %s, a.id ASC
			LIMIT $%d OFFSET $%d`, assetColumns, where, orderBy(params), limitArg, limitArg+1)

		// LIMIT NULL returns every row
		var limit *int
		if params.Limit > 0 {
			limit = &params.Limit
		}
		rows, err := tx.Query(ctx, query, append(args, limit, params.Offset)...)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			s, err := scanSummary(rows)
			if err != nil {
				return err
			}
			summaries = append(summaries, s)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, 0, handlePostgresError("list assets", err)
	}
	return summaries, total, nil
}

// buildListWhere builds the WHERE clause for listings. Soft-deleted assets
// are always excluded.
func buildListWhere(params simplevideo.ListParams) (string, []interface{}) {
	where := "a.status = 'active'"
	args := []interface{}{}
	argIndex := 1

	if params.Search != "" {
		where += fmt.Sprintf(` AND (a.title ILIKE $%d ESCAPE '\' OR a.description ILIKE $%d ESCAPE '\' OR a.original_file_name ILIKE $%d ESCAPE '\')`,
			argIndex, argIndex, argIndex)
		args = append(args, "%"+escapeLike(params.Search)+"%")
		argIndex++
	}
	if params.CreatedFrom != nil {
		where += fmt.Sprintf(" AND a.created_at >= $%d", argIndex)
		args = append(args, *params.CreatedFrom)
		argIndex++
	}
	if params.CreatedTo != nil {
		where += fmt.Sprintf(" AND a.created_at <= $%d", argIndex)
		args = append(args, *params.CreatedTo)
	}
	return where, args
}

func orderBy(params simplevideo.ListParams) string {
	var column string
	switch params.Sort {
	case simplevideo.SortByTitle:
		column = "LOWER(a.title)"
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

func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// Scanning

func scanAsset(row pgx.Row) (*simplevideo.Asset, error) {
	var a simplevideo.Asset
	var status string
	err := row.Scan(&a.ID, &a.Title, &a.Description, &a.OriginalFileName, &a.FileSizeBytes, &a.FileFormat,
		&a.DurationSeconds, &a.ThumbnailPath, &status, &a.CreatedAt, &a.CreatedBy, &a.UpdatedAt, &a.UpdatedBy, &a.DeletedAt)
	if err != nil {
		return nil, err
	}
	a.Status = simplevideo.AssetStatus(status)
	return &a, nil
}

func scanSummary(rows pgx.Rows) (*simplevideo.AssetSummary, error) {
	var s simplevideo.AssetSummary
	var status string
	var tags []byte
	err := rows.Scan(&s.ID, &s.Title, &s.Description, &s.OriginalFileName, &s.FileSizeBytes, &s.FileFormat,
		&s.DurationSeconds, &s.ThumbnailPath, &status, &s.CreatedAt, &s.CreatedBy, &s.UpdatedAt, &s.UpdatedBy, &s.DeletedAt,
		&tags, &s.ViewCount, &s.VersionCount, &s.ActiveVersion)
	if err != nil {
		return nil, err
	}
	s.Status = simplevideo.AssetStatus(status)
	if s.Tags, err = decodeTags(tags); err != nil {
		return nil, err
	}
	return &s, nil
}

func scanVersion(row pgx.Row) (*simplevideo.Version, error) {
	var v simplevideo.Version
	err := row.Scan(&v.ID, &v.AssetID, &v.Number, &v.Location, &v.SizeBytes, &v.Hash, &v.ChangeDescription,
		&v.CreatedBy, &v.CreatedAt, &v.IsActive)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func scanMetadata(row pgx.Row) (*simplevideo.Metadata, error) {
	var m simplevideo.Metadata
	var tags []byte
	err := row.Scan(&m.AssetID, &m.Width, &m.Height, &m.Resolution, &m.FrameRate, &m.VideoCodec, &m.AudioCodec,
		&m.BitRate, &m.AspectRatio, &m.ColorSpace, &m.AudioChannels, &m.AudioSampleRate, &m.Container,
		&tags, &m.ViewCount, &m.LastViewedAt)
	if err != nil {
		return nil, err
	}
	if m.Tags, err = decodeTags(tags); err != nil {
		return nil, err
	}
	return &m, nil
}

func encodeTags(tags simplevideo.Tags) (string, error) {
	data, err := json.Marshal(simplevideo.NewTags(tags...))
	if err != nil {
		return "", &simplevideo.PersistenceError{Op: "encode tags", Err: err}
	}
	return string(data), nil
}

func decodeTags(data []byte) (simplevideo.Tags, error) {
	if len(data) == 0 {
		return simplevideo.Tags{}, nil
	}
	var values []string
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	return simplevideo.NewTags(values...), nil
}

// handlePostgresError maps driver errors onto the store's error kinds.
// Errors that already carry a kind pass through.
func handlePostgresError(operation string, err error) error {
	if simplevideo.Kind(err) != simplevideo.KindUnknown {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%s: duplicate entry (%s): %w", operation, pgErr.ConstraintName, simplevideo.ErrConflict)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%s: %w", operation, simplevideo.ErrAssetNotFound)
		case "40001", "40P01", "55P03": // serialization_failure, deadlock_detected, lock_not_available
			return fmt.Errorf("%s: %s: %w", operation, pgErr.Message, simplevideo.ErrConflict)
		case "23502": // not_null_violation
			return &simplevideo.PersistenceError{Op: operation, Err: fmt.Errorf("required field %s is missing", pgErr.ColumnName)}
		case "42P01": // undefined_table
			return &simplevideo.PersistenceError{Op: operation, Err: fmt.Errorf("table does not exist - database migration required")}
		}
	}
	return &simplevideo.PersistenceError{Op: operation, Err: err}
}
