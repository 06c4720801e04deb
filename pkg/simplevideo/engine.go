package simplevideo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxVersionRetries bounds version number allocation under contention.
const DefaultMaxVersionRetries = 8

// Engine performs every mutation of the asset store. It is safe for
// concurrent use; all shared state lives in the catalog and content stores.
type Engine struct {
	catalog    CatalogStore
	content    ContentStore
	eventSink  EventSink
	logger     *slog.Logger
	maxRetries int
	spoolDir   string
	now        func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithCatalog sets the catalog store
func WithCatalog(catalog CatalogStore) Option {
	return func(e *Engine) {
		e.catalog = catalog
	}
}

// WithContent sets the content store
func WithContent(content ContentStore) Option {
	return func(e *Engine) {
		e.content = content
	}
}

// WithEventSink sets the event sink
func WithEventSink(sink EventSink) Option {
	return func(e *Engine) {
		e.eventSink = sink
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithMaxVersionRetries sets how many times AddVersion re-allocates a
// version number after a conflict.
func WithMaxVersionRetries(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxRetries = n
		}
	}
}

// WithSpoolDir sets where non-seekable uploads are staged.
func WithSpoolDir(dir string) Option {
	return func(e *Engine) {
		e.spoolDir = dir
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an engine. A catalog and a content store are required.
func NewEngine(options ...Option) (*Engine, error) {
	e := &Engine{
		eventSink:  NewNoopEventSink(),
		logger:     slog.Default(),
		maxRetries: DefaultMaxVersionRetries,
		now:        time.Now,
	}

	for _, option := range options {
		option(e)
	}

	if e.catalog == nil {
		return nil, fmt.Errorf("catalog store is required")
	}
	if e.content == nil {
		return nil, fmt.Errorf("content store is required")
	}

	return e, nil
}

func (e *Engine) timestamp() time.Time {
	return e.now().UTC()
}

// Asset operations

func (e *Engine) CreateAsset(ctx context.Context, req CreateAssetRequest, actor string) (*Asset, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	now := e.timestamp()
	asset := &Asset{
		ID:               uuid.New(),
		Title:            req.Title,
		Description:      req.Description,
		OriginalFileName: req.OriginalFileName,
		FileSizeBytes:    req.FileSizeBytes,
		FileFormat:       req.FileFormat,
		DurationSeconds:  req.DurationSeconds,
		ThumbnailPath:    req.ThumbnailPath,
		Status:           AssetStatusActive,
		CreatedAt:        now,
		CreatedBy:        normalizeActor(actor),
	}
	meta := &Metadata{
		AssetID: asset.ID,
		Tags:    NewTags(req.Tags...),
	}

	if err := e.catalog.CreateAsset(ctx, asset, meta); err != nil {
		return nil, e.catalogError(asset.ID, "create", err)
	}

	if err := e.eventSink.AssetCreated(ctx, asset); err != nil {
		e.logger.WarnContext(ctx, "event sink failed", "event", "asset_created", "asset_id", asset.ID, "error", err)
	}
	return asset, nil
}

func (e *Engine) GetAsset(ctx context.Context, id uuid.UUID) (*Asset, error) {
	asset, err := e.catalog.GetAsset(ctx, id)
	if err != nil {
		return nil, e.catalogError(id, "get", err)
	}
	return asset, nil
}

func (e *Engine) GetMetadata(ctx context.Context, id uuid.UUID) (*Metadata, error) {
	meta, err := e.catalog.GetMetadata(ctx, id)
	if err != nil {
		return nil, e.catalogError(id, "get_metadata", err)
	}
	return meta, nil
}

// UpdateAsset edits title, description and tags.
func (e *Engine) UpdateAsset(ctx context.Context, id uuid.UUID, req UpdateAssetRequest, actor string) (*Asset, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	update := AssetUpdate{
		ID:          id,
		Title:       req.Title,
		Description: req.Description,
		UpdatedAt:   e.timestamp(),
		UpdatedBy:   normalizeActor(actor),
	}
	if req.Tags != nil {
		update.Tags = NewTags(req.Tags...)
	}

	asset, err := e.catalog.UpdateAsset(ctx, update)
	if err != nil {
		return nil, e.catalogError(id, "update", err)
	}

	if err := e.eventSink.AssetUpdated(ctx, asset); err != nil {
		e.logger.WarnContext(ctx, "event sink failed", "event", "asset_updated", "asset_id", id, "error", err)
	}
	return asset, nil
}

// SetTechnicalMetadata records externally inspected attributes.
func (e *Engine) SetTechnicalMetadata(ctx context.Context, id uuid.UUID, tech TechnicalMetadata) (*Metadata, error) {
	if err := e.catalog.SetTechnicalMetadata(ctx, id, tech); err != nil {
		return nil, e.catalogError(id, "set_metadata", err)
	}
	return e.GetMetadata(ctx, id)
}

// SoftDelete hides the asset. Versions, metadata and content are retained.
func (e *Engine) SoftDelete(ctx context.Context, id uuid.UUID, actor string) error {
	if err := e.catalog.SoftDelete(ctx, id, e.timestamp(), normalizeActor(actor)); err != nil {
		return e.catalogError(id, "delete", err)
	}

	if err := e.eventSink.AssetDeleted(ctx, id); err != nil {
		e.logger.WarnContext(ctx, "event sink failed", "event", "asset_deleted", "asset_id", id, "error", err)
	}
	return nil
}

// IncrementView counts one view of the asset and returns the new total.
func (e *Engine) IncrementView(ctx context.Context, id uuid.UUID) (int64, error) {
	count, err := e.catalog.IncrementView(ctx, id, e.timestamp())
	if err != nil {
		return 0, e.catalogError(id, "increment_view", err)
	}

	if err := e.eventSink.AssetViewed(ctx, id, count); err != nil {
		e.logger.WarnContext(ctx, "event sink failed", "event", "asset_viewed", "asset_id", id, "error", err)
	}
	return count, nil
}

// PendingContent reports bytes stored under the asset's next version number
// that have no version record. They exist while an upload is in flight, and
// for good after a crash between storing and recording; until they are
// removed AddVersion on the asset cannot succeed.
func (e *Engine) PendingContent(ctx context.Context, assetID uuid.UUID) (string, bool, error) {
	latest, err := e.catalog.MaxVersionNumber(ctx, assetID)
	if err != nil {
		return "", false, e.catalogError(assetID, "pending_content", err)
	}

	location := ContentLocation(assetID, latest+1)
	rc, err := e.content.Get(ctx, location)
	if errors.Is(err, ErrContentNotFound) {
		return location, false, nil
	}
	if err != nil {
		return "", false, e.contentError(assetID, "pending_content", location, err)
	}
	rc.Close()
	return location, true, nil
}

// UploadAsset creates an asset from its first file in one step. The file
// becomes version 1. If the content cannot be stored the new asset is
// soft-deleted again, so a failed upload leaves nothing listed.
func (e *Engine) UploadAsset(ctx context.Context, req UploadAssetRequest, actor string) (*Asset, *Version, error) {
	if req.Reader == nil {
		return nil, nil, &ValidationError{Field: "content", Reason: "must be provided"}
	}
	if err := validateTitle(req.Title); err != nil {
		return nil, nil, err
	}
	if err := validateDescription(req.Description); err != nil {
		return nil, nil, err
	}
	actor = normalizeActor(actor)

	src, release, err := e.stage(ctx, uuid.Nil, "upload", req.Reader)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	size, err := remaining(src)
	if err != nil {
		return nil, nil, &StorageError{Backend: "spool", Op: "size", Err: err}
	}
	if size == 0 {
		return nil, nil, &ValidationError{Field: "content", Reason: "must not be empty"}
	}

	asset, err := e.CreateAsset(ctx, CreateAssetRequest{
		Title:            req.Title,
		Description:      req.Description,
		OriginalFileName: req.OriginalFileName,
		FileSizeBytes:    size,
		FileFormat:       FileFormat(req.OriginalFileName),
		Tags:             req.Tags,
	}, actor)
	if err != nil {
		return nil, nil, err
	}

	changeDescription := req.ChangeDescription
	if changeDescription == "" {
		changeDescription = InitialUploadDescription
	}
	version, err := e.AddVersion(ctx, AddVersionRequest{
		AssetID:           asset.ID,
		Reader:            src,
		ChangeDescription: changeDescription,
	}, actor)
	if err != nil {
		if delErr := e.SoftDelete(context.WithoutCancel(ctx), asset.ID, actor); delErr != nil {
			e.logger.ErrorContext(ctx, "failed to withdraw asset after upload failure", "asset_id", asset.ID, "error", delErr)
		}
		return nil, nil, err
	}
	return asset, version, nil
}

// Version operations

// AddVersion stores new bytes for the asset and makes them the active
// version. Bytes are written before the catalog transaction; a failed
// commit removes them again.
func (e *Engine) AddVersion(ctx context.Context, req AddVersionRequest, actor string) (*Version, error) {
	if req.Reader == nil {
		return nil, &ValidationError{Field: "content", Reason: "must be provided"}
	}
	actor = normalizeActor(actor)

	if _, err := e.catalog.GetAsset(ctx, req.AssetID); err != nil {
		return nil, e.catalogError(req.AssetID, "add_version", err)
	}

	src, release, err := e.stage(ctx, req.AssetID, "add_version", req.Reader)
	if err != nil {
		return nil, err
	}
	defer release()

	for attempt := 0; attempt < e.maxRetries; attempt++ {
		if attempt > 0 {
			if err := e.backoff(ctx, attempt); err != nil {
				return nil, &AssetError{AssetID: req.AssetID, Op: "add_version", Err: err}
			}
			if _, err := src.Seek(0, io.SeekStart); err != nil {
				return nil, &AssetError{AssetID: req.AssetID, Op: "add_version", Err: &StorageError{Backend: "spool", Op: "rewind", Err: err}}
			}
		}

		version, err := e.tryAddVersion(ctx, req, src, actor)
		if err == nil {
			if err := e.eventSink.VersionAdded(ctx, version); err != nil {
				e.logger.WarnContext(ctx, "event sink failed", "event", "version_added", "asset_id", req.AssetID, "error", err)
			}
			return version, nil
		}
		if Kind(err) != KindConflict {
			return nil, err
		}
		e.logger.DebugContext(ctx, "version number collision, retrying", "asset_id", req.AssetID, "attempt", attempt+1, "error", err)
	}

	e.logger.WarnContext(ctx, "version allocation retries exhausted", "asset_id", req.AssetID, "retries", e.maxRetries)
	return nil, &AssetError{AssetID: req.AssetID, Op: "add_version", Err: ErrRetriesExhausted}
}

func (e *Engine) tryAddVersion(ctx context.Context, req AddVersionRequest, src io.Reader, actor string) (*Version, error) {
	latest, err := e.catalog.MaxVersionNumber(ctx, req.AssetID)
	if err != nil {
		return nil, e.catalogError(req.AssetID, "add_version", err)
	}
	number := latest + 1

	body := newDigestReader(src)
	location, err := e.content.Put(ctx, req.AssetID, number, body)
	if err != nil {
		return nil, e.contentError(req.AssetID, "add_version", ContentLocation(req.AssetID, number), err)
	}

	if body.size == 0 {
		e.discard(ctx, req.AssetID, location)
		return nil, &ValidationError{Field: "content", Reason: "must not be empty"}
	}

	version := &Version{
		ID:                uuid.New(),
		AssetID:           req.AssetID,
		Number:            number,
		Location:          location,
		SizeBytes:         body.size,
		Hash:              body.Sum(),
		ChangeDescription: req.ChangeDescription,
		CreatedBy:         actor,
		CreatedAt:         e.timestamp(),
		IsActive:          true,
	}

	if err := e.catalog.AppendVersion(ctx, version); err != nil {
		e.discard(ctx, req.AssetID, location)
		return nil, e.catalogError(req.AssetID, "add_version", err)
	}
	return version, nil
}

func (e *Engine) GetVersion(ctx context.Context, assetID uuid.UUID, number int) (*Version, error) {
	version, err := e.catalog.GetVersion(ctx, assetID, number)
	if err != nil {
		return nil, e.catalogError(assetID, "get_version", err)
	}
	return version, nil
}

func (e *Engine) GetActiveVersion(ctx context.Context, assetID uuid.UUID) (*Version, error) {
	version, err := e.catalog.GetActiveVersion(ctx, assetID)
	if err != nil {
		return nil, e.catalogError(assetID, "get_active_version", err)
	}
	return version, nil
}

func (e *Engine) ListVersions(ctx context.Context, assetID uuid.UUID) ([]*Version, error) {
	versions, err := e.catalog.ListVersions(ctx, assetID)
	if err != nil {
		return nil, e.catalogError(assetID, "list_versions", err)
	}
	return versions, nil
}

// OpenVersion returns a version and a stream of its bytes. The caller
// closes the stream.
func (e *Engine) OpenVersion(ctx context.Context, assetID uuid.UUID, number int) (*Version, io.ReadCloser, error) {
	version, err := e.GetVersion(ctx, assetID, number)
	if err != nil {
		return nil, nil, err
	}
	return e.open(ctx, version)
}

// OpenActive returns the active version and a stream of its bytes.
func (e *Engine) OpenActive(ctx context.Context, assetID uuid.UUID) (*Version, io.ReadCloser, error) {
	version, err := e.GetActiveVersion(ctx, assetID)
	if err != nil {
		return nil, nil, err
	}
	return e.open(ctx, version)
}

func (e *Engine) open(ctx context.Context, version *Version) (*Version, io.ReadCloser, error) {
	rc, err := e.content.Get(ctx, version.Location)
	if err != nil {
		return nil, nil, e.contentError(version.AssetID, "open_version", version.Location, err)
	}
	return version, rc, nil
}

// Helpers

// remaining reports the bytes left in rs and leaves its offset unchanged.
func remaining(rs io.ReadSeeker) (int64, error) {
	start, err := rs.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	end, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := rs.Seek(start, io.SeekStart); err != nil {
		return 0, err
	}
	return end - start, nil
}

// stage makes r rewindable for retries, wrapping failures for op.
func (e *Engine) stage(ctx context.Context, assetID uuid.UUID, op string, r io.Reader) (io.ReadSeeker, func(), error) {
	src, release, err := e.rewindable(ctx, r)
	if err != nil {
		if Kind(err) != KindCanceled {
			err = &StorageError{Backend: "spool", Op: "stage", Err: err}
		}
		return nil, nil, &AssetError{AssetID: assetID, Op: op, Err: err}
	}
	return src, release, nil
}

// rewindable returns r itself when it can seek, otherwise a temp file holding
// its bytes. Retries replay the upload from the start.
func (e *Engine) rewindable(ctx context.Context, r io.Reader) (io.ReadSeeker, func(), error) {
	if rs, ok := r.(io.ReadSeeker); ok {
		return rs, func() {}, nil
	}

	f, err := os.CreateTemp(e.spoolDir, "simplevideo-upload-*")
	if err != nil {
		return nil, nil, err
	}
	release := func() {
		f.Close()
		os.Remove(f.Name())
	}
	if _, err := io.Copy(f, r); err != nil {
		release()
		// a dropped client surfaces as a read error on r
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, nil, ctxErr
		}
		return nil, nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		release()
		return nil, nil, err
	}
	return f, release, nil
}

func (e *Engine) backoff(ctx context.Context, attempt int) error {
	base := time.Duration(attempt) * 5 * time.Millisecond
	wait := base + rand.N(5*time.Millisecond)
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// discard removes content written by a failed attempt. Failure only leaves
// an orphan, so it is logged rather than returned.
func (e *Engine) discard(ctx context.Context, assetID uuid.UUID, location string) {
	if _, err := e.content.Delete(context.WithoutCancel(ctx), location); err != nil {
		e.logger.ErrorContext(ctx, "failed to remove orphaned content", "asset_id", assetID, "location", location, "error", err)
	}
}

// catalogError attaches context to a catalog failure. Errors of no known
// kind are treated as persistence failures.
func (e *Engine) catalogError(assetID uuid.UUID, op string, err error) error {
	if Kind(err) == KindUnknown {
		err = &PersistenceError{Op: op, Err: err}
	}
	var assetErr *AssetError
	if errors.As(err, &assetErr) {
		return err
	}
	return &AssetError{AssetID: assetID, Op: op, Err: err}
}

func (e *Engine) contentError(assetID uuid.UUID, op, key string, err error) error {
	if Kind(err) == KindUnknown {
		err = &StorageError{Backend: "content", Key: key, Op: op, Err: err}
	}
	return &AssetError{AssetID: assetID, Op: op, Err: err}
}
