package simplevideo

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// NoopEventSink discards every event.
type NoopEventSink struct{}

// NewNoopEventSink creates a new no-operation event sink
func NewNoopEventSink() EventSink {
	return &NoopEventSink{}
}

func (n *NoopEventSink) AssetCreated(ctx context.Context, asset *Asset) error {
	return nil
}

func (n *NoopEventSink) AssetUpdated(ctx context.Context, asset *Asset) error {
	return nil
}

func (n *NoopEventSink) AssetDeleted(ctx context.Context, assetID uuid.UUID) error {
	return nil
}

func (n *NoopEventSink) VersionAdded(ctx context.Context, version *Version) error {
	return nil
}

func (n *NoopEventSink) AssetViewed(ctx context.Context, assetID uuid.UUID, viewCount int64) error {
	return nil
}

// LoggingEventSink writes one structured log line per event.
type LoggingEventSink struct {
	logger *slog.Logger
}

// NewLoggingEventSink logs events to logger, or slog.Default when nil.
func NewLoggingEventSink(logger *slog.Logger) EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingEventSink{logger: logger.With("component", "events")}
}

func (l *LoggingEventSink) AssetCreated(ctx context.Context, asset *Asset) error {
	l.logger.InfoContext(ctx, "asset created", "asset_id", asset.ID, "title", asset.Title, "actor", asset.CreatedBy)
	return nil
}

func (l *LoggingEventSink) AssetUpdated(ctx context.Context, asset *Asset) error {
	l.logger.InfoContext(ctx, "asset updated", "asset_id", asset.ID, "actor", asset.UpdatedBy)
	return nil
}

func (l *LoggingEventSink) AssetDeleted(ctx context.Context, assetID uuid.UUID) error {
	l.logger.InfoContext(ctx, "asset deleted", "asset_id", assetID)
	return nil
}

func (l *LoggingEventSink) VersionAdded(ctx context.Context, version *Version) error {
	l.logger.InfoContext(ctx, "version added",
		"asset_id", version.AssetID,
		"number", version.Number,
		"size_bytes", version.SizeBytes,
		"hash", version.Hash,
		"actor", version.CreatedBy,
	)
	return nil
}

func (l *LoggingEventSink) AssetViewed(ctx context.Context, assetID uuid.UUID, viewCount int64) error {
	l.logger.DebugContext(ctx, "asset viewed", "asset_id", assetID, "view_count", viewCount)
	return nil
}
