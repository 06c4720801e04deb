// Package simplevideo is a versioned video asset store.
//
// An Asset is a logical video record. Each upload of new bytes for an asset
// becomes a numbered Version; exactly one version per asset is active at a
// time. Technical attributes, tags and engagement counters live in the
// asset's Metadata record.
//
// The package is split into two pluggable storage contracts and two
// services built on top of them:
//
//   - ContentStore persists version bytes keyed by (asset id, version number).
//   - CatalogStore persists Asset, Version and Metadata records transactionally.
//   - Engine performs every mutation (create, add version, update, soft-delete,
//     view counting).
//   - QueryService serves paginated, filtered and sorted read models.
//
// Basic usage:
//
//	catalog := memorycatalog.New()
//	content := memorycontent.New()
//
//	engine, err := simplevideo.NewEngine(
//		simplevideo.WithCatalog(catalog),
//		simplevideo.WithContent(content),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	asset, err := engine.CreateAsset(ctx, simplevideo.CreateAssetRequest{
//		Title:         "Demo",
//		FileSizeBytes: 1024,
//	}, "alice")
//
//	version, err := engine.AddVersion(ctx, simplevideo.AddVersionRequest{
//		AssetID: asset.ID,
//		Reader:  file,
//	}, "alice")
//
// Concrete stores live in the catalog/ and content/ sub-packages; the
// config package assembles a complete stack from environment settings.
package simplevideo
